package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/freeeve/partycards/internal/model"
)

func TestSplitIDs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"base", []string{"base"}},
		{" base , family_edition,,", []string{"base", "family_edition"}},
	}
	for _, tt := range tests {
		got := splitIDs(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("splitIDs(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for _, id := range tt.want {
			if !got[id] {
				t.Errorf("splitIDs(%q) missing %q", tt.in, id)
			}
		}
	}
}

func newPackFile(id string, black []model.BlackCardDef, white ...string) packFile {
	var pf packFile
	pf.Pack.ID = id
	pf.Black = black
	pf.White = white
	return pf
}

func TestConvertPack(t *testing.T) {
	family := importOptions{family: map[string]bool{"fam": true}}
	tests := []struct {
		name    string
		id      string
		typeID  string
		pf      packFile
		opts    importOptions
		wantErr string
		check   func(t *testing.T, p *model.Pack)
	}{
		{
			name:   "official defaults on",
			id:     "base",
			typeID: "official",
			pf:     newPackFile("base", []model.BlackCardDef{{Content: "Why? _", Pick: 1}}, "a", "b"),
			check: func(t *testing.T, p *model.Pack) {
				if !p.IsOfficial || !p.IsDefault || p.IsFamily {
					t.Errorf("unexpected flags %+v", p)
				}
				if p.Name != "base" {
					t.Errorf("expected name to fall back to id, got %q", p.Name)
				}
			},
		},
		{
			name:   "third party is not default",
			id:     "extra",
			typeID: "thirdparty",
			pf:     newPackFile("", nil, "a"),
			check: func(t *testing.T, p *model.Pack) {
				if p.IsOfficial || p.IsDefault {
					t.Errorf("unexpected flags %+v", p)
				}
			},
		},
		{
			name:   "explicit defaults override",
			id:     "base",
			typeID: "official",
			pf:     newPackFile("base", nil, "a"),
			opts:   importOptions{defaults: map[string]bool{"other": true}},
			check: func(t *testing.T, p *model.Pack) {
				if p.IsDefault {
					t.Error("base is not in the defaults list")
				}
			},
		},
		{
			name:   "family flag",
			id:     "fam",
			typeID: "official",
			pf:     newPackFile("fam", nil, "a"),
			opts:   family,
			check: func(t *testing.T, p *model.Pack) {
				if !p.IsFamily {
					t.Error("expected family pack")
				}
			},
		},
		{
			name:   "pick and draw clamped",
			id:     "base",
			typeID: "official",
			pf:     newPackFile("base", []model.BlackCardDef{{Content: "  _ and _ ", Pick: 0, Draw: -2}}),
			check: func(t *testing.T, p *model.Pack) {
				b := p.Black[0]
				if b.Pick != 1 || b.Draw != 0 || b.Content != "_ and _" {
					t.Errorf("unexpected black card %+v", b)
				}
			},
		},
		{name: "id mismatch", id: "base", pf: newPackFile("other", nil, "a"), wantErr: "declares id"},
		{name: "no cards", id: "base", pf: newPackFile("base", nil), wantErr: "no cards"},
		{name: "empty white", id: "base", pf: newPackFile("base", nil, "a", "  "), wantErr: "white card 1"},
		{name: "empty black", id: "base", pf: newPackFile("base", []model.BlackCardDef{{Content: " "}}), wantErr: "black card 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := convertPack(tt.id, tt.typeID, tt.pf, tt.opts)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, p)
		})
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadPacks(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "types.json"),
		`{"types":[{"id":"official","name":"Official","packs":["base"]},{"id":"thirdparty","name":"Community","packs":["extra"]}]}`)
	writeFile(t, filepath.Join(dir, "official", "packs", "base.json"),
		`{"pack":{"id":"base","name":"Base Set"},"black":[{"content":"_ is great.","pick":1,"draw":0}],"white":["Cats","Dogs"]}`)
	writeFile(t, filepath.Join(dir, "thirdparty", "packs", "extra.json"),
		`{"pack":{"id":"extra","name":"Extra"},"black":[],"white":["Tea"]}`)

	packs, err := loadPacks(dir, importOptions{})
	if err != nil {
		t.Fatalf("loadPacks: %v", err)
	}
	if len(packs) != 2 {
		t.Fatalf("expected 2 packs, got %d", len(packs))
	}
	if packs[0].Name != "Base Set" || len(packs[0].White) != 2 || !packs[0].IsDefault {
		t.Errorf("unexpected base pack %+v", packs[0])
	}
	if packs[1].IsOfficial {
		t.Error("extra should not be official")
	}
}

func TestLoadPacksErrors(t *testing.T) {
	t.Run("missing index", func(t *testing.T) {
		if _, err := loadPacks(t.TempDir(), importOptions{}); err == nil {
			t.Error("expected an error without types.json")
		}
	})
	t.Run("missing pack file", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "types.json"), `{"types":[{"id":"official","packs":["base"]}]}`)
		if _, err := loadPacks(dir, importOptions{}); err == nil {
			t.Error("expected an error for a missing pack file")
		}
	})
	t.Run("duplicate pack", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "types.json"),
			`{"types":[{"id":"official","packs":["base"]},{"id":"thirdparty","packs":["base"]}]}`)
		writeFile(t, filepath.Join(dir, "official", "packs", "base.json"), `{"white":["a"]}`)
		_, err := loadPacks(dir, importOptions{})
		if err == nil || !strings.Contains(err.Error(), "more than once") {
			t.Errorf("expected duplicate error, got %v", err)
		}
	})
	t.Run("empty index", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "types.json"), `{"types":[]}`)
		if _, err := loadPacks(dir, importOptions{}); err == nil {
			t.Error("expected an error for an empty index")
		}
	})
}
