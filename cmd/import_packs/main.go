// Command import_packs loads card pack definitions from a directory of
// JSON files and upserts them into the Postgres packs table.
//
// The directory holds a types.json index and one file per pack:
//
//	<dir>/types.json
//	<dir>/<type>/packs/<pack>.json
//
// Usage:
//
//	go run ./cmd/import_packs/ --dir ./data --db postgres://...
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/freeeve/partycards/internal/logger"
	"github.com/freeeve/partycards/internal/model"
	"github.com/freeeve/partycards/internal/repository/postgres"
)

const officialType = "official"

// typeIndex is the layout of types.json.
type typeIndex struct {
	Types []packType `json:"types"`
}

type packType struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Packs []string `json:"packs"`
}

// packFile is the on-disk form of a single pack.
type packFile struct {
	Pack struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"pack"`
	Black []model.BlackCardDef `json:"black"`
	White []string             `json:"white"`
}

// importOptions controls which flags get set on imported packs.
type importOptions struct {
	family   map[string]bool
	defaults map[string]bool
}

func main() {
	dir := flag.String("dir", "", "Directory containing types.json and pack files")
	dbURL := flag.String("db", os.Getenv("DATABASE_URL"), "Postgres connection URL")
	family := flag.String("family", "family_edition", "Comma-separated pack IDs that are family friendly")
	defaults := flag.String("defaults", "", "Comma-separated pack IDs enabled for new games (default: every official pack)")
	dryRun := flag.Bool("dry-run", false, "Parse and validate without writing")
	flag.Parse()

	logger.Init()

	if *dir == "" {
		log.Fatal().Msg("--dir is required")
	}
	if *dbURL == "" && !*dryRun {
		log.Fatal().Msg("--db or DATABASE_URL is required")
	}

	packs, err := loadPacks(*dir, importOptions{
		family:   splitIDs(*family),
		defaults: splitIDs(*defaults),
	})
	if err != nil {
		log.Fatal().Err(err).Str("dir", *dir).Msg("load packs")
	}
	log.Info().Int("packs", len(packs)).Msg("packs parsed")

	if *dryRun {
		for _, p := range packs {
			log.Info().Str("pack", p.ID).Int("black", len(p.Black)).Int("white", len(p.White)).
				Bool("official", p.IsOfficial).Bool("family", p.IsFamily).Bool("default", p.IsDefault).
				Msg("dry run")
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := postgres.Connect(ctx, *dbURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to postgres")
	}
	defer db.Close()

	repo := postgres.NewPackRepo(db)
	imported := 0
	for _, p := range packs {
		if err := repo.Upsert(ctx, p); err != nil {
			log.Error().Err(err).Str("pack", p.ID).Msg("upsert pack")
			continue
		}
		imported++
	}
	log.Info().Int("imported", imported).Int("failed", len(packs)-imported).Msg("import done")
	if imported < len(packs) {
		os.Exit(1)
	}
}

// loadPacks reads the type index under dir and every pack it lists.
func loadPacks(dir string, opts importOptions) ([]*model.Pack, error) {
	var idx typeIndex
	if err := readJSON(filepath.Join(dir, "types.json"), &idx); err != nil {
		return nil, err
	}
	if len(idx.Types) == 0 {
		return nil, errors.New("types.json lists no pack types")
	}

	var out []*model.Pack
	seen := map[string]bool{}
	for _, t := range idx.Types {
		for _, id := range t.Packs {
			if seen[id] {
				return nil, fmt.Errorf("pack %s listed more than once", id)
			}
			seen[id] = true

			var pf packFile
			if err := readJSON(filepath.Join(dir, t.ID, "packs", id+".json"), &pf); err != nil {
				return nil, err
			}
			p, err := convertPack(id, t.ID, pf, opts)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
	}
	return out, nil
}

// convertPack validates a pack file and turns it into the stored form.
func convertPack(id, typeID string, pf packFile, opts importOptions) (*model.Pack, error) {
	if pf.Pack.ID != "" && pf.Pack.ID != id {
		return nil, fmt.Errorf("pack file %s declares id %s", id, pf.Pack.ID)
	}
	if len(pf.White) == 0 && len(pf.Black) == 0 {
		return nil, fmt.Errorf("pack %s has no cards", id)
	}

	black := lo.Map(pf.Black, func(b model.BlackCardDef, _ int) model.BlackCardDef {
		b.Content = strings.TrimSpace(b.Content)
		if b.Pick < 1 {
			b.Pick = 1
		}
		if b.Draw < 0 {
			b.Draw = 0
		}
		return b
	})
	for i, b := range black {
		if b.Content == "" {
			return nil, fmt.Errorf("pack %s: black card %d is empty", id, i)
		}
	}
	white := lo.Map(pf.White, func(s string, _ int) string { return strings.TrimSpace(s) })
	if i := lo.IndexOf(white, ""); i >= 0 {
		return nil, fmt.Errorf("pack %s: white card %d is empty", id, i)
	}

	name := pf.Pack.Name
	if name == "" {
		name = id
	}
	official := typeID == officialType
	isDefault := opts.defaults[id]
	if len(opts.defaults) == 0 {
		isDefault = official
	}

	return &model.Pack{
		ID:         id,
		Name:       name,
		IsOfficial: official,
		IsFamily:   opts.family[id],
		IsDefault:  isDefault,
		Black:      black,
		White:      white,
	}, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// splitIDs parses a comma-separated list into a set, dropping blanks.
func splitIDs(s string) map[string]bool {
	ids := lo.Compact(lo.Map(strings.Split(s, ","), func(id string, _ int) string {
		return strings.TrimSpace(id)
	}))
	return lo.SliceToMap(ids, func(id string) (string, bool) { return id, true })
}
