package handler

import (
	"context"
	"fmt"
	"sync"

	"github.com/freeeve/partycards/internal/model"
	"github.com/freeeve/partycards/internal/repository"
)

// --- Mock Repositories ---

type mockGameStore struct {
	mu    sync.Mutex
	games map[string]*model.Game
}

func newMockGameStore() *mockGameStore {
	return &mockGameStore{games: make(map[string]*model.Game)}
}

func (m *mockGameStore) Insert(_ context.Context, g *model.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[g.ID]; ok {
		return repository.ErrDuplicateID
	}
	m.games[g.ID] = g.Clone()
	return nil
}

func (m *mockGameStore) FindByID(_ context.Context, id string) (*model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return nil, nil
	}
	return g.Clone(), nil
}

func (m *mockGameStore) Update(_ context.Context, g *model.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.games[g.ID]
	if !ok || stored.Version != g.Version {
		return repository.ErrVersionConflict
	}
	g.Version++
	m.games[g.ID] = g.Clone()
	return nil
}

func (m *mockGameStore) ListPublic(_ context.Context, offset, limit int) ([]*model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Game
	for _, g := range m.games {
		if g.Settings.Public {
			out = append(out, g.Clone())
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	return out[offset:min(len(out), offset+limit)], nil
}

type mockPackSource struct {
	pack *model.Pack
}

func newMockPackSource() *mockPackSource {
	p := &model.Pack{ID: "base", Name: "Base", IsDefault: true}
	for i := 0; i < 60; i++ {
		p.White = append(p.White, fmt.Sprintf("white %d", i))
	}
	for i := 0; i < 10; i++ {
		p.Black = append(p.Black, model.BlackCardDef{Content: fmt.Sprintf("black %d", i), Pick: 1})
	}
	return &mockPackSource{pack: p}
}

func (m *mockPackSource) Pack(_ context.Context, id string) (*model.Pack, error) {
	if id != m.pack.ID {
		return nil, fmt.Errorf("unknown pack %s", id)
	}
	return m.pack, nil
}

func (m *mockPackSource) DefaultPackIDs(_ context.Context, _ bool) ([]string, error) {
	return []string{m.pack.ID}, nil
}

type mockPublisher struct {
	mu    sync.Mutex
	games int
	chats []*model.ChatPayload
}

func (m *mockPublisher) PublishGame(_ context.Context, _ *model.GamePayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games++
	return nil
}

func (m *mockPublisher) PublishChat(_ context.Context, p *model.ChatPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats = append(m.chats, p)
	return nil
}
