package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/freeeve/partycards/internal/model"
	"github.com/freeeve/partycards/internal/repository"
	"github.com/freeeve/partycards/pkg/cards"
)

// mockStore is an in-memory GameStore with the same version semantics as
// the Postgres one.
type mockStore struct {
	mu        sync.Mutex
	games     map[string]*model.Game
	updates   int
	inserts   int
	conflicts int // number of upcoming updates to fail with a conflict
	dupes     int // number of upcoming inserts to fail as duplicates
}

func newMockStore() *mockStore {
	return &mockStore{games: make(map[string]*model.Game)}
}

func (m *mockStore) Insert(_ context.Context, g *model.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts++
	if m.dupes > 0 {
		m.dupes--
		return repository.ErrDuplicateID
	}
	if _, ok := m.games[g.ID]; ok {
		return repository.ErrDuplicateID
	}
	m.games[g.ID] = g.Clone()
	return nil
}

func (m *mockStore) FindByID(_ context.Context, id string) (*model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return nil, nil
	}
	return g.Clone(), nil
}

func (m *mockStore) Update(_ context.Context, g *model.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	if m.conflicts > 0 {
		m.conflicts--
		// someone else wrote in between
		m.games[g.ID].Version++
		return repository.ErrVersionConflict
	}
	stored, ok := m.games[g.ID]
	if !ok || stored.Version != g.Version {
		return repository.ErrVersionConflict
	}
	g.Version++
	m.games[g.ID] = g.Clone()
	return nil
}

func (m *mockStore) ListPublic(_ context.Context, offset, limit int) ([]*model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Game
	for _, g := range m.games {
		if g.Settings.Public {
			out = append(out, g.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateUpdated.After(out[j].DateUpdated) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockStore) get(id string) *model.Game {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.games[id].Clone()
}

func (m *mockStore) put(g *model.Game) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[g.ID] = g.Clone()
}

// mockPacks serves packs from memory.
type mockPacks struct {
	packs    map[string]*model.Pack
	defaults []string
}

func newMockPacks(packs ...*model.Pack) *mockPacks {
	m := &mockPacks{packs: make(map[string]*model.Pack)}
	for _, p := range packs {
		m.packs[p.ID] = p
		if p.IsDefault {
			m.defaults = append(m.defaults, p.ID)
		}
	}
	return m
}

func (m *mockPacks) Pack(_ context.Context, id string) (*model.Pack, error) {
	p, ok := m.packs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPackNotFound, id)
	}
	return p, nil
}

func (m *mockPacks) DefaultPackIDs(_ context.Context, _ bool) ([]string, error) {
	return m.defaults, nil
}

// mockPackRepo is a PackRepository for catalog tests.
type mockPackRepo struct {
	packs map[string]*model.Pack
	finds int
}

func (m *mockPackRepo) FindByID(_ context.Context, id string) (*model.Pack, error) {
	m.finds++
	return m.packs[id], nil
}

func (m *mockPackRepo) DefaultPackIDs(_ context.Context, _ bool) ([]string, error) {
	var ids []string
	for id, p := range m.packs {
		if p.IsDefault {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *mockPackRepo) Upsert(_ context.Context, p *model.Pack) error {
	m.packs[p.ID] = p
	return nil
}

// makePack builds a pack with nWhite responses and nBlack prompts of the
// given pick.
func makePack(id string, nWhite, nBlack, pick int) *model.Pack {
	p := &model.Pack{ID: id, Name: id, IsDefault: true}
	for i := 0; i < nWhite; i++ {
		p.White = append(p.White, fmt.Sprintf("%s white %d", id, i))
	}
	for i := 0; i < nBlack; i++ {
		p.Black = append(p.Black, model.BlackCardDef{Content: fmt.Sprintf("%s black %d", id, i), Pick: pick})
	}
	return p
}

// mockPublisher records every publish.
type mockPublisher struct {
	mu    sync.Mutex
	games []*model.GamePayload
	chats []*model.ChatPayload
	err   error
}

func (m *mockPublisher) PublishGame(_ context.Context, p *model.GamePayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games = append(m.games, p)
	return m.err
}

func (m *mockPublisher) PublishChat(_ context.Context, p *model.ChatPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats = append(m.chats, p)
	return m.err
}

func (m *mockPublisher) gameCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.games)
}

// mockIdentity accepts secrets of the form "secret-<guid>".
type mockIdentity struct{}

var errBadSecret = errors.New("bad secret")

func (mockIdentity) Validate(id model.Identity) error {
	if id.GUID == "" || id.Secret != "secret-"+id.GUID {
		return errBadSecret
	}
	return nil
}

func ident(guid string) model.Identity {
	return model.Identity{GUID: guid, Secret: "secret-" + guid}
}

// mockTimers records what the engine asked to schedule.
type mockTimers struct {
	mu        sync.Mutex
	rounds    []time.Duration
	advances  []string
	cancelled []string
	cleared   []string

	advanceRounds []int
}

func (m *mockTimers) StartRound(_ string, timeout time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rounds = append(m.rounds, timeout)
}

func (m *mockTimers) CancelRoundTimeout(gameID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled = append(m.cancelled, "round:"+gameID)
}

func (m *mockTimers) ScheduleAdvance(_ string, chooserGUID string, roundIndex int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advances = append(m.advances, chooserGUID)
	m.advanceRounds = append(m.advanceRounds, roundIndex)
}

func (m *mockTimers) CancelAdvance(gameID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled = append(m.cancelled, "advance:"+gameID)
}

func (m *mockTimers) Clear(gameID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared = append(m.cleared, gameID)
}

// mockDriver records scheduler callbacks.
type mockDriver struct {
	autoPlays chan bool
	advances  chan string
	rounds    chan int
	kicks     chan string
	err       error
}

func newMockDriver() *mockDriver {
	return &mockDriver{
		autoPlays: make(chan bool, 16),
		advances:  make(chan string, 16),
		rounds:    make(chan int, 16),
		kicks:     make(chan string, 16),
	}
}

func (m *mockDriver) AutoPlay(_ context.Context, _ string, botsOnly bool) error {
	m.autoPlays <- botsOnly
	return m.err
}

func (m *mockDriver) AdvanceRound(_ context.Context, _ string, chooserGUID string, roundIndex int) error {
	m.rounds <- roundIndex
	m.advances <- chooserGUID
	return m.err
}

func (m *mockDriver) KickForTimeout(_ context.Context, gameID, guid string) error {
	m.kicks <- gameID + ":" + guid
	return m.err
}

// testEnv bundles a service with its mocks.
type testEnv struct {
	svc    *GameService
	store  *mockStore
	pub    *mockPublisher
	timers *mockTimers
}

func newTestEnv(packs ...*model.Pack) *testEnv {
	if len(packs) == 0 {
		packs = []*model.Pack{makePack("base", 60, 20, 1)}
	}
	store := newMockStore()
	pub := &mockPublisher{}
	timers := &mockTimers{}
	svc := NewGameService(store, newMockPacks(packs...), pub, mockIdentity{}, 7)
	svc.SetTimers(timers)
	rng := cards.NewRand(42)
	svc.rng = rng
	svc.deal.rng = rng
	return &testEnv{svc: svc, store: store, pub: pub, timers: timers}
}
