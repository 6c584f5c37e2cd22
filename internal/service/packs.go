package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/partycards/internal/model"
	"github.com/freeeve/partycards/internal/repository"
	"github.com/freeeve/partycards/pkg/cards"
)

// PackSource is the card lookup the engine deals from.
type PackSource interface {
	Pack(ctx context.Context, id string) (*model.Pack, error)
	DefaultPackIDs(ctx context.Context, family bool) ([]string, error)
}

type cachedPack struct {
	pack    *model.Pack
	expires time.Time
}

// PackCatalog caches pack definitions read from the pack repository. Packs
// change rarely and every deal reads all of a game's packs.
type PackCatalog struct {
	repo repository.PackRepository
	ttl  time.Duration
	now  func() time.Time

	mu    sync.RWMutex
	packs map[string]cachedPack
}

// NewPackCatalog creates a PackCatalog. A zero ttl disables caching.
func NewPackCatalog(repo repository.PackRepository, ttl time.Duration) *PackCatalog {
	return &PackCatalog{
		repo:  repo,
		ttl:   ttl,
		now:   time.Now,
		packs: make(map[string]cachedPack),
	}
}

// Pack returns the pack with the given id.
func (c *PackCatalog) Pack(ctx context.Context, id string) (*model.Pack, error) {
	c.mu.RLock()
	entry, ok := c.packs[id]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expires) {
		return entry.pack, nil
	}

	pack, err := c.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load pack %s: %w", id, err)
	}
	if pack == nil {
		return nil, fmt.Errorf("%w: %s", ErrPackNotFound, id)
	}
	if c.ttl > 0 {
		c.mu.Lock()
		c.packs[id] = cachedPack{pack: pack, expires: c.now().Add(c.ttl)}
		c.mu.Unlock()
	}
	return pack, nil
}

// DefaultPackIDs returns the packs a new game starts with.
func (c *PackCatalog) DefaultPackIDs(ctx context.Context, family bool) ([]string, error) {
	return c.repo.DefaultPackIDs(ctx, family)
}

// Invalidate drops a pack from the cache.
func (c *PackCatalog) Invalidate(id string) {
	c.mu.Lock()
	delete(c.packs, id)
	c.mu.Unlock()
	log.Debug().Str("packId", id).Msg("Pack cache entry dropped")
}

// blackCardDef resolves a dealt prompt to its definition.
func blackCardDef(ctx context.Context, src PackSource, id cards.CardID) (model.BlackCardDef, error) {
	pack, err := src.Pack(ctx, id.PackID)
	if err != nil {
		return model.BlackCardDef{}, err
	}
	if id.CardIndex < 0 || id.CardIndex >= len(pack.Black) {
		return model.BlackCardDef{}, fmt.Errorf("%w: prompt %s", ErrPackNotFound, id.Key())
	}
	def := pack.Black[id.CardIndex]
	if def.Pick < 1 {
		def.Pick = 1
	}
	return def, nil
}

// allowedCards builds the allowed ledgers for the game's packs.
func allowedCards(ctx context.Context, src PackSource, g *model.Game) (black, white cards.PackMap, err error) {
	packIDs := g.PacksForGame()
	if len(packIDs) == 0 {
		return nil, nil, ErrNoPacks
	}
	black, white = cards.PackMap{}, cards.PackMap{}
	for _, id := range packIDs {
		pack, err := src.Pack(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		if len(pack.Black) > 0 {
			black[id] = cards.FullPack(id, len(pack.Black))
		}
		if len(pack.White) > 0 {
			white[id] = cards.FullPack(id, len(pack.White))
		}
	}
	return black, white, nil
}
