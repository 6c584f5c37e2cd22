package repository

import (
	"context"
	"errors"

	"github.com/freeeve/partycards/internal/model"
)

var (
	// ErrDuplicateID is returned when a game id is already taken.
	ErrDuplicateID = errors.New("game id already exists")
	// ErrVersionConflict is returned when a game changed since it was read.
	ErrVersionConflict = errors.New("game was modified concurrently")
)

// GameStore holds one document per game keyed by id.
type GameStore interface {
	// Insert stores a new game, failing with ErrDuplicateID on id collision.
	Insert(ctx context.Context, game *model.Game) error
	// FindByID returns nil, nil when the game does not exist.
	FindByID(ctx context.Context, id string) (*model.Game, error)
	// Update replaces the document when its stored version still equals
	// game.Version, then bumps game.Version. Otherwise ErrVersionConflict.
	Update(ctx context.Context, game *model.Game) error
	// ListPublic returns recently active public games, newest first.
	ListPublic(ctx context.Context, offset, limit int) ([]*model.Game, error)
}

// PackRepository looks up card packs.
type PackRepository interface {
	FindByID(ctx context.Context, id string) (*model.Pack, error)
	DefaultPackIDs(ctx context.Context, family bool) ([]string, error)
	Upsert(ctx context.Context, pack *model.Pack) error
}

// Publisher is the cross-process signal for committed state and chat.
type Publisher interface {
	PublishGame(ctx context.Context, payload *model.GamePayload) error
	PublishChat(ctx context.Context, payload *model.ChatPayload) error
}
