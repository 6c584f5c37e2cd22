package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/freeeve/partycards/internal/model"
	"github.com/freeeve/partycards/internal/repository"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// publicWindow is how recently a public game must have been updated to be listed.
const publicWindow = "15 minutes"

// GameRepo stores game documents as JSONB rows keyed by game id.
type GameRepo struct {
	db *sql.DB
}

// NewGameRepo creates a GameRepo.
func NewGameRepo(db *sql.DB) *GameRepo {
	return &GameRepo{db: db}
}

// Insert stores a new game document.
func (r *GameRepo) Insert(ctx context.Context, g *model.Game) error {
	doc, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal game: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO games (id, version, is_public, doc, date_created, date_updated)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		g.ID, g.Version, g.Settings.Public, doc, g.DateCreated, g.DateUpdated,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return repository.ErrDuplicateID
		}
		return fmt.Errorf("insert game: %w", err)
	}
	return nil
}

// FindByID returns a game document, or nil if it does not exist.
func (r *GameRepo) FindByID(ctx context.Context, id string) (*model.Game, error) {
	var doc []byte
	var version int64
	err := r.db.QueryRowContext(ctx,
		`SELECT doc, version FROM games WHERE id = $1`, id,
	).Scan(&doc, &version)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find game: %w", err)
	}
	return decodeGame(doc, version)
}

// Update replaces the document if nobody else has written it since it was read.
func (r *GameRepo) Update(ctx context.Context, g *model.Game) error {
	expected := g.Version
	g.Version = expected + 1
	doc, err := json.Marshal(g)
	if err != nil {
		g.Version = expected
		return fmt.Errorf("marshal game: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE games SET doc = $2, version = $3, is_public = $4, date_updated = $5
		 WHERE id = $1 AND version = $6`,
		g.ID, doc, g.Version, g.Settings.Public, g.DateUpdated, expected,
	)
	if err != nil {
		g.Version = expected
		return fmt.Errorf("update game: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		g.Version = expected
		return fmt.Errorf("update game rows: %w", err)
	}
	if n == 0 {
		g.Version = expected
		return repository.ErrVersionConflict
	}
	return nil
}

// ListPublic returns public games updated recently, newest first.
func (r *GameRepo) ListPublic(ctx context.Context, offset, limit int) ([]*model.Game, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT doc, version FROM games
		 WHERE is_public AND date_updated > now() - $1::interval
		 ORDER BY date_updated DESC OFFSET $2 LIMIT $3`,
		publicWindow, offset, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list public games: %w", err)
	}
	defer rows.Close()

	var games []*model.Game
	for rows.Next() {
		var doc []byte
		var version int64
		if err := rows.Scan(&doc, &version); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		g, err := decodeGame(doc, version)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

func decodeGame(doc []byte, version int64) (*model.Game, error) {
	var g model.Game
	if err := json.Unmarshal(doc, &g); err != nil {
		return nil, fmt.Errorf("decode game: %w", err)
	}
	g.Version = version
	return &g, nil
}
