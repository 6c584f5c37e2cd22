package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/freeeve/partycards/internal/model"
)

// PackRepo handles card pack storage.
type PackRepo struct {
	db *sql.DB
}

// NewPackRepo creates a PackRepo.
func NewPackRepo(db *sql.DB) *PackRepo {
	return &PackRepo{db: db}
}

// FindByID returns a pack, or nil if it does not exist.
func (r *PackRepo) FindByID(ctx context.Context, id string) (*model.Pack, error) {
	var p model.Pack
	var black, white []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, is_official, is_family, is_default, black, white, updated_at
		 FROM packs WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.IsOfficial, &p.IsFamily, &p.IsDefault, &black, &white, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find pack: %w", err)
	}
	if err := json.Unmarshal(black, &p.Black); err != nil {
		return nil, fmt.Errorf("decode black cards: %w", err)
	}
	if err := json.Unmarshal(white, &p.White); err != nil {
		return nil, fmt.Errorf("decode white cards: %w", err)
	}
	return &p, nil
}

// DefaultPackIDs returns the packs a new game starts with. Family mode only
// includes family-friendly defaults.
func (r *PackRepo) DefaultPackIDs(ctx context.Context, family bool) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM packs WHERE is_default AND (NOT $1 OR is_family) ORDER BY id`, family,
	)
	if err != nil {
		return nil, fmt.Errorf("list default packs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pack id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Upsert inserts or replaces a pack definition.
func (r *PackRepo) Upsert(ctx context.Context, p *model.Pack) error {
	black, err := json.Marshal(p.Black)
	if err != nil {
		return fmt.Errorf("marshal black cards: %w", err)
	}
	white, err := json.Marshal(p.White)
	if err != nil {
		return fmt.Errorf("marshal white cards: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO packs (id, name, is_official, is_family, is_default, black, white, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name, is_official = EXCLUDED.is_official, is_family = EXCLUDED.is_family,
		   is_default = EXCLUDED.is_default, black = EXCLUDED.black, white = EXCLUDED.white,
		   updated_at = now()`,
		p.ID, p.Name, p.IsOfficial, p.IsFamily, p.IsDefault, black, white,
	)
	if err != nil {
		return fmt.Errorf("upsert pack: %w", err)
	}
	return nil
}
