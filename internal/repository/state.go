// Package repository persists the serialized model blob. The blob is opaque
// here: the engine decides its shape, the repository only stores and returns
// it verbatim.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"battle-tracker/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type StateRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewStateRepository(db *sql.DB, logger zerolog.Logger) *StateRepository {
	return &StateRepository{db: db, logger: logger}
}

// Save writes a new revision of the model blob for the given access key.
// Older revisions are pruned so the table holds one row per key.
func (r *StateRepository) Save(ctx context.Context, accessKey string, model *domain.Model) error {
	blob, err := json.Marshal(model)
	if err != nil {
		return fmt.Errorf("failed to encode state blob: %w", err)
	}

	id, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("failed to generate nanoid: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM tracker_state WHERE access_key = ?`, accessKey); err != nil {
		return fmt.Errorf("failed to prune old state: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO tracker_state (id, access_key, blob, saved_at) VALUES (?, ?, ?, ?)`,
		id, accessKey, string(blob), time.Now()); err != nil {
		return fmt.Errorf("failed to insert state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit state: %w", err)
	}

	r.logger.Debug().
		Str("state_id", id).
		Int("blob_bytes", len(blob)).
		Msg("state saved")
	return nil
}

// Load returns the latest persisted model for the access key, or nil when
// nothing has been saved yet.
func (r *StateRepository) Load(ctx context.Context, accessKey string) (*domain.Model, error) {
	var blob string
	err := r.db.QueryRowContext(ctx,
		`SELECT blob FROM tracker_state WHERE access_key = ? ORDER BY saved_at DESC LIMIT 1`,
		accessKey).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	var model domain.Model
	if err := json.Unmarshal([]byte(blob), &model); err != nil {
		return nil, fmt.Errorf("failed to decode state blob: %w", err)
	}
	if model.Battles == nil {
		model.Battles = make(map[string]domain.Battle)
	}
	if model.Players == nil {
		model.Players = make(map[string]string)
	}
	return &model, nil
}

// Clear removes every persisted revision for the access key.
func (r *StateRepository) Clear(ctx context.Context, accessKey string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM tracker_state WHERE access_key = ?`, accessKey); err != nil {
		return fmt.Errorf("failed to clear state: %w", err)
	}
	r.logger.Debug().Msg("state cleared")
	return nil
}
