package progress

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"laurel/internal/badges/models"
	"laurel/pkg/platform/sentinel"
	"laurel/pkg/platform/tx"

	"github.com/google/uuid"
)

// PostgresStore persists progress rows in PostgreSQL, keyed by the
// (badge_id, user_id) unique index. Notes are stored as JSONB.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Upsert(ctx context.Context, p *models.Progress) error {
	notes, err := json.Marshal(p.Notes)
	if err != nil {
		return fmt.Errorf("marshal progress notes: %w", err)
	}
	q := tx.Querier(ctx, s.db)
	_, err = q.ExecContext(ctx, `
		INSERT INTO badge_progress (id, badge_id, user_id, percent, counter, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (badge_id, user_id) DO UPDATE
		SET percent = EXCLUDED.percent, counter = EXCLUDED.counter, notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at`,
		p.ID, p.BadgeID, p.UserID, p.Percent, p.Counter, notes, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByBadgeAndUser(ctx context.Context, badgeID, userID uuid.UUID) (*models.Progress, error) {
	q := tx.Querier(ctx, s.db)
	var p models.Progress
	var notes []byte
	err := q.QueryRowContext(ctx, `
		SELECT id, badge_id, user_id, percent, counter, notes, created_at, updated_at
		FROM badge_progress WHERE badge_id = $1 AND user_id = $2`,
		badgeID, userID).
		Scan(&p.ID, &p.BadgeID, &p.UserID, &p.Percent, &p.Counter, &notes, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get progress: %w", err)
	}
	if len(notes) > 0 {
		if err := json.Unmarshal(notes, &p.Notes); err != nil {
			return nil, fmt.Errorf("unmarshal progress notes: %w", err)
		}
	}
	if p.Notes == nil {
		p.Notes = make(map[string]any)
	}
	p.Saved = true
	return &p, nil
}

func (s *PostgresStore) DeleteByBadgeAndUser(ctx context.Context, badgeID, userID uuid.UUID) error {
	q := tx.Querier(ctx, s.db)
	if _, err := q.ExecContext(ctx,
		`DELETE FROM badge_progress WHERE badge_id = $1 AND user_id = $2`, badgeID, userID); err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	return nil
}
