package award

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"laurel/internal/badges/models"
	"laurel/pkg/platform/sentinel"
	"laurel/pkg/platform/tx"

	"github.com/google/uuid"
)

// PostgresStore persists awards in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const awardColumns = `id, badge_id, user_id, creator_id, description, claim_code, hidden, created_at, updated_at`

// Create inserts an award. When exclusive is set (the badge is unique), the
// insert only lands if no award exists yet for the (badge, user) pair; a lost
// race surfaces as sentinel.ErrAlreadyUsed. The database is the authoritative
// uniqueness guard, not the caller's pre-check.
func (s *PostgresStore) Create(ctx context.Context, a *models.Award, exclusive bool) error {
	q := tx.Querier(ctx, s.db)
	if !exclusive {
		_, err := q.ExecContext(ctx, `
			INSERT INTO badge_awards (`+awardColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			a.ID, a.BadgeID, a.UserID, a.CreatorID, a.Description, a.ClaimCode, a.Hidden, a.CreatedAt, a.UpdatedAt)
		if err != nil {
			return fmt.Errorf("create award: %w", err)
		}
		return nil
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO badge_awards (`+awardColumns+`)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9
		WHERE NOT EXISTS (
			SELECT 1 FROM badge_awards WHERE badge_id = $2 AND user_id = $3
		)`,
		a.ID, a.BadgeID, a.UserID, a.CreatorID, a.Description, a.ClaimCode, a.Hidden, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create award: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create award: %w", err)
	}
	if n == 0 {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, a *models.Award) error {
	q := tx.Querier(ctx, s.db)
	res, err := q.ExecContext(ctx, `
		UPDATE badge_awards
		SET description = $2, hidden = $3, updated_at = $4
		WHERE id = $1`,
		a.ID, a.Description, a.Hidden, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update award: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update award: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	q := tx.Querier(ctx, s.db)
	res, err := q.ExecContext(ctx, `DELETE FROM badge_awards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete award: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete award: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Award, error) {
	q := tx.Querier(ctx, s.db)
	a, err := scanAward(q.QueryRowContext(ctx,
		`SELECT `+awardColumns+` FROM badge_awards WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get award: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) GetByBadgeAndUser(ctx context.Context, badgeID, userID uuid.UUID) (*models.Award, error) {
	q := tx.Querier(ctx, s.db)
	a, err := scanAward(q.QueryRowContext(ctx, `
		SELECT `+awardColumns+` FROM badge_awards
		WHERE badge_id = $1 AND user_id = $2
		ORDER BY created_at LIMIT 1`, badgeID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get award by badge and user: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Award, error) {
	return s.list(ctx,
		`SELECT `+awardColumns+` FROM badge_awards WHERE user_id = $1 ORDER BY created_at`, userID)
}

func (s *PostgresStore) ListByBadge(ctx context.Context, badgeID uuid.UUID) ([]*models.Award, error) {
	return s.list(ctx,
		`SELECT `+awardColumns+` FROM badge_awards WHERE badge_id = $1 ORDER BY created_at`, badgeID)
}

func (s *PostgresStore) list(ctx context.Context, query string, arg any) ([]*models.Award, error) {
	q := tx.Querier(ctx, s.db)
	rows, err := q.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list awards: %w", err)
	}
	defer rows.Close()

	var out []*models.Award
	for rows.Next() {
		a, err := scanAward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan award: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate awards: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAward(row rowScanner) (*models.Award, error) {
	var a models.Award
	var creator uuid.NullUUID
	if err := row.Scan(&a.ID, &a.BadgeID, &a.UserID, &creator, &a.Description,
		&a.ClaimCode, &a.Hidden, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	if creator.Valid {
		a.CreatorID = &creator.UUID
	}
	return &a, nil
}
