package deferred

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"laurel/internal/badges/models"
	"laurel/pkg/platform/sentinel"
	"laurel/pkg/platform/tx"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresStore persists deferred awards in PostgreSQL. The claim_code column
// carries a unique index on lower(claim_code).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const deferredColumns = `id, badge_id, description, reusable, email, claim_code, claim_group, creator_id, created_at, updated_at`

// Create inserts a deferred award. When exclusive is set (the badge is
// unique) and the invitation is addressed, the insert only lands if no
// deferred award exists for the (badge, email) pair.
func (s *PostgresStore) Create(ctx context.Context, d *models.DeferredAward, exclusive bool) error {
	q := tx.Querier(ctx, s.db)
	if !exclusive || d.Email == "" {
		_, err := q.ExecContext(ctx, `
			INSERT INTO deferred_awards (`+deferredColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			d.ID, d.BadgeID, d.Description, d.Reusable, d.Email, d.ClaimCode, d.ClaimGroup, d.CreatorID, d.CreatedAt, d.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return sentinel.ErrAlreadyUsed
			}
			return fmt.Errorf("create deferred award: %w", err)
		}
		return nil
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO deferred_awards (`+deferredColumns+`)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		WHERE NOT EXISTS (
			SELECT 1 FROM deferred_awards WHERE badge_id = $2 AND lower(email) = lower($5)
		)`,
		d.ID, d.BadgeID, d.Description, d.Reusable, d.Email, d.ClaimCode, d.ClaimGroup, d.CreatorID, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create deferred award: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create deferred award: %w", err)
	}
	if n == 0 {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, d *models.DeferredAward) error {
	q := tx.Querier(ctx, s.db)
	res, err := q.ExecContext(ctx, `
		UPDATE deferred_awards
		SET description = $2, reusable = $3, email = $4, claim_code = $5, claim_group = $6, updated_at = $7
		WHERE id = $1`,
		d.ID, d.Description, d.Reusable, d.Email, d.ClaimCode, d.ClaimGroup, d.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("update deferred award: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update deferred award: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	q := tx.Querier(ctx, s.db)
	res, err := q.ExecContext(ctx, `DELETE FROM deferred_awards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete deferred award: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete deferred award: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*models.DeferredAward, error) {
	return s.getOne(ctx, `SELECT `+deferredColumns+` FROM deferred_awards WHERE id = $1`, id)
}

func (s *PostgresStore) GetByClaimCode(ctx context.Context, code string) (*models.DeferredAward, error) {
	return s.getOne(ctx, `SELECT `+deferredColumns+` FROM deferred_awards WHERE lower(claim_code) = lower($1)`, code)
}

func (s *PostgresStore) getOne(ctx context.Context, query string, arg any) (*models.DeferredAward, error) {
	q := tx.Querier(ctx, s.db)
	d, err := scanDeferred(q.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get deferred award: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) ListByEmail(ctx context.Context, email string) ([]*models.DeferredAward, error) {
	return s.list(ctx,
		`SELECT `+deferredColumns+` FROM deferred_awards WHERE lower(email) = lower($1) ORDER BY created_at`, email)
}

func (s *PostgresStore) ListByBadge(ctx context.Context, badgeID uuid.UUID) ([]*models.DeferredAward, error) {
	return s.list(ctx,
		`SELECT `+deferredColumns+` FROM deferred_awards WHERE badge_id = $1 ORDER BY created_at`, badgeID)
}

func (s *PostgresStore) list(ctx context.Context, query string, arg any) ([]*models.DeferredAward, error) {
	q := tx.Querier(ctx, s.db)
	rows, err := q.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list deferred awards: %w", err)
	}
	defer rows.Close()

	var out []*models.DeferredAward
	for rows.Next() {
		d, err := scanDeferred(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deferred award: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deferred awards: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListClaimGroups(ctx context.Context, badgeID uuid.UUID) ([]models.ClaimGroupSummary, error) {
	q := tx.Querier(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT claim_group, count(*), max(updated_at)
		FROM deferred_awards
		WHERE badge_id = $1 AND claim_group <> ''
		GROUP BY claim_group
		ORDER BY claim_group`, badgeID)
	if err != nil {
		return nil, fmt.Errorf("list claim groups: %w", err)
	}
	defer rows.Close()

	var out []models.ClaimGroupSummary
	for rows.Next() {
		var g models.ClaimGroupSummary
		if err := rows.Scan(&g.ClaimGroup, &g.Count, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan claim group: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claim groups: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) DeleteClaimGroup(ctx context.Context, badgeID uuid.UUID, claimGroup string) (int, error) {
	q := tx.Querier(ctx, s.db)
	res, err := q.ExecContext(ctx,
		`DELETE FROM deferred_awards WHERE badge_id = $1 AND claim_group = $2`, badgeID, claimGroup)
	if err != nil {
		return 0, fmt.Errorf("delete claim group: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete claim group: %w", err)
	}
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeferred(row rowScanner) (*models.DeferredAward, error) {
	var d models.DeferredAward
	var creator uuid.NullUUID
	if err := row.Scan(&d.ID, &d.BadgeID, &d.Description, &d.Reusable, &d.Email,
		&d.ClaimCode, &d.ClaimGroup, &creator, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	if creator.Valid {
		d.CreatorID = &creator.UUID
	}
	return &d, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
