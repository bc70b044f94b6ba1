package badge

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

// PostgresStore persists badges in PostgreSQL. Prerequisites live in a join
// table and are rewritten wholesale on update.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, b *models.Badge) error {
	q := tx.Querier(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO badges (id, title, slug, description, is_unique, nominations_accepted, nominations_auto_approved, creator_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		b.ID, b.Title, b.Slug, b.Description, b.Unique, b.NominationsAccepted, b.NominationsAutoApproved, b.CreatorID, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create badge: %w", err)
	}
	return s.writePrerequisites(ctx, q, b)
}

func (s *PostgresStore) Update(ctx context.Context, b *models.Badge) error {
	q := tx.Querier(ctx, s.db)
	res, err := q.ExecContext(ctx, `
		UPDATE badges
		SET title = $2, slug = $3, description = $4, is_unique = $5, nominations_accepted = $6, nominations_auto_approved = $7, updated_at = $8
		WHERE id = $1`,
		b.ID, b.Title, b.Slug, b.Description, b.Unique, b.NominationsAccepted, b.NominationsAutoApproved, b.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("update badge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update badge: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM badge_prerequisites WHERE badge_id = $1`, b.ID); err != nil {
		return fmt.Errorf("update badge prerequisites: %w", err)
	}
	return s.writePrerequisites(ctx, q, b)
}

func (s *PostgresStore) writePrerequisites(ctx context.Context, q tx.Executor, b *models.Badge) error {
	for _, prereqID := range b.Prerequisites {
		_, err := q.ExecContext(ctx,
			`INSERT INTO badge_prerequisites (badge_id, prerequisite_id) VALUES ($1, $2)`,
			b.ID, prereqID)
		if err != nil {
			return fmt.Errorf("write badge prerequisite: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	q := tx.Querier(ctx, s.db)
	res, err := q.ExecContext(ctx, `DELETE FROM badges WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete badge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete badge: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

const badgeColumns = `id, title, slug, description, is_unique, nominations_accepted, nominations_auto_approved, creator_id, created_at, updated_at`

func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Badge, error) {
	return s.getOne(ctx, `SELECT `+badgeColumns+` FROM badges WHERE id = $1`, id)
}

func (s *PostgresStore) GetBySlug(ctx context.Context, slug string) (*models.Badge, error) {
	return s.getOne(ctx, `SELECT `+badgeColumns+` FROM badges WHERE slug = $1`, slug)
}

func (s *PostgresStore) GetByTitle(ctx context.Context, title string) (*models.Badge, error) {
	return s.getOne(ctx, `SELECT `+badgeColumns+` FROM badges WHERE lower(title) = lower($1)`, title)
}

func (s *PostgresStore) getOne(ctx context.Context, query string, arg any) (*models.Badge, error) {
	q := tx.Querier(ctx, s.db)
	b, err := scanBadge(q.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get badge: %w", err)
	}
	if err := s.loadPrerequisites(ctx, q, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Badge, error) {
	q := tx.Querier(ctx, s.db)
	rows, err := q.QueryContext(ctx, `SELECT `+badgeColumns+` FROM badges ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	return s.collect(ctx, q, rows)
}

func (s *PostgresStore) ListByPrerequisite(ctx context.Context, badgeID uuid.UUID) ([]*models.Badge, error) {
	q := tx.Querier(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT `+badgeColumns+` FROM badges
		WHERE id IN (SELECT badge_id FROM badge_prerequisites WHERE prerequisite_id = $1)
		ORDER BY created_at`, badgeID)
	if err != nil {
		return nil, fmt.Errorf("list badges by prerequisite: %w", err)
	}
	return s.collect(ctx, q, rows)
}

func (s *PostgresStore) collect(ctx context.Context, q tx.Executor, rows *sql.Rows) ([]*models.Badge, error) {
	defer rows.Close()
	var out []*models.Badge
	for rows.Next() {
		b, err := scanBadge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan badge: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate badges: %w", err)
	}
	for _, b := range out {
		if err := s.loadPrerequisites(ctx, q, b); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *PostgresStore) loadPrerequisites(ctx context.Context, q tx.Executor, b *models.Badge) error {
	rows, err := q.QueryContext(ctx,
		`SELECT prerequisite_id FROM badge_prerequisites WHERE badge_id = $1`, b.ID)
	if err != nil {
		return fmt.Errorf("load badge prerequisites: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan badge prerequisite: %w", err)
		}
		b.Prerequisites = append(b.Prerequisites, id)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate badge prerequisites: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBadge(row rowScanner) (*models.Badge, error) {
	var b models.Badge
	var creator uuid.NullUUID
	if err := row.Scan(&b.ID, &b.Title, &b.Slug, &b.Description, &b.Unique,
		&b.NominationsAccepted, &b.NominationsAutoApproved, &creator,
		&b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	if creator.Valid {
		b.CreatorID = &creator.UUID
	}
	return &b, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
