package nomination

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

// PostgresStore persists nominations in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const nominationColumns = `id, badge_id, nominee_id, creator_id, approver_id, accepted, rejected_by_id, rejected_reason, award_id, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, n *models.Nomination) error {
	q := tx.Querier(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO badge_nominations (`+nominationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		n.ID, n.BadgeID, n.NomineeID, n.CreatorID, n.ApproverID, n.Accepted,
		n.RejectedByID, n.RejectedReason, n.AwardID, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create nomination: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, n *models.Nomination) error {
	q := tx.Querier(ctx, s.db)
	res, err := q.ExecContext(ctx, `
		UPDATE badge_nominations
		SET approver_id = $2, accepted = $3, rejected_by_id = $4, rejected_reason = $5, award_id = $6, updated_at = $7
		WHERE id = $1`,
		n.ID, n.ApproverID, n.Accepted, n.RejectedByID, n.RejectedReason, n.AwardID, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update nomination: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update nomination: %w", err)
	}
	if count == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	q := tx.Querier(ctx, s.db)
	res, err := q.ExecContext(ctx, `DELETE FROM badge_nominations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete nomination: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete nomination: %w", err)
	}
	if count == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Nomination, error) {
	q := tx.Querier(ctx, s.db)
	n, err := scanNomination(q.QueryRowContext(ctx,
		`SELECT `+nominationColumns+` FROM badge_nominations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get nomination: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) ListByBadge(ctx context.Context, badgeID uuid.UUID) ([]*models.Nomination, error) {
	return s.list(ctx,
		`SELECT `+nominationColumns+` FROM badge_nominations WHERE badge_id = $1 ORDER BY created_at`, badgeID)
}

func (s *PostgresStore) ListByNominee(ctx context.Context, nomineeID uuid.UUID) ([]*models.Nomination, error) {
	return s.list(ctx,
		`SELECT `+nominationColumns+` FROM badge_nominations WHERE nominee_id = $1 ORDER BY created_at`, nomineeID)
}

func (s *PostgresStore) list(ctx context.Context, query string, arg any) ([]*models.Nomination, error) {
	q := tx.Querier(ctx, s.db)
	rows, err := q.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list nominations: %w", err)
	}
	defer rows.Close()

	var out []*models.Nomination
	for rows.Next() {
		n, err := scanNomination(rows)
		if err != nil {
			return nil, fmt.Errorf("scan nomination: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nominations: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNomination(row rowScanner) (*models.Nomination, error) {
	var n models.Nomination
	var creator, approver, rejectedBy, awardID uuid.NullUUID
	if err := row.Scan(&n.ID, &n.BadgeID, &n.NomineeID, &creator, &approver,
		&n.Accepted, &rejectedBy, &n.RejectedReason, &awardID,
		&n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	if creator.Valid {
		n.CreatorID = &creator.UUID
	}
	if approver.Valid {
		n.ApproverID = &approver.UUID
	}
	if rejectedBy.Valid {
		n.RejectedByID = &rejectedBy.UUID
	}
	if awardID.Valid {
		n.AwardID = &awardID.UUID
	}
	return &n, nil
}
