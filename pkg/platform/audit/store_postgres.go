package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// PostgresStore persists audit events in an append-only table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// ApplySchema creates the audit table if missing. The audit trail lives
// outside the domain schema so it can be retained independently.
func (s *PostgresStore) ApplySchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_events (
			ts          TIMESTAMPTZ NOT NULL,
			action      TEXT NOT NULL,
			badge_id    UUID NOT NULL,
			actor_id    UUID,
			subject_id  UUID,
			detail      TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS audit_events_badge_idx ON audit_events (badge_id, ts);
		CREATE INDEX IF NOT EXISTS audit_events_ts_idx ON audit_events (ts)`)
	if err != nil {
		return fmt.Errorf("apply audit schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (ts, action, badge_id, actor_id, subject_id, detail)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		event.Timestamp, event.Action, event.BadgeID, event.ActorID, event.SubjectID, event.Detail)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByBadge(ctx context.Context, badgeID uuid.UUID) ([]Event, error) {
	return s.list(ctx, `
		SELECT ts, action, badge_id, actor_id, subject_id, detail
		FROM audit_events WHERE badge_id = $1 ORDER BY ts`, badgeID)
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	events, err := s.list(ctx, `
		SELECT ts, action, badge_id, actor_id, subject_id, detail
		FROM audit_events ORDER BY ts DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

func (s *PostgresStore) list(ctx context.Context, query string, arg any) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var actor, subject uuid.NullUUID
		if err := rows.Scan(&e.Timestamp, &e.Action, &e.BadgeID, &actor, &subject, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if actor.Valid {
			e.ActorID = &actor.UUID
		}
		if subject.Valid {
			e.SubjectID = &subject.UUID
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return out, nil
}
