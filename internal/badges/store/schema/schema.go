// Package schema owns the PostgreSQL DDL for the badge engine. Apply is
// idempotent; the server runs it on startup and the integration suites run
// it against throwaway containers.
package schema

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var ddl string

// Apply creates all tables and indexes if they do not exist.
func Apply(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
