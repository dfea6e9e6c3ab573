package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Column types are kept to the subset Postgres and SQLite both understand.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS tasks (
		id               TEXT PRIMARY KEY,
		title            TEXT NOT NULL,
		description      TEXT NOT NULL DEFAULT '',
		status           TEXT NOT NULL,
		priority         TEXT NOT NULL,
		creator_id       BIGINT NOT NULL,
		assignee_id      BIGINT,
		property_id      BIGINT,
		asset_id         BIGINT,
		creation_date    TIMESTAMP NOT NULL,
		due_date         TIMESTAMP,
		completion_date  TIMESTAMP,
		escalation_level INTEGER NOT NULL DEFAULT 0,
		escalated_to     BIGINT,
		updated_at       TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks (status)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks (assignee_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_creator ON tasks (creator_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_property ON tasks (property_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks (due_date)`,
}

// EnsureSchema creates the tasks table and its indexes if they don't exist.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
