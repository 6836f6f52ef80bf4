package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

var tables = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         {{pk}},
		email      TEXT NOT NULL UNIQUE,
		name       TEXT NOT NULL,
		password   TEXT NOT NULL,
		created_at {{int}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS projects (
		id          {{pk}},
		user_id     {{int}} NOT NULL DEFAULT 0,
		name        TEXT NOT NULL,
		description TEXT,
		created_at  {{int}} NOT NULL,
		updated_at  {{int}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS domains (
		id          {{pk}},
		project_id  {{int}} NOT NULL,
		name        TEXT NOT NULL,
		description TEXT,
		attributes  TEXT NOT NULL DEFAULT '[]',
		created_at  {{int}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS requirements (
		id           {{pk}},
		project_id   {{int}} NOT NULL,
		title        TEXT NOT NULL,
		description  TEXT,
		gherkin      TEXT NOT NULL DEFAULT '{"given":[],"when":[],"then":[]}',
		data_bag_ids TEXT NOT NULL DEFAULT '[]',
		status       TEXT NOT NULL DEFAULT 'draft',
		created_at   {{int}} NOT NULL,
		updated_at   {{int}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS test_cases (
		id              {{pk}},
		project_id      {{int}} NOT NULL,
		requirement_id  {{int}},
		name            TEXT NOT NULL,
		description     TEXT,
		steps           TEXT NOT NULL DEFAULT '[]',
		status          TEXT NOT NULL DEFAULT 'pending',
		preconditions   TEXT,
		expected_result TEXT,
		data_bag_id     {{int}},
		created_at      {{int}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS data_bags (
		id          {{pk}},
		project_id  {{int}} NOT NULL,
		name        TEXT NOT NULL,
		description TEXT,
		records     TEXT NOT NULL DEFAULT '[]',
		schema_def  TEXT NOT NULL DEFAULT '[]',
		created_at  {{int}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS generated_specs (
		id         {{pk}},
		project_id {{int}} NOT NULL,
		content    TEXT NOT NULL,
		model      TEXT,
		spec_type  TEXT,
		prompt     TEXT,
		created_at {{int}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS friday_items (
		id             {{pk}},
		project_id     {{int}} NOT NULL,
		requirement_id {{int}},
		title          TEXT NOT NULL,
		notes          TEXT,
		priority       TEXT NOT NULL DEFAULT 'medium',
		swimlane       TEXT NOT NULL DEFAULT 'backlog',
		position       {{int}} NOT NULL DEFAULT 0,
		status         TEXT NOT NULL DEFAULT 'todo',
		created_at     {{int}} NOT NULL,
		updated_at     {{int}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tracker_items (
		id         {{pk}},
		project_id {{int}} NOT NULL,
		title      TEXT NOT NULL,
		owner      TEXT,
		due_date   TEXT,
		status     TEXT NOT NULL DEFAULT 'on_track',
		comments   TEXT,
		position   {{int}} NOT NULL DEFAULT 0,
		created_at {{int}} NOT NULL,
		updated_at {{int}} NOT NULL
	)`,
}

// Additive only. Each statement is retried on every start and an
// "already exists" failure counts as applied, so nothing destructive or
// order-sensitive may be added here.
var migrations = []string{
	`ALTER TABLE projects ADD COLUMN user_id {{int}} NOT NULL DEFAULT 0`,
	`CREATE INDEX idx_projects_user ON projects (user_id)`,
	`CREATE INDEX idx_domains_project ON domains (project_id)`,
	`CREATE INDEX idx_requirements_project ON requirements (project_id)`,
	`CREATE INDEX idx_test_cases_project ON test_cases (project_id)`,
	`CREATE INDEX idx_test_cases_requirement ON test_cases (requirement_id)`,
	`CREATE INDEX idx_data_bags_project ON data_bags (project_id)`,
	`CREATE INDEX idx_generated_specs_project ON generated_specs (project_id)`,
	`CREATE INDEX idx_friday_items_lane ON friday_items (project_id, swimlane, position)`,
	`CREATE INDEX idx_tracker_items_project ON tracker_items (project_id, position)`,
}

// Tables lists every table created by Initialize, leaves last.
var Tables = []string{
	"users", "projects", "domains", "requirements", "test_cases",
	"data_bags", "generated_specs", "friday_items", "tracker_items",
}

func (cp *ConnectionPool) ddl(stmt string) string {
	r := strings.NewReplacer(
		"{{pk}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
		"{{int}}", "INTEGER",
	)
	if cp.driver == DriverPostgres {
		r = strings.NewReplacer(
			"{{pk}}", "BIGSERIAL PRIMARY KEY",
			"{{int}}", "BIGINT",
		)
	}
	return r.Replace(stmt)
}

// Initialize creates missing tables and applies additive migrations.
// It is idempotent and must finish before any repository call.
func Initialize(ctx context.Context, cp *ConnectionPool) error {
	stmts := make([]Statement, 0, len(tables))
	for _, t := range tables {
		stmts = append(stmts, Stmt(cp.ddl(t)))
	}
	if err := cp.Batch(ctx, stmts...); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}

	applied := 0
	for _, m := range migrations {
		stmt := cp.ddl(m)
		if _, err := cp.Exec(ctx, stmt); err != nil {
			if IsAlreadyExists(err) {
				cp.logger.Debug("migration already applied", slog.String("statement", firstLine(stmt)))
				continue
			}
			return fmt.Errorf("migration %q: %w", firstLine(stmt), err)
		}
		applied++
	}

	cp.logger.Info("schema initialized",
		slog.Int("tables", len(tables)),
		slog.Int("migrations_applied", applied),
	)
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
