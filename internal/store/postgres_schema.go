package store

import (
	"context"
	"fmt"
	"strings"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	email      TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS user_profiles (
	user_id            TEXT PRIMARY KEY,
	region             TEXT,
	age                INTEGER,
	income             INTEGER,
	retirement_age     INTEGER,
	risk_profile       TEXT,
	contribution_years INTEGER,
	pending_action     TEXT,
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS chat_history (
	id         BIGSERIAL PRIMARY KEY,
	user_id    TEXT NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chat_history_user_created ON chat_history (user_id, created_at);
`

// Migrate creates the tables the store needs when they are missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// ValidateRuntimeSchema fails fast when an older database is missing columns
// the dialogue flow depends on.
func (s *PostgresStore) ValidateRuntimeSchema(ctx context.Context) error {
	if s.pool == nil {
		return fmt.Errorf("database pool is nil")
	}

	requiredColumns := []struct {
		table  string
		column string
	}{
		{table: "user_profiles", column: "pending_action"},
		{table: "user_profiles", column: "contribution_years"},
		{table: "chat_history", column: "created_at"},
		{table: "users", column: "email"},
	}

	for _, item := range requiredColumns {
		ok, err := s.columnExists(ctx, item.table, item.column)
		if err != nil {
			return fmt.Errorf(
				"failed checking schema for %s.%s: %w",
				item.table,
				item.column,
				err,
			)
		}
		if !ok {
			return fmt.Errorf(
				"required column %s.%s is missing; migrate the database",
				item.table,
				item.column,
			)
		}
	}

	return nil
}

func (s *PostgresStore) columnExists(ctx context.Context, tableName, columnName string) (bool, error) {
	table := strings.TrimSpace(tableName)
	column := strings.TrimSpace(columnName)
	if table == "" || column == "" {
		return false, fmt.Errorf("table/column must not be empty")
	}
	var exists bool
	err := s.pool.QueryRow(
		ctx,
		`SELECT EXISTS (
		   SELECT 1
		   FROM information_schema.columns
		   WHERE table_schema = current_schema()
		     AND lower(table_name) = lower($1)
		     AND lower(column_name) = lower($2)
		 )`,
		table,
		column,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
