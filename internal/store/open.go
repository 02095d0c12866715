package store

import (
	"context"

	"pensionguru/backend/internal/db"
)

// Open connects to DATABASE_URL, creates missing tables and, for Postgres,
// checks that an existing schema has every column the service reads.
func Open(ctx context.Context, databaseURL string) (Store, error) {
	backend, err := db.DetectBackend(databaseURL)
	if err != nil {
		return nil, err
	}

	if backend == db.BackendSQLite {
		conn, err := db.OpenSQLite(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		s := NewSQLiteStore(conn)
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	}

	pool, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	s := NewPostgresStore(pool)
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	if err := s.ValidateRuntimeSchema(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}
