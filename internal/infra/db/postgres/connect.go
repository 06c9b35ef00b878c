package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS budget_analyses (
  id            TEXT PRIMARY KEY,
  user_id       TEXT NOT NULL,
  city_name     TEXT NULL,
  fiscal_year   TEXT NULL,
  health_score  INTEGER NOT NULL,
  health_label  TEXT NOT NULL,
  is_demo       BOOLEAN NOT NULL DEFAULT FALSE,
  file_name     TEXT NOT NULL,
  rows_analyzed INTEGER NOT NULL,
  currency      TEXT NOT NULL,
  raw_result    JSONB NOT NULL,
  archive_url   TEXT NULL,
  created_at    TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_budget_analyses_user_created ON budget_analyses (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS pilot_requests (
  id         BIGSERIAL PRIMARY KEY,
  email      TEXT NOT NULL,
  role       TEXT NULL,
  city       TEXT NULL,
  state      TEXT NULL,
  notes      TEXT NULL,
  user_agent TEXT NULL,
  referer    TEXT NULL,
  created_at TIMESTAMPTZ NOT NULL
)`,
}

// EnsureSchema creates the tables this service writes to when they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
