package mysql

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// test ping
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
  id            VARCHAR(64)  NOT NULL PRIMARY KEY,
  user_id       VARCHAR(128) NOT NULL,
  city_name     VARCHAR(255) NULL,
  fiscal_year   VARCHAR(32)  NULL,
  health_score  INT          NOT NULL,
  health_label  VARCHAR(32)  NOT NULL,
  is_demo       BOOLEAN      NOT NULL DEFAULT FALSE,
  file_name     VARCHAR(512) NOT NULL,
  rows_analyzed INT          NOT NULL,
  currency      VARCHAR(8)   NOT NULL,
  raw_result    JSON         NOT NULL,
  archive_url   VARCHAR(1024) NULL,
  created_at    DATETIME(3)  NOT NULL,
  INDEX idx_budget_analyses_user_created (user_id, created_at)
)`,
	`CREATE TABLE IF NOT EXISTS pilot_requests (
  id         BIGINT AUTO_INCREMENT PRIMARY KEY,
  email      VARCHAR(320) NOT NULL,
  role       VARCHAR(255) NULL,
  city       VARCHAR(255) NULL,
  state      VARCHAR(64)  NULL,
  notes      TEXT         NULL,
  user_agent VARCHAR(512) NULL,
  referer    VARCHAR(1024) NULL,
  created_at DATETIME(3)  NOT NULL
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
