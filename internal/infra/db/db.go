// Package db opens the configured SQL store and its repositories.
package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bryanwahyu/budget-review/internal/config"
	"github.com/bryanwahyu/budget-review/internal/domain/budget"
	"github.com/bryanwahyu/budget-review/internal/domain/pilot"
	"github.com/bryanwahyu/budget-review/internal/infra/db/mysql"
	"github.com/bryanwahyu/budget-review/internal/infra/db/postgres"
)

// Store bundles the connection with the repositories built on it.
type Store struct {
	DB       *sql.DB
	Analyses budget.Repository
	Pilots   pilot.Repository
}

// Open connects, ensures the schema exists, and builds repositories.
// It returns (nil, nil) when no driver is configured.
func Open(ctx context.Context, cfg *config.Config) (*Store, error) {
	switch cfg.Database.Driver {
	case "":
		return nil, nil
	case config.DriverMySQL:
		conn, err := mysql.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, fmt.Errorf("mysql connect: %w", err)
		}
		if err := mysql.EnsureSchema(ctx, conn); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("mysql schema: %w", err)
		}
		return &Store{
			DB:       conn,
			Analyses: mysql.NewAnalysisRepository(conn),
			Pilots:   mysql.NewPilotRequestRepository(conn),
		}, nil
	case config.DriverPostgres:
		conn, err := postgres.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		if err := postgres.EnsureSchema(ctx, conn); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("postgres schema: %w", err)
		}
		return &Store{
			DB:       conn,
			Analyses: postgres.NewAnalysisRepository(conn),
			Pilots:   postgres.NewPilotRequestRepository(conn),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}
