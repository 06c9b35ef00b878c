package mysql

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/bryanwahyu/budget-review/internal/domain/pilot"
)

type PilotRequestRepository struct {
	db *sql.DB
}

func NewPilotRequestRepository(db *sql.DB) *PilotRequestRepository {
	return &PilotRequestRepository{db: db}
}

func (r *PilotRequestRepository) Save(ctx context.Context, p *domain.Request) error {
	const q = `
INSERT INTO pilot_requests
  (email, role, city, state, notes, user_agent, referer, created_at)
VALUES (?,?,?,?,?,?,?,?)
`
	created := p.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	res, err := r.db.ExecContext(ctx, q,
		p.Email, nullIfBlank(p.Role), nullIfBlank(p.City), nullIfBlank(p.State),
		nullIfBlank(p.Notes), nullIfBlank(p.UserAgent), nullIfBlank(p.Referer), created,
	)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		p.ID = id
	}
	return nil
}
