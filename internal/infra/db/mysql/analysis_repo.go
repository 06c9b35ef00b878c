package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/bryanwahyu/budget-review/internal/domain/budget"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Save inserts or updates an analysis record
func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO budget_analyses
  (id, user_id, city_name, fiscal_year, health_score, health_label, is_demo,
   file_name, rows_analyzed, currency, raw_result, archive_url, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  health_score=VALUES(health_score), health_label=VALUES(health_label),
  rows_analyzed=VALUES(rows_analyzed), raw_result=VALUES(raw_result), archive_url=VALUES(archive_url);
`
	// Ensure non-nullable fields have safe defaults
	result := a.RawResult
	if strings.TrimSpace(result) == "" {
		// raw_result column requires valid JSON; use empty object
		result = "{}"
	}
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, q,
		a.ID, stringOrDash(a.UserID), nullIfBlank(a.CityName), nullIfBlank(a.FiscalYear),
		a.HealthScore, stringOrDash(string(a.HealthLabel)), a.IsDemo,
		stringOrDash(a.FileName), a.RowsAnalyzed, stringOrDash(a.Currency),
		result, nullIfBlank(a.ArchiveURL), createdAt,
	)
	if err != nil {
		return fmt.Errorf("saving analysis: %w", err)
	}
	return nil
}

// Get by ID, scoped to the owner
func (r *AnalysisRepository) Get(ctx context.Context, userID string, id domain.AnalysisID) (*domain.Analysis, error) {
	const q = `
SELECT id, user_id, city_name, fiscal_year, health_score, health_label, is_demo,
       file_name, rows_analyzed, currency, raw_result, archive_url, created_at
FROM budget_analyses
WHERE user_id=? AND id=? LIMIT 1;
`
	var a domain.Analysis
	var city, fy, archive sql.NullString
	err := r.db.QueryRowContext(ctx, q, userID, id).Scan(
		&a.ID, &a.UserID, &city, &fy, &a.HealthScore, &a.HealthLabel, &a.IsDemo,
		&a.FileName, &a.RowsAnalyzed, &a.Currency, &a.RawResult, &archive, &a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading analysis: %w", err)
	}
	a.CityName, a.FiscalYear, a.ArchiveURL = city.String, fy.String, archive.String
	return &a, nil
}

// List returns a page of the owner's analyses ordered by created_at desc
func (r *AnalysisRepository) List(ctx context.Context, userID string, f domain.Filter) (domain.PaginatedResult, error) {
	page, pageSize := f.Bounds()
	offset := (page - 1) * pageSize
	where, args := analysisFilter(userID, f)

	query := `
SELECT id, user_id, city_name, fiscal_year, health_score, health_label, is_demo,
       file_name, rows_analyzed, currency, archive_url, created_at
FROM budget_analyses
WHERE ` + where + `
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(args, pageSize, offset)...)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("querying analyses: %w", err)
	}
	defer rows.Close()

	out := []*domain.Analysis{}
	for rows.Next() {
		var a domain.Analysis
		var city, fy, archive sql.NullString
		if err := rows.Scan(
			&a.ID, &a.UserID, &city, &fy, &a.HealthScore, &a.HealthLabel, &a.IsDemo,
			&a.FileName, &a.RowsAnalyzed, &a.Currency, &archive, &a.CreatedAt,
		); err != nil {
			return domain.PaginatedResult{}, fmt.Errorf("scanning row: %w", err)
		}
		a.CityName, a.FiscalYear, a.ArchiveURL = city.String, fy.String, archive.String
		out = append(out, &a)
	}
	if err = rows.Err(); err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("iterating rows: %w", err)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM budget_analyses WHERE "+where, args...).Scan(&total); err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("getting total count: %w", err)
	}

	return domain.PaginatedResult{
		Data:       out,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

func analysisFilter(userID string, f domain.Filter) (string, []any) {
	where := "user_id = ?"
	args := []any{userID}
	if city := strings.TrimSpace(f.CityName); city != "" {
		where += " AND city_name LIKE ?"
		args = append(args, "%"+escapeLikePattern(city)+"%")
	}
	if fy := strings.TrimSpace(f.FiscalYear); fy != "" {
		where += " AND fiscal_year = ?"
		args = append(args, fy)
	}
	return where, args
}
