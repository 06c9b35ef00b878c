package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/bryanwahyu/budget-review/internal/application"
	"github.com/bryanwahyu/budget-review/internal/application/review"
	"github.com/bryanwahyu/budget-review/internal/domain/budget"
)

// Parser turns an uploaded file into canonical rows.
type Parser interface {
	ParseRows(ctx context.Context, data []byte, filename string) ([]budget.Row, error)
}

// Aggregator derives the heuristic part of an analysis.
type Aggregator interface {
	Aggregate(rows []budget.Row) budget.Heuristics
}

// Reviewer produces the narrative review; it never fails.
type Reviewer interface {
	Review(ctx context.Context, in budget.ReviewInput) review.Outcome
}

// Service implements the analysis use-cases.
// Repo and Archive are optional; nil disables persistence or archiving.
type Service struct {
	Parser     Parser
	Aggregator Aggregator
	Reviewer   Reviewer
	Repo       budget.Repository
	Archive    budget.ArchiveStore
	Clock      application.Clock
	DemoTokens []string
}

// Command is one analysis request from an authenticated user.
type Command struct {
	UserID     string
	FileName   string
	Data       []byte
	CityName   string
	FiscalYear string
}

// Result is what an analysis produced and what happened to it.
type Result struct {
	ID           budget.AnalysisID
	Response     budget.Response
	Demo         bool
	ReviewSource review.Source
	// Persisted is false when storage is disabled or failed; PersistFailed
	// tells the two apart.
	Persisted     bool
	PersistFailed bool
}

// RunUntilDone runs Analyze on a context that ignores caller cancellation,
// so a started analysis always reaches a result or the fallback review.
func (s *Service) RunUntilDone(ctx context.Context, cmd Command) (Result, error) {
	return s.Analyze(context.WithoutCancel(ctx), cmd)
}

// Analyze runs parse, aggregate and review, then stores the result once.
// Only caller input problems are returned as errors.
func (s *Service) Analyze(ctx context.Context, cmd Command) (Result, error) {
	if strings.TrimSpace(cmd.FileName) == "" {
		return Result{}, budget.NewInputError(budget.ErrInvalidUpload, "Missing 'budget' file upload.")
	}
	now := s.Clock.Now()

	if budget.IsDemoFile(cmd.FileName, s.demoTokens()) {
		resp := budget.DemoResponse(now)
		res := Result{ID: budget.AnalysisID(uuid.NewString()), Response: resp, Demo: true}
		s.persist(ctx, &res, cmd, "")
		return res, nil
	}

	rows, err := s.Parser.ParseRows(ctx, cmd.Data, cmd.FileName)
	if err != nil {
		if errors.Is(err, budget.ErrUnreadableWorkbook) {
			return Result{}, &budget.InputError{
				Message: "Could not read the uploaded spreadsheet. Expected an .xlsx workbook or a CSV file.",
				Err:     err,
			}
		}
		return Result{}, fmt.Errorf("parse budget: %w", err)
	}

	h := s.Aggregator.Aggregate(rows)
	total := totalLatest(h.Departments)

	outcome := s.Reviewer.Review(ctx, budget.ReviewInput{
		CityName:          cmd.CityName,
		FiscalYear:        cmd.FiscalYear,
		TotalBudgetAmount: total,
		Risks:             h.Risks,
		Departments:       h.Departments,
		Scenarios:         h.Scenarios,
	})
	rev := outcome.Review

	resp := budget.Response{
		Meta: budget.Meta{
			CityName:     cmd.CityName,
			FiscalYear:   cmd.FiscalYear,
			Currency:     budget.CurrencyUSD,
			RowsAnalyzed: h.RowsAnalyzed,
			GeneratedAt:  budget.FormatTimestamp(now),
			Demo:         false,
		},
		Health:         rev.OverallHealth,
		Risks:          h.Risks,
		Departments:    h.Departments,
		Scenarios:      h.Scenarios,
		CouncilSummary: rev.CouncilSummary.Narrative,
		AdvancedReview: &rev,
	}

	id := budget.AnalysisID(uuid.NewString())
	archiveURL := s.archive(ctx, cmd, id)

	res := Result{ID: id, Response: resp, ReviewSource: outcome.Source}
	s.persist(ctx, &res, cmd, archiveURL)
	return res, nil
}

// List returns the caller's past analyses, newest first.
func (s *Service) List(ctx context.Context, userID string, f budget.Filter) (budget.PaginatedResult, error) {
	if s.Repo == nil {
		page, size := f.Bounds()
		return budget.PaginatedResult{Data: []*budget.Analysis{}, Page: page, PageSize: size}, nil
	}
	return s.Repo.List(ctx, userID, f)
}

// Get reopens one stored analysis owned by userID.
func (s *Service) Get(ctx context.Context, userID string, id budget.AnalysisID) (*budget.Analysis, error) {
	if s.Repo == nil {
		return nil, budget.ErrNotFound
	}
	return s.Repo.Get(ctx, userID, id)
}

func (s *Service) demoTokens() []string {
	if len(s.DemoTokens) == 0 {
		return budget.DefaultDemoTokens
	}
	return s.DemoTokens
}

// persist writes res exactly once. It is best-effort: failures are logged
// and recorded on res.
func (s *Service) persist(ctx context.Context, res *Result, cmd Command, archiveURL string) {
	log := zerolog.Ctx(ctx).With().Str("analysis_id", string(res.ID)).Logger()
	if s.Repo == nil {
		log.Debug().Msg("persistence disabled, analysis not stored")
		return
	}

	resp := res.Response
	raw, err := json.Marshal(resp)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode analysis")
		res.PersistFailed = true
		return
	}

	rec := &budget.Analysis{
		ID:           res.ID,
		UserID:       cmd.UserID,
		CityName:     resp.Meta.CityName,
		FiscalYear:   resp.Meta.FiscalYear,
		HealthScore:  resp.Health.Score,
		HealthLabel:  resp.Health.Label,
		IsDemo:       resp.Meta.Demo,
		FileName:     cmd.FileName,
		RowsAnalyzed: resp.Meta.RowsAnalyzed,
		Currency:     resp.Meta.Currency,
		RawResult:    string(raw),
		ArchiveURL:   archiveURL,
		CreatedAt:    s.Clock.Now(),
	}
	if err := s.Repo.Save(ctx, rec); err != nil {
		log.Error().Err(err).Msg("failed to store analysis")
		res.PersistFailed = true
		return
	}
	res.Persisted = true
}

// archive keeps the original upload; failures are logged and yield "".
func (s *Service) archive(ctx context.Context, cmd Command, id budget.AnalysisID) string {
	if s.Archive == nil {
		return ""
	}
	name := filepath.Base(strings.ReplaceAll(cmd.FileName, "\\", "/"))
	key := fmt.Sprintf("%s/%s/%s", safeSegment(cmd.UserID), id, name)

	url, err := s.Archive.Put(ctx, key, cmd.Data, contentTypeFor(name))
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("key", key).Msg("failed to archive upload")
		return ""
	}
	return url
}

var uploadContentTypes = map[string]string{
	".csv":  "text/csv",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xls":  "application/vnd.ms-excel",
}

func contentTypeFor(name string) string {
	if ct, ok := uploadContentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

func safeSegment(s string) string {
	s = strings.Trim(strings.ReplaceAll(s, "/", "_"), ".")
	if s == "" {
		return "anonymous"
	}
	return s
}

func totalLatest(departments []budget.DepartmentSummary) float64 {
	sum := decimal.Zero
	for _, d := range departments {
		sum = sum.Add(decimal.NewFromFloat(d.TotalAmount))
	}
	return sum.InexactFloat64()
}
