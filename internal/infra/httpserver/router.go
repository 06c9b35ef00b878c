package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/bryanwahyu/budget-review/internal/application/analysis"
	apppilot "github.com/bryanwahyu/budget-review/internal/application/pilot"
	"github.com/bryanwahyu/budget-review/internal/application/review"
	"github.com/bryanwahyu/budget-review/internal/domain/budget"
	"github.com/bryanwahyu/budget-review/internal/domain/pilot"
	"github.com/bryanwahyu/budget-review/internal/middleware"
)

const (
	msgUnexpected     = "Unexpected server error."
	msgMissingUpload  = "Missing 'budget' file upload."
	msgEmailRequired  = "Email is required."
	msgPilotSaveError = "Failed to save pilot request."

	multipartMemory = 8 << 20
	maxPilotBody    = 64 << 10
)

// AnalysisService is the analysis use-case surface the router needs.
type AnalysisService interface {
	RunUntilDone(ctx context.Context, cmd analysis.Command) (analysis.Result, error)
	List(ctx context.Context, userID string, f budget.Filter) (budget.PaginatedResult, error)
	Get(ctx context.Context, userID string, id budget.AnalysisID) (*budget.Analysis, error)
}

type PilotService interface {
	Submit(ctx context.Context, cmd apppilot.SubmitCommand) error
}

// Options configures the HTTP surface.
type Options struct {
	Logger            zerolog.Logger
	APIKeys           map[string]string
	CORSOrigins       []string
	MaxUploadBytes    int64
	RateLimitCapacity int
	RateLimitRefill   float64
	HealthChecks      map[string]middleware.HealthChecker
}

type Router struct {
	analyses  AnalysisService
	pilots    PilotService
	maxUpload int64
}

func NewRouter(analyses AnalysisService, pilots PilotService, opts Options) http.Handler {
	rt := &Router{analyses: analyses, pilots: pilots, maxUpload: opts.MaxUploadBytes}
	if rt.maxUpload <= 0 {
		rt.maxUpload = 20 << 20
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(middleware.Logging(opts.Logger))
	mux.Use(recoverer)
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
		ExposedHeaders: []string{"X-Analysis-ID", "X-Review-Source"},
		MaxAge:         300,
	}))

	mux.Get("/health", middleware.HealthHandler(opts.HealthChecks))
	mux.Get("/ready", middleware.ReadinessHandler(opts.HealthChecks))
	mux.Get("/live", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	limit := middleware.RateLimitMiddleware(opts.RateLimitCapacity, opts.RateLimitRefill)

	mux.Route("/v1", func(v1 chi.Router) {
		v1.With(limit).Post("/pilot-requests", rt.wrap(rt.handlePilotRequest))

		v1.Group(func(authed chi.Router) {
			authed.Use(middleware.APIKeyAuth(opts.APIKeys))
			authed.Use(limit)
			authed.Post("/analyses", rt.wrap(rt.handleAnalyze))
			authed.Get("/analyses", rt.wrap(rt.handleList))
			authed.Get("/analyses/{id}", rt.wrap(rt.handleGet))
		})
	})

	return mux
}

// statusError carries a caller-facing status and message.
type statusError struct {
	status int
	msg    string
}

func (e *statusError) Error() string { return e.msg }

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (rt *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		var se *statusError
		var inErr *budget.InputError
		switch {
		case errors.As(err, &se):
			if se.status >= http.StatusInternalServerError {
				zerolog.Ctx(req.Context()).Error().Err(err).Msg("request failed")
			}
			writeError(w, se.status, se.msg)
		case errors.As(err, &inErr):
			status := http.StatusBadRequest
			if errors.Is(err, budget.ErrUnreadableWorkbook) {
				status = http.StatusUnprocessableEntity
			}
			writeError(w, status, inErr.Message)
		case errors.Is(err, budget.ErrNotFound):
			writeError(w, http.StatusNotFound, "Analysis not found.")
		default:
			zerolog.Ctx(req.Context()).Error().Err(err).Msg("unexpected handler failure")
			writeError(w, http.StatusInternalServerError, msgUnexpected)
		}
	}
}

// POST /v1/analyses (multipart: budget, cityName?, fiscalYear?)
func (rt *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	req.Body = http.MaxBytesReader(w, req.Body, rt.maxUpload)
	if err := req.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &statusError{
				status: http.StatusRequestEntityTooLarge,
				msg:    fmt.Sprintf("Upload exceeds the %d MB limit.", rt.maxUpload>>20),
			}
		}
		return budget.NewInputError(budget.ErrInvalidUpload, msgMissingUpload)
	}
	defer func() { _ = req.MultipartForm.RemoveAll() }()

	file, header, err := req.FormFile("budget")
	if err != nil {
		return budget.NewInputError(budget.ErrInvalidUpload, msgMissingUpload)
	}
	defer file.Close()

	if err := middleware.ValidateFileName(header.Filename); err != nil {
		return budget.NewInputError(budget.ErrInvalidUpload, "Invalid upload file name.")
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("reading upload: %w", err)
	}

	res, err := rt.analyses.RunUntilDone(req.Context(), analysis.Command{
		UserID:     middleware.GetUserFromContext(req.Context()),
		FileName:   header.Filename,
		Data:       data,
		CityName:   middleware.SanitizeField(req.FormValue("cityName"), 120),
		FiscalYear: middleware.SanitizeField(req.FormValue("fiscalYear"), 32),
	})
	if err != nil {
		return err
	}

	middleware.IncrementAnalyses()
	if res.Demo {
		middleware.IncrementDemoAnalyses()
	}
	if res.ReviewSource == review.SourceFallback {
		middleware.IncrementReviewFallbacks()
	}
	if res.PersistFailed {
		middleware.IncrementPersistenceFailures()
	}

	w.Header().Set("X-Analysis-ID", string(res.ID))
	if res.ReviewSource != "" {
		w.Header().Set("X-Review-Source", string(res.ReviewSource))
	}
	return writeJSON(w, http.StatusOK, res.Response)
}

// GET /v1/analyses?city=&fiscalYear=&page=&pageSize=
func (rt *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	list, err := rt.analyses.List(req.Context(), middleware.GetUserFromContext(req.Context()), budget.Filter{
		CityName:   middleware.SanitizeField(q.Get("city"), 120),
		FiscalYear: middleware.SanitizeField(q.Get("fiscalYear"), 32),
		Page:       middleware.ValidatePage(middleware.ParseIntParam(q.Get("page"))),
		PageSize:   middleware.ValidateLimit(middleware.ParseIntParam(q.Get("pageSize"))),
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

type analysisDetail struct {
	*budget.Analysis
	Result json.RawMessage `json:"result"`
}

// GET /v1/analyses/{id}
func (rt *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id := budget.AnalysisID(chi.URLParam(req, "id"))
	a, err := rt.analyses.Get(req.Context(), middleware.GetUserFromContext(req.Context()), id)
	if err != nil {
		return err
	}

	result := json.RawMessage("null")
	if json.Valid([]byte(a.RawResult)) {
		result = json.RawMessage(a.RawResult)
	}
	return writeJSON(w, http.StatusOK, analysisDetail{Analysis: a, Result: result})
}

// POST /v1/pilot-requests
// Body: {"email": "...", "role"?, "city"?, "state"?, "notes"?}
func (rt *Router) handlePilotRequest(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Email string `json:"email"`
		Role  string `json:"role"`
		City  string `json:"city"`
		State string `json:"state"`
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxPilotBody)).Decode(&body); err != nil {
		return &statusError{status: http.StatusBadRequest, msg: msgEmailRequired}
	}

	err := rt.pilots.Submit(req.Context(), apppilot.SubmitCommand{
		Email:     middleware.SanitizeField(body.Email, 320),
		Role:      middleware.SanitizeField(body.Role, 255),
		City:      middleware.SanitizeField(body.City, 255),
		State:     middleware.SanitizeField(body.State, 64),
		Notes:     middleware.SanitizeField(body.Notes, 4000),
		UserAgent: req.UserAgent(),
		Referer:   req.Referer(),
	})
	switch {
	case errors.Is(err, pilot.ErrEmailRequired):
		return &statusError{status: http.StatusBadRequest, msg: msgEmailRequired}
	case err != nil:
		return &statusError{status: http.StatusInternalServerError, msg: msgPilotSaveError}
	}

	middleware.IncrementPilotRequests()
	return writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			zerolog.Ctx(r.Context()).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")
			writeError(w, http.StatusInternalServerError, msgUnexpected)
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	_ = writeJSON(w, status, map[string]string{"error": msg})
}
