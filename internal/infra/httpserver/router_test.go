package httpserver

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/budget-review/internal/application/analysis"
	apppilot "github.com/bryanwahyu/budget-review/internal/application/pilot"
	"github.com/bryanwahyu/budget-review/internal/application/review"
	"github.com/bryanwahyu/budget-review/internal/domain/budget"
	"github.com/bryanwahyu/budget-review/internal/domain/pilot"
)

type mockAnalyses struct{ mock.Mock }

func (m *mockAnalyses) RunUntilDone(ctx context.Context, cmd analysis.Command) (analysis.Result, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(analysis.Result), args.Error(1)
}

func (m *mockAnalyses) List(ctx context.Context, userID string, f budget.Filter) (budget.PaginatedResult, error) {
	args := m.Called(ctx, userID, f)
	return args.Get(0).(budget.PaginatedResult), args.Error(1)
}

func (m *mockAnalyses) Get(ctx context.Context, userID string, id budget.AnalysisID) (*budget.Analysis, error) {
	args := m.Called(ctx, userID, id)
	a, _ := args.Get(0).(*budget.Analysis)
	return a, args.Error(1)
}

type mockPilots struct{ mock.Mock }

func (m *mockPilots) Submit(ctx context.Context, cmd apppilot.SubmitCommand) error {
	return m.Called(ctx, cmd).Error(0)
}

const testKey = "key-1"

func newTestRouter(a *mockAnalyses, p *mockPilots, maxUpload int64) http.Handler {
	return NewRouter(a, p, Options{
		Logger:            zerolog.Nop(),
		APIKeys:           map[string]string{testKey: "finance@springfield"},
		MaxUploadBytes:    maxUpload,
		RateLimitCapacity: 100,
		RateLimitRefill:   100,
	})
}

func uploadRequest(t *testing.T, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("budget", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/analyses", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testKey)
	return req
}

func TestAnalyze_Success(t *testing.T) {
	a := new(mockAnalyses)
	router := newTestRouter(a, new(mockPilots), 0)

	content := []byte("Fiscal Year,Department,Amount\nFY25,Police,100\n")
	a.On("RunUntilDone", mock.Anything, analysis.Command{
		UserID:     "finance@springfield",
		FileName:   "budget.csv",
		Data:       content,
		CityName:   "Springfield",
		FiscalYear: "FY25",
	}).Return(analysis.Result{
		ID:           "a1",
		ReviewSource: review.SourceFallback,
		Response: budget.Response{
			Meta:   budget.Meta{Currency: "USD", RowsAnalyzed: 1},
			Health: budget.Health{Score: 70, Label: budget.HealthBalanced, KeyDrivers: []string{}},
		},
	}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "budget.csv", content, map[string]string{"cityName": " Springfield ", "fiscalYear": "FY25"}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "a1", rec.Header().Get("X-Analysis-ID"))
	assert.Equal(t, "fallback", rec.Header().Get("X-Review-Source"))
	assert.Contains(t, rec.Body.String(), `"rowsAnalyzed":1`)
	a.AssertExpectations(t)
}

func TestAnalyze_MissingFile(t *testing.T) {
	a := new(mockAnalyses)
	router := newTestRouter(a, new(mockPilots), 0)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "", nil, map[string]string{"cityName": "x"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Missing 'budget' file upload."}`, rec.Body.String())
	a.AssertNotCalled(t, "RunUntilDone", mock.Anything, mock.Anything)
}

func TestAnalyze_NotMultipart(t *testing.T) {
	router := newTestRouter(new(mockAnalyses), new(mockPilots), 0)

	req := httptest.NewRequest(http.MethodPost, "/v1/analyses", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", testKey)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyze_RequiresAPIKey(t *testing.T) {
	router := newTestRouter(new(mockAnalyses), new(mockPilots), 0)

	req := uploadRequest(t, "budget.csv", []byte("a"), nil)
	req.Header.Del("Authorization")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAnalyze_TooLarge(t *testing.T) {
	a := new(mockAnalyses)
	router := newTestRouter(a, new(mockPilots), 1<<10)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "big.csv", bytes.Repeat([]byte("x"), 4<<10), nil))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	a.AssertNotCalled(t, "RunUntilDone", mock.Anything, mock.Anything)
}

func TestAnalyze_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{
			name:   "unreadable workbook",
			err:    &budget.InputError{Message: "Could not read the uploaded spreadsheet.", Err: budget.ErrUnreadableWorkbook},
			status: http.StatusUnprocessableEntity,
			body:   `{"error":"Could not read the uploaded spreadsheet."}`,
		},
		{
			name:   "invalid upload",
			err:    budget.NewInputError(budget.ErrInvalidUpload, "Missing 'budget' file upload."),
			status: http.StatusBadRequest,
			body:   `{"error":"Missing 'budget' file upload."}`,
		},
		{
			name:   "internal detail hidden",
			err:    errors.New("dial tcp 10.0.0.5:3306: connection refused"),
			status: http.StatusInternalServerError,
			body:   `{"error":"Unexpected server error."}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := new(mockAnalyses)
			router := newTestRouter(a, new(mockPilots), 0)
			a.On("RunUntilDone", mock.Anything, mock.Anything).Return(analysis.Result{}, tt.err)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, uploadRequest(t, "old.xls", []byte{0xd0, 0xcf}, nil))

			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestList_ParsesQuery(t *testing.T) {
	a := new(mockAnalyses)
	router := newTestRouter(a, new(mockPilots), 0)

	a.On("List", mock.Anything, "finance@springfield", budget.Filter{
		CityName: "Springfield", FiscalYear: "FY25", Page: 2, PageSize: 100,
	}).Return(budget.PaginatedResult{Data: []*budget.Analysis{{ID: "a1"}}, Page: 2, PageSize: 100, Total: 101, TotalPages: 2}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/analyses?city=Springfield&fiscalYear=FY25&page=2&pageSize=500", nil)
	req.Header.Set("X-API-Key", testKey)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalItems":101`)
	a.AssertExpectations(t)
}

func TestGet_FoundAndNotFound(t *testing.T) {
	a := new(mockAnalyses)
	router := newTestRouter(a, new(mockPilots), 0)

	a.On("Get", mock.Anything, "finance@springfield", budget.AnalysisID("a1")).
		Return(&budget.Analysis{ID: "a1", HealthScore: 64, RawResult: `{"councilSummary":"hi"}`}, nil)
	a.On("Get", mock.Anything, "finance@springfield", budget.AnalysisID("nope")).
		Return(nil, budget.ErrNotFound)

	req := httptest.NewRequest(http.MethodGet, "/v1/analyses/a1", nil)
	req.Header.Set("Authorization", "Bearer "+testKey)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"result":{"councilSummary":"hi"}`)
	assert.Contains(t, rec.Body.String(), `"health_score":64`)

	req = httptest.NewRequest(http.MethodGet, "/v1/analyses/nope", nil)
	req.Header.Set("Authorization", "Bearer "+testKey)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Analysis not found."}`, rec.Body.String())
}

func TestPilotRequest(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		submitErr error
		callsSvc  bool
		status    int
		resp      string
	}{
		{"ok", `{"email":"cfo@city.gov","city":"Austin"}`, nil, true, http.StatusOK, `{"ok":true}`},
		{"bad json", `{"email":`, nil, false, http.StatusBadRequest, `{"error":"Email is required."}`},
		{"blank email", `{"email":"  "}`, pilot.ErrEmailRequired, true, http.StatusBadRequest, `{"error":"Email is required."}`},
		{"store failure", `{"email":"a@b.c"}`, errors.New("insert failed"), true, http.StatusInternalServerError, `{"error":"Failed to save pilot request."}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := new(mockPilots)
			router := newTestRouter(new(mockAnalyses), p, 0)
			if tt.callsSvc {
				p.On("Submit", mock.Anything, mock.AnythingOfType("pilot.SubmitCommand")).Return(tt.submitErr)
			}

			req := httptest.NewRequest(http.MethodPost, "/v1/pilot-requests", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("User-Agent", "test-agent")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.resp, rec.Body.String())
			p.AssertExpectations(t)
		})
	}
}

func TestPilotRequest_PassesClientHeaders(t *testing.T) {
	p := new(mockPilots)
	router := newTestRouter(new(mockAnalyses), p, 0)
	p.On("Submit", mock.Anything, apppilot.SubmitCommand{
		Email: "cfo@city.gov", Role: "CFO", UserAgent: "test-agent", Referer: "https://site.example/pilot",
	}).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/pilot-requests", strings.NewReader(`{"email":" cfo@city.gov ","role":"CFO"}`))
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Referer", "https://site.example/pilot")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	p.AssertExpectations(t)
}

func TestRecoverer(t *testing.T) {
	h := recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Unexpected server error."}`, rec.Body.String())
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(new(mockAnalyses), new(mockPilots), 0)

	for _, path := range []string{"/health", "/ready", "/live", "/metrics"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
