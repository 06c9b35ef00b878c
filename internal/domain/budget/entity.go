package budget

import "time"

// Row is one normalized ledger line ready for aggregation.
type Row struct {
	FiscalYear  string  `json:"fiscalYear"`
	Department  string  `json:"department"`
	Fund        *string `json:"fund"`
	AccountName *string `json:"accountName"`
	Amount      float64 `json:"amount"`
}

type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// DepartmentSummary aggregates one department for the latest fiscal year.
type DepartmentSummary struct {
	Name           string  `json:"name"`
	TotalAmount    float64 `json:"totalAmount"`
	YoYChangePct   float64 `json:"yoyChangePct"`
	ThreeYearTrend Trend   `json:"threeYearTrend,omitempty"`
	Notes          string  `json:"notes,omitempty"`
}

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

type Risk struct {
	ID              string    `json:"id"`
	Label           string    `json:"label"`
	Category        string    `json:"category"`
	Department      string    `json:"department,omitempty"`
	Fund            string    `json:"fund,omitempty"`
	Impact          string    `json:"impact"`
	EstimatedAmount *float64  `json:"estimatedAmount,omitempty"`
	RiskLevel       RiskLevel `json:"riskLevel"`
}

type Scenario struct {
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	NetImpactAmount float64 `json:"netImpactAmount"`
	Notes           string  `json:"notes,omitempty"`
}

type HealthLabel string

const (
	HealthStrong     HealthLabel = "strong"
	HealthBalanced   HealthLabel = "balanced"
	HealthVulnerable HealthLabel = "vulnerable"
	HealthCritical   HealthLabel = "critical"
)

// Valid reports whether l is one of the four known labels.
func (l HealthLabel) Valid() bool {
	switch l {
	case HealthStrong, HealthBalanced, HealthVulnerable, HealthCritical:
		return true
	}
	return false
}

type Health struct {
	Score      int         `json:"score"`
	Label      HealthLabel `json:"label"`
	KeyDrivers []string    `json:"keyDrivers"`
}

type Meta struct {
	CityName     string `json:"cityName,omitempty"`
	FiscalYear   string `json:"fiscalYear,omitempty"`
	Currency     string `json:"currency"`
	RowsAnalyzed int    `json:"rowsAnalyzed"`
	GeneratedAt  string `json:"generatedAt"`
	Demo         bool   `json:"demo"`
}

type RiskBuckets struct {
	Structural  []string `json:"structural"`
	Revenue     []string `json:"revenue"`
	Expenditure []string `json:"expenditure"`
	DataQuality []string `json:"dataQuality"`
}

type BaseCase struct {
	Summary      string `json:"summary"`
	FiscalImpact string `json:"fiscalImpact"`
}

type ScenarioReview struct {
	Name                 string   `json:"name"`
	Summary              string   `json:"summary"`
	NetImpactDescription string   `json:"netImpactDescription"`
	ServicesImpact       string   `json:"servicesImpact"`
	RecommendedActions   []string `json:"recommendedActions"`
}

type MultiScenarioReview struct {
	BaseCase  BaseCase         `json:"baseCase"`
	Scenarios []ScenarioReview `json:"scenarios"`
}

type CouncilSummary struct {
	Narrative                  string   `json:"narrative"`
	ThreeMinuteTalkingPoints   []string `json:"threeMinuteTalkingPoints"`
	LikelyQuestionsFromCouncil []string `json:"likelyQuestionsFromCouncil"`
	SuggestedResponses         []string `json:"suggestedResponses"`
}

type CautionsAndOpportunities struct {
	RisksToWatchInNext12Months  []string `json:"risksToWatchInNext12Months"`
	EasyWinsWithinCurrentBudget []string `json:"easyWinsWithinCurrentBudget"`
}

// AdvancedReview is the narrative review produced by the language model,
// or synthesized locally when the model is unavailable.
type AdvancedReview struct {
	OverallHealth            Health                   `json:"overallHealth"`
	RiskBuckets              RiskBuckets              `json:"riskBuckets"`
	MultiScenarioReview      MultiScenarioReview      `json:"multiScenarioReview"`
	CouncilSummary           CouncilSummary           `json:"councilSummary"`
	CautionsAndOpportunities CautionsAndOpportunities `json:"cautionsAndOpportunities"`
}

// Response is the final analysis payload returned to callers and stored as raw_result.
type Response struct {
	Meta           Meta                `json:"meta"`
	Health         Health              `json:"health"`
	Risks          []Risk              `json:"risks"`
	Departments    []DepartmentSummary `json:"departments"`
	Scenarios      []Scenario          `json:"scenarios"`
	CouncilSummary string              `json:"councilSummary"`
	AdvancedReview *AdvancedReview     `json:"advancedReview,omitempty"`
}

// Heuristics is the deterministic part of an analysis.
type Heuristics struct {
	Departments  []DepartmentSummary
	Risks        []Risk
	Scenarios    []Scenario
	RowsAnalyzed int
}

// AnalysisID identifier type
type AnalysisID string

// Analysis is a persisted analysis record.
type Analysis struct {
	ID           AnalysisID  `json:"id"`
	UserID       string      `json:"user_id"`
	CityName     string      `json:"city_name,omitempty"`
	FiscalYear   string      `json:"fiscal_year,omitempty"`
	HealthScore  int         `json:"health_score"`
	HealthLabel  HealthLabel `json:"health_label"`
	IsDemo       bool        `json:"is_demo"`
	FileName     string      `json:"file_name"`
	RowsAnalyzed int         `json:"rows_analyzed"`
	Currency     string      `json:"currency"`
	RawResult    string      `json:"-"` // JSON encoded Response
	ArchiveURL   string      `json:"archive_url,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Filter narrows a listing of past analyses.
// CityName matches as a substring, FiscalYear exactly.
type Filter struct {
	CityName   string
	FiscalYear string
	Page       int
	PageSize   int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Bounds returns the effective page and page size.
func (f Filter) Bounds() (page, pageSize int) {
	page, pageSize = f.Page, f.PageSize
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// PaginatedResult represents a paginated response with data and metadata
type PaginatedResult struct {
	Data       []*Analysis `json:"data"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	Total      int64       `json:"totalItems"`
	TotalPages int         `json:"totalPages"`
}

// ReviewInput is what the narrative review is built from.
type ReviewInput struct {
	CityName          string
	FiscalYear        string
	TotalBudgetAmount float64 // zero means unknown
	Risks             []Risk
	Departments       []DepartmentSummary
	Scenarios         []Scenario
}
