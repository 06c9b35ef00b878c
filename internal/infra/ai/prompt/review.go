package prompt

import (
	"encoding/json"
	"fmt"

	"github.com/bryanwahyu/budget-review/internal/domain/budget"
)

// SystemPrompt sets the analyst persona and the JSON-only contract.
const SystemPrompt = "You are an expert municipal budget analyst. You specialize in helping city and county governments explain budgets to elected officials and the public. Always be clear, non-technical, and concise. Return ONLY valid JSON, no commentary."

const reviewInstructions = "You are reviewing a city budget using the structured data below. Provide a multi-scenario review and communication guidance in strict JSON."

type cityContext struct {
	CityName          *string  `json:"cityName"`
	FiscalYear        *string  `json:"fiscalYear"`
	TotalBudgetAmount *float64 `json:"totalBudgetAmount"`
}

type userPayload struct {
	Instructions       string                     `json:"instructions"`
	CityContext        cityContext                `json:"cityContext"`
	Risks              []budget.Risk              `json:"risks"`
	Departments        []budget.DepartmentSummary `json:"departments"`
	Scenarios          []budget.Scenario          `json:"scenarios"`
	RequiredJSONSchema reviewSchema               `json:"requiredJsonSchema"`
}

// reviewSchema describes every field the model must return, in plain words.
type reviewSchema struct {
	OverallHealth struct {
		Score      string `json:"score"`
		Label      string `json:"label"`
		KeyDrivers string `json:"keyDrivers"`
	} `json:"overallHealth"`
	RiskBuckets struct {
		Structural  string `json:"structural"`
		Revenue     string `json:"revenue"`
		Expenditure string `json:"expenditure"`
		DataQuality string `json:"dataQuality"`
	} `json:"riskBuckets"`
	MultiScenarioReview struct {
		BaseCase struct {
			Summary      string `json:"summary"`
			FiscalImpact string `json:"fiscalImpact"`
		} `json:"baseCase"`
		Scenarios []scenarioSchema `json:"scenarios"`
	} `json:"multiScenarioReview"`
	CouncilSummary struct {
		Narrative                  string `json:"narrative"`
		ThreeMinuteTalkingPoints   string `json:"threeMinuteTalkingPoints"`
		LikelyQuestionsFromCouncil string `json:"likelyQuestionsFromCouncil"`
		SuggestedResponses         string `json:"suggestedResponses"`
	} `json:"councilSummary"`
	CautionsAndOpportunities struct {
		RisksToWatchInNext12Months  string `json:"risksToWatchInNext12Months"`
		EasyWinsWithinCurrentBudget string `json:"easyWinsWithinCurrentBudget"`
	} `json:"cautionsAndOpportunities"`
}

type scenarioSchema struct {
	Name                 string `json:"name"`
	Summary              string `json:"summary"`
	NetImpactDescription string `json:"netImpactDescription"`
	ServicesImpact       string `json:"servicesImpact"`
	RecommendedActions   string `json:"recommendedActions"`
}

func newReviewSchema() reviewSchema {
	var s reviewSchema
	s.OverallHealth.Score = "integer 0–100; 50 is neutral, 80+ strong, <60 vulnerable, <50 critical"
	s.OverallHealth.Label = "one of: strong, balanced, vulnerable, critical"
	s.OverallHealth.KeyDrivers = "array of 3–7 short bullet strings explaining the score in fiscal terms"

	s.RiskBuckets.Structural = "array of key structural risk bullet strings"
	s.RiskBuckets.Revenue = "array of revenue risk bullet strings"
	s.RiskBuckets.Expenditure = "array of expenditure risk bullet strings"
	s.RiskBuckets.DataQuality = "array of data quality & transparency bullet strings"

	s.MultiScenarioReview.BaseCase.Summary = "plain-language summary of current budget as submitted/drafted"
	s.MultiScenarioReview.BaseCase.FiscalImpact = "short description of sustainability over 3–5 years"
	s.MultiScenarioReview.Scenarios = []scenarioSchema{{
		Name:                 "string; e.g. 'Revenue -5%' or 'Delay capital projects'",
		Summary:              "2–4 sentences explaining the scenario and impact",
		NetImpactDescription: "plain-language description of financial impact, not just a number",
		ServicesImpact:       "plain-language description of likely service level implications",
		RecommendedActions:   "array of concrete actions staff could take",
	}}

	s.CouncilSummary.Narrative = "2–4 short paragraphs in plain language suitable for a staff report or memo cover page"
	s.CouncilSummary.ThreeMinuteTalkingPoints = "array of 4–7 short bullet strings the finance director or city manager could use verbally"
	s.CouncilSummary.LikelyQuestionsFromCouncil = "array of likely questions that elected officials may ask"
	s.CouncilSummary.SuggestedResponses = "array of answer strings matched by index to likelyQuestionsFromCouncil"

	s.CautionsAndOpportunities.RisksToWatchInNext12Months = "array of short bullet items that warrant monitoring"
	s.CautionsAndOpportunities.EasyWinsWithinCurrentBudget = "array of 3–7 quick wins that do not require major policy changes"
	return s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// BuildReviewPrompt renders the user message for a review request.
func BuildReviewPrompt(in budget.ReviewInput) (string, error) {
	p := userPayload{
		Instructions: reviewInstructions,
		CityContext: cityContext{
			CityName:   optional(in.CityName),
			FiscalYear: optional(in.FiscalYear),
		},
		Risks:              nonNil(in.Risks),
		Departments:        nonNil(in.Departments),
		Scenarios:          nonNil(in.Scenarios),
		RequiredJSONSchema: newReviewSchema(),
	}
	if in.TotalBudgetAmount != 0 {
		total := in.TotalBudgetAmount
		p.CityContext.TotalBudgetAmount = &total
	}

	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal review prompt: %w", err)
	}
	return string(b), nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
