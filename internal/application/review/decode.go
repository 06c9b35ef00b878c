package review

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bryanwahyu/budget-review/internal/domain/budget"
)

const (
	defaultScore        = 75
	defaultLabel        = budget.HealthBalanced
	defaultScenarioName = "Scenario"
)

var errNotObject = errors.New("review is not a JSON object")

// Decode parses model output and fills every missing or mistyped field with
// its default. Only text that is not a JSON object is an error.
func Decode(raw string) (budget.AdvancedReview, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &doc); err != nil {
		return budget.AdvancedReview{}, fmt.Errorf("unmarshal review: %w", err)
	}
	if doc == nil {
		return budget.AdvancedReview{}, errNotObject
	}

	health := getObject(doc, "overallHealth")
	buckets := getObject(doc, "riskBuckets")
	multi := getObject(doc, "multiScenarioReview")
	base := getObject(multi, "baseCase")
	council := getObject(doc, "councilSummary")
	cautions := getObject(doc, "cautionsAndOpportunities")

	return budget.AdvancedReview{
		OverallHealth: budget.Health{
			Score:      getScore(health, "score"),
			Label:      getLabel(health, "label"),
			KeyDrivers: getStrings(health, "keyDrivers"),
		},
		RiskBuckets: budget.RiskBuckets{
			Structural:  getStrings(buckets, "structural"),
			Revenue:     getStrings(buckets, "revenue"),
			Expenditure: getStrings(buckets, "expenditure"),
			DataQuality: getStrings(buckets, "dataQuality"),
		},
		MultiScenarioReview: budget.MultiScenarioReview{
			BaseCase: budget.BaseCase{
				Summary:      getString(base, "summary", ""),
				FiscalImpact: getString(base, "fiscalImpact", ""),
			},
			Scenarios: getScenarios(multi, "scenarios"),
		},
		CouncilSummary: budget.CouncilSummary{
			Narrative:                  getString(council, "narrative", ""),
			ThreeMinuteTalkingPoints:   getStrings(council, "threeMinuteTalkingPoints"),
			LikelyQuestionsFromCouncil: getStrings(council, "likelyQuestionsFromCouncil"),
			SuggestedResponses:         getStrings(council, "suggestedResponses"),
		},
		CautionsAndOpportunities: budget.CautionsAndOpportunities{
			RisksToWatchInNext12Months:  getStrings(cautions, "risksToWatchInNext12Months"),
			EasyWinsWithinCurrentBudget: getStrings(cautions, "easyWinsWithinCurrentBudget"),
		},
	}, nil
}

// cleanModelJSON drops Markdown code fences around the payload.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])
		if end := strings.LastIndex(s, "```"); end != -1 {
			s = s[:end]
		}
	}
	return strings.TrimSpace(s)
}

func getObject(m map[string]any, key string) map[string]any {
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	return nil
}

func getString(m map[string]any, key, def string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return def
}

// getStrings keeps only string elements; anything else yields an empty list.
func getStrings(m map[string]any, key string) []string {
	out := []string{}
	list, ok := m[key].([]any)
	if !ok {
		return out
	}
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func getScore(m map[string]any, key string) int {
	var f float64
	switch v := m[key].(type) {
	case float64:
		f = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return defaultScore
		}
		f = parsed
	default:
		return defaultScore
	}
	if math.IsNaN(f) {
		return defaultScore
	}
	return int(math.Round(math.Max(0, math.Min(100, f))))
}

func getLabel(m map[string]any, key string) budget.HealthLabel {
	l := budget.HealthLabel(strings.ToLower(strings.TrimSpace(getString(m, key, ""))))
	if !l.Valid() {
		return defaultLabel
	}
	return l
}

func getScenarios(m map[string]any, key string) []budget.ScenarioReview {
	out := []budget.ScenarioReview{}
	list, ok := m[key].([]any)
	if !ok {
		return out
	}
	for _, item := range list {
		s, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, budget.ScenarioReview{
			Name:                 getString(s, "name", defaultScenarioName),
			Summary:              getString(s, "summary", ""),
			NetImpactDescription: getString(s, "netImpactDescription", ""),
			ServicesImpact:       getString(s, "servicesImpact", ""),
			RecommendedActions:   getStrings(s, "recommendedActions"),
		})
	}
	return out
}
