package review

import (
	"math"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/bryanwahyu/budget-review/internal/domain/budget"
)

const maxWatchedRisks = 3

// Fallback builds a review from the heuristic results alone. Narrative
// text is fixed; only buckets, scenarios and watched risks follow the data.
func Fallback(in budget.ReviewInput, notConfigured bool) budget.AdvancedReview {
	status := "Narrative service unavailable - using fallback values."
	if notConfigured {
		status = "Narrative service not configured - using fallback values."
	}

	buckets := budget.RiskBuckets{
		Structural:  []string{},
		Revenue:     []string{},
		Expenditure: []string{},
		DataQuality: []string{},
	}
	for _, r := range in.Risks {
		cat := strings.ToLower(r.Category)
		if strings.Contains(cat, "structural") {
			buckets.Structural = append(buckets.Structural, r.Impact)
		}
		if strings.Contains(cat, "revenue") {
			buckets.Revenue = append(buckets.Revenue, r.Impact)
		}
		if strings.Contains(cat, "expenditure") || strings.Contains(cat, "efficiency") {
			buckets.Expenditure = append(buckets.Expenditure, r.Impact)
		}
		if strings.Contains(cat, "data") {
			buckets.DataQuality = append(buckets.DataQuality, r.Impact)
		}
	}

	scenarios := make([]budget.ScenarioReview, 0, len(in.Scenarios))
	for _, s := range in.Scenarios {
		services := s.Notes
		if services == "" {
			services = "Impact on services requires further review."
		}
		scenarios = append(scenarios, budget.ScenarioReview{
			Name:                 s.Name,
			Summary:              s.Description,
			NetImpactDescription: NetImpactDescription(s.NetImpactAmount),
			ServicesImpact:       services,
			RecommendedActions:   []string{},
		})
	}

	watch := []string{}
	for i, r := range in.Risks {
		if i == maxWatchedRisks {
			break
		}
		watch = append(watch, r.Label)
	}

	return budget.AdvancedReview{
		OverallHealth: budget.Health{
			Score: defaultScore,
			Label: defaultLabel,
			KeyDrivers: []string{
				"Budget analysis completed with basic heuristics.",
				status,
			},
		},
		RiskBuckets: buckets,
		MultiScenarioReview: budget.MultiScenarioReview{
			BaseCase: budget.BaseCase{
				Summary:      "The budget appears generally balanced based on available data.",
				FiscalImpact: "Further analysis recommended to assess long-term sustainability.",
			},
			Scenarios: scenarios,
		},
		CouncilSummary: budget.CouncilSummary{
			Narrative: "This budget analysis provides an initial assessment of the fiscal position. " +
				"Key risks and opportunities have been identified for further review by staff and council.",
			ThreeMinuteTalkingPoints: []string{
				"Budget appears structurally balanced.",
				"Several departments show significant year-over-year changes.",
				"Recommendation: Review high-growth areas for sustainability.",
			},
			LikelyQuestionsFromCouncil: []string{
				"What are the biggest risks in this budget?",
				"How does this compare to prior years?",
			},
			SuggestedResponses: []string{
				"The analysis identified several areas of concern, particularly in departments with rapid growth.",
				"Year-over-year comparisons show varying trends across departments.",
			},
		},
		CautionsAndOpportunities: budget.CautionsAndOpportunities{
			RisksToWatchInNext12Months:  watch,
			EasyWinsWithinCurrentBudget: []string{},
		},
	}
}

// NetImpactDescription renders an amount as "Net impact: +1,234". Non-negative
// amounts carry an explicit plus sign.
func NetImpactDescription(amount float64) string {
	v := math.Round(amount*1000) / 1000
	sign := ""
	if v >= 0 {
		sign = "+"
		v = math.Abs(v)
	}
	return "Net impact: " + sign + humanize.Commaf(v)
}
