package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/budget-review/internal/domain/budget"
)

func TestDecode_EmptyObjectGetsDefaults(t *testing.T) {
	got, err := Decode(`{}`)
	require.NoError(t, err)

	assert.Equal(t, 75, got.OverallHealth.Score)
	assert.Equal(t, budget.HealthBalanced, got.OverallHealth.Label)
	assert.Equal(t, []string{}, got.OverallHealth.KeyDrivers)
	assert.Equal(t, []string{}, got.RiskBuckets.Structural)
	assert.Equal(t, []string{}, got.RiskBuckets.Expenditure)
	assert.Equal(t, "", got.MultiScenarioReview.BaseCase.Summary)
	assert.Equal(t, []budget.ScenarioReview{}, got.MultiScenarioReview.Scenarios)
	assert.Equal(t, []string{}, got.CouncilSummary.SuggestedResponses)
	assert.Equal(t, []string{}, got.CautionsAndOpportunities.EasyWinsWithinCurrentBudget)
}

func TestDecode_FullDocument(t *testing.T) {
	raw := `{
	  "overallHealth": {"score": 82, "label": "strong", "keyDrivers": ["diverse revenue"]},
	  "riskBuckets": {"structural": ["s"], "revenue": ["r"], "expenditure": ["e"], "dataQuality": ["d"]},
	  "multiScenarioReview": {
	    "baseCase": {"summary": "sum", "fiscalImpact": "fi"},
	    "scenarios": [{"name": "Revenue -5%", "summary": "x", "netImpactDescription": "y", "servicesImpact": "z", "recommendedActions": ["act"]}]
	  },
	  "councilSummary": {"narrative": "n", "threeMinuteTalkingPoints": ["t"], "likelyQuestionsFromCouncil": ["q"], "suggestedResponses": ["a"]},
	  "cautionsAndOpportunities": {"risksToWatchInNext12Months": ["w"], "easyWinsWithinCurrentBudget": ["e"]}
	}`

	got, err := Decode(raw)
	require.NoError(t, err)

	assert.Equal(t, budget.Health{Score: 82, Label: budget.HealthStrong, KeyDrivers: []string{"diverse revenue"}}, got.OverallHealth)
	assert.Equal(t, budget.RiskBuckets{Structural: []string{"s"}, Revenue: []string{"r"}, Expenditure: []string{"e"}, DataQuality: []string{"d"}}, got.RiskBuckets)
	assert.Equal(t, []budget.ScenarioReview{{Name: "Revenue -5%", Summary: "x", NetImpactDescription: "y", ServicesImpact: "z", RecommendedActions: []string{"act"}}},
		got.MultiScenarioReview.Scenarios)
	assert.Equal(t, "fi", got.MultiScenarioReview.BaseCase.FiscalImpact)
	assert.Equal(t, []string{"q"}, got.CouncilSummary.LikelyQuestionsFromCouncil)
	assert.Equal(t, []string{"w"}, got.CautionsAndOpportunities.RisksToWatchInNext12Months)
}

func TestDecode_MistypedFieldsAreDefaultedIndependently(t *testing.T) {
	raw := `{
	  "overallHealth": {"score": "140", "label": "Excellent", "keyDrivers": "not a list"},
	  "riskBuckets": {"revenue": ["ok", 3, null]},
	  "multiScenarioReview": {"scenarios": [{"summary": "unnamed"}, "junk"]},
	  "councilSummary": {"narrative": 12}
	}`

	got, err := Decode(raw)
	require.NoError(t, err)

	assert.Equal(t, 100, got.OverallHealth.Score)
	assert.Equal(t, budget.HealthBalanced, got.OverallHealth.Label)
	assert.Equal(t, []string{}, got.OverallHealth.KeyDrivers)
	assert.Equal(t, []string{"ok"}, got.RiskBuckets.Revenue)
	require.Len(t, got.MultiScenarioReview.Scenarios, 1)
	assert.Equal(t, "Scenario", got.MultiScenarioReview.Scenarios[0].Name)
	assert.Equal(t, []string{}, got.MultiScenarioReview.Scenarios[0].RecommendedActions)
	assert.Equal(t, "", got.CouncilSummary.Narrative)
}

func TestDecode_ScoreIsClampedAndRounded(t *testing.T) {
	for raw, want := range map[string]int{
		`{"overallHealth":{"score":-4}}`:   0,
		`{"overallHealth":{"score":71.6}}`: 72,
		`{"overallHealth":{"score":null}}`: 75,
		`{"overallHealth":{"label":"CRITICAL"}}`: 75,
	} {
		got, err := Decode(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got.OverallHealth.Score, raw)
	}
}

func TestDecode_UpperCaseLabelIsAccepted(t *testing.T) {
	got, err := Decode(`{"overallHealth":{"label":" Critical "}}`)
	require.NoError(t, err)
	assert.Equal(t, budget.HealthCritical, got.OverallHealth.Label)
}

func TestDecode_StripsCodeFences(t *testing.T) {
	got, err := Decode("```json\n{\"overallHealth\":{\"score\":55}}\n```")
	require.NoError(t, err)
	assert.Equal(t, 55, got.OverallHealth.Score)
}

func TestDecode_Errors(t *testing.T) {
	for _, raw := range []string{"", "null", "[1,2]", "not json", `{"a":`} {
		_, err := Decode(raw)
		assert.Error(t, err, raw)
	}
}
