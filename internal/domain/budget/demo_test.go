package budget

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsDemoFile(t *testing.T) {
	tokens := DefaultDemoTokens

	assert.True(t, IsDemoFile("Meadowbrook_FY25_Budget.csv", tokens))
	assert.True(t, IsDemoFile("city-of-MEADOWBROOK.xlsx", tokens))
	assert.False(t, IsDemoFile("springfield.csv", tokens))
	assert.False(t, IsDemoFile("meadowbrook.csv", []string{" ", ""}))
}

func TestDemoResponse(t *testing.T) {
	now := time.Date(2025, 3, 4, 5, 6, 7, 890_000_000, time.FixedZone("x", 3600))

	got := DemoResponse(now)

	assert.True(t, got.Meta.Demo)
	assert.Equal(t, "Meadowbrook", got.Meta.CityName)
	assert.Equal(t, "FY25", got.Meta.FiscalYear)
	assert.Equal(t, "USD", got.Meta.Currency)
	assert.Equal(t, 250, got.Meta.RowsAnalyzed)
	assert.Equal(t, "2025-03-04T04:06:07.890Z", got.Meta.GeneratedAt)
	assert.Equal(t, Health{Score: 87, Label: HealthBalanced, KeyDrivers: got.Health.KeyDrivers}, got.Health)
	assert.Len(t, got.Health.KeyDrivers, 3)
	assert.Len(t, got.Risks, 3)
	assert.Len(t, got.Departments, 5)
	assert.Len(t, got.Scenarios, 2)
	assert.Nil(t, got.AdvancedReview)

	raw, err := json.Marshal(got)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "advancedReview")
	assert.Contains(t, string(raw), `"threeYearTrend":"stable"`)
}
