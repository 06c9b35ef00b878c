package budget

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Fiscal Year", "fiscalyear"},
		{"FY_Year", "fyyear"},
		{"  Dept. Name ", "deptname"},
		{"\ufeffAmount", "amount"},
		{"Café", "caf"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeKey(tt.in), tt.in)
	}
}

func TestCandidates_FirstMatchingHeaderWins(t *testing.T) {
	picker := Candidates("Amount", "Adopted Budget")

	rec := Record{
		{Key: "Dept", Value: "Fire"},
		{Key: "adopted_budget", Value: "200"},
		{Key: "AMOUNT", Value: "100"},
	}

	assert.Equal(t, "200", picker.Pick(rec))
}

func TestCandidates_NoSubstringMatch(t *testing.T) {
	picker := Candidates("FY")

	rec := Record{{Key: "FY Amount", Value: "12"}}

	assert.Nil(t, picker.Pick(rec))
}

func TestFirstOf_FallsBackOnNil(t *testing.T) {
	picker := FirstOf(Candidates("Fiscal Year"), Candidates("FY24"))

	assert.Equal(t, "x", picker.Pick(Record{{Key: "FY24", Value: "x"}}))
	assert.Equal(t, "x", picker.Pick(Record{{Key: "Fiscal Year", Value: nil}, {Key: "FY24", Value: "x"}}))
	assert.Equal(t, "FY25", picker.Pick(Record{{Key: "Fiscal Year", Value: "FY25"}, {Key: "FY24", Value: "x"}}))
	assert.Nil(t, picker.Pick(Record{{Key: "Dept", Value: "x"}}))
}

func TestToNumber(t *testing.T) {
	tests := []struct {
		name      string
		in        any
		want      float64
		wantFound bool
	}{
		{"nil", nil, 0, false},
		{"float", 12.5, 12.5, true},
		{"nan", math.NaN(), 0, false},
		{"int", 7, 7, true},
		{"thousands", " 1,234,567.89 ", 1234567.89, true},
		{"negative", "-500", -500, true},
		{"empty", "   ", 0, false},
		{"currency symbol", "$1,200", 0, false},
		{"text", "n/a", 0, false},
		{"zero", "0", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := ToNumber(tt.in)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSchemaNormalize(t *testing.T) {
	s := DefaultSchema()

	t.Run("full row", func(t *testing.T) {
		row, ok := s.Normalize(Record{
			{Key: "Fiscal Year", Value: " FY25 "},
			{Key: "Department Name", Value: " Police "},
			{Key: "Fund", Value: "General"},
			{Key: "Line Item", Value: "Overtime"},
			{Key: "Adopted Budget", Value: "1,000"},
		})
		require.True(t, ok)
		assert.Equal(t, "FY25", row.FiscalYear)
		assert.Equal(t, "Police", row.Department)
		require.NotNil(t, row.Fund)
		assert.Equal(t, "General", *row.Fund)
		require.NotNil(t, row.AccountName)
		assert.Equal(t, "Overtime", *row.AccountName)
		assert.Equal(t, 1000.0, row.Amount)
	})

	t.Run("department defaults", func(t *testing.T) {
		row, ok := s.Normalize(Record{
			{Key: "FY", Value: "FY25"},
			{Key: "Dept", Value: "   "},
			{Key: "Amount", Value: "5"},
		})
		require.True(t, ok)
		assert.Equal(t, "Unspecified", row.Department)
		assert.Nil(t, row.Fund)
		assert.Nil(t, row.AccountName)
	})

	t.Run("literal year header", func(t *testing.T) {
		row, ok := s.Normalize(Record{
			{Key: "FY24", Value: "2024"},
			{Key: "Total", Value: "10"},
		})
		require.True(t, ok)
		assert.Equal(t, "2024", row.FiscalYear)
	})

	rejected := map[string]Record{
		"missing year":   {{Key: "Amount", Value: "10"}},
		"blank year":     {{Key: "FY", Value: "  "}, {Key: "Amount", Value: "10"}},
		"missing amount": {{Key: "FY", Value: "FY25"}},
		"zero amount":    {{Key: "FY", Value: "FY25"}, {Key: "Amount", Value: "0.00"}},
		"text amount":    {{Key: "FY", Value: "FY25"}, {Key: "Amount", Value: "TBD"}},
		"infinite":       {{Key: "FY", Value: "FY25"}, {Key: "Amount", Value: "Inf"}},
	}
	for name, rec := range rejected {
		t.Run(name, func(t *testing.T) {
			_, ok := s.Normalize(rec)
			assert.False(t, ok)
		})
	}
}
