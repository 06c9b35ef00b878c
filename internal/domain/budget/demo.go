package budget

import (
	"strings"
	"time"
)

// DefaultDemoTokens are filename fragments that select the showcase payload.
var DefaultDemoTokens = []string{"meadowbrook"}

const (
	CurrencyUSD = "USD"

	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// FormatTimestamp renders t as an ISO-8601 UTC timestamp with milliseconds.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// IsDemoFile reports whether filename contains one of tokens, ignoring case.
func IsDemoFile(filename string, tokens []string) bool {
	name := strings.ToLower(filename)
	for _, tok := range tokens {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok != "" && strings.Contains(name, tok) {
			return true
		}
	}
	return false
}

func amount(v float64) *float64 { return &v }

// DemoResponse is the fixed Meadowbrook showcase analysis.
func DemoResponse(now time.Time) Response {
	return Response{
		Meta: Meta{
			CityName:     "Meadowbrook",
			FiscalYear:   "FY25",
			Currency:     CurrencyUSD,
			RowsAnalyzed: 250,
			GeneratedAt:  FormatTimestamp(now),
			Demo:         true,
		},
		Health: Health{
			Score: 87,
			Label: HealthBalanced,
			KeyDrivers: []string{
				"Moderate revenue diversification",
				"Fleet maintenance overspend vs. history",
				"Exposure to a 5% sales tax decline",
			},
		},
		Risks: []Risk{
			{
				ID:              "fleet-overspend",
				Label:           "Fleet maintenance overspend",
				Category:        "Efficiency",
				Department:      "Public Works",
				Fund:            "General Fund",
				Impact:          "$412,000 above historical trend in FY25",
				EstimatedAmount: amount(412000),
				RiskLevel:       RiskMedium,
			},
			{
				ID:              "duplicate-line-items",
				Label:           "Duplicate line items detected",
				Category:        "Data quality",
				Department:      "IT Services",
				Fund:            "General Fund",
				Impact:          "7 software subscription line items appear to represent overlapping or duplicate services.",
				EstimatedAmount: amount(98000),
				RiskLevel:       RiskMedium,
			},
			{
				ID:              "revenue-sensitivity",
				Label:           "Revenue sensitivity at −5%",
				Category:        "Revenue",
				Fund:            "All governmental funds",
				Impact:          "At a 5% decline in major tax revenues, non-essential services would require targeted reductions to maintain balance.",
				EstimatedAmount: amount(650000),
				RiskLevel:       RiskHigh,
			},
		},
		Departments: []DepartmentSummary{
			{Name: "Public Works", TotalAmount: 8450000, YoYChangePct: 6.8, ThreeYearTrend: TrendIncreasing,
				Notes: "Fleet and street maintenance drive most of the increase."},
			{Name: "Police", TotalAmount: 12750000, YoYChangePct: 3.2, ThreeYearTrend: TrendIncreasing},
			{Name: "Fire", TotalAmount: 9100000, YoYChangePct: 2.9, ThreeYearTrend: TrendIncreasing},
			{Name: "Parks & Recreation", TotalAmount: 3550000, YoYChangePct: 1.1, ThreeYearTrend: TrendStable},
			{Name: "IT Services", TotalAmount: 2150000, YoYChangePct: 9.4, ThreeYearTrend: TrendIncreasing,
				Notes: "Growth concentrated in software and cloud services."},
		},
		Scenarios: []Scenario{
			{
				Name:            "Revenue -5%",
				Description:     "Models a 5% decline in major tax revenues with targeted reductions in non-essential services.",
				NetImpactAmount: -650000,
				Notes:           "Balanced primarily through delays in non-critical capital projects and reductions in discretionary spending.",
			},
			{
				Name:            "Reallocate 2% from under-utilized line items",
				Description:     "Redirects funding from low-utilization accounts to core infrastructure and public safety.",
				NetImpactAmount: 380000,
				Notes:           "Fully funds the prioritized street resurfacing program while maintaining structural balance.",
			},
		},
		CouncilSummary: "The FY25 draft budget for the City of Meadowbrook is structurally balanced but moderately exposed to revenue volatility. " +
			"A small number of line items—primarily in fleet maintenance and IT subscriptions—are driving outsized growth compared to history. " +
			"Redirecting approximately 1.8–2.0% of spending from under-utilized or duplicative accounts is sufficient to fully fund the proposed infrastructure priorities while preserving services. " +
			"Under a 5% revenue decline scenario, targeted reductions in non-essential spending maintain balance without impacting core public safety.",
	}
}
