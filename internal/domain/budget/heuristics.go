package budget

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
)

const (
	noteRising    = "Spending is rising faster than the prior year."
	noteDeclining = "Spending is declining versus the prior year."

	categoryExpenditure = "Expenditure"

	scenarioBaselineName    = "Maintain current plan"
	scenarioFlatNonSafety   = "Hold non-safety departments flat"
	baselineDescription     = "Assumes the current budget is adopted without major changes. Focuses on monitoring high-growth departments and confirming intentional policy choices."
	baselineNotes           = "Use this as a baseline for comparing any adjustments discussed with council."
	flatNonSafetyDesc       = "Freeze year-over-year growth for non-safety departments while preserving planned increases for police, fire, and EMS."
	flatNonSafetyNotes      = "This scenario can create modest savings without touching core public safety staffing, but may reduce capacity in support functions."
	growthFromZeroChangePct = 100

	// flatHoldSavingsPct is the share of total latest spend the flat-growth
	// scenario saves. Unlike the risk thresholds it is not tunable.
	flatHoldSavingsPct = 2
)

// Policy holds the risk thresholds, in percent.
type Policy struct {
	GrowthThresholdPct  float64 `yaml:"growthThresholdPct"`
	DeclineThresholdPct float64 `yaml:"declineThresholdPct"`
}

func DefaultPolicy() Policy {
	return Policy{
		GrowthThresholdPct:  10,
		DeclineThresholdPct: -5,
	}
}

// Aggregator derives department summaries, risks and scenarios from rows.
// It holds no state between calls.
type Aggregator struct {
	Policy Policy
}

func NewAggregator(p Policy) *Aggregator {
	return &Aggregator{Policy: p}
}

// departmentTotals keeps per-year sums for one department.
type departmentTotals struct {
	name   string
	byYear map[string]decimal.Decimal
}

// departmentIndex groups rows by department in first-seen order.
type departmentIndex struct {
	order []*departmentTotals
	byKey map[string]*departmentTotals
}

func newDepartmentIndex() *departmentIndex {
	return &departmentIndex{byKey: make(map[string]*departmentTotals)}
}

func (ix *departmentIndex) add(r Row) {
	name := r.Department
	if name == "" {
		name = unspecifiedDepartment
	}
	d, ok := ix.byKey[name]
	if !ok {
		d = &departmentTotals{name: name, byYear: make(map[string]decimal.Decimal)}
		ix.byKey[name] = d
		ix.order = append(ix.order, d)
	}
	d.byYear[r.FiscalYear] = d.byYear[r.FiscalYear].Add(decimal.NewFromFloat(r.Amount))
}

// Aggregate is a pure function of rows. An empty input returns empty lists
// and no scenarios at all.
func (a *Aggregator) Aggregate(rows []Row) Heuristics {
	if len(rows) == 0 {
		return Heuristics{
			Departments: []DepartmentSummary{},
			Risks:       []Risk{},
			Scenarios:   []Scenario{},
		}
	}

	years := FiscalYears(rows)
	latest := years[len(years)-1]
	var previous string
	if len(years) > 1 {
		previous = years[len(years)-2]
	}
	var trendYears []string
	if len(years) >= 3 {
		trendYears = years[len(years)-3:]
	}

	ix := newDepartmentIndex()
	for _, r := range rows {
		ix.add(r)
	}

	departments := make([]DepartmentSummary, 0, len(ix.order))
	totalLatest := decimal.Zero
	for _, d := range ix.order {
		latestTotal := d.byYear[latest]
		totalLatest = totalLatest.Add(latestTotal)

		s := DepartmentSummary{
			Name:           d.name,
			TotalAmount:    latestTotal.InexactFloat64(),
			ThreeYearTrend: threeYearTrend(d, trendYears),
		}
		if prev, ok := d.byYear[previous]; ok && previous != "" {
			s.YoYChangePct = YoYChangePct(s.TotalAmount, prev.InexactFloat64())
			switch {
			case s.YoYChangePct > a.Policy.GrowthThresholdPct:
				s.Notes = noteRising
			case s.YoYChangePct < a.Policy.DeclineThresholdPct:
				s.Notes = noteDeclining
			}
		}
		departments = append(departments, s)
	}

	return Heuristics{
		Departments:  departments,
		Risks:        a.risks(departments),
		Scenarios:    a.scenarios(totalLatest),
		RowsAnalyzed: len(rows),
	}
}

// risks lists growth risks first, then decline risks, numbered across both.
func (a *Aggregator) risks(departments []DepartmentSummary) []Risk {
	risks := []Risk{}
	next := func() string { return fmt.Sprintf("risk-%d", len(risks)+1) }

	for _, d := range departments {
		if d.YoYChangePct > a.Policy.GrowthThresholdPct {
			risks = append(risks, Risk{
				ID:         next(),
				Label:      "Rapid spending growth",
				Category:   categoryExpenditure,
				Department: d.Name,
				Impact: fmt.Sprintf("Spending in %s is up %s%% year-over-year. Consider whether this growth is intentional and sustainable.",
					d.Name, toFixed1(d.YoYChangePct)),
				RiskLevel: RiskMedium,
			})
		}
	}
	for _, d := range departments {
		if d.YoYChangePct < a.Policy.DeclineThresholdPct {
			risks = append(risks, Risk{
				ID:         next(),
				Label:      "Significant spending reduction",
				Category:   categoryExpenditure,
				Department: d.Name,
				Impact: fmt.Sprintf("Spending in %s is down %s%% year-over-year. Ensure service levels are not being unintentionally impacted.",
					d.Name, toFixed1(d.YoYChangePct)),
				RiskLevel: RiskMedium,
			})
		}
	}
	return risks
}

func (a *Aggregator) scenarios(totalLatest decimal.Decimal) []Scenario {
	out := []Scenario{{
		Name:            scenarioBaselineName,
		Description:     baselineDescription,
		NetImpactAmount: 0,
		Notes:           baselineNotes,
	}}
	if totalLatest.IsPositive() {
		factor := decimal.NewFromInt(-flatHoldSavingsPct).Div(decimal.NewFromInt(100))
		out = append(out, Scenario{
			Name:            scenarioFlatNonSafety,
			Description:     flatNonSafetyDesc,
			NetImpactAmount: RoundHalfUp(totalLatest.Mul(factor).InexactFloat64()),
			Notes:           flatNonSafetyNotes,
		})
	}
	return out
}

// FiscalYears returns the distinct fiscal years in ascending string order.
func FiscalYears(rows []Row) []string {
	seen := make(map[string]struct{})
	var years []string
	for _, r := range rows {
		if _, ok := seen[r.FiscalYear]; ok {
			continue
		}
		seen[r.FiscalYear] = struct{}{}
		years = append(years, r.FiscalYear)
	}
	sort.Strings(years)
	return years
}

// YoYChangePct compares latest against previous. Growth from zero counts as 100%.
func YoYChangePct(latest, previous float64) float64 {
	if previous != 0 {
		return (latest - previous) / math.Abs(previous) * 100
	}
	if latest != 0 {
		return growthFromZeroChangePct
	}
	return 0
}

func threeYearTrend(d *departmentTotals, years []string) Trend {
	if len(years) != 3 {
		return ""
	}
	vals := make([]decimal.Decimal, 0, 3)
	for _, y := range years {
		v, ok := d.byYear[y]
		if !ok {
			return ""
		}
		vals = append(vals, v)
	}
	switch {
	case vals[0].LessThan(vals[1]) && vals[1].LessThan(vals[2]):
		return TrendIncreasing
	case vals[0].GreaterThan(vals[1]) && vals[1].GreaterThan(vals[2]):
		return TrendDecreasing
	}
	return TrendStable
}

// RoundHalfUp rounds to the nearest integer with ties toward +Inf.
func RoundHalfUp(v float64) float64 {
	r := math.Floor(v + 0.5)
	if r == 0 {
		return 0
	}
	return r
}

// toFixed1 formats v with one decimal. Exact ties round away from zero.
func toFixed1(v float64) string {
	abs := math.Abs(v)
	scaled := abs * 10
	var s string
	if scaled-math.Floor(scaled) == 0.5 {
		s = strconv.FormatFloat((math.Floor(scaled)+1)/10, 'f', 1, 64)
	} else {
		s = strconv.FormatFloat(abs, 'f', 1, 64)
	}
	if v < 0 {
		return "-" + s
	}
	return s
}
