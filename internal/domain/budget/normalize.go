package budget

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const unspecifiedDepartment = "Unspecified"

// Field is one cell of a record. A nil Value is an empty cell.
type Field struct {
	Key   string
	Value any
}

// Record keeps cells in header order so the first matching header wins.
type Record []Field

// NormalizeKey lowercases key and strips everything except a-z and 0-9.
func NormalizeKey(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(key) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FieldPicker extracts one canonical field from a record. It returns nil
// when the record has no usable value for the field.
type FieldPicker interface {
	Pick(rec Record) any
}

type candidateSet map[string]struct{}

// Candidates builds a picker matching headers equal to any of names after
// normalization.
func Candidates(names ...string) FieldPicker {
	set := make(candidateSet, len(names))
	for _, n := range names {
		set[NormalizeKey(n)] = struct{}{}
	}
	return set
}

func (c candidateSet) Pick(rec Record) any {
	for _, f := range rec {
		if _, ok := c[NormalizeKey(f.Key)]; ok {
			return f.Value
		}
	}
	return nil
}

type firstOf []FieldPicker

// FirstOf tries each picker in turn and returns the first non-nil value.
func FirstOf(pickers ...FieldPicker) FieldPicker {
	return firstOf(pickers)
}

func (p firstOf) Pick(rec Record) any {
	for _, picker := range p {
		if v := picker.Pick(rec); v != nil {
			return v
		}
	}
	return nil
}

// Schema maps raw records onto the canonical row fields.
type Schema struct {
	FiscalYear  FieldPicker
	Department  FieldPicker
	Fund        FieldPicker
	AccountName FieldPicker
	Amount      FieldPicker
}

// DefaultSchema recognizes the header spellings common in city exports.
func DefaultSchema() Schema {
	return Schema{
		FiscalYear: FirstOf(
			Candidates("FiscalYear", "Fiscal Year", "FY", "Year", "Budget Year", "FY_Year"),
			Candidates("FY23", "FY24", "FY25"),
		),
		Department:  Candidates("Department", "Department Name", "Dept", "Dept Name", "Division", "Cost Center"),
		Fund:        Candidates("Fund", "Fund Name", "Fund Description"),
		AccountName: Candidates("Account Name", "Account", "Account Description", "Line Item", "Description", "Object"),
		Amount: Candidates("Amount", "Adopted", "Adopted Budget", "Budget", "Current Budget",
			"Original Budget", "Total", "FY Amount", "FY Total"),
	}
}

// Normalize converts rec into a Row. ok is false when the record has no
// fiscal year or no finite nonzero amount.
func (s Schema) Normalize(rec Record) (row Row, ok bool) {
	fyRaw := s.FiscalYear.Pick(rec)
	if isBlankValue(fyRaw) {
		return Row{}, false
	}
	fy := strings.TrimSpace(stringify(fyRaw))
	if fy == "" {
		return Row{}, false
	}

	amount, found := ToNumber(s.Amount.Pick(rec))
	if !found || amount == 0 || math.IsInf(amount, 0) {
		return Row{}, false
	}

	dept := unspecifiedDepartment
	if v := s.Department.Pick(rec); v != nil {
		if d := strings.TrimSpace(stringify(v)); d != "" {
			dept = d
		}
	}

	return Row{
		FiscalYear:  fy,
		Department:  dept,
		Fund:        optionalText(s.Fund.Pick(rec)),
		AccountName: optionalText(s.AccountName.Pick(rec)),
		Amount:      amount,
	}, true
}

// ToNumber coerces a cell value to a number. Strings may carry thousands
// separators and surrounding whitespace. found is false for nil, NaN, empty
// or unparseable input.
func ToNumber(v any) (n float64, found bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		if math.IsNaN(t) {
			return 0, false
		}
		return t, true
	case float32:
		return ToNumber(float64(t))
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, ",", ""))
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return ToNumber(stringify(v))
	}
}

func optionalText(v any) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(stringify(v))
	return &s
}

// isBlankValue mirrors the falsy check applied to the fiscal year cell.
func isBlankValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case float64:
		return t == 0 || math.IsNaN(t)
	case int:
		return t == 0
	case bool:
		return !t
	}
	return false
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}
