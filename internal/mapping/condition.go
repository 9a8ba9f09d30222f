package mapping

import (
	"strings"

	"lead_exchange_backend/internal/transform"
)

// Condition gates a mapping rule on a raw-data field. A rule whose condition
// evaluates false is skipped entirely.
type Condition struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value,omitempty"`
}

// Supported condition operators.
const (
	OpEq        = "eq"
	OpNeq       = "neq"
	OpGt        = "gt"
	OpLt        = "lt"
	OpGte       = "gte"
	OpLte       = "lte"
	OpContains  = "contains"
	OpExists    = "exists"
	OpNotExists = "notExists"
)

// Evaluate applies the condition against raw lead data. Unknown operators
// evaluate false, which means "skip the rule": a misconfigured condition must
// never inject a field the operator did not intend.
func (c Condition) Evaluate(raw map[string]any) bool {
	actual, found := Resolve(raw, c.Field)

	switch c.Operator {
	case OpExists:
		return found && !actual.IsNull()
	case OpNotExists:
		return !found || actual.IsNull()
	}

	if !found {
		return false
	}

	switch c.Operator {
	case OpEq:
		return equalsLoose(actual, c.Value)
	case OpNeq:
		return !equalsLoose(actual, c.Value)
	case OpGt, OpLt, OpGte, OpLte:
		return compareNumeric(actual, c.Value, c.Operator)
	case OpContains:
		return strings.Contains(
			strings.ToLower(actual.AsString()),
			strings.ToLower(c.Value),
		)
	default:
		return false
	}
}

// equalsLoose compares numerically when both sides are numeric, otherwise
// case-insensitively as strings, so "10" matches 10 and "Yes" matches "yes".
func equalsLoose(actual transform.Value, expected string) bool {
	if an, ok := actual.AsNumber(); ok {
		if en, ok2 := transform.String(expected).AsNumber(); ok2 {
			return an.Equal(en)
		}
	}
	return strings.EqualFold(strings.TrimSpace(actual.AsString()), strings.TrimSpace(expected))
}

func compareNumeric(actual transform.Value, expected, op string) bool {
	an, ok := actual.AsNumber()
	if !ok {
		return false
	}
	en, ok := transform.String(expected).AsNumber()
	if !ok {
		return false
	}
	cmp := an.Cmp(en)
	switch op {
	case OpGt:
		return cmp > 0
	case OpLt:
		return cmp < 0
	case OpGte:
		return cmp >= 0
	case OpLte:
		return cmp <= 0
	}
	return false
}
