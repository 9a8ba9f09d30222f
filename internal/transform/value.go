package transform

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
)

// Value is a tagged variant for raw lead field data. Raw form data is decoded
// JSON, so the only kinds that occur are string, number, bool and null.
type Value struct {
	kind Kind
	str  string
	num  decimal.Decimal
	b    bool
}

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// String wraps a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number wraps a decimal value.
func Number(d decimal.Decimal) Value { return Value{kind: KindNumber, num: d} }

// NumberFromFloat wraps a float as a decimal value.
func NumberFromFloat(f float64) Value { return Number(decimal.NewFromFloat(f)) }

// Bool wraps a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// FromAny converts a JSON-decoded value into a Value. Unsupported types
// (arrays, objects) map to null; nested lookups are handled by the mapping
// engine before conversion.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case float64:
		return NumberFromFloat(t)
	case int:
		return Number(decimal.NewFromInt(int64(t)))
	case int64:
		return Number(decimal.NewFromInt(t))
	case decimal.Decimal:
		return Number(t)
	case time.Time:
		return String(t.UTC().Format(time.RFC3339))
	case Value:
		return t
	default:
		return Null()
	}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsString returns the canonical string form of the value. Null is the empty
// string; numbers use decimal formatting without exponent notation.
func (v Value) AsString() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num.String()
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// AsNumber returns the numeric form of the value and whether one exists.
// Numeric strings parse; booleans map to 1/0.
func (v Value) AsNumber() (decimal.Decimal, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindString:
		d, err := decimal.NewFromString(strings.TrimSpace(v.str))
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case KindBool:
		if v.b {
			return decimal.NewFromInt(1), true
		}
		return decimal.Zero, true
	default:
		return decimal.Zero, false
	}
}

// Truthy applies the boolean coercion contract shared by all boolean
// transforms: {true, "true", "yes", "y", "1", 1, "on", "checked"} are true,
// case-insensitive; everything else is false.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.num.Equal(decimal.NewFromInt(1))
	case KindString:
		switch strings.ToLower(strings.TrimSpace(v.str)) {
		case "true", "yes", "y", "1", "on", "checked":
			return true
		}
		return false
	default:
		return false
	}
}

// Interface returns the value as a plain Go type for JSON encoding.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		f, _ := v.num.Float64()
		return f
	case KindBool:
		return v.b
	default:
		return nil
	}
}
