// Package transform provides the field transform library used when building
// buyer payloads. Every transform is a pure, total function: any input value,
// including null, produces a deterministic output and never panics. The same
// registry backs the operator-facing template preview and the live auction
// coordinator, so behavior can never drift between the two.
package transform

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Func is a single transform. Implementations must be pure and total.
type Func func(Value) Value

var registry = map[string]Func{
	"boolean.yesNo":     booleanYesNo,
	"boolean.trueFalse": booleanTrueFalse,
	"boolean.oneZero":   booleanOneZero,

	"string.upper":     stringUpper,
	"string.lower":     stringLower,
	"string.trim":      stringTrim,
	"string.titleCase": stringTitleCase,

	"phone.digits": phoneDigits,
	"phone.e164":   phoneE164,
	"phone.dashed": phoneDashed,
	"phone.parens": phoneParens,

	"date.isoDate":      dateISODate,
	"date.isoDateTime":  dateISODateTime,
	"date.usDate":       dateUSDate,
	"date.epochSeconds": dateEpochSeconds,

	"number.integer":    numberInteger,
	"number.twoDecimal": numberTwoDecimal,
	"number.currency":   numberCurrency,

	"address.stateAbbrev": addressStateAbbrev,
	"address.stateFull":   addressStateFull,
	"address.zip5":        addressZip5,
}

// Known reports whether a transform id is registered.
func Known(id string) bool {
	_, ok := registry[id]
	return ok
}

// IDs returns all registered transform ids, for admin tooling.
func IDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	return ids
}

// Apply runs the transform with the given id. An unknown id returns the input
// unchanged together with a non-empty diagnostic; callers surface the
// diagnostic, they do not fail the payload build.
func Apply(id string, v Value) (Value, string) {
	fn, ok := registry[id]
	if !ok {
		return v, fmt.Sprintf("unknown transform id %q, value passed through", id)
	}
	return fn(v), ""
}

// ---- boolean ----

func booleanYesNo(v Value) Value {
	if v.Truthy() {
		return String("Yes")
	}
	return String("No")
}

func booleanTrueFalse(v Value) Value {
	if v.Truthy() {
		return String("true")
	}
	return String("false")
}

func booleanOneZero(v Value) Value {
	if v.Truthy() {
		return String("1")
	}
	return String("0")
}

// ---- string ----

func stringUpper(v Value) Value { return String(strings.ToUpper(v.AsString())) }

func stringLower(v Value) Value { return String(strings.ToLower(v.AsString())) }

func stringTrim(v Value) Value { return String(strings.TrimSpace(v.AsString())) }

func stringTitleCase(v Value) Value {
	words := strings.Fields(strings.ToLower(v.AsString()))
	for i, w := range words {
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return String(strings.Join(words, " "))
}

// ---- number ----

func numberInteger(v Value) Value {
	d, ok := v.AsNumber()
	if !ok {
		return Number(decimal.Zero)
	}
	return Number(d.Truncate(0))
}

func numberTwoDecimal(v Value) Value {
	d, ok := v.AsNumber()
	if !ok {
		return String("0.00")
	}
	return String(d.StringFixed(2))
}

func numberCurrency(v Value) Value {
	d, ok := v.AsNumber()
	if !ok {
		return String("$0.00")
	}
	neg := d.IsNegative()
	fixed := d.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	var groups []string
	for len(whole) > 3 {
		groups = append([]string{whole[len(whole)-3:]}, groups...)
		whole = whole[:len(whole)-3]
	}
	groups = append([]string{whole}, groups...)

	out := "$" + strings.Join(groups, ",") + "." + frac
	if neg {
		out = "-" + out
	}
	return String(out)
}
