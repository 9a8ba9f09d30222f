package transform

import (
	"strings"

	"lead_exchange_backend/platform/phone"
)

// nanpDigits normalizes the input to digits and returns the national
// 10-digit number when the input is a 10-digit or 11-digit-leading-1 NANP
// number. ok is false for anything else.
func nanpDigits(v Value) (national string, digits string, ok bool) {
	digits = phone.Digits(v.AsString())
	switch {
	case len(digits) == 10:
		return digits, digits, true
	case len(digits) == 11 && strings.HasPrefix(digits, "1"):
		return digits[1:], digits, true
	default:
		return "", digits, false
	}
}

func phoneDigits(v Value) Value {
	_, digits, _ := nanpDigits(v)
	return String(digits)
}

func phoneE164(v Value) Value {
	national, digits, ok := nanpDigits(v)
	if ok {
		return String("+1" + national)
	}
	// Not NANP-shaped; let libphonenumber try the raw input before giving
	// up and returning digits-only.
	if normalized := phone.NormalizeE164(v.AsString()); strings.HasPrefix(normalized, "+") {
		return String(normalized)
	}
	return String(digits)
}

func phoneDashed(v Value) Value {
	national, digits, ok := nanpDigits(v)
	if !ok {
		return String(digits)
	}
	return String(national[:3] + "-" + national[3:6] + "-" + national[6:])
}

func phoneParens(v Value) Value {
	national, digits, ok := nanpDigits(v)
	if !ok {
		return String(digits)
	}
	return String("(" + national[:3] + ") " + national[3:6] + "-" + national[6:])
}
