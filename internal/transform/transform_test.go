package transform

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestBooleanYesNoTruthySet(t *testing.T) {
	truthy := []Value{
		Bool(true),
		String("true"),
		String("TRUE"),
		String("yes"),
		String("Y"),
		String("1"),
		NumberFromFloat(1),
		String("on"),
		String("Checked"),
	}
	for _, v := range truthy {
		out, diag := Apply("boolean.yesNo", v)
		if diag != "" {
			t.Fatalf("unexpected diagnostic for %v: %s", v, diag)
		}
		if out.AsString() != "Yes" {
			t.Fatalf("expected Yes for %#v, got %q", v, out.AsString())
		}
	}

	falsy := []Value{
		Bool(false),
		String("no"),
		String("0"),
		String("maybe"),
		String(""),
		NumberFromFloat(0),
		NumberFromFloat(2),
		Null(),
	}
	for _, v := range falsy {
		out, _ := Apply("boolean.yesNo", v)
		if out.AsString() != "No" {
			t.Fatalf("expected No for %#v, got %q", v, out.AsString())
		}
	}
}

func TestBooleanYesNoRoundTripIsStable(t *testing.T) {
	out, _ := Apply("boolean.yesNo", String("yes"))
	again, _ := Apply("boolean.yesNo", out)
	if again.AsString() != "Yes" {
		t.Fatalf("expected stable Yes, got %q", again.AsString())
	}

	out, _ = Apply("boolean.yesNo", String("nope"))
	again, _ = Apply("boolean.yesNo", out)
	if again.AsString() != "No" {
		t.Fatalf("expected stable No, got %q", again.AsString())
	}
}

func TestPhoneE164(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"(555) 123-4567", "+15551234567"},
		{"555-123-4567", "+15551234567"},
		{"15551234567", "+15551234567"},
		{"1-555-123-4567", "+15551234567"},
	}
	for _, tc := range cases {
		out, _ := Apply("phone.e164", String(tc.in))
		if out.AsString() != tc.want {
			t.Fatalf("phone.e164(%q) = %q, want %q", tc.in, out.AsString(), tc.want)
		}
	}
}

func TestPhoneUnrecognizedReturnsDigitsOnly(t *testing.T) {
	out, _ := Apply("phone.e164", String("123-45"))
	if out.AsString() != "12345" {
		t.Fatalf("expected digits-only fallback, got %q", out.AsString())
	}

	out, _ = Apply("phone.dashed", String("not a phone"))
	if out.AsString() != "" {
		t.Fatalf("expected empty digits for non-numeric input, got %q", out.AsString())
	}
}

func TestPhoneFormats(t *testing.T) {
	out, _ := Apply("phone.dashed", String("5551234567"))
	if out.AsString() != "555-123-4567" {
		t.Fatalf("phone.dashed got %q", out.AsString())
	}

	out, _ = Apply("phone.parens", String("1 (555) 123 4567"))
	if out.AsString() != "(555) 123-4567" {
		t.Fatalf("phone.parens got %q", out.AsString())
	}

	out, _ = Apply("phone.digits", String("+1 555.123.4567"))
	if out.AsString() != "15551234567" {
		t.Fatalf("phone.digits got %q", out.AsString())
	}
}

func TestDateTransforms(t *testing.T) {
	out, _ := Apply("date.isoDate", String("03/15/2026"))
	if out.AsString() != "2026-03-15" {
		t.Fatalf("date.isoDate got %q", out.AsString())
	}

	out, _ = Apply("date.usDate", String("2026-03-15"))
	if out.AsString() != "03/15/2026" {
		t.Fatalf("date.usDate got %q", out.AsString())
	}

	out, _ = Apply("date.epochSeconds", String("1970-01-01T00:00:10Z"))
	if n, _ := out.AsNumber(); !n.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("date.epochSeconds got %s", out.AsString())
	}

	out, _ = Apply("date.isoDate", NumberFromFloat(86400))
	if out.AsString() != "1970-01-02" {
		t.Fatalf("epoch number input got %q", out.AsString())
	}
}

func TestDateUnparseableYieldsZeroValue(t *testing.T) {
	out, _ := Apply("date.isoDate", String("not a date"))
	if out.AsString() != "" {
		t.Fatalf("expected empty string, got %q", out.AsString())
	}

	out, _ = Apply("date.epochSeconds", Null())
	if n, _ := out.AsNumber(); !n.IsZero() {
		t.Fatalf("expected 0, got %s", out.AsString())
	}
}

func TestNumberTransforms(t *testing.T) {
	out, _ := Apply("number.integer", String("42.9"))
	if out.AsString() != "42" {
		t.Fatalf("number.integer got %q", out.AsString())
	}

	out, _ = Apply("number.twoDecimal", NumberFromFloat(7.5))
	if out.AsString() != "7.50" {
		t.Fatalf("number.twoDecimal got %q", out.AsString())
	}

	out, _ = Apply("number.currency", String("1234.5"))
	if out.AsString() != "$1,234.50" {
		t.Fatalf("number.currency got %q", out.AsString())
	}

	out, _ = Apply("number.currency", String("garbage"))
	if out.AsString() != "$0.00" {
		t.Fatalf("number.currency fallback got %q", out.AsString())
	}
}

func TestAddressTransforms(t *testing.T) {
	out, _ := Apply("address.stateAbbrev", String("New York"))
	if out.AsString() != "NY" {
		t.Fatalf("address.stateAbbrev got %q", out.AsString())
	}

	out, _ = Apply("address.stateFull", String("tx"))
	if out.AsString() != "Texas" {
		t.Fatalf("address.stateFull got %q", out.AsString())
	}

	out, _ = Apply("address.zip5", String("10001-4356"))
	if out.AsString() != "10001" {
		t.Fatalf("address.zip5 got %q", out.AsString())
	}
}

func TestUnknownTransformPassesThroughWithDiagnostic(t *testing.T) {
	in := String("untouched")
	out, diag := Apply("nope.missing", in)
	if diag == "" {
		t.Fatalf("expected a diagnostic for unknown transform id")
	}
	if out.AsString() != "untouched" {
		t.Fatalf("expected pass-through, got %q", out.AsString())
	}
}

func TestTransformsTotalOnNull(t *testing.T) {
	for _, id := range IDs() {
		out, diag := Apply(id, Null())
		if diag != "" {
			t.Fatalf("unexpected diagnostic for %s on null: %s", id, diag)
		}
		_ = out.AsString() // must not panic
	}
}
