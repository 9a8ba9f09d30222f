package transform

import (
	"strings"

	"lead_exchange_backend/platform/phone"
)

var stateAbbrevs = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR",
	"california": "CA", "colorado": "CO", "connecticut": "CT", "delaware": "DE",
	"florida": "FL", "georgia": "GA", "hawaii": "HI", "idaho": "ID",
	"illinois": "IL", "indiana": "IN", "iowa": "IA", "kansas": "KS",
	"kentucky": "KY", "louisiana": "LA", "maine": "ME", "maryland": "MD",
	"massachusetts": "MA", "michigan": "MI", "minnesota": "MN", "mississippi": "MS",
	"missouri": "MO", "montana": "MT", "nebraska": "NE", "nevada": "NV",
	"new hampshire": "NH", "new jersey": "NJ", "new mexico": "NM", "new york": "NY",
	"north carolina": "NC", "north dakota": "ND", "ohio": "OH", "oklahoma": "OK",
	"oregon": "OR", "pennsylvania": "PA", "rhode island": "RI", "south carolina": "SC",
	"south dakota": "SD", "tennessee": "TN", "texas": "TX", "utah": "UT",
	"vermont": "VT", "virginia": "VA", "washington": "WA", "west virginia": "WV",
	"wisconsin": "WI", "wyoming": "WY", "district of columbia": "DC",
}

var stateNames = func() map[string]string {
	m := make(map[string]string, len(stateAbbrevs))
	for name, abbrev := range stateAbbrevs {
		m[abbrev] = stringTitleCase(String(name)).AsString()
	}
	m["DC"] = "District of Columbia"
	return m
}()

func addressStateAbbrev(v Value) Value {
	s := strings.TrimSpace(v.AsString())
	if len(s) == 2 {
		upper := strings.ToUpper(s)
		if _, ok := stateNames[upper]; ok {
			return String(upper)
		}
		return String(s)
	}
	if abbrev, ok := stateAbbrevs[strings.ToLower(s)]; ok {
		return String(abbrev)
	}
	return String(s)
}

func addressStateFull(v Value) Value {
	s := strings.TrimSpace(v.AsString())
	if name, ok := stateNames[strings.ToUpper(s)]; ok {
		return String(name)
	}
	if _, ok := stateAbbrevs[strings.ToLower(s)]; ok {
		return stringTitleCase(String(s))
	}
	return String(s)
}

// addressZip5 keeps the 5-digit ZIP, dropping +4 suffixes. Inputs without
// five leading digits pass through unchanged.
func addressZip5(v Value) Value {
	digits := phone.Digits(v.AsString())
	if len(digits) >= 5 {
		return String(digits[:5])
	}
	return String(strings.TrimSpace(v.AsString()))
}
