// Package scoring computes the intake quality score for a lead. The score is
// computed once at intake and stored immutable; buyers may receive it as a
// template field but it is never recomputed afterwards.
package scoring

import (
	"fmt"
	"strings"

	"lead_exchange_backend/platform/phone"
)

const (
	// baseScore is the starting point; factors add to or subtract from it.
	baseScore = 50.0

	maxContactContribution    = 30.0 // reachable phone and plausible email
	maxRichnessContribution   = 15.0 // how much of the form was filled in
	maxComplianceContribution = 5.0  // consent certificate attached
)

// Score rates raw lead data 0-100. Deterministic for identical input.
func Score(raw map[string]any, compliance map[string]any) int {
	score := baseScore

	score += contactScore(raw)
	score += richnessScore(raw)
	if len(compliance) > 0 {
		score += maxComplianceContribution
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return int(score)
}

func contactScore(raw map[string]any) float64 {
	var score float64

	if p := stringField(raw, "phone", "phoneNumber", "phone_number"); p != "" {
		if strings.HasPrefix(phone.NormalizeE164(p), "+") {
			score += 20
		} else if len(phone.Digits(p)) >= 10 {
			score += 10
		}
	} else {
		score -= 15
	}

	if e := stringField(raw, "email", "emailAddress", "email_address"); e != "" {
		at := strings.Index(e, "@")
		if at > 0 && strings.Contains(e[at:], ".") {
			score += 10
		}
	}

	if score > maxContactContribution {
		score = maxContactContribution
	}
	return score
}

func richnessScore(raw map[string]any) float64 {
	filled := 0
	for _, v := range raw {
		switch t := v.(type) {
		case nil:
			continue
		case string:
			if strings.TrimSpace(t) != "" {
				filled++
			}
		default:
			filled++
		}
	}

	// Three informative fields is the floor for a marketable lead.
	score := float64(filled-3) * 2.5
	if score < 0 {
		return 0
	}
	if score > maxRichnessContribution {
		return maxRichnessContribution
	}
	return score
}

func stringField(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := raw[key]; ok && v != nil {
			return strings.TrimSpace(fmt.Sprintf("%v", v))
		}
	}
	return ""
}
