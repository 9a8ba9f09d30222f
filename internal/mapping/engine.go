// Package mapping provides the declarative field-mapping engine that converts
// raw lead data into a buyer-specific wire payload. Both the ping and post
// payload shapes are built here, and the operator preview endpoint runs the
// exact same code path as the live auction coordinator.
package mapping

import (
	"fmt"

	"lead_exchange_backend/internal/transform"
)

// Rule maps one raw lead field to one target payload field. Rules are applied
// in order; later rules may overwrite earlier targets.
type Rule struct {
	SourceField  string     `json:"sourceField"`
	TargetField  string     `json:"targetField"`
	TransformID  string     `json:"transformId,omitempty"`
	DefaultValue *string    `json:"defaultValue,omitempty"`
	Required     bool       `json:"required,omitempty"`
	Condition    *Condition `json:"condition,omitempty"`
}

// Result is the outcome of one payload build. Missing lists required source
// fields that resolved to nothing; the payload is still complete apart from
// those fields, and the caller decides whether to solicit the buyer at all.
type Result struct {
	Payload     map[string]any
	Missing     []string
	Diagnostics []string
}

// Build produces a payload from raw lead data, an ordered rule list, and
// static fields. It is side-effect free and safe to call concurrently from
// any number of in-flight auctions.
func Build(raw map[string]any, rules []Rule, statics map[string]any) Result {
	result := Result{Payload: make(map[string]any, len(rules)+len(statics))}

	for _, rule := range rules {
		if rule.Condition != nil && !rule.Condition.Evaluate(raw) {
			continue
		}

		value, found := Resolve(raw, rule.SourceField)
		if !found || value.IsNull() {
			if rule.DefaultValue != nil {
				value = transform.String(*rule.DefaultValue)
			} else {
				if rule.Required {
					result.Missing = append(result.Missing, rule.SourceField)
				}
				continue
			}
		}

		if rule.TransformID != "" {
			transformed, diag := transform.Apply(rule.TransformID, value)
			if diag != "" {
				result.Diagnostics = append(result.Diagnostics,
					fmt.Sprintf("%s -> %s: %s", rule.SourceField, rule.TargetField, diag))
			}
			value = transformed
		}

		result.Payload[rule.TargetField] = value.Interface()
	}

	// Statics fill gaps only; a mapped field always wins.
	for key, val := range statics {
		if _, exists := result.Payload[key]; !exists {
			result.Payload[key] = val
		}
	}

	return result
}
