// Package preview builds buyer payloads for a sample lead without touching
// the network. It calls the exact same mapping path the live coordinator
// uses, so what the operator sees is what the buyer would receive.
package preview

import (
	"context"
	"errors"

	buyersrepo "lead_exchange_backend/internal/buyers/repository"
	"lead_exchange_backend/internal/mapping"
	"lead_exchange_backend/platform/apperr"

	"github.com/google/uuid"
)

// ConfigSource fetches the stored buyer service config.
type ConfigSource interface {
	GetServiceConfig(ctx context.Context, buyerID, serviceTypeID uuid.UUID) (buyersrepo.ServiceConfig, error)
}

// Payloads is the rendered outcome for one template side.
type Payloads struct {
	Payload     map[string]any `json:"payload"`
	Missing     []string       `json:"missingFields,omitempty"`
	Diagnostics []string       `json:"diagnostics,omitempty"`
}

// Result holds both rendered templates for a sample lead.
type Result struct {
	Ping Payloads `json:"ping"`
	Post Payloads `json:"post"`
}

type Service struct {
	configs ConfigSource
}

func NewService(configs ConfigSource) *Service {
	return &Service{configs: configs}
}

// Build renders the ping and post payloads for the given sample raw data.
func (s *Service) Build(ctx context.Context, buyerID, serviceTypeID uuid.UUID, raw map[string]any) (Result, error) {
	cfg, err := s.configs.GetServiceConfig(ctx, buyerID, serviceTypeID)
	if err != nil {
		if errors.Is(err, buyersrepo.ErrConfigNotFound) {
			return Result{}, apperr.NotFound("buyer service config not found")
		}
		return Result{}, err
	}

	return Result{
		Ping: fromBuild(mapping.Build(raw, cfg.PingRules, cfg.PingStatics)),
		Post: fromBuild(mapping.Build(raw, cfg.PostRules, cfg.PostStatics)),
	}, nil
}

func fromBuild(r mapping.Result) Payloads {
	return Payloads{Payload: r.Payload, Missing: r.Missing, Diagnostics: r.Diagnostics}
}
