package webhook

import (
	buyersrepo "lead_exchange_backend/internal/buyers/repository"
	"lead_exchange_backend/internal/events"
	apphttp "lead_exchange_backend/internal/http"
	"lead_exchange_backend/platform/logger"
	"lead_exchange_backend/platform/validator"
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	buyers  *buyersrepo.Repository
}

// NewModule creates and initializes the webhook module with all its dependencies.
func NewModule(buyers *buyersrepo.Repository, leads LeadStore, ledger Ledger, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	svc := NewService(leads, ledger, eventBus, log)
	h := NewHandler(svc, val)

	return &Module{
		handler: h,
		buyers:  buyers,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts the buyer callback endpoint on the router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/webhooks/:buyerRef")
	group.Use(APIKeyAuthMiddleware(m.buyers))
	group.POST("", m.handler.Handle)
}
