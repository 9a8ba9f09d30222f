// Package leads provides the leads bounded context module: intake, admin
// lifecycle management, and the status/disposition ledgers.
package leads

import (
	txrepo "lead_exchange_backend/internal/auction/repository"
	"lead_exchange_backend/internal/events"
	apphttp "lead_exchange_backend/internal/http"
	"lead_exchange_backend/internal/leads/handler"
	"lead_exchange_backend/internal/leads/repository"
	"lead_exchange_backend/internal/leads/service"
	"lead_exchange_backend/platform/logger"
	"lead_exchange_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
	ledger  *txrepo.Repository
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(pool *pgxpool.Pool, enqueuer service.AuctionEnqueuer, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	ledger := txrepo.New(pool)
	svc := service.New(repo, ledger, enqueuer, eventBus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
		ledger:  ledger,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Repository exposes the lead store for sibling modules (auction, webhook).
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// Ledger exposes the transaction ledger shared with the webhook module.
func (m *Module) Ledger() *txrepo.Repository {
	return m.ledger
}

// RegisterRoutes mounts lead routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Intake endpoint used by the external lead-capture collaborator.
	ctx.V1.POST("/leads", m.handler.Create)

	adminGroup := ctx.Admin.Group("/leads")
	adminGroup.GET("", m.handler.List)
	adminGroup.GET("/:id", m.handler.Get)
	adminGroup.PATCH("/:id/status", m.handler.ChangeStatus)
	adminGroup.POST("/:id/rerun", m.handler.Rerun)

	// Dispute-resolution view over the PING/POST ledger.
	ctx.Admin.GET("/transactions", m.handler.ListTransactions)
}
