// Package buyers provides the buyers bounded context module: buyer
// registration, per-service templates and mapping rules, zip coverage, and
// the eligibility debugger.
package buyers

import (
	"lead_exchange_backend/internal/auction/preview"
	"lead_exchange_backend/internal/buyers/eligibility"
	"lead_exchange_backend/internal/buyers/handler"
	"lead_exchange_backend/internal/buyers/repository"
	"lead_exchange_backend/internal/buyers/service"
	apphttp "lead_exchange_backend/internal/http"
	"lead_exchange_backend/platform/logger"
	"lead_exchange_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the buyers bounded context module implementing http.Module.
type Module struct {
	handler  *handler.Handler
	repo     *repository.Repository
	resolver *eligibility.Resolver
}

// NewModule creates and initializes the buyers module with all its dependencies.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	resolver := eligibility.NewResolver(repo)
	svc := service.New(repo, resolver, log)
	previewSvc := preview.NewService(repo)
	h := handler.New(svc, previewSvc, val)

	return &Module{
		handler:  h,
		repo:     repo,
		resolver: resolver,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "buyers"
}

// Repository exposes the buyer store for sibling modules.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// Resolver exposes the eligibility resolver for the auction coordinator.
func (m *Module) Resolver() *eligibility.Resolver {
	return m.resolver
}

// RegisterRoutes mounts buyer administration routes on the router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	adminGroup := ctx.Admin.Group("/buyers")
	adminGroup.POST("", m.handler.Create)
	adminGroup.GET("", m.handler.List)
	adminGroup.GET("/:id", m.handler.Get)
	adminGroup.PUT("/:id", m.handler.Update)
	adminGroup.DELETE("/:id", m.handler.Delete)

	adminGroup.PUT("/:id/configs/:serviceTypeId", m.handler.UpsertConfig)
	adminGroup.GET("/:id/configs/:serviceTypeId", m.handler.GetConfig)
	adminGroup.PUT("/:id/configs/:serviceTypeId/zips", m.handler.UpsertZipCoverage)
	adminGroup.GET("/:id/configs/:serviceTypeId/zips", m.handler.ListZipCoverage)
	adminGroup.POST("/:id/configs/:serviceTypeId/preview", m.handler.Preview)

	ctx.Admin.GET("/eligibility", m.handler.Eligibility)
}
