package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"lead_exchange_backend/internal/auction/preview"
	"lead_exchange_backend/internal/buyers/service"
	"lead_exchange_backend/internal/buyers/transport"
	"lead_exchange_backend/platform/httpkit"
	"lead_exchange_backend/platform/validator"
)

const (
	msgInvalidRequest       = "invalid request"
	msgValidationFailed     = "validation failed"
	msgInvalidBuyerID       = "invalid buyer ID"
	msgInvalidServiceTypeID = "invalid service type ID"
)

// Handler handles HTTP requests for buyer administration.
type Handler struct {
	svc     *service.Service
	preview *preview.Service
	val     *validator.Validator
}

func New(svc *service.Service, previewSvc *preview.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, preview: previewSvc, val: val}
}

// Create registers a new buyer and returns its one-time webhook key.
// POST /api/v1/admin/buyers
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateBuyerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Create(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// List retrieves all buyers.
// GET /api/v1/admin/buyers
func (h *Handler) List(c *gin.Context) {
	result, err := h.svc.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Get retrieves a buyer by ID.
// GET /api/v1/admin/buyers/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := h.buyerID(c)
	if !ok {
		return
	}

	result, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Update patches buyer fields.
// PUT /api/v1/admin/buyers/:id
func (h *Handler) Update(c *gin.Context) {
	id, ok := h.buyerID(c)
	if !ok {
		return
	}

	var req transport.UpdateBuyerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Update(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Delete removes a buyer with all its configs and coverage.
// DELETE /api/v1/admin/buyers/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := h.buyerID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// UpsertConfig stores the service config for a (buyer, serviceType) pair.
// PUT /api/v1/admin/buyers/:id/configs/:serviceTypeId
func (h *Handler) UpsertConfig(c *gin.Context) {
	buyerID, serviceTypeID, ok := h.configIDs(c)
	if !ok {
		return
	}

	var req transport.UpsertConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.UpsertConfig(c.Request.Context(), buyerID, serviceTypeID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetConfig retrieves the stored service config.
// GET /api/v1/admin/buyers/:id/configs/:serviceTypeId
func (h *Handler) GetConfig(c *gin.Context) {
	buyerID, serviceTypeID, ok := h.configIDs(c)
	if !ok {
		return
	}

	result, err := h.svc.GetConfig(c.Request.Context(), buyerID, serviceTypeID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// UpsertZipCoverage bulk-upserts coverage zones.
// PUT /api/v1/admin/buyers/:id/configs/:serviceTypeId/zips
func (h *Handler) UpsertZipCoverage(c *gin.Context) {
	buyerID, serviceTypeID, ok := h.configIDs(c)
	if !ok {
		return
	}

	var req transport.UpsertZipCoverageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	affected, err := h.svc.UpsertZipCoverage(c.Request.Context(), buyerID, serviceTypeID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"upserted": affected})
}

// ListZipCoverage retrieves the coverage zones of a config.
// GET /api/v1/admin/buyers/:id/configs/:serviceTypeId/zips
func (h *Handler) ListZipCoverage(c *gin.Context) {
	buyerID, serviceTypeID, ok := h.configIDs(c)
	if !ok {
		return
	}

	result, err := h.svc.ListZipCoverage(c.Request.Context(), buyerID, serviceTypeID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Preview renders the ping and post payloads for sample lead data using the
// same mapping path as the live auction.
// POST /api/v1/admin/buyers/:id/configs/:serviceTypeId/preview
func (h *Handler) Preview(c *gin.Context) {
	buyerID, serviceTypeID, ok := h.configIDs(c)
	if !ok {
		return
	}

	var req transport.PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.preview.Build(c.Request.Context(), buyerID, serviceTypeID, req.Data)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Eligibility runs the coverage debugger.
// GET /api/v1/admin/eligibility
func (h *Handler) Eligibility(c *gin.Context) {
	var req transport.EligibilityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.ResolveEligibility(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) buyerID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidBuyerID, nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) configIDs(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	buyerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidBuyerID, nil)
		return uuid.Nil, uuid.Nil, false
	}
	serviceTypeID, err := uuid.Parse(c.Param("serviceTypeId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidServiceTypeID, nil)
		return uuid.Nil, uuid.Nil, false
	}
	return buyerID, serviceTypeID, true
}
