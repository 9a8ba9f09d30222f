package webhook

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lead_exchange_backend/platform/httpkit"
	"lead_exchange_backend/platform/validator"
)

// Handler handles buyer webhook requests.
type Handler struct {
	svc *Service
	val *validator.Validator
}

func NewHandler(svc *Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Handle processes one buyer callback.
// POST /api/v1/webhooks/:buyerRef
func (h *Handler) Handle(c *gin.Context) {
	buyer, ok := buyerFromContext(c)
	if !ok {
		httpkit.Error(c, http.StatusInternalServerError, "processing error", nil)
		return
	}

	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	ack, err := h.svc.Process(c.Request.Context(), buyer, req, c.ClientIP())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, ack)
}
