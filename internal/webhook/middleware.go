package webhook

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	buyersrepo "lead_exchange_backend/internal/buyers/repository"
	buyerssvc "lead_exchange_backend/internal/buyers/service"

	"github.com/gin-gonic/gin"
)

const buyerContextKey = "webhookBuyer"

// BuyerGetter resolves webhook callers by their URL ref.
type BuyerGetter interface {
	GetByRef(ctx context.Context, ref string) (buyersrepo.Buyer, error)
}

// APIKeyAuthMiddleware authenticates the buyer named in the path against the
// X-Webhook-API-Key header. Unknown buyers are 404, inactive buyers 403, bad
// keys 401. The response never says which check failed beyond that.
func APIKeyAuthMiddleware(buyers BuyerGetter) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-Webhook-API-Key")
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
			return
		}

		buyer, err := buyers.GetByRef(c.Request.Context(), c.Param("buyerRef"))
		if err != nil {
			if errors.Is(err, buyersrepo.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown buyer"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "processing error"})
			return
		}

		keyHash := buyerssvc.HashWebhookKey(apiKey)
		if subtle.ConstantTimeCompare([]byte(keyHash), []byte(buyer.WebhookKeyHash)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			return
		}

		if !buyer.IsActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "buyer inactive"})
			return
		}

		c.Set(buyerContextKey, buyer)
		c.Next()
	}
}

// buyerFromContext returns the buyer set by APIKeyAuthMiddleware.
func buyerFromContext(c *gin.Context) (buyersrepo.Buyer, bool) {
	v, ok := c.Get(buyerContextKey)
	if !ok {
		return buyersrepo.Buyer{}, false
	}
	buyer, ok := v.(buyersrepo.Buyer)
	return buyer, ok
}
