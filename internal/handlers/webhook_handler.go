package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"payflow-backend/internal/analytics"
	"payflow-backend/internal/payments/stripe"
	"payflow-backend/pkg/logger"
)

const webhookTolerance = 5 * time.Minute

// WebhookHandler receives gateway event notifications. Events feed analytics
// only; the flow itself resolves through intent re-checks, never through
// webhooks.
type WebhookHandler struct {
	secret   string
	reporter analytics.Reporter
}

func NewWebhookHandler(secret string, reporter analytics.Reporter) *WebhookHandler {
	return &WebhookHandler{secret: secret, reporter: reporter}
}

func (h *WebhookHandler) HandleStripe(c *gin.Context) {
	if h.secret == "" {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "webhooks are not configured"})
		return
	}

	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	event, err := stripe.ParseWebhookEvent(payload, c.GetHeader("Stripe-Signature"), h.secret, webhookTolerance)
	if err != nil {
		logger.Warn("Rejected stripe webhook", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature verification failed"})
		return
	}

	h.reporter.GatewayEvent(event.Type, event.IntentID, event.Status)
	logger.Debug("Stripe webhook received", map[string]interface{}{
		"event":  event.ID,
		"type":   event.Type,
		"intent": event.IntentID,
	})

	c.JSON(http.StatusOK, gin.H{"received": true})
}
