package controllers

import (
	"errors"
	"io"
	"net/http"

	"storefront-service/apperrors"
	"storefront-service/models"
	awspkg "storefront-service/pkg/aws"
	"storefront-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxWebhookBody caps the Stripe payload we are willing to buffer.
const maxWebhookBody = 64 << 10

// CheckoutController starts Stripe checkouts and receives Stripe webhooks.
type CheckoutController struct {
	checkout     services.CheckoutService
	metrics      *awspkg.MetricsClient
	exposeDetail bool
	logger       *zap.Logger
}

// NewCheckoutController creates a new CheckoutController.
func NewCheckoutController(checkout services.CheckoutService, metrics *awspkg.MetricsClient, exposeDetail bool, logger *zap.Logger) *CheckoutController {
	return &CheckoutController{checkout: checkout, metrics: metrics, exposeDetail: exposeDetail, logger: logger}
}

// StartCheckout handles POST /api/checkout.
func (cc *CheckoutController) StartCheckout(c *gin.Context) {
	var req models.CheckoutRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
			return
		}
	}
	if req.SessionToken == "" {
		req.SessionToken, _ = c.Cookie(CartTokenCookie)
	}

	checkoutURL, err := cc.checkout.StartCheckout(c.Request.Context(), req.SessionToken)
	if err != nil {
		apperrors.JSON(c, cc.logger, err, cc.exposeDetail)
		return
	}

	cc.metrics.RecordCountAsync(awspkg.MetricCheckoutsStarted, nil)
	c.JSON(http.StatusOK, gin.H{"url": checkoutURL})
}

// StripeWebhook handles POST /api/webhooks/stripe.
func (cc *CheckoutController) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
		return
	}

	if err := cc.checkout.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		apperrors.JSON(c, cc.logger, err, cc.exposeDetail)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
