package controllers

import (
	"net/http"

	"storefront-service/apperrors"
	"storefront-service/auth"
	"storefront-service/models"
	"storefront-service/pages"
	awspkg "storefront-service/pkg/aws"
	"storefront-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SubscriptionController handles newsletter opt-in and one-click opt-out.
type SubscriptionController struct {
	subscriptions services.SubscriptionService
	cookies       *auth.CookieCodec
	metrics       *awspkg.MetricsClient
	siteURL       string
	exposeDetail  bool
	logger        *zap.Logger
}

// NewSubscriptionController creates a new SubscriptionController.
func NewSubscriptionController(
	subscriptions services.SubscriptionService,
	cookies *auth.CookieCodec,
	metrics *awspkg.MetricsClient,
	siteURL string,
	exposeDetail bool,
	logger *zap.Logger,
) *SubscriptionController {
	return &SubscriptionController{
		subscriptions: subscriptions,
		cookies:       cookies,
		metrics:       metrics,
		siteURL:       siteURL,
		exposeDetail:  exposeDetail,
		logger:        logger,
	}
}

// Subscribe handles POST /api/subscribe.
func (sc *SubscriptionController) Subscribe(c *gin.Context) {
	var req models.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	email, err := sc.subscriptions.Subscribe(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		apperrors.JSON(c, sc.logger, err, sc.exposeDetail)
		return
	}

	if value, err := sc.cookies.Encode(SubscriberCookie, email); err != nil {
		sc.logger.Warn("Failed to encode subscriber cookie", zap.Error(err))
	} else {
		setCookie(c, SubscriberCookie, value, int(SubscriberCookieTTL.Seconds()), true)
	}

	sc.metrics.RecordCountAsync(awspkg.MetricSubscribes, nil)
	c.JSON(http.StatusOK, gin.H{"subscribed": true})
}

// Unsubscribe handles GET and one-click POST /api/unsubscribe. The failure
// pages never say which part of the link was wrong.
func (sc *SubscriptionController) Unsubscribe(c *gin.Context) {
	encoded, token := c.Query("email"), c.Query("token")
	if encoded == "" || token == "" {
		c.HTML(http.StatusBadRequest, pages.MessagePage, pages.UnsubscribeError("This unsubscribe link is incomplete."))
		return
	}
	email, err := auth.DecodeEmail(encoded)
	if err != nil {
		c.HTML(http.StatusBadRequest, pages.MessagePage, pages.UnsubscribeError("This unsubscribe link is malformed."))
		return
	}

	already, err := sc.subscriptions.Unsubscribe(c.Request.Context(), email, token, requestMeta(c))
	switch {
	case err == nil:
	case apperrors.Is(err, apperrors.KindAuthorization):
		sc.logger.Warn("Unsubscribe link failed verification", zap.String("client_ip", c.ClientIP()))
		c.HTML(http.StatusForbidden, pages.MessagePage, pages.UnsubscribeError("This unsubscribe link is invalid or has expired."))
		return
	case apperrors.Is(err, apperrors.KindValidation):
		c.HTML(http.StatusBadRequest, pages.MessagePage, pages.UnsubscribeError("This unsubscribe link is malformed."))
		return
	default:
		sc.logger.Error("Failed to unsubscribe", zap.Error(err))
		c.HTML(http.StatusInternalServerError, pages.MessagePage, pages.UnsubscribeError("Something went wrong on our side. Please try again later."))
		return
	}

	clearCookie(c, SubscriberCookie)
	if !already {
		sc.metrics.RecordCountAsync(awspkg.MetricUnsubscribes, nil)
	}
	c.HTML(http.StatusOK, pages.MessagePage, pages.UnsubscribeSuccess(sc.siteURL, already))
}
