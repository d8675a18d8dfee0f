package controllers

import (
	"net/http"
	"net/url"

	"storefront-service/apperrors"
	"storefront-service/models"
	"storefront-service/pages"
	awspkg "storefront-service/pkg/aws"
	"storefront-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CartController handles abandoned cart capture and the emailed cart links.
type CartController struct {
	carts        services.CartService
	deals        services.DealValidator
	metrics      *awspkg.MetricsClient
	siteURL      string
	exposeDetail bool
	logger       *zap.Logger
}

// NewCartController creates a new CartController.
func NewCartController(
	carts services.CartService,
	deals services.DealValidator,
	metrics *awspkg.MetricsClient,
	siteURL string,
	exposeDetail bool,
	logger *zap.Logger,
) *CartController {
	return &CartController{
		carts:        carts,
		deals:        deals,
		metrics:      metrics,
		siteURL:      siteURL,
		exposeDetail: exposeDetail,
		logger:       logger,
	}
}

// CaptureCart handles POST /api/cart/capture.
func (cc *CartController) CaptureCart(c *gin.Context) {
	var req models.CaptureCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	existing, err := c.Cookie(CartTokenCookie)
	if err != nil || existing == "" {
		existing = req.SessionToken
	}

	cart, err := cc.carts.CreateAbandonedCart(c.Request.Context(), services.CaptureInput{
		Request:       req,
		ExistingToken: existing,
		Meta:          requestMeta(c),
	})
	if err != nil {
		apperrors.JSON(c, cc.logger, err, cc.exposeDetail)
		return
	}

	setCartCookies(c, cart.SessionToken, cart.Email)
	cc.metrics.RecordCountAsync(awspkg.MetricCartsCaptured, nil)

	c.JSON(http.StatusOK, models.CaptureCartResponse{
		SessionToken: cart.SessionToken,
		CartID:       cart.ID,
	})
}

// RestoreCart handles GET /api/cart/restore. It always redirects to the cart
// page, either with a one-time restore ticket or an error code.
func (cc *CartController) RestoreCart(c *gin.Context) {
	token := c.Query("token")

	res, err := cc.carts.Restore(c.Request.Context(), token)
	if err != nil {
		cc.logger.Error("Failed to restore cart", zap.Error(err))
		cc.redirectToCart(c, "error", "unavailable")
		return
	}
	if res.Outcome != services.RestoreOK {
		cc.redirectToCart(c, "error", res.Outcome.QueryValue())
		return
	}

	setCartCookies(c, token, res.Cart.Email)
	cc.metrics.RecordCountAsync(awspkg.MetricCartsRestored, nil)
	cc.redirectToCart(c, "restore", res.Ticket)
}

func (cc *CartController) redirectToCart(c *gin.Context, key, value string) {
	q := url.Values{}
	q.Set(key, value)
	c.Header("Cache-Control", "no-store")
	c.Redirect(http.StatusFound, cc.siteURL+"/cart?"+q.Encode())
}

// ClaimRestore handles GET /api/cart/restore/claim. A ticket works once.
func (cc *CartController) ClaimRestore(c *gin.Context) {
	restored, err := cc.carts.ClaimRestore(c.Request.Context(), c.Query("ticket"))
	c.Header("Cache-Control", "no-store")
	if err != nil {
		apperrors.JSON(c, cc.logger, err, cc.exposeDetail)
		return
	}
	c.JSON(http.StatusOK, restored)
}

// SuppressReminders handles GET /api/cart/suppress and renders an HTML page.
func (cc *CartController) SuppressReminders(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.HTML(http.StatusBadRequest, pages.MessagePage, pages.SuppressError("This link is missing its cart reference."))
		return
	}

	_, err := cc.carts.SuppressAbandonedCartEmails(c.Request.Context(), token)
	switch {
	case err == nil:
		c.HTML(http.StatusOK, pages.MessagePage, pages.SuppressSuccess(cc.siteURL))
	case apperrors.Is(err, apperrors.KindNotFound), apperrors.Is(err, apperrors.KindValidation):
		c.HTML(http.StatusBadRequest, pages.MessagePage, pages.SuppressError("This link is invalid or the cart no longer exists."))
	default:
		cc.logger.Error("Failed to suppress cart reminders", zap.Error(err))
		c.HTML(http.StatusInternalServerError, pages.MessagePage, pages.SuppressError("Something went wrong on our side. Please try again later."))
	}
}

// ValidateCart handles POST /api/cart/validate.
func (cc *CartController) ValidateCart(c *gin.Context) {
	var req models.ValidateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	result, err := cc.deals.ValidateCart(c.Request.Context(), req.CartItems)
	if err != nil {
		apperrors.JSON(c, cc.logger, err, cc.exposeDetail)
		return
	}
	c.JSON(http.StatusOK, result)
}
