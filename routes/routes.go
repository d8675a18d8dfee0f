package routes

import (
	"storefront-service/controllers"
	"storefront-service/pages"

	"github.com/gin-gonic/gin"
)

// Controllers bundles every handler the router serves.
type Controllers struct {
	Cart         *controllers.CartController
	Checkout     *controllers.CheckoutController
	Subscription *controllers.SubscriptionController
	Health       *controllers.HealthController
}

// RegisterRoutes sets up all storefront routes. writeLimit guards the
// endpoints that create rows from anonymous input.
func RegisterRoutes(r *gin.Engine, ctrl Controllers, writeLimit gin.HandlerFunc) {
	r.SetHTMLTemplate(pages.HTML())

	if ctrl.Health != nil {
		r.GET("/health", ctrl.Health.Health)
	}

	api := r.Group("/api")

	cart := api.Group("/cart")
	cart.POST("/capture", writeLimit, ctrl.Cart.CaptureCart)
	cart.GET("/restore", ctrl.Cart.RestoreCart)
	cart.GET("/restore/claim", ctrl.Cart.ClaimRestore)
	cart.GET("/suppress", ctrl.Cart.SuppressReminders)
	cart.POST("/validate", ctrl.Cart.ValidateCart)

	api.POST("/checkout", writeLimit, ctrl.Checkout.StartCheckout)
	api.POST("/webhooks/stripe", ctrl.Checkout.StripeWebhook)

	api.POST("/subscribe", writeLimit, ctrl.Subscription.Subscribe)
	api.GET("/unsubscribe", ctrl.Subscription.Unsubscribe)
	api.POST("/unsubscribe", ctrl.Subscription.Unsubscribe)
}
