package controllers

import (
	"net/http"
	"time"

	"storefront-service/models"

	"github.com/gin-gonic/gin"
)

const (
	CartTokenCookie  = "vfo_cart_token"
	CartEmailCookie  = "vfo_cart_email"
	SubscriberCookie = "vfo_subscriber"

	SubscriberCookieTTL = 365 * 24 * time.Hour
)

// setCartCookies hands the browser its cart token and the captured email.
// The email cookie is left readable so the storefront can prefill forms.
func setCartCookies(c *gin.Context, token, email string) {
	maxAge := int(models.AbandonedCartTTL.Seconds())
	setCookie(c, CartTokenCookie, token, maxAge, true)
	setCookie(c, CartEmailCookie, email, maxAge, false)
}

func setCookie(c *gin.Context, name, value string, maxAge int, httpOnly bool) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   true,
		HttpOnly: httpOnly,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearCookie(c *gin.Context, name string) {
	setCookie(c, name, "", -1, true)
}

// requestMeta collects the consent evidence carried by the request itself.
func requestMeta(c *gin.Context) models.RequestMeta {
	return models.RequestMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		PageURL:   c.Request.Referer(),
	}
}
