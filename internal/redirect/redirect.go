// Package redirect carries a post-login destination across the sign-in
// round trip in a short-lived cookie.
package redirect

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	// CookieName is the cookie holding the pending destination.
	CookieName = "post_login_redirect"
	// MaxAge bounds how long a remembered destination stays valid.
	MaxAge = 10 * time.Minute
)

// SafePath reports whether p is a same-origin absolute path. Protocol
// relative forms such as //host and /\host are rejected.
func SafePath(p string) bool {
	if !strings.HasPrefix(p, "/") {
		return false
	}
	if len(p) > 1 && (p[1] == '/' || p[1] == '\\') {
		return false
	}
	return !strings.ContainsAny(p, "\r\n")
}

// Handler writes and consumes the redirect cookie.
type Handler struct {
	secure bool
}

// New returns a Handler. secure marks the cookie Secure.
func New(secure bool) *Handler {
	return &Handler{secure: secure}
}

// Remember stores the redirect query parameter when it is a safe path.
// It reports whether the cookie was written.
func (h *Handler) Remember(c *gin.Context) bool {
	dest := c.Query("redirect")
	if !SafePath(dest) {
		return false
	}
	h.set(c, dest, int(MaxAge.Seconds()))
	return true
}

// Consume redirects requests for / to a remembered destination and clears
// the cookie in the same response. Other paths, missing cookies and
// unusable values fall through untouched.
func (h *Handler) Consume() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path != "/" {
			c.Next()
			return
		}
		// Cookie fails on values that do not URL-decode.
		dest, err := c.Cookie(CookieName)
		if err != nil || !SafePath(dest) {
			c.Next()
			return
		}
		h.set(c, "", -1)
		c.Redirect(http.StatusFound, dest)
		c.Abort()
	}
}

// set writes the cookie; gin URL-encodes the value.
func (h *Handler) set(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, value, maxAge, "/", "", h.secure, true)
}
