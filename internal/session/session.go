// Package session verifies the signed session tokens that identify
// storefront users.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/imrishuroy/go-storefront/internal/users"
)

const (
	// CookieName is the cookie carrying the session token.
	CookieName = "session"

	contextKey = "session.claims"
)

// ErrNoToken is returned when a request carries no session token.
var ErrNoToken = errors.New("no session token")

// Claims are the session token claims. The subject is the user id.
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the authenticated user id.
func (c *Claims) UserID() string { return c.Subject }

// IsAdmin reports whether the session belongs to an administrator.
func (c *Claims) IsAdmin() bool { return c.Role == users.RoleAdmin }

// Manager issues and verifies HS256 session tokens.
type Manager struct {
	secret  []byte
	ttl     time.Duration
	nowFunc func() time.Time
}

// NewManager returns a Manager signing with secret. Issued tokens expire
// after ttl.
func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{
		secret:  []byte(secret),
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

// Issue signs a token for the given user.
func (m *Manager) Issue(userID, email, name, role string) (string, error) {
	now := m.nowFunc()
	claims := Claims{
		Email: email,
		Name:  name,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies token and returns its claims.
func (m *Manager) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.nowFunc),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("parse token: missing subject")
	}
	return claims, nil
}

// FromRequest extracts and verifies the token from the Authorization
// header or, failing that, the session cookie.
func (m *Manager) FromRequest(r *http.Request) (*Claims, error) {
	token := ""
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		token = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	} else if ck, err := r.Cookie(CookieName); err == nil {
		token = ck.Value
	}
	if token == "" {
		return nil, ErrNoToken
	}
	return m.Parse(token)
}

// Optional attaches the session to the context when a valid one is
// present. Requests without one proceed anonymously.
func (m *Manager) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := m.FromRequest(c.Request); err == nil {
			c.Set(contextKey, claims)
		}
		c.Next()
	}
}

// Require rejects requests without a valid session.
func (m *Manager) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := m.FromRequest(c.Request)
		if err != nil {
			abortUnauthorized(c)
			return
		}
		c.Set(contextKey, claims)
		c.Next()
	}
}

// RequireAdmin rejects requests without a valid administrator session.
func (m *Manager) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := m.FromRequest(c.Request)
		if err != nil || !claims.IsAdmin() {
			abortUnauthorized(c)
			return
		}
		c.Set(contextKey, claims)
		c.Next()
	}
}

// FromContext returns the session attached by one of the middlewares.
func FromContext(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(contextKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}
