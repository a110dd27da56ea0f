// Package handlers exposes the storefront over HTTP.
package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/decred/slog"
	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/go-storefront/internal/catalog"
	"github.com/imrishuroy/go-storefront/internal/idempotency"
	"github.com/imrishuroy/go-storefront/internal/orders"
	"github.com/imrishuroy/go-storefront/internal/redirect"
	"github.com/imrishuroy/go-storefront/internal/reviews"
	"github.com/imrishuroy/go-storefront/internal/session"
	"github.com/imrishuroy/go-storefront/internal/settings"
	"github.com/imrishuroy/go-storefront/internal/users"
	"github.com/imrishuroy/go-storefront/internal/validation"
)

// SettingsStore reads and updates storefront settings.
type SettingsStore interface {
	GetSettings(ctx context.Context) settings.Settings
	SetCurrencySymbol(ctx context.Context, symbol string) (settings.Settings, error)
}

// ProductStore is the product catalogue.
type ProductStore interface {
	Put(ctx context.Context, p catalog.Product) (catalog.Product, error)
	Get(ctx context.Context, productID string) (*catalog.Product, error)
	List(ctx context.Context) ([]catalog.Product, error)
	ListByCategories(ctx context.Context, categories []string) ([]catalog.Product, error)
}

// OrderStore places, lists and updates orders.
type OrderStore interface {
	CreateWithIdempotencyTransaction(ctx context.Context, idempotencyTable string, idempotencyItem interface{}, order orders.Order, items []orders.Item) error
	Get(ctx context.Context, orderID string) (*orders.Order, error)
	Items(ctx context.Context, orderID string) ([]orders.Item, error)
	ListByUser(ctx context.Context, userID string) ([]orders.Order, error)
	UpdateStatus(ctx context.Context, orderID, expectedStatus, newStatus string) error
	HasUserPurchasedProduct(ctx context.Context, userID, productID string) (bool, error)
}

// IdempotencyStore guards checkout against duplicate submissions.
type IdempotencyStore interface {
	TableName() string
	NewRecord(key, orderID, userID string) idempotency.Record
	Get(ctx context.Context, key string) (*idempotency.Record, error)
	MarkDone(ctx context.Context, key, responseBody string, responseStatus int) error
	MarkFailed(ctx context.Context, key, note string) error
}

// ReviewStore stores product reviews.
type ReviewStore interface {
	Create(ctx context.Context, r reviews.Review) (reviews.Review, error)
	ListByProduct(ctx context.Context, productID string) ([]reviews.Review, error)
}

// UserStore keeps user rows in step with sessions.
type UserStore interface {
	Sync(ctx context.Context, p users.Profile) (*users.User, error)
}

// Seeder inserts synthetic reviews.
type Seeder interface {
	Seed(ctx context.Context, scope reviews.Scope) (reviews.Result, error)
}

// Publisher enqueues placed orders.
type Publisher interface {
	Publish(ctx context.Context, payload interface{}, attributes map[string]string) error
}

// Counter records business metrics.
type Counter interface {
	Count(ctx context.Context, name string, value float64)
}

// Deps groups dependencies for the storefront routes.
type Deps struct {
	Settings    SettingsStore
	Products    ProductStore
	Orders      OrderStore
	Idempotency IdempotencyStore
	Reviews     ReviewStore
	Users       UserStore
	Seeder      Seeder
	Publisher   Publisher
	Metrics     Counter
	Sessions    *session.Manager
	Redirect    *redirect.Handler
	SignInURL   string
	Log         slog.Logger
}

type handler struct {
	Deps
	v *validatorv10.Validate
}

// Register registers every storefront route on r.
func Register(r *gin.Engine, d Deps) {
	h := &handler{Deps: d, v: validation.New()}

	r.GET("/", d.Redirect.Consume(), h.home)
	r.GET("/sign-in", h.signIn)

	api := r.Group("/api")
	api.GET("/settings", h.getSettings)
	api.GET("/products", h.listProducts)
	api.GET("/products/:id", d.Sessions.Optional(), h.getProduct)
	api.GET("/products/:id/reviews", h.listReviews)
	api.POST("/cart/quote", h.quote)

	user := api.Group("", d.Sessions.Require())
	user.POST("/auth/sync", h.syncUser)
	user.POST("/checkout", h.checkout)
	user.GET("/orders", h.listOrders)
	user.GET("/orders/:id", h.getOrder)
	user.POST("/products/:id/reviews", h.createReview)

	admin := api.Group("/admin", d.Sessions.RequireAdmin())
	admin.GET("/settings", h.getSettings)
	admin.PUT("/settings", h.putSettings)
	admin.POST("/products", h.createProduct)
	admin.PUT("/orders/:id/status", h.updateOrderStatus)
	admin.POST("/reviews/seed", h.seedReviews)
	admin.POST("/reviews/seed/:category", h.seedReviews)
}

// RequestLogger logs every request at debug level.
func RequestLogger(log slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debugf("%s %s %d %v", c.Request.Method, c.Request.URL.Path,
			c.Writer.Status(), time.Since(start))
	}
}

// internalError logs err and answers with a generic 500.
func (h *handler) internalError(c *gin.Context, what string, err error) {
	h.Log.Errorf("%s %s: %s: %v", c.Request.Method, c.Request.URL.Path, what, err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
}

func notFound(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not_found"})
}

func splitCategories(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
