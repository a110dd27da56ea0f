package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/decred/slog"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	internalaws "github.com/imrishuroy/go-storefront/internal/aws"
	"github.com/imrishuroy/go-storefront/internal/aws/awstest"
	"github.com/imrishuroy/go-storefront/internal/catalog"
	"github.com/imrishuroy/go-storefront/internal/idempotency"
	"github.com/imrishuroy/go-storefront/internal/orders"
	"github.com/imrishuroy/go-storefront/internal/redirect"
	"github.com/imrishuroy/go-storefront/internal/reviews"
	"github.com/imrishuroy/go-storefront/internal/session"
	"github.com/imrishuroy/go-storefront/internal/settings"
	"github.com/imrishuroy/go-storefront/internal/users"
)

const (
	settingsTable    = "settings"
	ordersTable      = "orders"
	itemsTable       = "order_items"
	productsTable    = "products"
	reviewsTable     = "reviews"
	usersTable       = "users"
	idempotencyTable = "idempotency"
	signInURL        = "https://auth.example.com/login"
)

type env struct {
	t        *testing.T
	router   *gin.Engine
	fake     *awstest.Dynamo
	sqs      *awstest.SQS
	cw       *awstest.CloudWatch
	sessions *session.Manager
	orders   *orders.Store
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fake := awstest.NewDynamo().
		CreateTable(settingsTable, "key", "").
		CreateTable(ordersTable, "order_id", "").
		CreateIndex(ordersTable, orders.UserIndex, "user_id", "created_at").
		CreateTable(itemsTable, "order_id", "product_id").
		CreateTable(productsTable, "product_id", "").
		CreateIndex(productsTable, catalog.CategoryIndex, "category", "").
		CreateTable(reviewsTable, "product_id", "review_id").
		CreateTable(usersTable, "user_id", "").
		CreateTable(idempotencyTable, "idempotency_key", "")

	sqsFake := &awstest.SQS{}
	cw := &awstest.CloudWatch{}
	metrics := internalaws.NewMetrics(cw, "Storefront", slog.Disabled)

	products := catalog.NewStore(fake, productsTable)
	for _, p := range []catalog.Product{
		{ProductID: "lamp", Name: "Arc Lamp", Price: 10, Category: "lighting"},
		{ProductID: "pendant", Name: "Pendant", Price: 12.5, Category: "lighting"},
		{ProductID: "sofa", Name: "Sofa", Price: 1200, Category: "furniture"},
	} {
		_, err := products.Put(context.Background(), p)
		require.NoError(t, err)
	}

	userStore := users.NewStore(fake, usersTable)
	reviewStore := reviews.NewStore(fake, reviewsTable)
	orderStore := orders.NewStore(fake, ordersTable, itemsTable)
	sessions := session.NewManager("test-secret", time.Hour)

	r := gin.New()
	Register(r, Deps{
		Settings:    settings.NewStore(fake, settingsTable, slog.Disabled, settings.WithMetrics(metrics)),
		Products:    products,
		Orders:      orderStore,
		Idempotency: idempotency.NewStore(fake, idempotencyTable, 48*time.Hour),
		Reviews:     reviewStore,
		Users:       userStore,
		Seeder: reviews.NewSeeder(products, userStore, reviewStore, metrics, slog.Disabled, reviews.SeederConfig{
			MinPerProduct: 2,
			MaxPerProduct: 2,
			Categories:    []string{"lighting", "furniture"},
		}),
		Publisher: internalaws.NewPublisher(sqsFake, "https://sqs.local/orders"),
		Metrics:   metrics,
		Sessions:  sessions,
		Redirect:  redirect.New(false),
		SignInURL: signInURL,
		Log:       slog.Disabled,
	})

	return &env{
		t:        t,
		router:   r,
		fake:     fake,
		sqs:      sqsFake,
		cw:       cw,
		sessions: sessions,
		orders:   orderStore,
	}
}

func (e *env) token(userID, role string) string {
	e.t.Helper()
	tok, err := e.sessions.Issue(userID, userID+"@example.com", "User "+userID, role)
	require.NoError(e.t, err)
	return tok
}

type reqOpt func(*http.Request)

func as(token string) reqOpt {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func header(k, v string) reqOpt {
	return func(r *http.Request) { r.Header.Set(k, v) }
}

func withCookie(name, value string) reqOpt {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: name, Value: value}) }
}

func (e *env) do(method, path, body string, opts ...reqOpt) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for _, o := range opts {
		o(req)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// placeOrder writes an order for userID containing productIDs directly.
func (e *env) placeOrder(orderID, userID, status string, productIDs ...string) {
	e.t.Helper()
	items := make([]orders.Item, 0, len(productIDs))
	for _, id := range productIDs {
		items = append(items, orders.Item{ProductID: id, Quantity: 1, UnitPrice: 10, LineTotal: 10})
	}
	err := e.orders.CreateWithIdempotencyTransaction(context.Background(), idempotencyTable,
		idempotency.Record{IdempotencyKey: "seed-" + orderID, Status: idempotency.StatusDone},
		orders.Order{OrderID: orderID, UserID: userID, Status: status, Total: 10, CurrencySymbol: "RM"},
		items)
	require.NoError(e.t, err)
}

func (e *env) seedIdempotency(rec idempotency.Record) {
	e.t.Helper()
	item, err := attributevalue.MarshalMap(rec)
	require.NoError(e.t, err)
	e.fake.Seed(idempotencyTable, item)
}

func (e *env) idempotencyRecord(key string) *idempotency.Record {
	e.t.Helper()
	rec, err := idempotency.NewStore(e.fake, idempotencyTable, time.Hour).Get(context.Background(), key)
	require.NoError(e.t, err)
	return rec
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
