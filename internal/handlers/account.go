package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/imrishuroy/go-storefront/internal/aws"
	"github.com/imrishuroy/go-storefront/internal/catalog"
	"github.com/imrishuroy/go-storefront/internal/currency"
	"github.com/imrishuroy/go-storefront/internal/idempotency"
	"github.com/imrishuroy/go-storefront/internal/orders"
	"github.com/imrishuroy/go-storefront/internal/reviews"
	"github.com/imrishuroy/go-storefront/internal/session"
	"github.com/imrishuroy/go-storefront/internal/users"
	"github.com/imrishuroy/go-storefront/internal/validation"
)

const jsonContentType = "application/json; charset=utf-8"

func (h *handler) syncUser(c *gin.Context) {
	claims, _ := session.FromContext(c)
	u, err := h.Users.Sync(c.Request.Context(), users.Profile{
		UserID: claims.UserID(),
		Email:  claims.Email,
		Name:   claims.Name,
	})
	if err != nil {
		h.internalError(c, "sync user", err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// checkout places an order. The Idempotency-Key header makes retries safe:
// the idempotency record, the order and its items are written in one
// transaction, and a repeated key replays the first outcome.
func (h *handler) checkout(c *gin.Context) {
	ctx := c.Request.Context()
	claims, _ := session.FromContext(c)

	// Require idempotency key header
	idempKey := c.GetHeader("Idempotency-Key")
	if idempKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_idempotency_key"})
		return
	}

	var req validation.CartRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	items, total, err := h.priceCart(ctx, req)
	if err != nil {
		h.cartError(c, err)
		return
	}

	orderID := uuid.NewString()
	order := orders.Order{
		OrderID:        orderID,
		UserID:         claims.UserID(),
		Status:         orders.StatusPending,
		Total:          total,
		CurrencySymbol: h.Settings.GetSettings(ctx).CurrencySymbol,
		IdempotencyKey: idempKey,
	}
	rec := h.Idempotency.NewRecord(idempKey, orderID, claims.UserID())

	err = h.Orders.CreateWithIdempotencyTransaction(ctx, h.Idempotency.TableName(), rec, order, items)
	if errors.Is(err, orders.ErrDuplicateRequest) {
		h.replay(c, idempKey, claims.UserID())
		return
	}
	if err != nil {
		h.internalError(c, "create order", err)
		return
	}

	msg := orders.PlacedMessage{
		OrderID:        orderID,
		IdempotencyKey: idempKey,
		CorrelationID:  c.GetHeader("X-Request-Id"),
	}
	attrs := map[string]string{
		"idempotency_key": idempKey,
		"order_id":        orderID,
		"correlation_id":  msg.CorrelationID,
	}
	if err := h.Publisher.Publish(ctx, msg, attrs); err != nil {
		// The order never reaches the worker; close it and the key.
		if ferr := h.Idempotency.MarkFailed(ctx, idempKey, fmt.Sprintf("sqs_send_failed: %v", err)); ferr != nil {
			h.Log.Warnf("Unable to mark key %s failed: %v", idempKey, ferr)
		}
		if uerr := h.Orders.UpdateStatus(ctx, orderID, orders.StatusPending, orders.StatusCancelled); uerr != nil {
			h.Log.Warnf("Unable to cancel unqueued order %s: %v", orderID, uerr)
		}
		h.internalError(c, "enqueue order", err)
		return
	}
	if h.Metrics != nil {
		h.Metrics.Count(ctx, aws.MetricOrdersPlaced, 1)
	}

	body, err := json.Marshal(orders.NewReceipt(order))
	if err != nil {
		h.internalError(c, "encode receipt", err)
		return
	}
	if err := h.Idempotency.MarkDone(ctx, idempKey, string(body), http.StatusCreated); err != nil {
		// The worker completes the record when it confirms the order.
		h.Log.Warnf("Unable to mark key %s done: %v", idempKey, err)
	}

	c.Header("Location", "/api/orders/"+orderID)
	c.Data(http.StatusCreated, jsonContentType, body)
}

// replay answers a checkout whose idempotency key was already used.
func (h *handler) replay(c *gin.Context, key, userID string) {
	rec, err := h.Idempotency.Get(c.Request.Context(), key)
	if err != nil {
		h.internalError(c, "idempotency lookup", err)
		return
	}
	if rec == nil {
		h.internalError(c, "idempotency lookup", errors.New("transaction rejected but no record found"))
		return
	}
	if rec.UserID != userID {
		c.JSON(http.StatusConflict, gin.H{"error": "idempotency_key_conflict"})
		return
	}
	switch rec.Status {
	case idempotency.StatusDone:
		if rec.ResponseBody != "" && rec.ResponseStatus != 0 {
			c.Data(rec.ResponseStatus, jsonContentType, []byte(rec.ResponseBody))
			return
		}
		c.JSON(http.StatusOK, gin.H{"orderId": rec.OrderID})
	case idempotency.StatusInProgress:
		c.JSON(http.StatusAccepted, gin.H{"message": "request already in progress", "orderId": rec.OrderID})
	case idempotency.StatusFailed:
		c.JSON(http.StatusConflict, gin.H{"error": "previous_attempt_failed"})
	default:
		h.internalError(c, "idempotency lookup", fmt.Errorf("unknown status %q", rec.Status))
	}
}

type orderView struct {
	orders.Order
	TotalDisplay string        `json:"totalDisplay"`
	Items        []orders.Item `json:"items,omitempty"`
}

func newOrderView(o orders.Order) orderView {
	o.Total = currency.RoundTo2(o.Total)
	return orderView{
		Order:        o,
		TotalDisplay: currency.FormatPrice(o.Total, o.CurrencySymbol),
	}
}

func (h *handler) listOrders(c *gin.Context) {
	claims, _ := session.FromContext(c)
	list, err := h.Orders.ListByUser(c.Request.Context(), claims.UserID())
	if err != nil {
		h.internalError(c, "list orders", err)
		return
	}
	out := make([]orderView, 0, len(list))
	for _, o := range list {
		out = append(out, newOrderView(o))
	}
	c.JSON(http.StatusOK, gin.H{"orders": out})
}

func (h *handler) getOrder(c *gin.Context) {
	ctx := c.Request.Context()
	claims, _ := session.FromContext(c)
	o, err := h.Orders.Get(ctx, c.Param("id"))
	if err != nil {
		h.internalError(c, "get order", err)
		return
	}
	if o == nil || o.UserID != claims.UserID() {
		notFound(c)
		return
	}
	items, err := h.Orders.Items(ctx, o.OrderID)
	if err != nil {
		h.internalError(c, "list order items", err)
		return
	}
	view := newOrderView(*o)
	view.Items = items
	c.JSON(http.StatusOK, view)
}

// createReview stores a review. It is marked verified when the reviewer
// has a completed order containing the product.
func (h *handler) createReview(c *gin.Context) {
	ctx := c.Request.Context()
	claims, _ := session.FromContext(c)

	p, err := h.Products.Get(ctx, c.Param("id"))
	if errors.Is(err, catalog.ErrNotFound) {
		notFound(c)
		return
	}
	if err != nil {
		h.internalError(c, "get product", err)
		return
	}

	var req validation.CreateReviewRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}

	name := claims.Name
	if name == "" {
		name = "Customer"
	}
	r, err := h.Reviews.Create(ctx, reviews.Review{
		ProductID: p.ProductID,
		UserID:    claims.UserID(),
		UserName:  name,
		Rating:    req.Rating,
		Comment:   req.Comment,
		Verified:  h.purchased(ctx, claims.UserID(), p.ProductID),
	})
	if err != nil {
		h.internalError(c, "create review", err)
		return
	}
	c.JSON(http.StatusCreated, r)
}
