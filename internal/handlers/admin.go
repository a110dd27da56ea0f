package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/imrishuroy/go-storefront/internal/catalog"
	"github.com/imrishuroy/go-storefront/internal/orders"
	"github.com/imrishuroy/go-storefront/internal/reviews"
	"github.com/imrishuroy/go-storefront/internal/settings"
	"github.com/imrishuroy/go-storefront/internal/validation"
)

// optionalBody decodes a JSON object body. An empty body yields an empty
// map; anything that is not an object is an error.
func optionalBody(c *gin.Context) (map[string]interface{}, error) {
	raw, err := c.GetRawData()
	if err != nil {
		return nil, err
	}
	body := map[string]interface{}{}
	if len(raw) == 0 {
		return body, nil
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	return body, nil
}

// stringField returns body[key] when it is a string. Other types are
// ignored.
func stringField(body map[string]interface{}, key string) string {
	s, _ := body[key].(string)
	return s
}

// putSettings updates the currency symbol. A missing or non-string value
// resets it to the default.
func (h *handler) putSettings(c *gin.Context) {
	body, err := optionalBody(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request_body"})
		return
	}
	s, err := h.Settings.SetCurrencySymbol(c.Request.Context(), stringField(body, settings.CurrencySymbolKey))
	if err != nil {
		h.internalError(c, "update settings", err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *handler) createProduct(c *gin.Context) {
	var req validation.CreateProductRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	p, err := h.Products.Put(c.Request.Context(), catalog.Product{
		ProductID:   id,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
	})
	if errors.Is(err, catalog.ErrExists) {
		c.JSON(http.StatusConflict, gin.H{"error": "product_exists"})
		return
	}
	if err != nil {
		h.internalError(c, "create product", err)
		return
	}
	symbol := h.Settings.GetSettings(c.Request.Context()).CurrencySymbol
	c.JSON(http.StatusCreated, newProductView(p, symbol))
}

func (h *handler) updateOrderStatus(c *gin.Context) {
	ctx := c.Request.Context()
	var req validation.UpdateOrderStatusRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	o, err := h.Orders.Get(ctx, c.Param("id"))
	if err != nil {
		h.internalError(c, "get order", err)
		return
	}
	if o == nil {
		notFound(c)
		return
	}
	err = h.Orders.UpdateStatus(ctx, o.OrderID, o.Status, req.Status)
	if errors.Is(err, orders.ErrStatusMismatch) {
		c.JSON(http.StatusConflict, gin.H{"error": "status_changed"})
		return
	}
	if err != nil {
		h.internalError(c, "update order status", err)
		return
	}
	h.Log.Infof("Order %s moved %s -> %s", o.OrderID, o.Status, req.Status)
	c.JSON(http.StatusOK, gin.H{"orderId": o.OrderID, "status": req.Status})
}

// seedReviews inserts synthetic reviews for one product, one category, or
// the configured categories. A malformed body is treated as empty.
func (h *handler) seedReviews(c *gin.Context) {
	body, err := optionalBody(c)
	if err != nil {
		h.Log.Debugf("Ignoring unreadable seed body: %v", err)
		body = map[string]interface{}{}
	}
	scope := reviews.Scope{ProductID: stringField(body, "productId")}
	if cat := c.Param("category"); cat != "" {
		scope.Categories = []string{cat}
	}

	res, err := h.Seeder.Seed(c.Request.Context(), scope)
	if errors.Is(err, reviews.ErrProductNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "product not found"})
		return
	}
	if err != nil {
		h.internalError(c, "seed reviews", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  fmt.Sprintf("Seeded %d reviews across %d products", res.Reviews, res.Products),
		"reviews":  res.Reviews,
		"products": res.Products,
	})
}
