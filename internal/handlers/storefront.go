package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-storefront/internal/catalog"
	"github.com/imrishuroy/go-storefront/internal/currency"
	"github.com/imrishuroy/go-storefront/internal/orders"
	"github.com/imrishuroy/go-storefront/internal/reviews"
	"github.com/imrishuroy/go-storefront/internal/session"
	"github.com/imrishuroy/go-storefront/internal/validation"
)

type productView struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	Category     string  `json:"category"`
	Price        float64 `json:"price"`
	PriceDisplay string  `json:"priceDisplay"`
}

func newProductView(p catalog.Product, symbol string) productView {
	return productView{
		ID:           p.ProductID,
		Name:         p.Name,
		Description:  p.Description,
		Category:     p.Category,
		Price:        currency.RoundTo2(p.Price),
		PriceDisplay: currency.FormatPrice(p.Price, symbol),
	}
}

func productViews(ps []catalog.Product, symbol string) []productView {
	out := make([]productView, 0, len(ps))
	for _, p := range ps {
		out = append(out, newProductView(p, symbol))
	}
	return out
}

// home serves the storefront summary. Redirect.Consume runs first.
func (h *handler) home(c *gin.Context) {
	ctx := c.Request.Context()
	symbol := h.Settings.GetSettings(ctx).CurrencySymbol

	ps, err := h.Products.List(ctx)
	if err != nil {
		h.internalError(c, "list products", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"currencySymbol": symbol,
		"products":       productViews(ps, symbol),
	})
}

func (h *handler) signIn(c *gin.Context) {
	h.Redirect.Remember(c)
	c.Redirect(http.StatusFound, h.SignInURL)
}

func (h *handler) getSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.Settings.GetSettings(c.Request.Context()))
}

func (h *handler) listProducts(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		ps  []catalog.Product
		err error
	)
	if cats := splitCategories(c.Query("category")); len(cats) > 0 {
		ps, err = h.Products.ListByCategories(ctx, cats)
	} else {
		ps, err = h.Products.List(ctx)
	}
	if err != nil {
		h.internalError(c, "list products", err)
		return
	}
	symbol := h.Settings.GetSettings(ctx).CurrencySymbol
	c.JSON(http.StatusOK, gin.H{"products": productViews(ps, symbol)})
}

func (h *handler) getProduct(c *gin.Context) {
	ctx := c.Request.Context()
	p, err := h.Products.Get(ctx, c.Param("id"))
	if errors.Is(err, catalog.ErrNotFound) {
		notFound(c)
		return
	}
	if err != nil {
		h.internalError(c, "get product", err)
		return
	}
	rs, err := h.Reviews.ListByProduct(ctx, p.ProductID)
	if err != nil {
		h.internalError(c, "list reviews", err)
		return
	}

	purchased := false
	if claims, ok := session.FromContext(c); ok {
		purchased = h.purchased(ctx, claims.UserID(), p.ProductID)
	}

	symbol := h.Settings.GetSettings(ctx).CurrencySymbol
	c.JSON(http.StatusOK, gin.H{
		"product":   newProductView(*p, symbol),
		"reviews":   reviews.Summarize(rs),
		"purchased": purchased,
	})
}

// purchased degrades to false when the verifier cannot reach the store.
func (h *handler) purchased(ctx context.Context, userID, productID string) bool {
	ok, err := h.Orders.HasUserPurchasedProduct(ctx, userID, productID)
	if err != nil {
		h.Log.Warnf("Purchase check for user %s product %s failed: %v", userID, productID, err)
		return false
	}
	return ok
}

func (h *handler) listReviews(c *gin.Context) {
	ctx := c.Request.Context()
	if _, err := h.Products.Get(ctx, c.Param("id")); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			notFound(c)
			return
		}
		h.internalError(c, "get product", err)
		return
	}
	rs, err := h.Reviews.ListByProduct(ctx, c.Param("id"))
	if err != nil {
		h.internalError(c, "list reviews", err)
		return
	}
	if rs == nil {
		rs = []reviews.Review{}
	}
	c.JSON(http.StatusOK, gin.H{
		"summary": reviews.Summarize(rs),
		"reviews": rs,
	})
}

type quoteLine struct {
	ProductID        string  `json:"productId"`
	Name             string  `json:"name"`
	Quantity         int     `json:"quantity"`
	UnitPrice        float64 `json:"unitPrice"`
	LineTotal        float64 `json:"lineTotal"`
	LineTotalDisplay string  `json:"lineTotalDisplay"`
}

// unknownProductError names a cart line whose product does not exist.
type unknownProductError struct {
	productID string
}

func (e *unknownProductError) Error() string {
	return fmt.Sprintf("unknown product %s", e.productID)
}

// priceCart resolves every cart line against the catalogue and returns the
// order items and their subtotal.
func (h *handler) priceCart(ctx context.Context, req validation.CartRequest) ([]orders.Item, float64, error) {
	items := make([]orders.Item, 0, len(req.Items))
	totals := make([]float64, 0, len(req.Items))
	for _, line := range req.Items {
		p, err := h.Products.Get(ctx, line.ProductID)
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, 0, &unknownProductError{productID: line.ProductID}
		}
		if err != nil {
			return nil, 0, fmt.Errorf("get product %s: %w", line.ProductID, err)
		}
		lt := currency.LineTotal(p.Price, line.Quantity)
		items = append(items, orders.Item{
			ProductID: p.ProductID,
			Name:      p.Name,
			Quantity:  line.Quantity,
			UnitPrice: currency.RoundTo2(p.Price),
			LineTotal: lt,
		})
		totals = append(totals, lt)
	}
	return items, currency.Sum(totals...), nil
}

// cartError answers for a failed priceCart.
func (h *handler) cartError(c *gin.Context, err error) {
	var up *unknownProductError
	if errors.As(err, &up) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown_product", "productId": up.productID})
		return
	}
	h.internalError(c, "price cart", err)
}

func (h *handler) quote(c *gin.Context) {
	var req validation.CartRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	ctx := c.Request.Context()
	items, subtotal, err := h.priceCart(ctx, req)
	if err != nil {
		h.cartError(c, err)
		return
	}

	symbol := h.Settings.GetSettings(ctx).CurrencySymbol
	lines := make([]quoteLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, quoteLine{
			ProductID:        it.ProductID,
			Name:             it.Name,
			Quantity:         it.Quantity,
			UnitPrice:        it.UnitPrice,
			LineTotal:        it.LineTotal,
			LineTotalDisplay: currency.FormatPrice(it.LineTotal, symbol),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"currencySymbol":  symbol,
		"items":           lines,
		"subtotal":        subtotal,
		"subtotalDisplay": currency.FormatPrice(subtotal, symbol),
	})
}
