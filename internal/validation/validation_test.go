package validation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestCartRequest_Valid(t *testing.T) {
	v := New()

	req := CartRequest{
		Items: []CartLine{
			{ProductID: "lamp", Quantity: 2},
			{ProductID: "sofa", Quantity: 1},
		},
	}

	if err := v.Struct(req); err != nil {
		t.Fatalf("expected valid, got error: %v", err)
	}
}

func TestCartRequest_DuplicateProducts(t *testing.T) {
	v := New()

	req := CartRequest{
		Items: []CartLine{
			{ProductID: "lamp", Quantity: 1},
			{ProductID: "lamp", Quantity: 3},
		},
	}

	err := v.Struct(req)
	if err == nil {
		t.Fatal("expected validation error for duplicate products, got nil")
	}
	if got := validationErrorsToMap(err)["CartRequest.items"]; got != "distinct_products" {
		t.Fatalf("expected distinct_products, got %q", got)
	}
}

func TestCartRequest_Invalid(t *testing.T) {
	v := New()

	cases := map[string]CartRequest{
		"empty":        {},
		"zero qty":     {Items: []CartLine{{ProductID: "lamp"}}},
		"too many":     {Items: []CartLine{{ProductID: "lamp", Quantity: 100}}},
		"no productId": {Items: []CartLine{{Quantity: 1}}},
	}
	for name, req := range cases {
		if err := v.Struct(req); err == nil {
			t.Errorf("%s: expected validation error, got nil", name)
		}
	}
}

func TestOtherRequests(t *testing.T) {
	v := New()

	if err := v.Struct(CreateProductRequest{Name: "Lamp", Price: 10, Category: "lighting"}); err != nil {
		t.Fatalf("product: %v", err)
	}
	if err := v.Struct(CreateProductRequest{Name: "Lamp", Price: 0, Category: "lighting"}); err == nil {
		t.Fatal("product: expected error for zero price")
	}
	if err := v.Struct(CreateReviewRequest{Rating: 6}); err == nil {
		t.Fatal("review: expected error for rating 6")
	}
	if err := v.Struct(UpdateOrderStatusRequest{Status: "LOST"}); err == nil {
		t.Fatal("status: expected error for unknown status")
	}
	if err := v.Struct(UpdateOrderStatusRequest{Status: "SHIPPED"}); err != nil {
		t.Fatalf("status: %v", err)
	}
}

func TestBindAndValidate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	v := New()

	cases := []struct {
		name   string
		body   string
		status int
		errKey string
	}{
		{"valid", `{"rating":4,"comment":"nice"}`, http.StatusOK, ""},
		{"malformed", `{"rating":`, http.StatusBadRequest, "invalid_request_body"},
		{"invalid", `{"rating":9}`, http.StatusBadRequest, "validation_failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var req CreateReviewRequest
			err := BindAndValidate(c, &req, v)
			if tc.errKey == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || w.Code != tc.status {
				t.Fatalf("expected %d and error, got %d, %v", tc.status, w.Code, err)
			}
			var body map[string]interface{}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body["error"] != tc.errKey {
				t.Fatalf("expected %s, got %v", tc.errKey, body["error"])
			}
		})
	}
}
