package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/go-storefront/internal/aws/awstest"
)

const (
	ordersTable = "orders"
	itemsTable  = "order-items"
	idempTable  = "idempotency"
)

func newFake() *awstest.Dynamo {
	return awstest.NewDynamo().
		CreateTable(ordersTable, "order_id", "").
		CreateIndex(ordersTable, UserIndex, "user_id", "created_at").
		CreateTable(itemsTable, "order_id", "product_id").
		CreateTable(idempTable, "idempotency_key", "")
}

func idemRecord(key, orderID string) map[string]interface{} {
	return map[string]interface{}{
		"idempotency_key": key,
		"status":          "IN_PROGRESS",
		"order_id":        orderID,
	}
}

// placeOrder writes an order with the given status containing productIDs.
func placeOrder(t *testing.T, s *Store, orderID, userID, status string, productIDs ...string) {
	t.Helper()
	items := make([]Item, 0, len(productIDs))
	for _, p := range productIDs {
		items = append(items, Item{ProductID: p, Name: p, Quantity: 1, UnitPrice: 10, LineTotal: 10})
	}
	order := Order{
		OrderID: orderID,
		UserID:  userID,
		Status:  status,
		Total:   float64(10 * len(items)),
	}
	if err := s.CreateWithIdempotencyTransaction(context.Background(), idempTable, idemRecord("key-"+orderID, orderID), order, items); err != nil {
		t.Fatalf("place order %s: %v", orderID, err)
	}
}

func TestCreateWithIdempotencyTransaction_Success(t *testing.T) {
	fake := newFake()
	store := NewStore(fake, ordersTable, itemsTable)

	order := Order{
		OrderID:        "order-1",
		UserID:         "user-1",
		Status:         StatusPending,
		Total:          123.45,
		CurrencySymbol: "RM",
	}
	items := []Item{
		{ProductID: "p1", Name: "Lamp", Quantity: 1, UnitPrice: 100, LineTotal: 100},
		{ProductID: "p2", Name: "Bulb", Quantity: 3, UnitPrice: 7.82, LineTotal: 23.45},
	}

	err := store.CreateWithIdempotencyTransaction(context.Background(), idempTable, idemRecord("key-1", "order-1"), order, items)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	if n := len(fake.Items(idempTable)); n != 1 {
		t.Fatalf("expected 1 idempotency record, got %d", n)
	}

	got, err := store.Get(context.Background(), "order-1")
	if err != nil || got == nil {
		t.Fatalf("get order: %v %v", got, err)
	}
	if got.UserID != "user-1" || got.Status != StatusPending {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not set: %+v", got)
	}

	lines, err := store.Items(context.Background(), "order-1")
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	for _, l := range lines {
		if l.OrderID != "order-1" || l.UserID != "user-1" {
			t.Fatalf("line did not inherit order ids: %+v", l)
		}
	}
}

func TestCreateWithIdempotencyTransaction_ExistingIdempotency_Fails(t *testing.T) {
	fake := newFake()
	fake.Seed(idempTable, mustMarshal(t, map[string]interface{}{
		"idempotency_key": "key-2",
		"status":          "DONE",
	}))
	store := NewStore(fake, ordersTable, itemsTable)

	order := Order{OrderID: "order-2", UserID: "user-2", Status: StatusPending, Total: 10}
	err := store.CreateWithIdempotencyTransaction(context.Background(), idempTable, idemRecord("key-2", "order-2"), order, nil)
	if !errors.Is(err, ErrDuplicateRequest) {
		t.Fatalf("expected ErrDuplicateRequest, got %v", err)
	}
	if o, _ := store.Get(context.Background(), "order-2"); o != nil {
		t.Fatalf("order must not be written on duplicate request")
	}
}

func TestCreateWithIdempotencyTransaction_TooManyItems(t *testing.T) {
	store := NewStore(newFake(), ordersTable, itemsTable)
	items := make([]Item, MaxItemsPerOrder+1)

	err := store.CreateWithIdempotencyTransaction(context.Background(), idempTable, idemRecord("k", "o"), Order{OrderID: "o"}, items)
	if !errors.Is(err, ErrTooManyItems) {
		t.Fatalf("expected ErrTooManyItems, got %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	store := NewStore(newFake(), ordersTable, itemsTable)

	o, err := store.Get(context.Background(), "missing")
	if err != nil || o != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", o, err)
	}
}

func TestUpdateStatus_Condition_SuccessAndFail(t *testing.T) {
	store := NewStore(newFake(), ordersTable, itemsTable)
	placeOrder(t, store, "order-10", "c10", StatusPending)

	// success: PENDING -> CONFIRMED
	if err := store.UpdateStatus(context.Background(), "order-10", StatusPending, StatusConfirmed); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	// failure: PENDING -> SHIPPED (but current is CONFIRMED)
	err := store.UpdateStatus(context.Background(), "order-10", StatusPending, StatusShipped)
	if !errors.Is(err, ErrStatusMismatch) {
		t.Fatalf("expected ErrStatusMismatch, got %v", err)
	}

	o, _ := store.Get(context.Background(), "order-10")
	if o.Status != StatusConfirmed {
		t.Fatalf("expected CONFIRMED, got %s", o.Status)
	}
}

func TestUpdateStatus_MissingOrder(t *testing.T) {
	store := NewStore(newFake(), ordersTable, itemsTable)

	err := store.UpdateStatus(context.Background(), "nope", StatusPending, StatusConfirmed)
	if !errors.Is(err, ErrStatusMismatch) {
		t.Fatalf("expected ErrStatusMismatch, got %v", err)
	}
}

func TestListByUser_NewestFirst(t *testing.T) {
	store := NewStore(newFake(), ordersTable, itemsTable)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	store.nowFunc = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	placeOrder(t, store, "o-old", "u1", StatusPending)
	placeOrder(t, store, "o-new", "u1", StatusPending)
	placeOrder(t, store, "o-other", "u2", StatusPending)

	list, err := store.ListByUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(list))
	}
	if list[0].OrderID != "o-new" || list[1].OrderID != "o-old" {
		t.Fatalf("unexpected order: %s, %s", list[0].OrderID, list[1].OrderID)
	}
}

func TestStatusHelpers(t *testing.T) {
	for _, st := range []string{StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered} {
		if !IsCompleted(st) {
			t.Errorf("%s should be completed", st)
		}
	}
	for _, st := range []string{StatusPending, StatusCancelled, "", "REFUNDED"} {
		if IsCompleted(st) {
			t.Errorf("%s should not be completed", st)
		}
	}
	if !ValidStatus(StatusCancelled) || ValidStatus("LOST") {
		t.Errorf("ValidStatus mismatch")
	}
}

func mustMarshal(t *testing.T, v interface{}) map[string]types.AttributeValue {
	t.Helper()
	m, err := attributevalue.MarshalMap(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return m
}

func TestNewReceipt(t *testing.T) {
	r := NewReceipt(Order{OrderID: "o1", Status: StatusPending, Total: 19.999, CurrencySymbol: ""})

	if r.Total != 20 || r.TotalDisplay != "RM 20" {
		t.Fatalf("unexpected receipt %+v", r)
	}
	r = NewReceipt(Order{OrderID: "o2", Status: StatusConfirmed, Total: 7.5, CurrencySymbol: "USD"})
	if r.TotalDisplay != "USD 7.50" || r.Status != StatusConfirmed {
		t.Fatalf("unexpected receipt %+v", r)
	}
}
