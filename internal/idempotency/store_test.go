package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/go-storefront/internal/aws/awstest"
)

const table = "idempotency-table"

func seedRecord(t *testing.T, fake *awstest.Dynamo, rec Record) {
	t.Helper()
	m, err := attributevalue.MarshalMap(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	fake.Seed(table, m)
}

func TestNewRecord(t *testing.T) {
	s := NewStore(awstest.NewDynamo(), table, 48*time.Hour)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.nowFunc = func() time.Time { return now }

	rec := s.NewRecord("k1", "o1", "u1")
	if rec.Status != StatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", rec.Status)
	}
	if rec.ExpiresAt != now.Add(48*time.Hour).Unix() {
		t.Fatalf("unexpected expiry %d", rec.ExpiresAt)
	}
	if rec.OrderID != "o1" || rec.UserID != "u1" || rec.IdempotencyKey != "k1" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if s.TableName() != table {
		t.Fatalf("table name mismatch")
	}
}

func TestGet_MarkDone_MarkFailed(t *testing.T) {
	fake := awstest.NewDynamo().CreateTable(table, "idempotency_key", "")
	s := NewStore(fake, table, 48*time.Hour)
	ctx := context.Background()
	key := "test-key-1"

	rec, err := s.Get(ctx, key)
	if err != nil || rec != nil {
		t.Fatalf("expected (nil, nil) before creation, got (%v, %v)", rec, err)
	}

	seedRecord(t, fake, s.NewRecord(key, "order-123", "user-1"))

	rec, err = s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if rec == nil || rec.Status != StatusInProgress || rec.OrderID != "order-123" {
		t.Fatalf("unexpected record: %+v", rec)
	}

	if err := s.MarkDone(ctx, key, `{"ok":true}`, 201); err != nil {
		t.Fatalf("MarkDone error: %v", err)
	}
	rec, _ = s.Get(ctx, key)
	if rec.Status != StatusDone || rec.ResponseBody != `{"ok":true}` || rec.ResponseStatus != 201 {
		t.Fatalf("record not marked done: %+v", rec)
	}

	if err := s.MarkFailed(ctx, key, "failed-reason"); err != nil {
		t.Fatalf("MarkFailed error: %v", err)
	}
	items := fake.Items(table)
	if st, ok := items[0]["status"].(*types.AttributeValueMemberS); !ok || st.Value != StatusFailed {
		t.Fatalf("status not updated to FAILED, got %+v", items[0]["status"])
	}
	if n, ok := items[0]["note"].(*types.AttributeValueMemberS); !ok || n.Value != "failed-reason" {
		t.Fatalf("note not set, got %+v", items[0]["note"])
	}
}

func TestMarkDone_UnknownKey(t *testing.T) {
	fake := awstest.NewDynamo().CreateTable(table, "idempotency_key", "")
	s := NewStore(fake, table, time.Hour)

	if err := s.MarkDone(context.Background(), "ghost", "{}", 200); err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if len(fake.Items(table)) != 0 {
		t.Fatalf("MarkDone must not create records")
	}
}
