package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/decred/slog"

	"github.com/imrishuroy/go-storefront/internal/idempotency"
	"github.com/imrishuroy/go-storefront/internal/orders"
)

// OrderStore reads and transitions orders.
type OrderStore interface {
	Get(ctx context.Context, orderID string) (*orders.Order, error)
	UpdateStatus(ctx context.Context, orderID, expectedStatus, newStatus string) error
}

// IdempotencyStore completes checkout idempotency records.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*idempotency.Record, error)
	MarkDone(ctx context.Context, key, responseBody string, responseStatus int) error
}

// Processor handles SQS messages and performs order lifecycle transitions.
type Processor struct {
	orders OrderStore
	idemp  IdempotencyStore
	log    slog.Logger
}

// NewProcessor creates a new worker processor.
func NewProcessor(orderStore OrderStore, idempStore IdempotencyStore, log slog.Logger) *Processor {
	return &Processor{
		orders: orderStore,
		idemp:  idempStore,
		log:    log,
	}
}

// Handle processes an SQS batch. Failed messages are reported individually
// so only they are redelivered.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			p.log.Errorf("Message %s failed: %v", rec.MessageId, err)
			resp.BatchItemFailures = append(resp.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
		}
	}
	return resp, nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var msg orders.PlacedMessage
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}
	if msg.OrderID == "" {
		return errors.New("message without order_id")
	}

	p.log.Debugf("Received order=%s idempotency_key=%s corr=%s",
		msg.OrderID, msg.IdempotencyKey, msg.CorrelationID)

	order, err := p.orders.Get(ctx, msg.OrderID)
	if err != nil {
		return fmt.Errorf("failed to fetch order: %w", err)
	}
	if order == nil {
		return fmt.Errorf("order not found: %s", msg.OrderID)
	}

	// PENDING -> CONFIRMED; redelivered messages find it already moved.
	err = p.orders.UpdateStatus(ctx, msg.OrderID, orders.StatusPending, orders.StatusConfirmed)
	switch {
	case errors.Is(err, orders.ErrStatusMismatch):
		current, gerr := p.orders.Get(ctx, msg.OrderID)
		if gerr != nil {
			return fmt.Errorf("failed to re-read order: %w", gerr)
		}
		if current == nil {
			return fmt.Errorf("order vanished: %s", msg.OrderID)
		}
		switch {
		case orders.IsCompleted(current.Status):
			p.log.Infof("Order %s already %s", msg.OrderID, current.Status)
			order = current
		case current.Status == orders.StatusCancelled:
			p.log.Infof("Order %s was cancelled, dropping message", msg.OrderID)
			return nil
		default:
			return fmt.Errorf("unexpected status for order=%s: %s", msg.OrderID, current.Status)
		}
	case err != nil:
		return fmt.Errorf("failed to confirm order: %w", err)
	default:
		order.Status = orders.StatusConfirmed
		p.log.Infof("Confirmed order %s", msg.OrderID)
	}

	return p.completeKey(ctx, msg.IdempotencyKey, *order)
}

// completeKey marks the idempotency record DONE when the API could not.
func (p *Processor) completeKey(ctx context.Context, key string, order orders.Order) error {
	if key == "" {
		return nil
	}
	rec, err := p.idemp.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to read idempotency record: %w", err)
	}
	if rec == nil || rec.Status != idempotency.StatusInProgress {
		return nil
	}
	body, err := json.Marshal(orders.NewReceipt(order))
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}
	if err := p.idemp.MarkDone(ctx, key, string(body), http.StatusCreated); err != nil {
		return fmt.Errorf("failed to update idempotency: %w", err)
	}
	return nil
}
