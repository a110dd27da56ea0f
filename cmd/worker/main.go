package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/imrishuroy/go-storefront/internal/aws"
	"github.com/imrishuroy/go-storefront/internal/config"
	"github.com/imrishuroy/go-storefront/internal/idempotency"
	"github.com/imrishuroy/go-storefront/internal/logging"
	"github.com/imrishuroy/go-storefront/internal/orders"
)

func run() int {
	cfg, err := config.LoadWorker()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	backend, err := logging.NewBackend(cfg.LogFile, cfg.LogLevel, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		return 1
	}
	defer backend.Close()
	log := backend.Logger(logging.SubsysWorker)

	ctx := context.Background()
	clients, err := aws.NewAWSClients(ctx, cfg.AWSRegion, cfg.EndpointOverride)
	if err != nil {
		log.Criticalf("Failed to init aws clients: %v", err)
		return 1
	}
	p := NewProcessor(
		orders.NewStore(clients.DynamoDB, cfg.OrdersTable, cfg.OrderItemsTable),
		idempotency.NewStore(clients.DynamoDB, cfg.IdempotencyTable, cfg.IdempotencyTTL),
		log,
	)

	// If RUN_LOCAL=true, process a single simulated SQS event.
	if cfg.RunLocal {
		body := os.Getenv("LOCAL_SQS_BODY")
		if body == "" {
			body = `{"order_id":"local-order-1","idempotency_key":"local-key-1"}`
		}
		ev := events.SQSEvent{Records: []events.SQSMessage{{MessageId: "local-1", Body: body}}}
		resp, _ := p.Handle(ctx, ev)
		if len(resp.BatchItemFailures) > 0 {
			return 1
		}
		return 0
	}

	lambda.Start(p.Handle)
	return 0
}

func main() {
	os.Exit(run())
}
