package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/decred/slog"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/imrishuroy/go-storefront/internal/aws"
	"github.com/imrishuroy/go-storefront/internal/cache"
	"github.com/imrishuroy/go-storefront/internal/catalog"
	"github.com/imrishuroy/go-storefront/internal/config"
	"github.com/imrishuroy/go-storefront/internal/handlers"
	"github.com/imrishuroy/go-storefront/internal/idempotency"
	"github.com/imrishuroy/go-storefront/internal/logging"
	"github.com/imrishuroy/go-storefront/internal/orders"
	"github.com/imrishuroy/go-storefront/internal/redirect"
	"github.com/imrishuroy/go-storefront/internal/reviews"
	"github.com/imrishuroy/go-storefront/internal/session"
	"github.com/imrishuroy/go-storefront/internal/settings"
	"github.com/imrishuroy/go-storefront/internal/users"
)

// sessionTTL bounds tokens issued by this service; provider tokens carry
// their own expiry.
const sessionTTL = 24 * time.Hour

func setupRouter(log slog.Logger, deps handlers.Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), handlers.RequestLogger(log))

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.Register(r, deps)

	return r
}

// settingsCache connects the optional Redis cache. An unreachable server is
// logged and kept: cache errors only cost a store read.
func settingsCache(ctx context.Context, cfg *config.Config, log slog.Logger) settings.Cache {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warnf("Redis at %s unreachable: %v", cfg.RedisAddr, err)
	}
	return cache.NewSettingsCache(client)
}

func run() int {
	cfg, err := config.Load()
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
	apiLog := backend.Logger(logging.SubsysAPI)
	storeLog := backend.Logger(logging.SubsysStore)
	seedLog := backend.Logger(logging.SubsysSeed)

	ctx := context.Background()
	clients, err := aws.NewAWSClients(ctx, cfg.AWSRegion, cfg.EndpointOverride)
	if err != nil {
		apiLog.Criticalf("Failed to init aws clients: %v", err)
		return 1
	}
	metrics := aws.NewMetrics(clients.CloudWatch, cfg.MetricsNamespace, apiLog)

	settingsOpts := []settings.Option{settings.WithMetrics(metrics)}
	if c := settingsCache(ctx, cfg, storeLog); c != nil {
		settingsOpts = append(settingsOpts, settings.WithCache(c))
	}

	products := catalog.NewStore(clients.DynamoDB, cfg.ProductsTable)
	userStore := users.NewStore(clients.DynamoDB, cfg.UsersTable)
	reviewStore := reviews.NewStore(clients.DynamoDB, cfg.ReviewsTable)

	deps := handlers.Deps{
		Settings:    settings.NewStore(clients.DynamoDB, cfg.SettingsTable, storeLog, settingsOpts...),
		Products:    products,
		Orders:      orders.NewStore(clients.DynamoDB, cfg.OrdersTable, cfg.OrderItemsTable),
		Idempotency: idempotency.NewStore(clients.DynamoDB, cfg.IdempotencyTable, cfg.IdempotencyTTL),
		Reviews:     reviewStore,
		Users:       userStore,
		Seeder: reviews.NewSeeder(products, userStore, reviewStore, metrics, seedLog, reviews.SeederConfig{
			MinPerProduct: cfg.SeedMinPerProduct,
			MaxPerProduct: cfg.SeedMaxPerProduct,
			Categories:    cfg.SeedCategories,
		}),
		Publisher: aws.NewPublisher(clients.SQS, cfg.OrdersQueueURL),
		Metrics:   metrics,
		Sessions:  session.NewManager(cfg.SessionSecret, sessionTTL),
		Redirect:  redirect.New(cfg.SecureCookies),
		SignInURL: cfg.SignInURL,
		Log:       apiLog,
	}

	if !cfg.RunLocal {
		gin.SetMode(gin.ReleaseMode)
	}
	r := setupRouter(apiLog, deps)

	// RUN_LOCAL runs a plain HTTP server for development.
	if cfg.RunLocal {
		apiLog.Infof("Running local server on %s", cfg.ListenAddr)
		if err := r.Run(cfg.ListenAddr); err != nil {
			apiLog.Criticalf("Failed to run local server: %v", err)
			return 1
		}
		return 0
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
	return 0
}

func main() {
	os.Exit(run())
}
