package main // Entry point package

import (
	"context" // Context for the background sweeper
	"log"     // Logging library

	"github.com/joho/godotenv"    // Loads .env files in development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/event-ticketing/internal/config"     // Internal config loader
	"github.com/iliyamo/event-ticketing/internal/handler"    // HTTP handlers
	"github.com/iliyamo/event-ticketing/internal/ledger"     // Inventory ledger
	"github.com/iliyamo/event-ticketing/internal/middleware" // Rate limiting and caching
	"github.com/iliyamo/event-ticketing/internal/payment"    // Stripe checkout provider
	"github.com/iliyamo/event-ticketing/internal/queue"      // RabbitMQ confirmation consumer
	"github.com/iliyamo/event-ticketing/internal/repository" // Store access
	"github.com/iliyamo/event-ticketing/internal/router"     // Route registration
	"github.com/iliyamo/event-ticketing/internal/sweeper"    // Pending reservation expiry
)

func main() {
	_ = godotenv.Load() // Load .env if present; real env vars win

	cfg := config.Load() // Load environment config

	// Pick the document store.  Mongo is the production driver; the
	// in-memory driver exists for local development and tests.
	var (
		events  repository.EventRepo
		tickets repository.TicketRepo
		keys    repository.APIKeyRepo
	)
	switch cfg.StoreDriver {
	case "memory":
		log.Println("store: using in-memory driver (data is not persisted)")
		events = repository.NewMemoryEventRepo()
		tickets = repository.NewMemoryTicketRepo()
		keys = repository.NewMemoryAPIKeyRepo()
	default:
		client, err := config.NewMongoClient(cfg.MongoURI)
		if err != nil {
			log.Fatalf("mongo: %v", err)
		}
		db := client.Database(cfg.MongoDB)
		events = repository.NewMongoEventRepo(db)
		tickets = repository.NewMongoTicketRepo(db)
		keys = repository.NewMongoAPIKeyRepo(db)
	}

	led := ledger.New(events, tickets, ledger.Options{}) // Defaults: 5 attempts, 10ms backoff base

	// Stripe is optional.  Without credentials only free events can be
	// purchased; the handlers answer 503 for paid ones.
	var payments payment.Provider
	if cfg.StripeSecretKey != "" {
		payments = payment.NewStripeProvider(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.BaseURL)
	} else {
		log.Println("payments: no STRIPE_SECRET_KEY set, paid checkout disabled")
	}

	e := echo.New() // Create Echo instance

	// Redis backs the token-bucket rate limiter and the response cache.
	// Both degrade to pass-through when Redis is unreachable.
	var cacheMW []echo.MiddlewareFunc
	if rdb := config.NewRedisClient(); rdb != nil {
		rlCfg := config.LoadRateLimitConfig()
		if rlCfg.Enabled {
			e.Use(middleware.NewTokenBucket(rlCfg, rdb))
		}
		cacheCfg := config.LoadCacheConfig()
		if cacheCfg.Enabled {
			cacheMW = append(cacheMW, middleware.NewRedisCache(cacheCfg, rdb))
		}
	}

	pub := handler.NewPublicHandler(events, tickets)
	org := handler.NewOrganizerHandler(events, tickets, keys)
	buy := handler.NewPurchaseHandler(events, tickets, led, payments)
	partner := handler.NewPartnerHandler(events, tickets, led, payments)

	router.RegisterRoutes(e) // Register application routes
	router.RegisterPublic(e, pub, cacheMW...)
	router.RegisterOrganizer(e, org, cfg.JWTSecret)
	router.RegisterPurchase(e, buy, cfg.JWTSecret)
	router.RegisterPartner(e, partner, keys)
	if payments != nil {
		hook := handler.NewWebhookHandler(events, tickets, led, payments)
		router.RegisterPayments(e, hook)
	}

	// Expire stale pending reservations in the background so abandoned
	// checkouts return their units to the pool.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sweeper.New(events, led, cfg.SweepInterval, cfg.ReservationTTL).Run(ctx)

	// Consume ticket.confirmed messages and append them to the delivery
	// log.  The consumer reconnects on its own; a permanent failure only
	// loses notifications, not sales.
	go func() {
		if err := queue.StartTicketConsumer(); err != nil {
			log.Printf("queue: consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
