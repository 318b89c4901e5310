package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"islandstay/internal/app/scheduling"
	domainbooking "islandstay/internal/domain/booking"
	domainlistings "islandstay/internal/domain/listings"
	"islandstay/internal/domain/pricing"
	"islandstay/internal/domain/shared/money"
	domainusers "islandstay/internal/domain/users"
	"islandstay/internal/infra/broker/kafka"
	"islandstay/internal/infra/config"
	mongostore "islandstay/internal/infra/db/mongo"
	ginserver "islandstay/internal/infra/http/gin"
	"islandstay/internal/infra/obs"
	infraoutbox "islandstay/internal/infra/outbox"
	"islandstay/internal/infra/storage/memory"
	"islandstay/internal/infra/storage/redisguard"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	fixturesPath := cfg.FixturesPath
	if fixturesPath == "" {
		fixturesPath = defaultFixturesPath()
	}
	if err := app.loadFixtures(ctx, fixturesPath, logger); err != nil {
		logger.Warn("fixtures load failed", "error", err, "path", fixturesPath)
	}

	if app.worker != nil {
		go func() {
			if err := app.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers ginserver.Handlers
	listings domainlistings.Repository
	users    domainusers.Repository
	worker   *infraoutbox.Worker
	ready    func() error
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (application, error) {
	var (
		listingsRepo domainlistings.Repository
		usersRepo    domainusers.Repository
		ledger       domainbooking.CapacityLedger
		ready        = func() error { return nil }
	)

	if cfg.MongoURI != "" {
		client, err := mongostore.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return application{}, fmt.Errorf("mongo connect: %w", err)
		}
		listingsRepo = mongostore.NewListingRepository(client.DB)
		usersRepo = mongostore.NewUserRepository(client.DB)
		ledger = mongostore.NewLedger(client.DB)
		ready = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}
		logger.Info("capacity ledger: mongo", "db", cfg.MongoDB)
	} else {
		memListings := memory.NewListingRepository()
		listingsRepo = memListings
		usersRepo = memory.NewUserRepository()
		ledger = memory.NewLedger(memListings)
		logger.Info("capacity ledger: in-memory")
	}

	svc := &scheduling.Service{Ledger: ledger, Logger: logger}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			return application{}, fmt.Errorf("redis connect: %w", err)
		}
		svc.Guard = redisguard.New(client)
		logger.Info("admission guard: redis", "addr", cfg.RedisAddr)
	}

	var worker *infraoutbox.Worker
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			return application{}, fmt.Errorf("kafka connect: %w", err)
		}
		store := memory.NewOutbox()
		svc.Outbox = store
		worker = &infraoutbox.Worker{
			Store:       store,
			Producer:    producer,
			Logger:      logger,
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Backoff:     cfg.RetryBackoff,
		}
		logger.Info("event publishing: kafka", "brokers", cfg.KafkaBrokers)
	}

	pricingSvc := pricing.NewService(cfg.LocalCountry)

	return application{
		handlers: ginserver.Handlers{
			Booking: ginserver.BookingHandler{
				Scheduling: svc,
				Pricing:    pricingSvc,
				Listings:   listingsRepo,
				Users:      usersRepo,
			},
			Availability: ginserver.AvailabilityHandler{
				Scheduling: svc,
			},
			Listing: ginserver.ListingHandler{
				Listings: listingsRepo,
			},
		},
		listings: listingsRepo,
		users:    usersRepo,
		worker:   worker,
		ready:    ready,
	}, nil
}

func (a application) loadFixtures(ctx context.Context, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}

	var fixtures struct {
		Listings []listingFixture `json:"listings"`
		Users    []userFixture    `json:"users"`
	}
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now()
	for _, fx := range fixtures.Users {
		user, err := domainusers.NewUser(domainusers.CreateParams{
			ID:            domainusers.UserID(fx.ID),
			Email:         fx.Email,
			FullName:      fx.FullName,
			Role:          domainusers.Role(fx.Role),
			OriginCountry: fx.OriginCountry,
			Now:           now,
		})
		if err != nil {
			logger.Error("user fixture invalid", "user_id", fx.ID, "error", err)
			continue
		}
		if err := a.users.Save(ctx, user); err != nil {
			logger.Error("cannot store fixture user", "user_id", fx.ID, "error", err)
		}
	}
	for _, fx := range fixtures.Listings {
		inv, err := domainlistings.ParseInventoryType(fx.InventoryType)
		if err != nil {
			logger.Error("listing fixture invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		listing, err := domainlistings.NewListing(domainlistings.CreateParams{
			ID:            domainlistings.ListingID(fx.ID),
			Host:          domainlistings.HostID(fx.Host),
			Title:         fx.Title,
			Description:   fx.Description,
			Location:      fx.Location,
			InventoryType: inv,
			Capacity:      fx.Capacity,
			LocalPrice:    money.Must(fx.LocalPriceCents, fx.LocalCurrency),
			ForeignPrice:  money.Must(fx.ForeignPriceCents, fx.ForeignCurrency),
			Now:           now,
		})
		if err != nil {
			logger.Error("listing fixture invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		if err := a.listings.Save(ctx, listing); err != nil {
			logger.Error("cannot store fixture listing", "listing_id", fx.ID, "error", err)
			continue
		}
		logger.Info("listing fixture imported", "listing_id", listing.ID)
	}
	return nil
}

type listingFixture struct {
	ID                string `json:"id"`
	Host              string `json:"host"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	Location          string `json:"location"`
	InventoryType     string `json:"inventory_type"`
	Capacity          int    `json:"capacity"`
	LocalPriceCents   int64  `json:"local_price_cents"`
	LocalCurrency     string `json:"local_currency"`
	ForeignPriceCents int64  `json:"foreign_price_cents"`
	ForeignCurrency   string `json:"foreign_currency"`
}

type userFixture struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	FullName      string `json:"full_name"`
	Role          string `json:"role"`
	OriginCountry string `json:"origin_country"`
}

func defaultFixturesPath() string {
	if exe, err := os.Executable(); err == nil {
		return filepath.Join(filepath.Dir(exe), "fixtures", "seed.json")
	}
	return filepath.Join("fixtures", "seed.json")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
