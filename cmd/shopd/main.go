package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/keshavthakur30/SweetShop/internal/cache"
	"github.com/keshavthakur30/SweetShop/internal/catalog"
	"github.com/keshavthakur30/SweetShop/internal/events"
	"github.com/keshavthakur30/SweetShop/internal/history"
	"github.com/keshavthakur30/SweetShop/internal/session"
	"github.com/keshavthakur30/SweetShop/internal/shop"
	h "github.com/keshavthakur30/SweetShop/internal/transport/http"
)

type Config struct {
	HTTPPort        string
	CatalogURL      string
	Username        string
	Password        string
	RedisAddr       string // empty disables cart persistence
	KafkaBroker     string // empty disables checkout events
	HistoryDBPath   string
	MigrationsPath  string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		CatalogURL:      getEnv("CATALOG_URL", "http://localhost:8000"),
		Username:        getEnv("SHOP_USERNAME", ""),
		Password:        getEnv("SHOP_PASSWORD", ""),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		KafkaBroker:     getEnv("KAFKA_BROKER", ""),
		HistoryDBPath:   getEnv("HISTORY_DB", "sweetshop.db"),
		MigrationsPath:  getEnv("MIGRATIONS_PATH", "migrations"),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	tokens := session.NewManager(cfg.CatalogURL, session.Credentials{
		Username: cfg.Username,
		Password: cfg.Password,
	})
	client := catalog.NewClient(cfg.CatalogURL, tokens)

	var cartCache cache.CartCache = cache.Nop{}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		cartCache = cache.NewRedisCache(redisClient)
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.KafkaBroker != "" {
		kafkaPublisher := events.NewKafkaPublisher(cfg.KafkaBroker)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	historyRepo, err := history.NewRepository(cfg.HistoryDBPath)
	if err != nil {
		logger.Fatal("failed to open history database", zap.Error(err))
	}
	defer historyRepo.Close()
	if err := historyRepo.RunMigrations(cfg.MigrationsPath); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	svc := shop.NewService(client, cartCache, historyRepo, publisher, logger)
	handler := h.NewShopHandler(svc, logger)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sessions", handler.OpenSession)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireSession)
			r.Get("/sweets", handler.ListSweets)
			r.Post("/sweets/{sweet_id}/buy", handler.BuyNow)
			r.Post("/catalog/refresh", handler.RefreshCatalog)
			r.Route("/cart", func(r chi.Router) {
				r.Get("/", handler.GetCart)
				r.Delete("/", handler.ClearCart)
				r.Post("/items", handler.AddItem)
				r.Put("/items/{sweet_id}", handler.UpdateQuantity)
				r.Delete("/items/{sweet_id}", handler.RemoveItem)
			})
			r.Post("/checkout", handler.Checkout)
			r.Get("/checkout/history", handler.History)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("shopd listening", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
}
