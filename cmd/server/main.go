package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mvolkov/go_storefront/internal/cache"
	"github.com/mvolkov/go_storefront/internal/events"
	h "github.com/mvolkov/go_storefront/internal/http"
	"github.com/mvolkov/go_storefront/internal/metrics"
	"github.com/mvolkov/go_storefront/internal/repository"
	s "github.com/mvolkov/go_storefront/internal/service"
)

type Config struct {
	HTTPPort        string
	MongoURI        string
	MongoDBName     string
	RedisAddr       string
	RedisPassword   string
	KafkaBrokers    string
	JWTSecret       string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:     getEnv("MONGO_DB_NAME", "storefront"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:    getEnv("KAFKA_BROKERS", ""),
		JWTSecret:       getEnv("JWT_SECRET", "dev-secret-change-me"),
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
	ctx := context.Background()

	// MongoDB
	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	if err := repository.CreateIndexes(ctx, mongoDB); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}
	log.Printf("Connected to MongoDB at %s", cfg.MongoURI)

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Redis connection failed:", err)
	}
	log.Printf("Redis ping succeeded")

	// Kafka (optional)
	publisher := events.NewPublisher(cfg.KafkaBrokers)
	defer publisher.Close()
	if publisher.Enabled() {
		log.Printf("Kafka publisher enabled for brokers %s", cfg.KafkaBrokers)
	} else {
		log.Printf("Kafka publisher disabled (no brokers configured)")
	}

	// Repositories
	cartRepo := repository.NewCartRepository(mongoDB)
	productRepo := repository.NewProductRepository(mongoDB)
	orderRepo := repository.NewOrderRepository(mongoDB)
	userRepo := repository.NewUserRepository(mongoDB)
	bannerRepo := repository.NewBannerRepository(mongoDB)

	// Services
	cartCache := cache.NewRedisCache(redisClient)
	cartService := s.NewCartService(cartRepo, productRepo, cartCache)
	mergeService := s.NewMergeService(cartRepo, productRepo, cartCache)
	orderService := s.NewOrderService(orderRepo, productRepo, cartRepo, cartCache, publisher)
	catalogService := s.NewCatalogService(productRepo)
	bannerService := s.NewBannerService(bannerRepo)
	authService := s.NewAuthService(userRepo, []byte(cfg.JWTSecret))

	// Handlers
	m := metrics.New()
	cartHandler := h.NewCartHandler(cartService, mergeService)
	orderHandler := h.NewOrderHandler(orderService, m)
	productHandler := h.NewProductHandler(catalogService)
	bannerHandler := h.NewBannerHandler(bannerService)
	authHandler := h.NewAuthHandler(authService)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(m.Middleware)
	r.Use(h.AuthMiddleware(authService))

	adminOnly := h.RequireAdmin(authService)

	// Health check and metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/admin-login", authHandler.AdminLogin)
			r.With(h.RequireAuth).Get("/me", authHandler.Me)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.List)
			r.Get("/{productID}", productHandler.Get)
			r.With(adminOnly).Post("/", productHandler.Create)
			r.With(adminOnly).Put("/{productID}", productHandler.Update)
			r.With(adminOnly).Delete("/{productID}", productHandler.Delete)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Post("/", cartHandler.AddItem)
			r.Put("/{productID}", cartHandler.UpdateQuantity)
			r.Delete("/{productID}", cartHandler.RemoveItem)
			r.Post("/clear", cartHandler.ClearCart)
			r.With(h.RequireAuth).Post("/merge", cartHandler.Merge)
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(h.RequireAuth).Post("/", orderHandler.PlaceOrder)
			r.With(h.RequireAuth).Get("/", orderHandler.ListOrders)
			r.With(h.RequireAuth).Get("/{orderID}", orderHandler.GetOrder)
		})

		r.Route("/banners", func(r chi.Router) {
			r.Get("/active", bannerHandler.Active)
			r.With(adminOnly).Post("/", bannerHandler.Create)
			r.With(adminOnly).Get("/", bannerHandler.List)
			r.With(adminOnly).Get("/{bannerID}", bannerHandler.Get)
			r.With(adminOnly).Put("/{bannerID}", bannerHandler.Update)
			r.With(adminOnly).Delete("/{bannerID}", bannerHandler.Delete)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(adminOnly)
			r.Get("/orders", orderHandler.ListAllOrders)
			r.Put("/orders/{orderID}/status", orderHandler.UpdateStatus)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Storefront server starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	if err := mongoDB.Client().Disconnect(context.Background()); err != nil {
		log.Printf("mongo disconnect error: %v", err)
	}
	log.Println("server exited")
}
