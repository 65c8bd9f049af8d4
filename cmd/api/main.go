package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/arjunmehta/cartly-backend/api/routes"
	"github.com/arjunmehta/cartly-backend/internal/auth"
	cartsvc "github.com/arjunmehta/cartly-backend/internal/cart"
	"github.com/arjunmehta/cartly-backend/internal/categories"
	"github.com/arjunmehta/cartly-backend/internal/orders"
	"github.com/arjunmehta/cartly-backend/internal/products"
	"github.com/arjunmehta/cartly-backend/internal/reviews"
	"github.com/arjunmehta/cartly-backend/internal/users"
	"github.com/arjunmehta/cartly-backend/pkg/auth/session"
	"github.com/arjunmehta/cartly-backend/pkg/config"
	"github.com/arjunmehta/cartly-backend/pkg/db"
	"github.com/arjunmehta/cartly-backend/pkg/logger"
	"github.com/arjunmehta/cartly-backend/pkg/metrics"
	"github.com/arjunmehta/cartly-backend/pkg/migrate"
	"github.com/arjunmehta/cartly-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	aggregateMetrics := metrics.NewAggregateMetrics(prometheus.DefaultRegisterer)

	usersRepo := users.NewRepository(dbClient.DB())
	categoriesRepo := categories.NewRepository(dbClient.DB())
	productsRepo := products.NewRepository(dbClient.DB())
	reviewsRepo := reviews.NewRepository(dbClient.DB())
	cartRepo := cartsvc.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	userService, err := users.NewService(users.ServiceParams{Repo: usersRepo})
	if err != nil {
		logg.Error(context.Background(), "failed to create user service", err)
		os.Exit(1)
	}

	categoryService, err := categories.NewService(categories.ServiceParams{
		Repo:   categoriesRepo,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create category service", err)
		os.Exit(1)
	}

	productService, err := products.NewService(products.ServiceParams{
		DB:         dbClient,
		Repo:       productsRepo,
		Categories: categoriesRepo,
		Logger:     logg,
		Metrics:    aggregateMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	reviewService, err := reviews.NewService(reviews.ServiceParams{
		DB:              dbClient,
		Repo:            reviewsRepo,
		Logger:          logg,
		Metrics:         aggregateMetrics,
		ProductsFactory: reviews.CatalogAggregates(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create review service", err)
		os.Exit(1)
	}

	cartService, err := cartsvc.NewService(cartsvc.ServiceParams{
		DB:       dbClient,
		Repo:     cartRepo,
		Products: productsRepo,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(orders.ServiceParams{
		DB:       dbClient,
		Repo:     ordersRepo,
		Products: productsRepo,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.Deps{
		Config:          cfg,
		Logger:          logg,
		Database:        dbClient,
		Redis:           redisClient,
		Sessions:        sessionManager,
		AuthService:     authService,
		RegisterService: registerService,
		UserService:     userService,
		CategoryService: categoryService,
		ProductService:  productService,
		ReviewService:   reviewService,
		CartService:     cartService,
		OrderService:    orderService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		timeout, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(timeout); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}
}
