package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HammerMeetNail/firefruitmoney/internal/config"
	"github.com/HammerMeetNail/firefruitmoney/internal/database"
	"github.com/HammerMeetNail/firefruitmoney/internal/handlers"
	"github.com/HammerMeetNail/firefruitmoney/internal/logging"
	"github.com/HammerMeetNail/firefruitmoney/internal/middleware"
	"github.com/HammerMeetNail/firefruitmoney/internal/services"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *logging.Logger {
	logger := logging.New()
	if cfg.Server.LogFormat == "console" {
		logger = logging.NewConsole()
	}
	if cfg.Server.Debug {
		logger.SetLevel(logging.LevelDebug)
	}
	logging.SetDefault(logger)
	return logger
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cfg)
	logger.Info("Starting Fire Fruit Money server...", map[string]interface{}{
		"env":          cfg.Server.Environment,
		"prior_policy": cfg.Family.PriorFamilyPolicy,
	})

	logger.Info("Connecting to PostgreSQL", map[string]interface{}{
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
	})
	db, err := database.NewPostgresDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()

	logger.Info("Running database migrations...")
	if err := database.MigrateUp(cfg.Database, logger); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("Connecting to Redis", map[string]interface{}{
		"addr": cfg.Redis.Addr(),
	})
	redisDB, err := database.NewRedisDB(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisDB.Close() }()

	policy, err := services.ParsePriorFamilyPolicy(cfg.Family.PriorFamilyPolicy)
	if err != nil {
		return err
	}

	dbAdapter := services.NewPoolAdapter(db.Pool)
	userService := services.NewUserService(dbAdapter)
	authService := services.NewAuthService(userService)
	tokenManager := services.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL, redisDB.Client)
	familyService := services.NewFamilyService(dbAdapter)
	inviteService := services.NewInviteService(dbAdapter, policy)
	moneyService := services.NewMoneyService(dbAdapter)

	healthHandler := handlers.NewHealthHandler(db, redisDB)
	authHandler := handlers.NewAuthHandler(userService, authService, tokenManager)
	familyHandler := handlers.NewFamilyHandler(familyService)
	inviteHandler := handlers.NewInviteHandler(inviteService)
	moneyHandler := handlers.NewMoneyHandler(moneyService)

	authMiddleware := middleware.NewAuthMiddleware(tokenManager, userService)
	authLimiter := middleware.NewAuthRateLimiter(redisDB.Client, int64(cfg.RateLimit.AuthPerMinute))
	apiLimiter := middleware.NewAPIRateLimiter(redisDB.Client)

	credentials := func(h http.HandlerFunc) http.Handler {
		return authLimiter.Middleware(h)
	}
	private := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.RequireAuth(apiLimiter.Middleware(h))
	}

	mux := http.NewServeMux()

	// Health endpoints (no auth, no rate limit)
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /ready", healthHandler.Ready)
	mux.HandleFunc("GET /live", healthHandler.Live)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Account endpoints
	mux.Handle("POST /api/users/register", credentials(authHandler.Register))
	mux.Handle("POST /api/users/login", credentials(authHandler.Login))
	mux.Handle("POST /api/users/token_refresh", credentials(authHandler.TokenRefresh))
	mux.Handle("POST /api/users/token_verify", credentials(authHandler.TokenVerify))
	mux.Handle("GET /api/users/me", private(authHandler.Me))
	mux.Handle("PATCH /api/users/me", private(authHandler.UpdateMe))

	// Family endpoints
	mux.Handle("GET /api/users/families", private(familyHandler.List))
	mux.Handle("GET /api/users/families/{id}", private(familyHandler.Get))
	mux.Handle("GET /api/users/families/{id}/leave", private(familyHandler.Leave))
	mux.Handle("GET /api/users/families/{id}/delete", private(familyHandler.RemoveMember))

	// Invite endpoints
	mux.Handle("GET /api/users/invites", private(inviteHandler.List))
	mux.Handle("POST /api/users/invites", private(inviteHandler.Create))
	mux.Handle("GET /api/users/invites/{id}", private(inviteHandler.Get))
	mux.Handle("PUT /api/users/invites/{id}", private(inviteHandler.Respond))
	mux.Handle("PATCH /api/users/invites/{id}", private(inviteHandler.Respond))
	mux.Handle("DELETE /api/users/invites/{id}", private(inviteHandler.Delete))

	// Money endpoints
	mux.Handle("GET /api/money/category", private(moneyHandler.ListCategories))
	mux.Handle("POST /api/money/category", private(moneyHandler.CreateCategory))
	mux.Handle("GET /api/money/category/{id}", private(moneyHandler.GetCategory))
	mux.Handle("DELETE /api/money/category/{id}", private(moneyHandler.DeleteCategory))
	mux.Handle("GET /api/money/tag", private(moneyHandler.ListTags))
	mux.Handle("POST /api/money/tag", private(moneyHandler.CreateTag))
	mux.Handle("GET /api/money/tag/{id}", private(moneyHandler.GetTag))
	mux.Handle("DELETE /api/money/tag/{id}", private(moneyHandler.DeleteTag))
	mux.Handle("GET /api/money/expense", private(moneyHandler.ListExpenses))
	mux.Handle("POST /api/money/expense", private(moneyHandler.CreateExpense))
	mux.Handle("GET /api/money/expense/{id}", private(moneyHandler.GetExpense))
	mux.Handle("DELETE /api/money/expense/{id}", private(moneyHandler.DeleteExpense))

	// Build middleware chain (order matters: innermost first). Metrics wraps
	// the mux directly so it sees the matched pattern; the logger sits inside
	// Authenticate so it can tag the user.
	var handler http.Handler = mux
	handler = middleware.NewMetrics().Apply(handler)
	handler = middleware.NewRequestLogger(logger).Apply(handler)
	handler = authMiddleware.Authenticate(handler)
	handler = middleware.NewSecurityHeaders(cfg.Server.Secure).Apply(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Could not gracefully shutdown the server", map[string]interface{}{
				"error": err.Error(),
			})
		}
		close(done)
	}()

	logger.Info("Server listening", map[string]interface{}{"addr": addr})
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}
