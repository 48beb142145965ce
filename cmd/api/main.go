package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dobbygotcheva/recipe-theme-forum-sub001/internal/auth"
	"github.com/dobbygotcheva/recipe-theme-forum-sub001/internal/background"
	"github.com/dobbygotcheva/recipe-theme-forum-sub001/internal/cache"
	"github.com/dobbygotcheva/recipe-theme-forum-sub001/internal/config"
	"github.com/dobbygotcheva/recipe-theme-forum-sub001/internal/database"
	"github.com/dobbygotcheva/recipe-theme-forum-sub001/internal/handlers"
	custommw "github.com/dobbygotcheva/recipe-theme-forum-sub001/internal/middleware"
	"github.com/dobbygotcheva/recipe-theme-forum-sub001/internal/models"
	"github.com/dobbygotcheva/recipe-theme-forum-sub001/internal/repositories"
	"github.com/dobbygotcheva/recipe-theme-forum-sub001/internal/routes"
	"github.com/dobbygotcheva/recipe-theme-forum-sub001/internal/services"
	pkgauth "github.com/dobbygotcheva/recipe-theme-forum-sub001/pkg/auth"
	pkghttp "github.com/dobbygotcheva/recipe-theme-forum-sub001/pkg/http"
	pkglogger "github.com/dobbygotcheva/recipe-theme-forum-sub001/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	userRepo := repositories.NewUserRepository(db)

	// The revocation ledger backs every session check. Redis entries expire on
	// their own; the in-memory fallback needs the periodic sweep.
	var ledger auth.RevocationLedger
	var cleanupManager *background.CleanupManager

	redisClient, err := cache.NewClient(&cfg.Redis, logger)
	if err != nil {
		if cfg.Server.Env == "production" {
			logger.Error("redis is required in production", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Warn("redis unavailable, using in-memory revocation ledger", slog.Any("error", err))
		memLedger := repositories.NewMemoryRevocationLedger()
		ledger = memLedger
		cleanupManager = background.NewCleanupManager(memLedger, logger, cfg.Auth.CleanupInterval)
	} else {
		defer redisClient.Close()
		ledger = repositories.NewRedisRevocationLedger(redisClient)
	}

	tokenManager := auth.NewTokenManager(
		cfg.Auth.AccessTokenSecret,
		cfg.Auth.RefreshTokenSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)

	auditLogger := pkglogger.NewAuditLogger(logger)

	lockoutService := services.NewLockoutService(userRepo, services.LockoutConfig{
		Threshold: cfg.Auth.LockoutThreshold,
		Duration:  cfg.Auth.LockoutDuration,
	}, logger, auditLogger)

	authService := services.NewAuthService(userRepo, tokenManager, ledger, lockoutService, logger, auditLogger)

	cookieConfig := auth.CookieConfig{
		Domain:   cfg.Cookies.Domain,
		Secure:   cfg.Cookies.Secure,
		SameSite: cfg.Cookies.SameSite,
	}
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}

	authHandler := handlers.NewAuthHandler(authService, userRepo, cookieConfig, ipConfig)
	userHandler := handlers.NewUserHandler(userRepo)

	session := auth.NewSessionMiddleware(tokenManager, ledger, userRepo, cookieConfig, cfg.Auth.StoreTimeout, logger, auditLogger)

	// Bootstrap first admin user if configured
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminUser(ctx, userRepo, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	cancel()

	corsConfig := custommw.DefaultCORSConfig(cfg.Server.AllowedOrigins)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(custommw.CORS(corsConfig))
	router.Use(custommw.RequestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, session, authHandler, userHandler)

	router.Handle("/metrics", promhttp.Handler())

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	if cleanupManager != nil {
		go cleanupManager.Start(cleanupCtx)
	}

	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	if cleanupManager != nil {
		cleanupManager.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ensureAdminUser creates the first admin user if ADMIN_EMAIL and ADMIN_PASSWORD are set
func ensureAdminUser(ctx context.Context, userRepo *repositories.UserRepository, logger *slog.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin user creation")
		return nil
	}

	_, err := userRepo.GetByEmail(ctx, adminEmail)
	if err == nil {
		logger.Info("admin user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.User{
		Email:        adminEmail,
		PasswordHash: hashedPassword,
		Name:         "Admin",
		Role:         models.RoleAdmin,
	}

	if _, err := userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("admin user created successfully")
	return nil
}
