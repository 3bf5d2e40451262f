package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/campuskit/timetable-portal/internal/auth"
	"github.com/campuskit/timetable-portal/internal/background"
	"github.com/campuskit/timetable-portal/internal/config"
	"github.com/campuskit/timetable-portal/internal/database"
	"github.com/campuskit/timetable-portal/internal/geo"
	"github.com/campuskit/timetable-portal/internal/handlers"
	middlewareCustom "github.com/campuskit/timetable-portal/internal/middleware"
	"github.com/campuskit/timetable-portal/internal/repositories"
	"github.com/campuskit/timetable-portal/internal/routes"
	"github.com/campuskit/timetable-portal/internal/services"
	httputil "github.com/campuskit/timetable-portal/pkg/http"
	pkglogger "github.com/campuskit/timetable-portal/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Repositories
	studentRepo := repositories.NewStudentRepository(db)
	adminRepo := repositories.NewAdminRepository(db)
	activityRepo := repositories.NewActivityLogRepository(db)
	revokeRepo := repositories.NewTokenRevocationRepository(db)

	cleanupManager := background.NewCleanupManager(revokeRepo, logger, cfg.Auth.CleanupInterval)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	auditLogger := pkglogger.NewAuditLogger(logger)

	// Geo lookups are optional; without a database logins just record the bare IP
	var locator geo.Locator = geo.NopLocator{}
	if cfg.Geo.MMDBPath != "" {
		maxmind, err := geo.NewMaxMindLocator(cfg.Geo.MMDBPath, logger)
		if err != nil {
			logger.Error("failed to open geoip database", slog.Any("error", err))
			os.Exit(1)
		}
		defer maxmind.Close()
		locator = maxmind
	}

	var emailService services.EmailService
	if cfg.Email.Provider == "ses" {
		emailService, err = services.NewSESEmailService(context.Background(), cfg.Email, logger)
		if err != nil {
			logger.Error("failed to initialize email service", slog.Any("error", err))
			os.Exit(1)
		}
	} else {
		emailService = services.NewSMTPEmailService(cfg.Email, logger)
	}

	// Services
	activityService := services.NewActivityService(activityRepo, studentRepo, logger)
	authService := services.NewAuthService(
		studentRepo, tokenManager, revokeRepo, activityService,
		emailService, locator, auditLogger, logger,
		cfg.Auth.OTPLength, cfg.Auth.OTPExpiry,
	)
	adminService := services.NewAdminService(
		adminRepo, studentRepo, tokenManager, revokeRepo, activityService,
		auditLogger, logger,
		cfg.Auth.MaxLoginAttempts, cfg.Auth.LockoutDuration,
	)

	// Bootstrap admin account if configured
	bootCtx, bootCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminAccount(bootCtx, adminService, logger); err != nil {
		logger.Error("failed to ensure admin account", slog.Any("error", err))
	}
	bootCancel()

	ipConfig := &httputil.IPConfig{TrustedProxies: trustedProxies()}

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, ipConfig, logger)
	studentHandler := handlers.NewStudentHandler(authService, logger)
	adminHandler := handlers.NewAdminHandler(adminService, activityService, ipConfig, logger)

	guard := auth.NewMiddleware(tokenManager, revokeRepo, studentRepo, adminRepo, logger,
		cfg.Server.Env == "production")

	// Router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.RequestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, authHandler, studentHandler, adminHandler, guard)

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
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	cleanupManager.Start(cleanupCtx)

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
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// ensureAdminAccount provisions the first super admin when ADMIN_USERNAME and
// ADMIN_PASSWORD are set
func ensureAdminAccount(ctx context.Context, adminService *services.AdminService, logger *slog.Logger) error {
	username := os.Getenv("ADMIN_USERNAME")
	password := os.Getenv("ADMIN_PASSWORD")

	if username == "" || password == "" {
		logger.Info("no ADMIN_USERNAME or ADMIN_PASSWORD set, skipping admin bootstrap")
		return nil
	}

	name := os.Getenv("ADMIN_NAME")
	if name == "" {
		name = "Administrator"
	}

	return adminService.EnsureSuperAdmin(ctx, username, password, name, os.Getenv("ADMIN_EMAIL"))
}

func trustedProxies() []string {
	raw := os.Getenv("TRUSTED_PROXIES")
	if raw == "" {
		return nil
	}

	var proxies []string
	for _, cidr := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(cidr); trimmed != "" {
			proxies = append(proxies, trimmed)
		}
	}
	return proxies
}
