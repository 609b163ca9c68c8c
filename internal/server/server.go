package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"nexusmc-api/internal/config"
	"nexusmc-api/internal/database"
	"nexusmc-api/internal/handlers"
	"nexusmc-api/internal/middleware"
	"nexusmc-api/internal/repositories"
	"nexusmc-api/internal/services"
	"nexusmc-api/internal/validation"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maintenanceInterval = time.Hour

// Server owns the HTTP router and the background loops that support it.
type Server struct {
	echo        *echo.Echo
	cfg         *config.Config
	purges      []purgeJob
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

// purgeJob deletes rows that can no longer matter and reports how many went.
type purgeJob struct {
	table string
	run   func() (int64, error)
}

// New wires repositories, services and handlers on top of db and registers every route.
// The cipher protects stored Plaid access tokens.
func New(cfg *config.Config, db *database.DB, cipher services.TokenCipherInterface, logger *slog.Logger) (*Server, error) {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := services.NewPrometheusMetrics(registry)

	// repositories
	userRepo := repositories.NewUserRepository(db.DB)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db.DB)
	blacklistedTokenRepo := repositories.NewBlacklistedTokenRepository(db.DB)
	auditRepo := repositories.NewAuditLogRepository(db.DB)

	// services
	auditLogger := services.NewAuditLogger(logger)
	auditService := services.NewAuditService(auditRepo)
	tokenService := services.NewTokenService(&cfg.JWT)
	passwordService := services.NewPasswordService(cfg.Security)
	authService := services.NewAuthService(
		userRepo,
		refreshTokenRepo,
		auditRepo,
		blacklistedTokenRepo,
		passwordService,
		tokenService,
		metrics,
		cfg.Security,
		logger,
	)
	profileService := services.NewProfileService(userRepo, auditService, metrics, logger)

	provider := services.NewPlaidClient(cfg.Plaid, auditLogger, metrics, logger)
	source := services.NewTransactionSource(provider, cipher, auditLogger, logger)
	bankLinkService := services.NewBankLinkService(userRepo, provider, cipher, source, auditService, metrics, logger)

	classifier := services.NewHuggingFaceClassifier(cfg.HuggingFace, auditLogger, metrics, logger)
	categorizer := services.NewCategorizer(classifier, auditLogger, metrics, logger, cfg.HuggingFace.MaxConcurrency)
	dashboardService := services.NewDashboardService(source, categorizer, services.NewAggregator(), auditLogger, metrics, cfg.Dashboard)
	investmentService := services.NewInvestmentService()

	if !provider.Enabled() {
		logger.Warn("PLAID_CLIENT_ID or PLAID_SECRET not set, bank data will be served from mock transactions")
	}
	if cfg.HuggingFace.APIKey == "" {
		logger.Warn("HUGGINGFACE_API_KEY not set, every transaction will be categorized as Other")
	}

	// handlers
	healthHandler := handlers.NewHealthCheckHandler(sqlDB)
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(profileService, auditService)
	plaidHandler := handlers.NewPlaidHandler(bankLinkService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	investmentHandler := handlers.NewInvestmentHandler(investmentService)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.Default()
	e.HTTPErrorHandler = middleware.NewErrorHandler(logger, registry).Handle

	rateLimiter := middleware.NewRateLimiter(cfg.Security.RateLimitPerSecond, cfg.Security.RateLimitBurst)

	e.Use(middleware.RequestID())
	e.Use(middleware.PanicRecovery(logger))
	e.Use(requestLogger(logger))
	e.Use(middleware.SecurityHeaders(!cfg.IsDevelopment()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.Server.CORSAllowOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderXRequestID},
		ExposeHeaders:    []string{handlers.ProvenanceHeader, middleware.TraceIDHeader},
		AllowCredentials: true,
	}))
	e.Use(echomw.BodyLimit("1M"))

	e.GET("/", healthHandler.Root)
	e.GET("/health", healthHandler.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))

	api := e.Group("", rateLimiter.Middleware())

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/token", authHandler.Token)
	auth.POST("/refresh", authHandler.RefreshToken)
	auth.POST("/logout", authHandler.Logout)

	protected := api.Group("", middleware.RequireAuth(tokenService, blacklistedTokenRepo, userRepo))

	users := protected.Group("/users")
	users.GET("/me", userHandler.GetMe)
	users.PUT("/me", userHandler.UpdateMe)
	users.GET("/me/activity", userHandler.GetActivity)

	plaid := protected.Group("/plaid")
	plaid.POST("/create_link_token", plaidHandler.CreateLinkToken)
	plaid.POST("/set_access_token", plaidHandler.SetAccessToken)
	plaid.GET("/transactions", plaidHandler.GetTransactions)

	protected.GET("/dashboard/data", dashboardHandler.GetData)
	protected.GET("/investment/demo_data", investmentHandler.GetData)

	purges := []purgeJob{
		{table: "refresh_tokens", run: refreshTokenRepo.DeleteExpired},
		{table: "blacklisted_tokens", run: blacklistedTokenRepo.DeleteExpired},
	}
	if retention := cfg.Security.AuditRetention; retention > 0 {
		purges = append(purges, purgeJob{table: "audit_logs", run: func() (int64, error) {
			return auditRepo.DeleteOlderThan(retention)
		}})
	}

	return &Server{
		echo:        e,
		cfg:         cfg,
		purges:      purges,
		rateLimiter: rateLimiter,
		logger:      logger,
	}, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests within the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Server.Address(),
		Handler:           s.echo,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}

	go s.rateLimiter.Run(ctx)
	go s.maintain(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting NexusMC API", "address", httpServer.Addr, "environment", s.cfg.Server.Environment)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server", "timeout", s.cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// maintain purges expired tokens and audit rows past AUDIT_RETENTION once per interval.
func (s *Server) maintain(ctx context.Context) {
	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.purge(ctx)
		}
	}
}

func (s *Server) purge(ctx context.Context) {
	for _, job := range s.purges {
		removed, err := job.run()
		if err != nil {
			s.logger.WarnContext(ctx, "purge failed", "table", job.table, "error", err)
			continue
		}
		if removed > 0 {
			s.logger.InfoContext(ctx, "purged rows", "table", job.table, "count", removed)
		}
	}
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		Skipper:     func(c echo.Context) bool { return c.Path() == "/health" || c.Path() == "/metrics" },
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}

			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", v.RemoteIP),
				slog.String("trace_id", middleware.GetTraceID(c)),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}

			logger.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	})
}
