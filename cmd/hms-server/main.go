package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/carewell/hms/internal/config"
	"github.com/carewell/hms/internal/domain/audit"
	"github.com/carewell/hms/internal/domain/override"
	"github.com/carewell/hms/internal/domain/role"
	"github.com/carewell/hms/internal/platform/auth"
	"github.com/carewell/hms/internal/platform/db"
	"github.com/carewell/hms/internal/platform/metrics"
	"github.com/carewell/hms/internal/platform/middleware"
)

// OverrideConsumerAdapter adapts the override service to the
// auth.OverrideConsumer interface, avoiding circular imports between the
// auth and override packages.
type OverrideConsumerAdapter struct {
	svc *override.Service
}

func NewOverrideConsumerAdapter(svc *override.Service) *OverrideConsumerAdapter {
	return &OverrideConsumerAdapter{svc: svc}
}

// Consume implements auth.OverrideConsumer.
func (a *OverrideConsumerAdapter) Consume(ctx context.Context, token string) (*auth.OverrideRecord, error) {
	o, err := a.svc.Consume(ctx, token)
	if err != nil {
		return nil, err
	}
	return &auth.OverrideRecord{
		ID:           o.ID.String(),
		IssuedBy:     o.IssuedBy,
		Reason:       o.Reason,
		TargetUserID: o.TargetUserID,
	}, nil
}

// AuditRecorderAdapter adapts the audit service to auth.AuditRecorder.
type AuditRecorderAdapter struct {
	svc *audit.Service
}

func NewAuditRecorderAdapter(svc *audit.Service) *AuditRecorderAdapter {
	return &AuditRecorderAdapter{svc: svc}
}

// TryRecord implements auth.AuditRecorder.
func (a *AuditRecorderAdapter) TryRecord(ctx context.Context, entry auth.AuditEntry) {
	a.svc.TryRecord(ctx, &audit.Entry{
		ActorID:    entry.ActorID,
		Action:     entry.Action,
		Resource:   entry.Resource,
		ResourceID: entry.ResourceID,
		Meta:       entry.Meta,
		IP:         entry.IP,
	})
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "hms-server",
		Short: "Hospital operations authorization and audit core",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Metrics
	metrics.Init()

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", auth.OverrideTokenHeader},
	}))

	// Session middleware
	if cfg.IsDev() {
		e.Use(auth.DevSessionMiddleware(cfg.RootRoleName))
	} else {
		e.Use(auth.SessionMiddleware(auth.SessionConfig{
			SigningKey: []byte(cfg.AuthSigningKey),
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
		}))
	}

	// Services
	auditRepo := audit.NewRepo(pool)
	auditSvc := audit.NewService(auditRepo, logger)

	overrideRepo := override.NewRepo(pool)
	overrideSvc := override.NewService(overrideRepo, logger, cfg.OverrideTTL(), cfg.OverrideMaxPerHour)

	roleRepo := role.NewRepo(pool)
	roleSvc := role.NewService(roleRepo, logger, cfg.RootRoleName)

	// Authorization engine
	engine := auth.NewEngine(logger,
		NewOverrideConsumerAdapter(overrideSvc),
		NewAuditRecorderAdapter(auditSvc),
	)

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})

	// Prometheus scrape endpoint
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	// API routes
	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	role.NewHandler(roleSvc, auditSvc).RegisterRoutes(apiV1, engine)
	override.NewHandler(overrideSvc, auditSvc).RegisterRoutes(apiV1, engine)
	audit.NewHandler(auditSvc).RegisterRoutes(apiV1, engine)

	// Start server
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
