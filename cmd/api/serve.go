package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/hospital-api/internal/config"
	appointmentHandler "github.com/jwalitptl/hospital-api/internal/handler/appointment"
	authHandler "github.com/jwalitptl/hospital-api/internal/handler/auth"
	directoryHandler "github.com/jwalitptl/hospital-api/internal/handler/directory"
	"github.com/jwalitptl/hospital-api/internal/handler/health"
	promHandler "github.com/jwalitptl/hospital-api/internal/handler/prometheus"
	"github.com/jwalitptl/hospital-api/internal/middleware"
	"github.com/jwalitptl/hospital-api/internal/repository/postgres"
	"github.com/jwalitptl/hospital-api/internal/router"
	appointmentService "github.com/jwalitptl/hospital-api/internal/service/appointment"
	authService "github.com/jwalitptl/hospital-api/internal/service/auth"
	directoryService "github.com/jwalitptl/hospital-api/internal/service/directory"
	"github.com/jwalitptl/hospital-api/pkg/auth"
	"github.com/jwalitptl/hospital-api/pkg/cache"
	"github.com/jwalitptl/hospital-api/pkg/metrics"
)

func serveCmd() *cobra.Command {
	var migrateFirst bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if migrateFirst {
				if err := migrateUp(cmd.Context(), cfg); err != nil {
					return err
				}
			}
			return runServer(cfg)
		},
	}

	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func runServer(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	registry := prometheus.NewRegistry()
	m := metrics.New("hospital", registry)

	// Projection cache; Redis is optional
	var (
		views     appointmentService.ViewCache = cache.Nop{}
		cachePing health.Pinger
	)
	if cfg.Redis.URL != "" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			URL:    cfg.Redis.URL,
			Prefix: "hospital:views:",
			TTL:    cfg.Redis.TTL,
		})
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, serving views without cache")
		} else {
			defer rc.Close()
			views, cachePing = rc, rc
		}
	}

	// Initialize repositories
	base := postgres.NewBaseRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(base)
	doctorRepo := postgres.NewDoctorRepository(base)
	patientRepo := postgres.NewPatientRepository(base)
	userRepo := postgres.NewUserRepository(base)

	// Initialize services
	directorySvc := directoryService.NewService(doctorRepo, patientRepo, directoryService.Config{
		LookupTimeout:  cfg.Directory.LookupTimeout,
		CacheTTL:       cfg.Directory.CacheTTL,
		BreakerTimeout: cfg.Directory.BreakerTimeout,
		BreakerTrips:   cfg.Directory.BreakerTrips,
	}, m)
	store := appointmentService.NewStore(appointmentRepo, directorySvc)
	appointmentSvc := appointmentService.NewService(store, directorySvc, views, m, appointmentService.Config{
		MaxConcurrency: cfg.Directory.MaxConcurrency,
		LookupTimeout:  cfg.Directory.LookupTimeout,
	})
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	authSvc := authService.NewService(userRepo, jwtSvc, auth.NewBcryptHasher(cfg.Security.BcryptCost))

	routerConfig := router.RouterConfig{
		Mode:           cfg.Server.Mode,
		RequestTimeout: cfg.Server.RequestTimeout,
		CORSConfig:     middleware.DefaultCORSConfig(),
		Metrics:        m,
	}
	if len(cfg.Security.AllowedOrigins) > 0 {
		routerConfig.CORSConfig.AllowOrigins = cfg.Security.AllowedOrigins
	}
	if cfg.RateLimit.Enabled {
		routerConfig.RateLimit = rate.Limit(cfg.RateLimit.RequestsPerSecond)
		routerConfig.RateBurst = cfg.RateLimit.Burst
	}

	// Setup router
	r := router.NewRouter(
		middleware.NewAuthMiddleware(authSvc),
		authHandler.NewHandler(authSvc),
		appointmentHandler.NewHandler(appointmentSvc),
		directoryHandler.NewHandler(directorySvc),
		health.NewHandler(db, cachePing),
		promHandler.New(registry),
		routerConfig,
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server exited")
	return nil
}
