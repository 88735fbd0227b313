package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/ippgi/ippgi-prices/internal/infrastructure/config"
	"github.com/ippgi/ippgi-prices/internal/infrastructure/migration"
	"github.com/ippgi/ippgi-prices/internal/infrastructure/scheduler"
	"github.com/ippgi/ippgi-prices/internal/interfaces/cli/bootstrap"
	httpRouter "github.com/ippgi/ippgi-prices/internal/interfaces/http"
	"github.com/ippgi/ippgi-prices/internal/interfaces/http/handlers"
	"github.com/ippgi/ippgi-prices/internal/shared/goroutine"
)

var (
	env         string
	autoMigrate bool
)

func NewCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP server and the price scheduler",
		Long:  `Serve the price API and run the hourly refresh and midnight snapshot jobs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), version)
		},
	}

	cmd.Flags().StringVarP(&env, "env", "e", "", "Environment (development, test, production)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Apply pending database migrations on startup")

	return cmd
}

func run(ctx context.Context, version string) error {
	app, err := bootstrap.New(ctx, bootstrap.Options{Env: env, WithServices: true})
	if err != nil {
		return err
	}
	defer app.Close()

	cfg := app.Config
	log := app.Logger

	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Auth.UsesDefaultSecret() {
		log.Warnw("admin tokens are signed with the default JWT secret, set auth.jwt_secret before exposing the server",
			"mode", cfg.Server.Mode)
	}

	log.Infow("starting server",
		"environment", env,
		"version", version,
		"timezone", cfg.Schedule.Timezone,
		"auto_migrate", autoMigrate,
	)

	if autoMigrate {
		if err := migration.NewMigrator(log).Up(app.DB); err != nil {
			return fmt.Errorf("auto-migration failed: %w", err)
		}
	}

	gin.SetMode(mapEnvToGinMode(cfg.Server.Mode))
	gin.DefaultWriter = io.Discard

	// a nil *SchedulerManager must not reach the handler as a non-nil interface
	var reporter handlers.ScheduleReporter
	if cfg.Schedule.Enabled {
		sched, err := scheduler.NewSchedulerManager(app.Jobs, cfg.Schedule.JobTimeout, log.Named("scheduler"))
		if err != nil {
			return fmt.Errorf("failed to create scheduler: %w", err)
		}
		if err := sched.RegisterPriceJobs(cfg.Schedule.HourlyHours); err != nil {
			return fmt.Errorf("failed to register price jobs: %w", err)
		}
		sched.Start()
		defer func() {
			if err := sched.Stop(); err != nil {
				log.Errorw("failed to stop scheduler", "error", err)
			}
		}()
		reporter = sched

		reloadCtx, cancelReload := context.WithCancel(ctx)
		defer cancelReload()
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		goroutine.SafeGo(log, "schedule-reload", func() error {
			reloadSchedule(reloadCtx, hup, sched, func() ([]int, error) {
				reloaded, err := config.Load(env)
				if err != nil {
					return nil, err
				}
				return reloaded.Schedule.HourlyHours, nil
			}, log.Named("scheduler"))
			return nil
		})
	} else {
		log.Warnw("scheduler disabled, prices refresh only on demand")
	}

	router := httpRouter.NewRouter(httpRouter.RouterDeps{
		Server:   cfg.Server,
		Version:  version,
		Prices:   app.Prices,
		Cache:    app.PriceCache,
		Jobs:     app.Jobs,
		Schedule: reporter,
		Verifier: app.JWT,
		Metrics:  app.Metrics.Handler(),
		Health: map[string]handlers.HealthChecker{
			"database": func(ctx context.Context) error {
				sqlDB, err := app.DB.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			"redis": func(ctx context.Context) error {
				return app.Redis.Ping(ctx).Err()
			},
		},
		Redis: app.Redis,
	}, log.Named("http"))
	router.SetupRoutes()

	srv := &http.Server{
		Addr:        cfg.Server.GetAddr(),
		Handler:     router.GetEngine(),
		ReadTimeout: 15 * time.Second,
		// manual job triggers answer only when the job is done
		WriteTimeout: cfg.Schedule.JobTimeout + time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	goroutine.SafeGo(log, "http-server", func() error {
		log.Infow("server listening", "address", cfg.Server.GetAddr(), "mode", gin.Mode())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return err
		}
		return nil
	})

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-sigCtx.Done():
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	}

	log.Infow("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
		return err
	}

	log.Infow("server exited gracefully")
	return nil
}

func mapEnvToGinMode(environment string) string {
	switch environment {
	case "production", "prod", "release":
		return gin.ReleaseMode
	case "development", "dev", "debug":
		return gin.DebugMode
	case "test", "testing":
		return gin.TestMode
	default:
		return gin.ReleaseMode
	}
}
