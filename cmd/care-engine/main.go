package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lullaby-stack/care-engine/internal/api"
	"github.com/lullaby-stack/care-engine/internal/config"
	"github.com/lullaby-stack/care-engine/internal/engine"
	"github.com/lullaby-stack/care-engine/internal/metrics"
	"github.com/lullaby-stack/care-engine/internal/models"
	"github.com/lullaby-stack/care-engine/internal/notify"
	"github.com/lullaby-stack/care-engine/internal/profiles"
	"github.com/lullaby-stack/care-engine/internal/services"
	"github.com/lullaby-stack/care-engine/internal/store"
	"github.com/lullaby-stack/care-engine/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting care-engine", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	birthDate, err := cfg.Baby.BirthDateTime()
	if err != nil {
		logger.Error("invalid baby.birthDate", slog.Any("error", err))
		os.Exit(1)
	}

	st, err := store.New(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		logger.Error("failed to open store", slog.String("driver", cfg.Store.Driver), slog.Any("error", err))
		os.Exit(1)
	}
	defer st.Close()

	table, err := profiles.NewTable(cfg.Profiles.Path, logger)
	if err != nil {
		logger.Error("failed to load age profiles", slog.Any("error", err))
		os.Exit(1)
	}

	forecaster := engine.NewForecaster(logger, table, cfg.Forecast.LookbackDays)
	analytics := engine.NewAnalytics(logger, table)
	solver := engine.NewSolver(logger)

	svc := services.NewScheduleService(
		logger,
		st,
		forecaster,
		analytics,
		solver,
		birthDate,
		cfg.Forecast.LookbackDays,
		cfg.Forecast.HorizonHours,
	).WithSolveDefaults(models.SolveRequest{
		TargetSleepHours:  cfg.Solver.TargetSleepHours,
		MomPreferredStart: cfg.Solver.MomPreferredStart,
		DadPreferredStart: cfg.Solver.DadPreferredStart,
		AllowOverlap:      cfg.Solver.AllowOverlap,
	})

	server := api.NewServer(cfg.Server, svc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Notify.Enabled {
		watcher := notify.NewWatcher(
			logger,
			svc,
			time.Duration(cfg.Notify.LeadMinutes)*time.Minute,
			cfg.Notify.PollInterval,
		)
		go watcher.Run(ctx)
	}

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("http server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", slog.Any("error", err))
	}

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("care-engine stopped")
}
