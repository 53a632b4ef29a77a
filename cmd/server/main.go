package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "time/tzdata"

	"github.com/goalreminder/goal-reminder/internal/bootstrap"
	"github.com/goalreminder/goal-reminder/internal/observability/telemetry"
	"github.com/goalreminder/goal-reminder/internal/service/reminder"
	"github.com/goalreminder/goal-reminder/pkg/config"
)

func main() {
	// 1. Load Configuration
	bootLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}

	cfg, err := bootstrap.LoadConfig(context.Background(), os.Getenv("CONFIG_FILE"), bootLogger)
	if err != nil {
		bootLogger.Fatal("Failed to load configuration", zap.Error(err))
	}
	bootLogger.Sync()

	// 2. Initialize Logger
	logger, err := bootstrap.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	logger.Info("Starting Goal Reminder",
		zap.String("service", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	// 3. Initialize OpenTelemetry (Distributed Tracing)
	if cfg.OpenTelemetry.Enabled {
		shutdownTracer, err := telemetry.InitTracer(telemetry.TracerConfig{
			ServiceName:    cfg.OpenTelemetry.ServiceName,
			ServiceVersion: cfg.App.Version,
			Endpoint:       cfg.OpenTelemetry.Jaeger.Endpoint,
			SampleRatio:    cfg.OpenTelemetry.Jaeger.SamplerParam,
		})
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				logger.Error("Error shutting down tracer provider", zap.Error(err))
			}
		}()
	}

	// 4. Connect adapters and build services
	app, err := bootstrap.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Error releasing resources", zap.Error(err))
		}
	}()

	// 5. In-process reminder schedule
	runner, err := startScheduler(app.Scheduler, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to start reminder schedule", zap.Error(err))
	}

	// 6. Initialize Fiber HTTP Server
	server, err := app.HTTP()
	if err != nil {
		logger.Fatal("Failed to build HTTP server", zap.Error(err))
	}
	server.Server().ReadTimeout = cfg.HTTP.ReadTimeout
	server.Server().WriteTimeout = cfg.HTTP.WriteTimeout
	server.Server().IdleTimeout = cfg.HTTP.IdleTimeout

	go func() {
		logger.Info("Starting HTTP Server", zap.Int("port", cfg.HTTP.Port))
		if err := server.Listen(fmt.Sprintf(":%d", cfg.HTTP.Port)); err != nil {
			logger.Fatal("HTTP Server failed", zap.Error(err))
		}
	}()

	// 7. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.ShutdownWithContext(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if runner != nil {
		if err := runner.Stop(ctx); err != nil {
			logger.Error("Reminder schedule did not stop in time", zap.Error(err))
		}
	}

	logger.Info("Server exited gracefully")
}

func startScheduler(scheduler *reminder.Scheduler, cfg *config.Config, logger *zap.Logger) (*reminder.Runner, error) {
	job := cfg.Jobs.SendReminders
	if !job.Enabled {
		logger.Info("In-process reminder schedule disabled, expecting external cron calls")
		return nil, nil
	}

	runner, err := reminder.NewRunner(scheduler, job.Schedule, cfg.Reminder.SweepTimeout, logger)
	if err != nil {
		return nil, err
	}
	runner.Start()
	return runner, nil
}
