// Package bootstrap wires configuration, adapters and services into a running
// application. It is shared by the server and the goalctl CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sony/gobreaker"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"github.com/goalreminder/goal-reminder/internal/adapter/ai/openai"
	"github.com/goalreminder/goal-reminder/internal/adapter/cache"
	"github.com/goalreminder/goal-reminder/internal/adapter/external/notification"
	"github.com/goalreminder/goal-reminder/internal/adapter/external/payment"
	"github.com/goalreminder/goal-reminder/internal/adapter/http/fiber/handlers"
	"github.com/goalreminder/goal-reminder/internal/adapter/http/fiber/routes"
	"github.com/goalreminder/goal-reminder/internal/adapter/queue"
	"github.com/goalreminder/goal-reminder/internal/adapter/storage/postgres"
	"github.com/goalreminder/goal-reminder/internal/adapter/vault"
	"github.com/goalreminder/goal-reminder/internal/infrastructure/circuitbreaker"
	"github.com/goalreminder/goal-reminder/internal/ports"
	"github.com/goalreminder/goal-reminder/internal/service/billing"
	"github.com/goalreminder/goal-reminder/internal/service/onboarding"
	"github.com/goalreminder/goal-reminder/internal/service/reminder"
	"github.com/goalreminder/goal-reminder/internal/service/signup"
	"github.com/goalreminder/goal-reminder/internal/service/textgen"
	"github.com/goalreminder/goal-reminder/internal/service/timezone"
	"github.com/goalreminder/goal-reminder/pkg/config"
)

// NewLogger builds the process logger from the logging section.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zcfg.Build()
}

// LoadConfig reads configuration from file, or the default search path when
// file is empty, overlays Vault secrets when enabled and
// validates the result.
func LoadConfig(ctx context.Context, file string, log *zap.Logger) (*config.Config, error) {
	cfg, err := config.LoadFrom(viper.New(), file)
	if err != nil {
		return nil, err
	}

	if cfg.Vault.Enabled {
		sm, err := vault.NewSecretManager(cfg.Vault.Address, cfg.Vault.Token, cfg.Vault.Mount)
		if err != nil {
			return nil, fmt.Errorf("vault client: %w", err)
		}
		secrets, err := sm.GetSecrets(ctx, cfg.Vault.SecretPath)
		if err != nil {
			return nil, err
		}
		cfg.ApplySecrets(secrets)
		log.Info("Applied secrets from Vault", zap.String("path", cfg.Vault.SecretPath), zap.Int("keys", len(secrets)))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// OpenDatabase connects to PostgreSQL and runs migrations when enabled.
func OpenDatabase(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	db, err := postgres.NewConnection(cfg.URL, postgres.Options{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		LogQueries:      cfg.LogQueries,
	}, log)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := postgres.RunMigrations(db); err != nil {
			postgres.Close(db)
			return nil, err
		}
	}
	return db, nil
}

// App holds every long-lived dependency of the process.
type App struct {
	Config *config.Config
	Log    *zap.Logger

	DB      *gorm.DB
	Users   ports.UserRepository
	Markers ports.MarkerStore
	Queue   queue.MessageQueue

	Notifier ports.Notifier
	Billing  ports.BillingGateway
	Text     ports.TextGenerator
	Resolver *timezone.Resolver

	Onboarding    *onboarding.Service
	Scheduler     *reminder.Scheduler
	BillingEvents *billing.Service
	Dispatcher    *billing.Dispatcher
	Signup        *signup.Service

	closers []func() error
}

// New connects the adapters and builds the services. Close releases them.
func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	db, err := OpenDatabase(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	a.DB = db
	a.closers = append(a.closers, func() error { return postgres.Close(db) })
	a.Users = postgres.NewUserRepository(db, log)

	if cfg.Redis.URL != "" {
		markers, err := cache.NewRedisStore(cfg.Redis.URL, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Markers = markers
	} else {
		log.Warn("redis.url not set, reminder markers are kept in process memory")
		a.Markers = cache.NewLocalStore(time.Minute, log)
	}
	a.closers = append(a.closers, a.Markers.Close)

	mq, err := queue.New(queue.Config{
		Provider: cfg.Queue.Provider,
		URL:      cfg.Queue.URL,
		Group:    cfg.Queue.Group,
		Retry: queue.RetryPolicy{
			MaxDeliveries: cfg.Queue.MaxDeliveries,
			Delay:         cfg.Queue.RetryDelay,
		},
	}, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	if mq != nil {
		a.Queue = mq
		a.closers = append(a.closers, mq.Close)
	}

	smsBreaker := a.breaker("twilio")
	httpClient := circuitbreaker.NewHTTPClient(&http.Client{Timeout: 15 * time.Second}, smsBreaker, log)
	sms := cfg.Notification.SMS
	a.Notifier = notification.NewSMSAdapter(sms.AccountSID, sms.AuthToken, sms.From, sms.APIBaseURL, httpClient, log)

	a.Billing = payment.NewStripeService(payment.StripeConfig{
		SecretKey:     cfg.Payment.Stripe.SecretKey,
		WebhookSecret: cfg.Payment.Stripe.WebhookSecret,
		PriceID:       cfg.Payment.Stripe.PriceID,
		BaseURL:       cfg.App.BaseURL,
	}, a.breaker("stripe"), log)

	var ai *openai.Client
	if cfg.FeatureFlags.AITextGeneration || cfg.FeatureFlags.AITimezone {
		ai = openai.NewClient(openai.Config{
			APIKey:        cfg.OpenAI.APIKey,
			BaseURL:       cfg.OpenAI.BaseURL,
			TextModel:     cfg.OpenAI.TextModel,
			TimezoneModel: cfg.OpenAI.TimezoneModel,
			Timeout:       cfg.OpenAI.Timeout,
		}, a.breaker("openai"), log)
	}

	var remote ports.TextGenerator
	if ai != nil && cfg.FeatureFlags.AITextGeneration {
		remote = ai
	}
	a.Text = textgen.New(remote, cfg.FeatureFlags.AITextGeneration, log)

	var interpreter ports.ZoneInterpreter
	if ai != nil && cfg.FeatureFlags.AITimezone {
		interpreter = ai
	}
	a.Resolver = timezone.NewResolver(interpreter, log)

	a.Onboarding = onboarding.NewService(a.Users, a.Resolver, a.Billing, a.Text, onboarding.Config{
		SupportEmail: cfg.Support.Email,
	}, log)

	a.Scheduler = reminder.NewScheduler(a.Users, a.Notifier, a.Billing, a.Text, a.Markers, reminder.Config{
		Concurrency: cfg.Reminder.Concurrency,
		PromoCode:   cfg.Reminder.PromoCode,
		MarkerTTL:   cfg.Reminder.MarkerTTL,
	}, log)

	a.BillingEvents = billing.NewService(a.Users, a.Notifier, cfg.App.BaseURL, log)
	var publisher ports.EventPublisher
	if a.Queue != nil {
		publisher = a.Queue
		if err := billing.Consume(a.Queue, a.BillingEvents, log); err != nil {
			a.Close()
			return nil, fmt.Errorf("subscribe %s: %w", billing.EventsSubject, err)
		}
	}
	a.Dispatcher = billing.NewDispatcher(publisher, a.BillingEvents, log)

	a.Signup = signup.NewService(a.Users, a.Notifier, cfg.Phone.DefaultRegion, log)

	return a, nil
}

func (a *App) breaker(name string) *gobreaker.CircuitBreaker {
	cb := a.Config.CircuitBreaker
	if !cb.Enabled {
		return nil
	}
	return circuitbreaker.New(circuitbreaker.Settings{
		Name:         name,
		MaxRequests:  cb.MaxRequests,
		Interval:     cb.Interval,
		Timeout:      cb.Timeout,
		MinRequests:  cb.MinRequests,
		FailureRatio: cb.FailureThreshold,
	}, a.Log)
}

// HTTP builds the Fiber application serving the webhooks, cron and health
// endpoints.
func (a *App) HTTP() (*fiber.App, error) {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return nil, err
	}

	cfg := a.Config
	metricsPath := ""
	if cfg.Prometheus.Enabled {
		metricsPath = cfg.Prometheus.Path
	}

	return routes.NewApp(routes.Handlers{
		Twilio: handlers.NewTwilioHandler(a.Onboarding, handlers.TwilioConfig{
			AuthToken:         cfg.Notification.SMS.AuthToken,
			ValidateSignature: cfg.Notification.SMS.ValidateSignature,
			WebhookURL:        cfg.Notification.SMS.WebhookURL,
		}, a.Log),
		Stripe: handlers.NewStripeHandler(a.Billing, a.Dispatcher, cfg.Payment.Stripe.WebhookSecret, a.Log),
		Cron:   handlers.NewCronHandler(a.Scheduler, cfg.Reminder.SweepTimeout, a.Log),
		Signup: handlers.NewSignupHandler(a.Signup, a.Log),
		Health: handlers.NewHealthHandler(sqlDB, a.Markers, a.Log),
	}, routes.Options{
		AppName:        cfg.App.Name,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		CronSecret:     cfg.Cron.Secret,
		CORS:           cfg.CORS,
		MetricsPath:    metricsPath,
		AccessLog:      cfg.App.Environment == "development",
	}, a.Log), nil
}

// Close releases adapters in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
