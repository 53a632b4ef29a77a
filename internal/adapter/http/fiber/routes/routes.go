package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"

	"github.com/goalreminder/goal-reminder/internal/adapter/http/fiber/handlers"
	"github.com/goalreminder/goal-reminder/internal/adapter/http/fiber/middleware"
	"github.com/goalreminder/goal-reminder/pkg/config"
)

// Handlers groups the HTTP entry points. Signup and Health may be nil.
type Handlers struct {
	Twilio *handlers.TwilioHandler
	Stripe *handlers.StripeHandler
	Cron   *handlers.CronHandler
	Signup *handlers.SignupHandler
	Health *handlers.HealthHandler
}

type Options struct {
	AppName        string
	RequestTimeout time.Duration
	CronSecret     string
	CORS           config.CORSConfig
	MetricsPath    string
	AccessLog      bool
}

// NewApp builds the Fiber application with middleware and routes mounted.
func NewApp(h Handlers, opts Options, log *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               opts.AppName,
		ServerHeader:          opts.AppName,
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler(log),
	})

	app.Use(recover.New())
	if opts.AccessLog {
		app.Use(fiberlogger.New())
	}
	if cors := middleware.NewCORS(opts.CORS); cors != nil {
		app.Use(cors)
	}

	if h.Health != nil {
		app.Get("/health/live", h.Health.Live)
		app.Get("/health/ready", h.Health.Ready)
	}

	if opts.MetricsPath != "" {
		metrics := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
		app.Get(opts.MetricsPath, func(c *fiber.Ctx) error {
			metrics(c.Context())
			return nil
		})
	}

	api := app.Group("/api")

	webhooks := api.Group("/webhook", middleware.RequestTimeout(opts.RequestTimeout))
	webhooks.Post("/twilio", h.Twilio.Inbound)
	webhooks.Post("/stripe", h.Stripe.Webhook)

	if h.Signup != nil {
		api.Post("/signup", middleware.RequestTimeout(opts.RequestTimeout), h.Signup.Register)
	}

	api.Get("/cron/send-reminders", middleware.CronAuth(opts.CronSecret), h.Cron.SendReminders)

	return app
}
