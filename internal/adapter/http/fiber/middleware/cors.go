package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	fibercors "github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/goalreminder/goal-reminder/pkg/config"
)

const (
	corsMethods = "GET,POST,OPTIONS"
	corsHeaders = "Origin,Content-Type,Accept,Authorization,Stripe-Signature,X-Twilio-Signature"
	corsMaxAge  = 86400
)

// NewCORS returns nil when CORS is disabled in config.
func NewCORS(cfg config.CORSConfig) fiber.Handler {
	if !cfg.Enabled {
		return nil
	}

	allowedOrigins := "*"
	if len(cfg.AllowedOrigins) > 0 {
		allowedOrigins = strings.Join(cfg.AllowedOrigins, ",")
	}

	return fibercors.New(fibercors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: corsMethods,
		AllowHeaders: corsHeaders,
		MaxAge:       corsMaxAge,
	})
}
