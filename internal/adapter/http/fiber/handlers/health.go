package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Pinger is satisfied by *sql.DB and the reminder marker store.
type Pinger interface {
	Ping() error
}

type HealthHandler struct {
	db      Pinger
	markers Pinger
	log     *zap.Logger
}

// NewHealthHandler accepts a nil markers pinger when no marker store is wired.
func NewHealthHandler(db, markers Pinger, log *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, markers: markers, log: log}
}

func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.SendString("OK")
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	if err := h.db.Ping(); err != nil {
		h.log.Warn("Readiness check failed", zap.String("dependency", "database"), zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).SendString("Database not ready")
	}
	if h.markers != nil {
		if err := h.markers.Ping(); err != nil {
			h.log.Warn("Readiness check failed", zap.String("dependency", "markers"), zap.Error(err))
			return c.Status(fiber.StatusServiceUnavailable).SendString("Cache not ready")
		}
	}
	return c.SendString("Ready")
}
