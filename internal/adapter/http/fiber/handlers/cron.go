package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/goalreminder/goal-reminder/internal/service/reminder"
)

// Sweeper runs one reminder pass at the given instant.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (*reminder.SweepResult, error)
}

type CronHandler struct {
	sweeper Sweeper
	timeout time.Duration
	now     func() time.Time
	log     *zap.Logger
}

func NewCronHandler(sweeper Sweeper, timeout time.Duration, log *zap.Logger) *CronHandler {
	return &CronHandler{
		sweeper: sweeper,
		timeout: timeout,
		now:     time.Now,
		log:     log,
	}
}

// SendReminders handles GET /api/cron/send-reminders.
func (h *CronHandler) SendReminders(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	result, err := h.sweeper.Sweep(ctx, h.now())
	if err != nil {
		h.log.Error("Reminder sweep failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to send reminders",
			"details": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success":        true,
		"runId":          result.RunID,
		"usersProcessed": result.UsersProcessed,
		"eligibleUsers":  result.EligibleUsers,
	})
}
