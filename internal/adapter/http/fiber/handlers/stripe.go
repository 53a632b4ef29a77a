package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/goalreminder/goal-reminder/internal/domain"
	"github.com/goalreminder/goal-reminder/internal/ports"
)

const stripeSignatureHeader = "Stripe-Signature"

type StripeHandler struct {
	billing       ports.BillingGateway
	dispatcher    ports.BillingEventDispatcher
	webhookSecret string
	log           *zap.Logger
}

func NewStripeHandler(billing ports.BillingGateway, dispatcher ports.BillingEventDispatcher, webhookSecret string, log *zap.Logger) *StripeHandler {
	return &StripeHandler{
		billing:       billing,
		dispatcher:    dispatcher,
		webhookSecret: webhookSecret,
		log:           log,
	}
}

// Webhook handles POST /api/webhook/stripe.
func (h *StripeHandler) Webhook(c *fiber.Ctx) error {
	signature := c.Get(stripeSignatureHeader)
	if signature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing stripe-signature header"})
	}
	if h.webhookSecret == "" {
		h.log.Error("Stripe webhook secret is not configured")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Webhook secret not configured"})
	}

	// The body buffer is reused by fasthttp after the handler returns.
	payload := append([]byte(nil), c.Body()...)

	event, err := h.billing.ParseWebhook(payload, signature)
	switch {
	case errors.Is(err, domain.ErrUnknownEvent):
		h.log.Debug("Ignoring unhandled billing event", zap.Error(err))
		return c.JSON(fiber.Map{"received": true})
	case errors.Is(err, domain.ErrInvalidSignature):
		h.log.Warn("Rejected billing webhook with bad signature", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Webhook signature verification failed"})
	case err != nil:
		h.log.Error("Failed to parse billing webhook", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Webhook handler failed"})
	}

	log := h.log.With(zap.String("event_id", event.ID), zap.String("event_type", string(event.Type)))
	if err := h.dispatcher.Dispatch(c.UserContext(), event); err != nil {
		log.Error("Failed to handle billing event", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Webhook handler failed"})
	}

	log.Info("Billing event accepted")
	return c.JSON(fiber.Map{"received": true})
}
