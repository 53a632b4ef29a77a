package handlers

import (
	"encoding/xml"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/goalreminder/goal-reminder/internal/adapter/external/notification"
	"github.com/goalreminder/goal-reminder/internal/ports"
)

const twilioSignatureHeader = "X-Twilio-Signature"

// TwilioConfig controls inbound signature verification. WebhookURL is the
// public URL Twilio signs; when empty the request URL is used.
type TwilioConfig struct {
	AuthToken         string
	ValidateSignature bool
	WebhookURL        string
}

type TwilioHandler struct {
	onboarding ports.OnboardingService
	cfg        TwilioConfig
	log        *zap.Logger
}

func NewTwilioHandler(onboarding ports.OnboardingService, cfg TwilioConfig, log *zap.Logger) *TwilioHandler {
	return &TwilioHandler{
		onboarding: onboarding,
		cfg:        cfg,
		log:        log,
	}
}

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// Inbound handles POST /api/webhook/twilio and answers with a TwiML reply.
func (h *TwilioHandler) Inbound(c *fiber.Ctx) error {
	if h.cfg.ValidateSignature && !h.verify(c) {
		h.log.Warn("Rejected inbound message with bad signature", zap.String("ip", c.IP()))
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Invalid signature"})
	}

	from := c.FormValue("From")
	if from == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing sender"})
	}

	reply := h.onboarding.HandleMessage(c.UserContext(), from, c.FormValue("Body"))
	return writeTwiML(c, reply)
}

func (h *TwilioHandler) verify(c *fiber.Ctx) bool {
	params := make(map[string]string)
	c.Request().PostArgs().VisitAll(func(key, value []byte) {
		params[string(key)] = string(value)
	})

	fullURL := h.cfg.WebhookURL
	if fullURL == "" {
		fullURL = c.BaseURL() + c.OriginalURL()
	}
	return notification.ValidateTwilioSignature(h.cfg.AuthToken, fullURL, params, c.Get(twilioSignatureHeader))
}

func writeTwiML(c *fiber.Ctx, reply string) error {
	body, err := xml.Marshal(twimlResponse{Message: reply})
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextXMLCharsetUTF8)
	return c.Send(append([]byte(xml.Header), body...))
}
