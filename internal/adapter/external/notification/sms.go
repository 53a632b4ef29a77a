package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/goalreminder/goal-reminder/internal/domain"
	"github.com/goalreminder/goal-reminder/internal/infrastructure/circuitbreaker"
	"github.com/goalreminder/goal-reminder/internal/ports"
)

const twilioBaseURL = "https://api.twilio.com/2010-04-01"

// ErrNotConfigured is returned by Send when Twilio credentials are missing.
var ErrNotConfigured = errors.New("sms: twilio credentials not configured")

// SMSAdapter sends SMS messages via Twilio REST API
type SMSAdapter struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	httpClient *circuitbreaker.HTTPClient
	log        *zap.Logger
}

type twilioMessage struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// NewSMSAdapter creates a new Twilio SMS adapter. An empty baseURL targets
// the public Twilio API.
func NewSMSAdapter(accountSID, authToken, fromNumber, baseURL string, httpClient *circuitbreaker.HTTPClient, log *zap.Logger) ports.Notifier {
	if baseURL == "" {
		baseURL = twilioBaseURL
	}
	return &SMSAdapter{
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		log:        log,
	}
}

// Send delivers one SMS and returns the Twilio message SID.
func (a *SMSAdapter) Send(ctx context.Context, to, body string) (string, error) {
	if a.accountSID == "" || a.authToken == "" {
		a.log.Warn("SMS adapter not configured, message not sent", zap.String("to", to))
		return "", ErrNotConfigured
	}

	apiURL := fmt.Sprintf("%s/Accounts/%s/Messages.json", a.baseURL, a.accountSID)

	data := url.Values{}
	data.Set("To", domain.E164(to))
	data.Set("From", a.fromNumber)
	data.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("sms: create request: %w", err)
	}

	req.SetBasicAuth(a.accountSID, a.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.log.Error("Failed to send SMS", zap.String("to", to), zap.Error(err))
		return "", fmt.Errorf("sms: send request: %w", err)
	}
	defer resp.Body.Close()

	var msg twilioMessage
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil && resp.StatusCode < 400 {
		return "", fmt.Errorf("sms: decode response: %w", err)
	}

	if resp.StatusCode >= 400 {
		a.log.Error("Twilio API error",
			zap.String("to", to),
			zap.Int("status", resp.StatusCode),
			zap.String("message", msg.Message),
			zap.Int("twilio_code", msg.Code),
		)
		return "", fmt.Errorf("sms: twilio error %d: %s", msg.Code, msg.Message)
	}

	a.log.Info("SMS sent successfully", zap.String("to", to), zap.String("sid", msg.SID))
	return msg.SID, nil
}
