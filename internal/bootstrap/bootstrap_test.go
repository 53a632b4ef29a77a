package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/goalreminder/goal-reminder/pkg/config"
)

func TestNewLogger(t *testing.T) {
	log, err := NewLogger(config.LoggingConfig{Level: "warn", Format: "json"})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	if log.Core().Enabled(zapcore.InfoLevel) {
		t.Error("Expected info to be disabled at warn level")
	}
	if !log.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("Expected error to be enabled at warn level")
	}

	if _, err := NewLogger(config.LoggingConfig{Level: "loud"}); err == nil {
		t.Error("Expected an error for an unknown level")
	}
}

func TestLoadConfig_ValidatesRequiredSettings(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(file, []byte("app:\n  name: goal-reminder\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := LoadConfig(context.Background(), file, zap.NewNop())
	if err == nil {
		t.Fatal("Expected validation to fail without database and provider settings")
	}
}

func TestLoadConfig_Complete(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
app:
  base_url: https://goalreminder.xyz
database:
  url: postgres://localhost/goals
payment:
  stripe:
    secret_key: sk_test
    webhook_secret: whsec_test
    price_id: price_1
notification:
  sms:
    account_sid: AC123
    auth_token: token
    from: "+15550001111"
feature_flags:
  ai_text_generation: false
  ai_timezone: false
`
	if err := os.WriteFile(file, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(context.Background(), file, zap.NewNop())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Reminder.PromoCode != "GOALGETTER50" {
		t.Errorf("Expected default promo code, got %q", cfg.Reminder.PromoCode)
	}
}

func TestBreakerDisabled(t *testing.T) {
	a := &App{Config: &config.Config{}, Log: zap.NewNop()}
	if a.breaker("stripe") != nil {
		t.Error("Expected no breaker when circuit_breaker.enabled is false")
	}

	a.Config.CircuitBreaker.Enabled = true
	if cb := a.breaker("stripe"); cb == nil || cb.Name() != "stripe" {
		t.Error("Expected a named breaker when enabled")
	}
}
