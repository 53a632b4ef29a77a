package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load reads config.yaml (if present) and the environment.
func Load() (*Config, error) {
	return LoadFrom(viper.New(), "")
}

// LoadFrom is Load with an explicit viper instance and optional config file.
func LoadFrom(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		v.AddConfigPath("/app/configs")
	}

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Allow common env vars without APP_ prefix for Docker/VM deploys
	v.BindEnv("http.port", "PORT", "HTTP_PORT", "APP_HTTP_PORT")
	v.BindEnv("app.base_url", "BASE_URL", "NEXT_PUBLIC_BASE_URL", "APP_APP_BASE_URL")
	v.BindEnv("app.environment", "APP_ENVIRONMENT")
	v.BindEnv("database.url", "DATABASE_URL", "APP_DATABASE_URL")
	v.BindEnv("redis.url", "REDIS_URL", "APP_REDIS_URL")
	v.BindEnv("queue.url", "QUEUE_URL", "NATS_URL", "APP_QUEUE_URL")
	v.BindEnv("payment.stripe.secret_key", "STRIPE_SECRET_KEY")
	v.BindEnv("payment.stripe.webhook_secret", "STRIPE_WEBHOOK_SECRET")
	v.BindEnv("payment.stripe.price_id", "STRIPE_PRICE_ID")
	v.BindEnv("notification.sms.account_sid", "TWILIO_ACCOUNT_SID")
	v.BindEnv("notification.sms.auth_token", "TWILIO_AUTH_TOKEN")
	v.BindEnv("notification.sms.from", "TWILIO_PHONE_NUMBER")
	v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("cron.secret", "CRON_SECRET")
	v.BindEnv("vault.address", "VAULT_ADDR")
	v.BindEnv("vault.token", "VAULT_TOKEN")
	v.BindEnv("logging.level", "LOG_LEVEL")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || file != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "goal-reminder")
	v.SetDefault("app.version", "v1.0.0")
	v.SetDefault("app.environment", "development")

	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.request_timeout", 25*time.Second)

	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("queue.group", "goal-reminder")
	v.SetDefault("queue.max_deliveries", 5)
	v.SetDefault("queue.retry_delay", 30*time.Second)

	v.SetDefault("opentelemetry.service_name", "goal-reminder")
	v.SetDefault("opentelemetry.jaeger.endpoint", "http://jaeger:14268/api/traces")
	v.SetDefault("opentelemetry.jaeger.sampler_param", 1.0)

	v.SetDefault("prometheus.enabled", true)
	v.SetDefault("prometheus.path", "/metrics")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("circuit_breaker.enabled", true)
	v.SetDefault("circuit_breaker.max_requests", 3)
	v.SetDefault("circuit_breaker.min_requests", 5)
	v.SetDefault("circuit_breaker.interval", time.Minute)
	v.SetDefault("circuit_breaker.timeout", 30*time.Second)
	v.SetDefault("circuit_breaker.failure_threshold", 0.6)

	v.SetDefault("cors.enabled", true)
	v.SetDefault("cors.allowed_origins", []string{"*"})

	v.SetDefault("notification.sms.api_base_url", "https://api.twilio.com/2010-04-01")

	v.SetDefault("openai.text_model", "gpt-4o")
	v.SetDefault("openai.timezone_model", "gpt-3.5-turbo")
	v.SetDefault("openai.timeout", 15*time.Second)

	v.SetDefault("feature_flags.ai_text_generation", true)
	v.SetDefault("feature_flags.ai_timezone", true)

	v.SetDefault("reminder.concurrency", 10)
	v.SetDefault("reminder.marker_ttl", 36*time.Hour)
	v.SetDefault("reminder.promo_code", "GOALGETTER50")
	v.SetDefault("reminder.sweep_timeout", 10*time.Minute)

	v.SetDefault("jobs.send_reminders.schedule", "*/15 * * * *")
	v.SetDefault("jobs.send_reminders.enabled", false)

	v.SetDefault("support.email", "support@goalreminder.xyz")
	v.SetDefault("phone.default_region", "US")

	// Registered so AutomaticEnv can see them.
	for _, key := range []string{
		"app.base_url", "database.url", "redis.url", "queue.provider", "queue.url",
		"payment.stripe.secret_key", "payment.stripe.webhook_secret", "payment.stripe.price_id",
		"notification.sms.account_sid", "notification.sms.auth_token", "notification.sms.from",
		"notification.sms.webhook_url", "openai.api_key", "openai.base_url", "cron.secret",
		"vault.address", "vault.token",
	} {
		v.SetDefault(key, "")
	}
	v.SetDefault("notification.sms.validate_signature", false)
	v.SetDefault("opentelemetry.enabled", false)
	v.SetDefault("database.log_queries", false)
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.mount", "secret")
	v.SetDefault("vault.secret_path", "goal-reminder")
}

// Validate reports every missing setting the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	require := func(value, key string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", key))
		}
	}

	require(c.App.BaseURL, "app.base_url")
	require(c.Database.URL, "database.url")
	require(c.Payment.Stripe.SecretKey, "payment.stripe.secret_key")
	require(c.Payment.Stripe.WebhookSecret, "payment.stripe.webhook_secret")
	require(c.Payment.Stripe.PriceID, "payment.stripe.price_id")
	require(c.Notification.SMS.AccountSID, "notification.sms.account_sid")
	require(c.Notification.SMS.AuthToken, "notification.sms.auth_token")
	require(c.Notification.SMS.From, "notification.sms.from")
	if c.FeatureFlags.AITextGeneration || c.FeatureFlags.AITimezone {
		require(c.OpenAI.APIKey, "openai.api_key")
	}
	if c.Queue.Provider != "" {
		require(c.Queue.URL, "queue.url")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port %d is out of range", c.HTTP.Port))
	}

	return errors.Join(errs...)
}

// ApplySecrets overlays values fetched from the secret store. Keys follow the
// environment variable names in lower case.
func (c *Config) ApplySecrets(secrets map[string]string) {
	set := func(dst *string, key string) {
		if v, ok := secrets[key]; ok && v != "" {
			*dst = v
		}
	}
	set(&c.Database.URL, "database_url")
	set(&c.Redis.URL, "redis_url")
	set(&c.Payment.Stripe.SecretKey, "stripe_secret_key")
	set(&c.Payment.Stripe.WebhookSecret, "stripe_webhook_secret")
	set(&c.Payment.Stripe.PriceID, "stripe_price_id")
	set(&c.Notification.SMS.AccountSID, "twilio_account_sid")
	set(&c.Notification.SMS.AuthToken, "twilio_auth_token")
	set(&c.OpenAI.APIKey, "openai_api_key")
	set(&c.Cron.Secret, "cron_secret")
}
