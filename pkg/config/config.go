package config

import "time"

type Config struct {
	App            AppConfig            `mapstructure:"app"`
	HTTP           HTTPConfig           `mapstructure:"http"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Queue          QueueConfig          `mapstructure:"queue"`
	OpenTelemetry  OpenTelemetryConfig  `mapstructure:"opentelemetry"`
	Prometheus     PrometheusConfig     `mapstructure:"prometheus"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	CORS           CORSConfig           `mapstructure:"cors"`
	Payment        PaymentConfig        `mapstructure:"payment"`
	Notification   NotificationConfig   `mapstructure:"notification"`
	OpenAI         OpenAIConfig         `mapstructure:"openai"`
	FeatureFlags   FeatureFlagsConfig   `mapstructure:"feature_flags"`
	Reminder       ReminderConfig       `mapstructure:"reminder"`
	Cron           CronConfig           `mapstructure:"cron"`
	Jobs           JobsConfig           `mapstructure:"jobs"`
	Support        SupportConfig        `mapstructure:"support"`
	Phone          PhoneConfig          `mapstructure:"phone"`
	Vault          VaultConfig          `mapstructure:"vault"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	// BaseURL is the public site, used for checkout redirects and billing links.
	BaseURL string `mapstructure:"base_url"`
}

type HTTPConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	LogQueries      bool          `mapstructure:"log_queries"`
}

// RedisConfig backs the reminder marker store. An empty URL selects the
// in-process store.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type QueueConfig struct {
	Provider string `mapstructure:"provider"`
	URL      string `mapstructure:"url"`
	Group    string `mapstructure:"group"`

	MaxDeliveries int           `mapstructure:"max_deliveries"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
}

type OpenTelemetryConfig struct {
	Enabled     bool         `mapstructure:"enabled"`
	Jaeger      JaegerConfig `mapstructure:"jaeger"`
	ServiceName string       `mapstructure:"service_name"`
}

type JaegerConfig struct {
	Endpoint     string  `mapstructure:"endpoint"`
	SamplerParam float64 `mapstructure:"sampler_param"`
}

type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      uint32        `mapstructure:"max_requests"`
	MinRequests      uint32        `mapstructure:"min_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold float64       `mapstructure:"failure_threshold"`
}

type CORSConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type PaymentConfig struct {
	Stripe StripeConfig `mapstructure:"stripe"`
}

type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	PriceID       string `mapstructure:"price_id"`
}

type NotificationConfig struct {
	SMS SMSConfig `mapstructure:"sms"`
}

type SMSConfig struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	From       string `mapstructure:"from"`
	// APIBaseURL overrides the Twilio REST endpoint.
	APIBaseURL string `mapstructure:"api_base_url"`
	// ValidateSignature enables X-Twilio-Signature checks on inbound webhooks.
	ValidateSignature bool `mapstructure:"validate_signature"`
	// WebhookURL is the public URL Twilio signs; defaults to the request URL.
	WebhookURL string `mapstructure:"webhook_url"`
}

type OpenAIConfig struct {
	APIKey        string        `mapstructure:"api_key"`
	BaseURL       string        `mapstructure:"base_url"`
	TextModel     string        `mapstructure:"text_model"`
	TimezoneModel string        `mapstructure:"timezone_model"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type FeatureFlagsConfig struct {
	AITextGeneration bool `mapstructure:"ai_text_generation"`
	AITimezone       bool `mapstructure:"ai_timezone"`
}

type ReminderConfig struct {
	Concurrency  int           `mapstructure:"concurrency"`
	MarkerTTL    time.Duration `mapstructure:"marker_ttl"`
	PromoCode    string        `mapstructure:"promo_code"`
	SweepTimeout time.Duration `mapstructure:"sweep_timeout"`
}

type CronConfig struct {
	// Secret, when set, must be sent as a bearer token to the cron endpoint.
	Secret string `mapstructure:"secret"`
}

type JobsConfig struct {
	SendReminders JobSchedule `mapstructure:"send_reminders"`
}

type JobSchedule struct {
	Schedule string `mapstructure:"schedule"`
	Enabled  bool   `mapstructure:"enabled"`
}

type SupportConfig struct {
	Email string `mapstructure:"email"`
}

type PhoneConfig struct {
	DefaultRegion string `mapstructure:"default_region"`
}

type VaultConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Address    string `mapstructure:"address"`
	Token      string `mapstructure:"token"`
	Mount      string `mapstructure:"mount"`
	SecretPath string `mapstructure:"secret_path"`
}
