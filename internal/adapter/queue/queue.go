package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultGroup         = "goal-reminder"
	DefaultMaxDeliveries = 5
	DefaultRetryDelay    = 30 * time.Second
)

// MessageQueue is the broker abstraction behind billing event fan-out.
// Subscribers in the same consumer group share the stream, so each message is
// handled by one replica. Publish returns only once the broker has persisted
// the message. A handler error redelivers the message after the retry delay;
// once MaxDeliveries is reached it is parked on "<subject>.dead".
type MessageQueue interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Subscribe(subject string, handler func(data []byte) error) error
	Close() error
}

type Config struct {
	// Provider is "nats", "rabbitmq" or "" for none.
	Provider string
	URL      string
	// Group names the shared consumer group / durable queue.
	Group string
	Retry RetryPolicy
}

// RetryPolicy bounds redelivery of messages whose handler failed.
type RetryPolicy struct {
	MaxDeliveries int
	Delay         time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxDeliveries <= 0 {
		p.MaxDeliveries = DefaultMaxDeliveries
	}
	if p.Delay <= 0 {
		p.Delay = DefaultRetryDelay
	}
	return p
}

// exhausted reports whether delivery number attempt (1-based) was the last one
// allowed.
func (p RetryPolicy) exhausted(attempt int) bool {
	return attempt >= p.MaxDeliveries
}

func deadSubject(subject string) string {
	return subject + ".dead"
}

// New connects to the configured broker. It returns (nil, nil) when no
// provider is configured.
func New(cfg Config, log *zap.Logger) (MessageQueue, error) {
	if cfg.Group == "" {
		cfg.Group = DefaultGroup
	}
	cfg.Retry = cfg.Retry.withDefaults()
	switch cfg.Provider {
	case "":
		return nil, nil
	case "nats":
		return NewNATSQueue(cfg.URL, cfg.Group, cfg.Retry, log)
	case "rabbitmq", "amqp":
		return NewRabbitMQQueue(cfg.URL, cfg.Group, cfg.Retry, log)
	default:
		return nil, fmt.Errorf("queue: unknown provider %q", cfg.Provider)
	}
}
