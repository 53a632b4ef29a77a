package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSQueue stores every subject in its own JetStream stream and consumes it
// through a durable queue-group consumer with explicit acks.
type NATSQueue struct {
	conn  *nats.Conn
	js    nats.JetStreamContext
	group string
	retry RetryPolicy
	log   *zap.Logger

	mu      sync.Mutex
	streams map[string]bool
}

func NewNATSQueue(url, group string, retry RetryPolicy, log *zap.Logger) (MessageQueue, error) {
	nc, err := nats.Connect(url,
		nats.Name("goal-reminder"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("nats: jetstream: %w", err)
	}

	log.Info("Successfully connected to NATS", zap.String("url", url))
	return &NATSQueue{
		conn:    nc,
		js:      js,
		group:   group,
		retry:   retry.withDefaults(),
		log:     log,
		streams: make(map[string]bool),
	}, nil
}

// streamName maps a subject to a valid JetStream stream name.
func streamName(subject string) string {
	return strings.ToUpper(strings.NewReplacer(".", "_", "*", "_", ">", "_").Replace(subject))
}

// ensureStream creates the stream holding subject and its dead subject.
func (q *NATSQueue) ensureStream(subject string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.streams[subject] {
		return nil
	}

	name := streamName(subject)
	_, err := q.js.StreamInfo(name)
	if errors.Is(err, nats.ErrStreamNotFound) {
		_, err = q.js.AddStream(&nats.StreamConfig{
			Name:     name,
			Subjects: []string{subject, deadSubject(subject)},
			Storage:  nats.FileStorage,
		})
	}
	if err != nil {
		return fmt.Errorf("nats: stream %s: %w", name, err)
	}
	q.streams[subject] = true
	return nil
}

func (q *NATSQueue) Publish(ctx context.Context, subject string, data []byte) error {
	if err := q.ensureStream(subject); err != nil {
		return err
	}
	if _, err := q.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("nats: publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe joins the durable queue group so replicas split the stream.
func (q *NATSQueue) Subscribe(subject string, handler func(data []byte) error) error {
	if err := q.ensureStream(subject); err != nil {
		return err
	}

	durable := strings.NewReplacer(".", "_", "*", "_", ">", "_").Replace(q.group)
	_, err := q.js.QueueSubscribe(subject, durable, func(msg *nats.Msg) {
		q.settle(subject, msg, msg.Data, handler)
	},
		nats.Durable(durable),
		nats.ManualAck(),
		nats.DeliverAll(),
	)
	if err != nil {
		return fmt.Errorf("nats: subscribe %s: %w", subject, err)
	}
	q.log.Info("Subscribed to NATS subject", zap.String("subject", subject), zap.String("group", durable))
	return nil
}

// jsMessage is the acknowledgement surface of a JetStream delivery.
type jsMessage interface {
	Ack(opts ...nats.AckOpt) error
	NakWithDelay(delay time.Duration, opts ...nats.AckOpt) error
	Term(opts ...nats.AckOpt) error
	Metadata() (*nats.MsgMetadata, error)
}

// settle runs handler and acks, schedules a redelivery, or parks the message
// on the dead subject once the retry budget is spent.
func (q *NATSQueue) settle(subject string, msg jsMessage, data []byte, handler func([]byte) error) {
	err := handler(data)
	if err == nil {
		if err := msg.Ack(); err != nil {
			q.log.Warn("Failed to ack message", zap.String("subject", subject), zap.Error(err))
		}
		return
	}

	attempt := 1
	if meta, mErr := msg.Metadata(); mErr == nil {
		attempt = int(meta.NumDelivered)
	}

	if !q.retry.exhausted(attempt) {
		q.log.Warn("Message handler failed, will retry",
			zap.String("subject", subject),
			zap.Int("attempt", attempt),
			zap.Duration("delay", q.retry.Delay),
			zap.Error(err),
		)
		msg.NakWithDelay(q.retry.Delay)
		return
	}

	q.log.Error("Message handler failed, parking message",
		zap.String("subject", subject),
		zap.Int("attempt", attempt),
		zap.Error(err),
	)
	if _, pErr := q.js.Publish(deadSubject(subject), data); pErr != nil {
		q.log.Error("Failed to park message", zap.String("subject", subject), zap.Error(pErr))
		msg.NakWithDelay(q.retry.Delay)
		return
	}
	msg.Term()
}

func (q *NATSQueue) Close() error {
	return q.conn.Drain()
}
