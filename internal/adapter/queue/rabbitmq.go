package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	rabbitReconnectDelay = 5 * time.Second
	rabbitParkTimeout    = 10 * time.Second
)

type rabbitSubscription struct {
	subject string
	handler func(data []byte) error
}

// RabbitMQQueue publishes each subject to a durable fanout exchange with
// publisher confirms. Every consumer group reads from its own durable queue
// "<group>.<subject>", so replicas of one service share the work. A failed
// delivery is dead-lettered to "<queue>.retry", whose TTL routes it back to
// the work queue; after the last attempt it is moved to "<queue>.dead".
// Subscriptions are re-established after a reconnect.
type RabbitMQQueue struct {
	url   string
	group string
	retry RetryPolicy
	log   *zap.Logger

	mu      sync.RWMutex
	conn    *amqp.Connection
	channel *amqp.Channel
	subs    []rabbitSubscription
	closed  bool
}

func NewRabbitMQQueue(url, group string, retry RetryPolicy, log *zap.Logger) (MessageQueue, error) {
	conn, ch, err := dialRabbit(url)
	if err != nil {
		return nil, err
	}

	q := &RabbitMQQueue{
		url:     url,
		group:   group,
		retry:   retry.withDefaults(),
		log:     log,
		conn:    conn,
		channel: ch,
	}
	go q.watch(conn)

	log.Info("Connected to RabbitMQ", zap.String("group", group))
	return q, nil
}

func dialRabbit(url string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq: open channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq: enable confirms: %w", err)
	}
	return conn, ch, nil
}

func declareExchange(ch *amqp.Channel, subject string) error {
	if err := ch.ExchangeDeclare(subject, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: declare exchange %s: %w", subject, err)
	}
	return nil
}

func (q *RabbitMQQueue) Publish(ctx context.Context, subject string, data []byte) error {
	ch, err := q.current()
	if err != nil {
		return err
	}
	if err := declareExchange(ch, subject); err != nil {
		return err
	}
	return confirmPublish(ctx, ch, subject, "", data)
}

func (q *RabbitMQQueue) current() (*amqp.Channel, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.channel == nil {
		return nil, fmt.Errorf("rabbitmq: not connected")
	}
	return q.channel, nil
}

// confirmPublish returns once the broker has confirmed the message.
func confirmPublish(ctx context.Context, ch *amqp.Channel, exchange, key string, data []byte) error {
	dc, err := ch.PublishWithDeferredConfirmWithContext(ctx, exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         data,
		Timestamp:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("rabbitmq: publish %s: %w", exchange+key, err)
	}
	ok, err := dc.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("rabbitmq: await confirm %s: %w", exchange+key, err)
	}
	if !ok {
		return fmt.Errorf("rabbitmq: broker rejected message on %s", exchange+key)
	}
	return nil
}

func (q *RabbitMQQueue) Subscribe(subject string, handler func(data []byte) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.channel == nil {
		return fmt.Errorf("rabbitmq: not connected")
	}

	sub := rabbitSubscription{subject: subject, handler: handler}
	if err := q.consume(q.channel, sub); err != nil {
		return err
	}
	q.subs = append(q.subs, sub)
	return nil
}

// declareQueues sets up the work queue bound to the subject exchange plus its
// retry and dead queues, and returns the work queue name.
func (q *RabbitMQQueue) declareQueues(ch *amqp.Channel, subject string) (string, error) {
	if err := declareExchange(ch, subject); err != nil {
		return "", err
	}
	work := q.group + "." + subject

	_, err := ch.QueueDeclare(work, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": work + ".retry",
	})
	if err != nil {
		return "", fmt.Errorf("rabbitmq: declare queue %s: %w", work, err)
	}
	_, err = ch.QueueDeclare(work+".retry", true, false, false, false, amqp.Table{
		"x-message-ttl":             q.retry.Delay.Milliseconds(),
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": work,
	})
	if err != nil {
		return "", fmt.Errorf("rabbitmq: declare retry queue: %w", err)
	}
	if _, err := ch.QueueDeclare(deadSubject(work), true, false, false, false, nil); err != nil {
		return "", fmt.Errorf("rabbitmq: declare dead queue: %w", err)
	}
	if err := ch.QueueBind(work, "", subject, false, nil); err != nil {
		return "", fmt.Errorf("rabbitmq: bind queue: %w", err)
	}
	return work, nil
}

func (q *RabbitMQQueue) consume(ch *amqp.Channel, sub rabbitSubscription) error {
	work, err := q.declareQueues(ch, sub.subject)
	if err != nil {
		return err
	}
	deliveries, err := ch.Consume(work, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq: consume %s: %w", work, err)
	}

	park := func(data []byte) error {
		ctx, cancel := context.WithTimeout(context.Background(), rabbitParkTimeout)
		defer cancel()
		return confirmPublish(ctx, ch, "", deadSubject(work), data)
	}

	go func() {
		for d := range deliveries {
			q.settle(work, d, d.Headers, d.Body, sub.handler, park)
		}
	}()

	q.log.Info("Consuming RabbitMQ queue", zap.String("exchange", sub.subject), zap.String("queue", work))
	return nil
}

// rabbitDelivery is the acknowledgement surface of amqp.Delivery.
type rabbitDelivery interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// settle runs handler and acks, dead-letters the message for a delayed retry,
// or parks it once the retry budget is spent.
func (q *RabbitMQQueue) settle(work string, d rabbitDelivery, headers amqp.Table, body []byte, handler, park func([]byte) error) {
	err := handler(body)
	if err == nil {
		d.Ack(false)
		return
	}

	attempt := int(deathCount(headers, work)) + 1
	if !q.retry.exhausted(attempt) {
		q.log.Warn("Message handler failed, will retry",
			zap.String("queue", work),
			zap.Int("attempt", attempt),
			zap.Duration("delay", q.retry.Delay),
			zap.Error(err),
		)
		d.Nack(false, false)
		return
	}

	q.log.Error("Message handler failed, parking message",
		zap.String("queue", work),
		zap.Int("attempt", attempt),
		zap.Error(err),
	)
	if pErr := park(body); pErr != nil {
		q.log.Error("Failed to park message", zap.String("queue", work), zap.Error(pErr))
		d.Nack(false, false)
		return
	}
	d.Ack(false)
}

// deathCount reads how many times the message was rejected from queue, from
// the broker-maintained x-death header.
func deathCount(headers amqp.Table, queue string) int64 {
	deaths, ok := headers["x-death"].([]interface{})
	if !ok {
		return 0
	}
	for _, raw := range deaths {
		entry, ok := raw.(amqp.Table)
		if !ok || entry["queue"] != queue || entry["reason"] != "rejected" {
			continue
		}
		switch n := entry["count"].(type) {
		case int64:
			return n
		case int32:
			return int64(n)
		case int:
			return int64(n)
		}
	}
	return 0
}

func (q *RabbitMQQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

// watch redials after an unexpected connection loss and restores every
// subscription on the new channel.
func (q *RabbitMQQueue) watch(conn *amqp.Connection) {
	for {
		reason, ok := <-conn.NotifyClose(make(chan *amqp.Error, 1))
		if !ok || reason == nil {
			return
		}
		q.log.Warn("RabbitMQ connection lost", zap.String("reason", reason.Reason))

		for {
			time.Sleep(rabbitReconnectDelay)

			q.mu.Lock()
			if q.closed {
				q.mu.Unlock()
				return
			}
			newConn, ch, err := dialRabbit(q.url)
			if err != nil {
				q.mu.Unlock()
				q.log.Error("RabbitMQ reconnect failed", zap.Error(err))
				continue
			}
			q.conn, q.channel = newConn, ch
			for _, sub := range q.subs {
				if err := q.consume(ch, sub); err != nil {
					q.log.Error("Failed to restore subscription", zap.String("subject", sub.subject), zap.Error(err))
				}
			}
			q.mu.Unlock()

			conn = newConn
			q.log.Info("Reconnected to RabbitMQ", zap.Int("subscriptions", len(q.subs)))
			break
		}
	}
}
