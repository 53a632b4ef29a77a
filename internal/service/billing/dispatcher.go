package billing

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/goalreminder/goal-reminder/internal/domain"
	"github.com/goalreminder/goal-reminder/internal/ports"
)

// EventsSubject is the broker subject verified billing events are published on.
const EventsSubject = "billing.events"

// Subscriber is the consuming half of the message queue.
type Subscriber interface {
	Subscribe(subject string, handler func(data []byte) error) error
}

// Dispatcher routes verified webhook events. With a publisher configured the
// event goes through the broker, which persists it before Publish returns;
// otherwise it is applied in the request.
type Dispatcher struct {
	publisher ports.EventPublisher
	events    ports.BillingEventService
	log       *zap.Logger
}

func NewDispatcher(publisher ports.EventPublisher, events ports.BillingEventService, log *zap.Logger) *Dispatcher {
	return &Dispatcher{publisher: publisher, events: events, log: log}
}

func (d *Dispatcher) Dispatch(ctx context.Context, ev *domain.BillingEvent) error {
	if d.publisher == nil {
		return d.events.Apply(ctx, ev)
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("billing: encode event: %w", err)
	}
	if err := d.publisher.Publish(ctx, EventsSubject, data); err != nil {
		return fmt.Errorf("billing: publish event %s: %w", ev.ID, err)
	}
	d.log.Debug("Billing event queued", zap.String("event_id", ev.ID), zap.String("event_type", string(ev.Type)))
	return nil
}

// Consume registers a handler that applies every event published on
// EventsSubject. Apply errors are returned so the broker redelivers the event.
func Consume(sub Subscriber, events ports.BillingEventService, log *zap.Logger) error {
	return sub.Subscribe(EventsSubject, func(data []byte) error {
		var ev domain.BillingEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Error("Dropping malformed billing event", zap.Error(err))
			return fmt.Errorf("billing: decode event: %w", err)
		}
		return events.Apply(context.Background(), &ev)
	})
}
