package integration

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/goalreminder/goal-reminder/internal/adapter/queue"
)

func startBroker(t *testing.T, req testcontainers.ContainerRequest, port, scheme string) string {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start %s: %v", req.Image, err)
	}
	t.Cleanup(func() { c.Terminate(context.Background()) })

	endpoint, err := c.PortEndpoint(ctx, nat.Port(port), scheme)
	if err != nil {
		t.Fatalf("Failed to resolve endpoint: %v", err)
	}
	return endpoint
}

// assertRedelivered publishes one message whose handler fails twice and checks
// the broker delivers it again until it succeeds.
func assertRedelivered(t *testing.T, cfg queue.Config) {
	t.Helper()
	cfg.Retry = queue.RetryPolicy{MaxDeliveries: 5, Delay: 200 * time.Millisecond}

	mq, err := queue.New(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer mq.Close()

	subject := fmt.Sprintf("billing.events.%d", time.Now().UnixNano())
	var attempts atomic.Int32
	done := make(chan struct{})
	err = mq.Subscribe(subject, func(data []byte) error {
		if attempts.Add(1) < 3 {
			return fmt.Errorf("transient failure")
		}
		close(done)
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mq.Publish(ctx, subject, []byte(`{"id":"evt_1"}`)); err != nil {
		t.Fatalf("Failed to publish: %v", err)
	}

	select {
	case <-done:
	case <-time.After(20 * time.Second):
		t.Fatalf("message was not redelivered, attempts=%d", attempts.Load())
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("expected 3 deliveries, got %d", got)
	}
}

func TestNATSQueue_RedeliversFailedMessage(t *testing.T) {
	url := startBroker(t, testcontainers.ContainerRequest{
		Image:        "nats:2.10-alpine",
		Cmd:          []string{"-js"},
		ExposedPorts: []string{"4222/tcp"},
		WaitingFor:   wait.ForLog("Server is ready").WithStartupTimeout(60 * time.Second),
	}, "4222/tcp", "nats")

	assertRedelivered(t, queue.Config{Provider: "nats", URL: url})
}

func TestRabbitMQQueue_RedeliversFailedMessage(t *testing.T) {
	url := startBroker(t, testcontainers.ContainerRequest{
		Image:        "rabbitmq:3.13-alpine",
		ExposedPorts: []string{"5672/tcp"},
		WaitingFor:   wait.ForLog("Server startup complete").WithStartupTimeout(90 * time.Second),
	}, "5672/tcp", "amqp")

	assertRedelivered(t, queue.Config{Provider: "rabbitmq", URL: url + "/"})
}
