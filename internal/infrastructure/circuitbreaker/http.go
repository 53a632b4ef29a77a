package circuitbreaker

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/goalreminder/goal-reminder/internal/observability/telemetry"
)

// HTTPClient sends provider REST calls through a breaker and records their
// latency under the breaker's name.
type HTTPClient struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	system  string
	log     *zap.Logger
}

func NewHTTPClient(client *http.Client, breaker *gobreaker.CircuitBreaker, log *zap.Logger) *HTTPClient {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	system := "http"
	if breaker != nil {
		system = breaker.Name()
	}
	return &HTTPClient{
		client:  client,
		breaker: breaker,
		system:  system,
		log:     log,
	}
}

// Do executes req. Transport errors and 5xx responses count against the
// breaker; 4xx responses reach the caller so it can read the provider error.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	defer telemetry.ObserveExternalCall(c.system, req.Method, time.Now())

	resp, err := Execute(c.breaker, func() (*http.Response, error) {
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("%s: upstream returned %d", c.system, resp.StatusCode)
		}
		return resp, nil
	})
	if IsOpen(err) {
		c.log.Warn("Request short-circuited",
			zap.String("system", c.system),
			zap.String("host", req.URL.Host),
			zap.Error(err),
		)
	}
	return resp, err
}
