package circuitbreaker

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestExecute_TripsAfterFailureRatio(t *testing.T) {
	cb := New(Settings{Name: "test", MinRequests: 2, FailureRatio: 0.5, Timeout: time.Minute}, zap.NewNop())
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		_, err := Execute(cb, func() (string, error) { return "", boom })
		if !errors.Is(err, boom) {
			t.Fatalf("call %d: expected boom, got %v", i, err)
		}
	}

	called := false
	_, err := Execute(cb, func() (string, error) {
		called = true
		return "ok", nil
	})
	if !IsOpen(err) {
		t.Fatalf("expected open breaker error, got %v", err)
	}
	if called {
		t.Error("function should not run while the breaker is open")
	}
}

func TestExecute_ReturnsTypedResult(t *testing.T) {
	cb := New(Settings{Name: "typed"}, zap.NewNop())
	got, err := Execute(cb, func() (int, error) { return 42, nil })
	if err != nil || got != 42 {
		t.Fatalf("got %d, %v", got, err)
	}
}

func TestExecute_NilBreakerCallsThrough(t *testing.T) {
	got, err := Execute(nil, func() (string, error) { return "direct", nil })
	if err != nil || got != "direct" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestHTTPClient_ServerErrorCountsAsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad-request" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.Client(), New(Settings{Name: "http"}, zap.NewNop()), zap.NewNop())

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/down", nil)
	if _, err := client.Do(req); err == nil {
		t.Fatal("expected error for 5xx response")
	}

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/bad-request", nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("4xx should not be an error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}
