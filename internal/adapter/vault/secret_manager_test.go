package vault

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetSecrets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/secret/data/goal-reminder" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("X-Vault-Token") != "root" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"data":{"stripe_secret_key":"sk_live_x","openai_api_key":"sk-x","retries":3},"metadata":{"version":1}}}`))
	}))
	defer srv.Close()

	sm, err := NewSecretManager(srv.URL, "root", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := sm.GetSecrets(context.Background(), "goal-reminder")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["stripe_secret_key"] != "sk_live_x" || got["openai_api_key"] != "sk-x" {
		t.Errorf("unexpected secrets %v", got)
	}
	if _, ok := got["retries"]; ok {
		t.Error("non-string values should be skipped")
	}
}

func TestGetSecrets_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	sm, _ := NewSecretManager(srv.URL, "root", "secret")
	if _, err := sm.GetSecrets(context.Background(), "missing"); err == nil {
		t.Fatal("expected error")
	}
}
