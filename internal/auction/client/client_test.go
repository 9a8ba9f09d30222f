package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"lead_exchange_backend/internal/buyers/repository"
	"lead_exchange_backend/platform/logger"

	"github.com/shopspring/decimal"
)

func testClient(maxRetries int) *Client {
	return New(maxRetries, logger.New("development"))
}

func testBuyer(url string) repository.Buyer {
	return repository.Buyer{Ref: "acme", APIURL: url, AuthType: repository.AuthTypeNone}
}

func TestPingDecodesReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected json content type, got %q", ct)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"accepted": true, "bid": "42.50"})
	}))
	defer srv.Close()

	reply, result, err := testClient(0).Ping(context.Background(), testBuyer(srv.URL), map[string]any{"zip": "90210"})
	if err != nil {
		t.Fatalf("Ping returned error: %v", err)
	}
	if !reply.Accepted {
		t.Fatal("expected accepted reply")
	}
	if reply.Bid == nil || !reply.Bid.Equal(decimal.RequireFromString("42.50")) {
		t.Fatalf("expected bid 42.50, got %v", reply.Bid)
	}
	if result.HTTPStatus != http.StatusOK {
		t.Fatalf("expected status 200, got %d", result.HTTPStatus)
	}
	if result.Attempts != 1 {
		t.Fatalf("expected one attempt, got %d", result.Attempts)
	}
}

func TestCallRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"accepted":false,"reason":"coverage"}`))
	}))
	defer srv.Close()

	reply, result, err := testClient(2).Ping(context.Background(), testBuyer(srv.URL), nil)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if reply.Accepted {
		t.Fatal("expected rejected reply")
	}
	if result.Attempts != 3 {
		t.Fatalf("expected three attempts, got %d", result.Attempts)
	}
}

func TestCallDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, result, err := testClient(2).Ping(context.Background(), testBuyer(srv.URL), nil)
	if err == nil {
		t.Fatal("expected error for 4xx response")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("4xx must not be retried, server saw %d calls", got)
	}
	if result.HTTPStatus != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", result.HTTPStatus)
	}
}

func TestCallRetryBudgetExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	result, err := testClient(2).Post(context.Background(), testBuyer(srv.URL), nil)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if result.Attempts != 3 {
		t.Fatalf("expected first try plus two retries, got %d attempts", result.Attempts)
	}
}

func TestAuthHeaders(t *testing.T) {
	var gotAuth, gotAPIKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAPIKey = r.Header.Get("X-API-Key")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cases := []struct {
		name       string
		buyer      repository.Buyer
		wantAuth   string
		wantAPIKey string
	}{
		{
			name: "apikey",
			buyer: repository.Buyer{
				APIURL:     srv.URL,
				AuthType:   repository.AuthTypeAPIKey,
				AuthConfig: map[string]string{"apiKey": "k-123"},
			},
			wantAPIKey: "k-123",
		},
		{
			name: "bearer",
			buyer: repository.Buyer{
				APIURL:     srv.URL,
				AuthType:   repository.AuthTypeBearer,
				AuthConfig: map[string]string{"token": "tok-456"},
			},
			wantAuth: "Bearer tok-456",
		},
		{
			name: "basic",
			buyer: repository.Buyer{
				APIURL:     srv.URL,
				AuthType:   repository.AuthTypeBasic,
				AuthConfig: map[string]string{"username": "u", "password": "p"},
			},
			// base64("u:p")
			wantAuth: "Basic dTpw",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotAuth, gotAPIKey = "", ""
			if _, _, err := testClient(0).Ping(context.Background(), tc.buyer, nil); err != nil {
				t.Fatalf("Ping returned error: %v", err)
			}
			if gotAuth != tc.wantAuth {
				t.Fatalf("expected Authorization %q, got %q", tc.wantAuth, gotAuth)
			}
			if gotAPIKey != tc.wantAPIKey {
				t.Fatalf("expected X-API-Key %q, got %q", tc.wantAPIKey, gotAPIKey)
			}
		})
	}
}

func TestUnsupportedAuthType(t *testing.T) {
	buyer := repository.Buyer{APIURL: "http://127.0.0.1:1", AuthType: "kerberos"}
	if _, _, err := testClient(0).Ping(context.Background(), buyer, nil); err == nil {
		t.Fatal("expected error for unsupported auth type")
	}
}

func TestPingMalformedReplyFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	if _, _, err := testClient(0).Ping(context.Background(), testBuyer(srv.URL), nil); err == nil {
		t.Fatal("expected decode error for malformed reply")
	}
}
