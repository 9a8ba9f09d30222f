// Package client provides the outbound HTTP client for buyer PING/POST calls.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"lead_exchange_backend/internal/buyers/repository"
	"lead_exchange_backend/platform/logger"

	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
)

// maxResponseBytes caps the stored response snapshot.
const maxResponseBytes = 64 * 1024

// PingReply is the buyer's answer to a PING solicitation.
type PingReply struct {
	Accepted bool             `json:"accepted"`
	Bid      *decimal.Decimal `json:"bid,omitempty"`
	Reason   string           `json:"reason,omitempty"`
}

// CallResult captures the transport-level outcome of one buyer call,
// whatever happened. Body holds the raw response snapshot for the ledger.
type CallResult struct {
	HTTPStatus int
	Body       string
	Duration   time.Duration
	Attempts   int
}

type Client struct {
	httpClient *http.Client
	maxRetries int
	log        *logger.Logger
}

// New creates a buyer call client. maxRetries is the number of extra
// attempts after the first try; retries apply only to transient transport
// failures and never extend past the caller's context deadline.
func New(maxRetries int, log *logger.Logger) *Client {
	return &Client{
		// Per-call deadlines come from the caller's context.
		httpClient: &http.Client{},
		maxRetries: maxRetries,
		log:        log,
	}
}

// Ping solicits a bid from the buyer and decodes the reply.
func (c *Client) Ping(ctx context.Context, buyer repository.Buyer, payload map[string]any) (PingReply, CallResult, error) {
	result, err := c.call(ctx, buyer, payload)
	if err != nil {
		return PingReply{}, result, err
	}

	var reply PingReply
	if err := json.Unmarshal([]byte(result.Body), &reply); err != nil {
		return PingReply{}, result, fmt.Errorf("decode ping reply: %w", err)
	}
	return reply, result, nil
}

// Post delivers the lead to the winning buyer. The buyer's body is kept as
// an opaque snapshot; delivery confirmation arrives out of band via webhook.
func (c *Client) Post(ctx context.Context, buyer repository.Buyer, payload map[string]any) (CallResult, error) {
	return c.call(ctx, buyer, payload)
}

func (c *Client) call(ctx context.Context, buyer repository.Buyer, payload map[string]any) (CallResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return CallResult{}, fmt.Errorf("encode payload: %w", err)
	}

	start := time.Now()
	result := CallResult{}

	backoff := retry.WithMaxRetries(uint64(c.maxRetries), retry.NewExponential(250*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		result.Attempts++

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, buyer.APIURL, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if err := setAuthHeaders(req, buyer); err != nil {
			return err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Timeouts and connection errors are transient.
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		snapshot, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return retry.RetryableError(fmt.Errorf("read response: %w", err))
		}

		result.HTTPStatus = resp.StatusCode
		result.Body = string(snapshot)

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil
		case resp.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("upstream error: status %d", resp.StatusCode))
		default:
			// 4xx means the buyer understood and refused; retrying won't help.
			return fmt.Errorf("buyer rejected request: status %d", resp.StatusCode)
		}
	})

	result.Duration = time.Since(start)
	if err != nil {
		c.log.Warn("buyer call failed", "buyerRef", buyer.Ref, "url", buyer.APIURL,
			"attempts", result.Attempts, "error", err)
	}
	return result, err
}

func setAuthHeaders(req *http.Request, buyer repository.Buyer) error {
	switch buyer.AuthType {
	case repository.AuthTypeNone, "":
		return nil
	case repository.AuthTypeAPIKey:
		req.Header.Set("X-API-Key", buyer.AuthConfig["apiKey"])
	case repository.AuthTypeBearer:
		req.Header.Set("Authorization", "Bearer "+buyer.AuthConfig["token"])
	case repository.AuthTypeBasic:
		creds := buyer.AuthConfig["username"] + ":" + buyer.AuthConfig["password"]
		req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(creds)))
	default:
		return fmt.Errorf("unsupported auth type %q", buyer.AuthType)
	}
	return nil
}
