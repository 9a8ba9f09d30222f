// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// LeadIDKey is the context key for the lead being processed
	LeadIDKey contextKey = "lead_id"
	// AuctionIDKey is the context key for the auction run ID
	AuctionIDKey contextKey = "auction_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
// Supports request_id, lead_id, and auction_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("request_id", requestID))}
	}

	if leadID, ok := ctx.Value(LeadIDKey).(string); ok && leadID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("lead_id", leadID))}
	}

	if auctionID, ok := ctx.Value(AuctionIDKey).(string); ok && auctionID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("auction_id", auctionID))}
	}

	return newLogger
}

// WithLeadID returns a logger scoped to a lead.
func (l *Logger) WithLeadID(leadID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("lead_id", leadID)),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// AuctionOutcome logs the outcome of one auction run.
func (l *Logger) AuctionOutcome(leadID, result string, solicited, accepted, rejected, errored int, winningBuyerID, winningBid string) {
	l.Info("auction_outcome",
		slog.String("lead_id", leadID),
		slog.String("result", result),
		slog.Int("solicited", solicited),
		slog.Int("accepted", accepted),
		slog.Int("rejected", rejected),
		slog.Int("errored", errored),
		slog.String("winning_buyer_id", winningBuyerID),
		slog.String("winning_bid", winningBid),
	)
}

// WebhookConflict logs a lost conditional status write during webhook reconciliation.
func (l *Logger) WebhookConflict(leadID, buyerID, attemptedFrom, attemptedTo, actual string) {
	l.Warn("webhook_status_conflict",
		slog.String("lead_id", leadID),
		slog.String("buyer_id", buyerID),
		slog.String("attempted_from", attemptedFrom),
		slog.String("attempted_to", attemptedTo),
		slog.String("actual_status", actual),
	)
}

// BuyerOverride logs a buyer-authoritative status override. High severity:
// the system believed the lead was delivered and the buyer disagreed.
func (l *Logger) BuyerOverride(leadID, buyerID, webhookStatus string) {
	l.Error("buyer_authoritative_override",
		slog.String("lead_id", leadID),
		slog.String("buyer_id", buyerID),
		slog.String("webhook_status", webhookStatus),
		slog.String("transition", "SOLD->DELIVERY_FAILED"),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
