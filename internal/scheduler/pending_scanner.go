package scheduler

import (
	"context"
	"time"

	"lead_exchange_backend/platform/logger"
)

const defaultPendingScanInterval = 30 * time.Second

// PendingScanner periodically enqueues a PENDING backlog sweep so leads
// whose intake-time enqueue was lost still reach the auction.
type PendingScanner struct {
	client   *Client
	interval time.Duration
	log      *logger.Logger
}

func NewPendingScanner(client *Client, interval time.Duration, log *logger.Logger) *PendingScanner {
	if interval <= 0 {
		interval = defaultPendingScanInterval
	}
	return &PendingScanner{client: client, interval: interval, log: log}
}

func (s *PendingScanner) Run(ctx context.Context) {
	if s == nil || s.client == nil {
		return
	}

	s.scan(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.scan(ctx)
		}
	}
}

func (s *PendingScanner) scan(ctx context.Context) {
	if err := s.client.EnqueuePendingScan(ctx); err != nil {
		s.log.Error("failed to enqueue pending sweep", "error", err)
	}
}
