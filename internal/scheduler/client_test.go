package scheduler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type testSchedulerConfig struct {
	redisURL string
}

func (c testSchedulerConfig) GetRedisURL() string                   { return c.redisURL }
func (c testSchedulerConfig) GetRedisTLSInsecure() bool             { return false }
func (c testSchedulerConfig) GetAsynqQueueName() string             { return "default" }
func (c testSchedulerConfig) GetAsynqConcurrency() int              { return 1 }
func (c testSchedulerConfig) GetPendingBatchSize() int              { return 10 }
func (c testSchedulerConfig) GetPendingScanInterval() time.Duration { return time.Minute }

func newTestClient(t *testing.T) (*Client, *asynq.Inspector) {
	t.Helper()

	mr := miniredis.RunT(t)
	cfg := testSchedulerConfig{redisURL: "redis://" + mr.Addr()}

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	t.Cleanup(func() { _ = inspector.Close() })

	return client, inspector
}

func TestEnqueueRunLead(t *testing.T) {
	client, inspector := newTestClient(t)

	leadID := uuid.New()
	if err := client.EnqueueRunLead(context.Background(), leadID); err != nil {
		t.Fatalf("EnqueueRunLead returned error: %v", err)
	}

	tasks, err := inspector.ListPendingTasks("default")
	if err != nil {
		t.Fatalf("ListPendingTasks returned error: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected one pending task, got %d", len(tasks))
	}
	if tasks[0].Type != TaskRunLead {
		t.Fatalf("expected task type %s, got %s", TaskRunLead, tasks[0].Type)
	}

	var payload RunLeadPayload
	if err := json.Unmarshal(tasks[0].Payload, &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if payload.LeadID != leadID.String() {
		t.Fatalf("expected lead id %s, got %s", leadID, payload.LeadID)
	}
}

func TestEnqueuePendingScan(t *testing.T) {
	client, inspector := newTestClient(t)

	if err := client.EnqueuePendingScan(context.Background()); err != nil {
		t.Fatalf("EnqueuePendingScan returned error: %v", err)
	}

	tasks, err := inspector.ListPendingTasks("default")
	if err != nil {
		t.Fatalf("ListPendingTasks returned error: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected one pending task, got %d", len(tasks))
	}
	if tasks[0].Type != TaskRunPending {
		t.Fatalf("expected task type %s, got %s", TaskRunPending, tasks[0].Type)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var client *Client
	if err := client.EnqueueRunLead(context.Background(), uuid.New()); err != nil {
		t.Fatalf("nil client must be a no-op, got %v", err)
	}
	if err := client.EnqueuePendingScan(context.Background()); err != nil {
		t.Fatalf("nil client must be a no-op, got %v", err)
	}
}
