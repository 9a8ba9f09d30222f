package scheduler

import (
	"context"
	"errors"
	"fmt"

	"lead_exchange_backend/internal/auction"
	"lead_exchange_backend/internal/leads/domain"
	leadsrepo "lead_exchange_backend/internal/leads/repository"
	"lead_exchange_backend/platform/config"
	"lead_exchange_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"
)

const pendingSweepConcurrency = 4

// Worker consumes auction tasks and drives the coordinator.
type Worker struct {
	server      *asynq.Server
	mux         *asynq.ServeMux
	leads       *leadsrepo.Repository
	coordinator *auction.Coordinator
	batchSize   int
	log         *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, leads *leadsrepo.Repository, coordinator *auction.Coordinator, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	batchSize := cfg.GetPendingBatchSize()
	if batchSize < 1 {
		batchSize = 50
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:      server,
		mux:         mux,
		leads:       leads,
		coordinator: coordinator,
		batchSize:   batchSize,
		log:         log,
	}

	mux.HandleFunc(TaskRunLead, w.handleRunLead)
	mux.HandleFunc(TaskRunPending, w.handleRunPending)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleRunLead(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseRunLeadPayload(task)
	if err != nil {
		return err
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return err
	}

	return w.runOne(ctx, leadID)
}

// handleRunPending sweeps the PENDING backlog. Leads claimed by a concurrent
// run_lead task lose the conditional status write inside the coordinator and
// are skipped there.
func (w *Worker) handleRunPending(ctx context.Context, _ *asynq.Task) error {
	pending, err := w.leads.ListPending(ctx, w.batchSize)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	w.log.Info("pending sweep started", "leads", len(pending))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pendingSweepConcurrency)
	for _, lead := range pending {
		leadID := lead.ID
		g.Go(func() error {
			if err := w.runOne(gctx, leadID); err != nil {
				w.log.Error("pending sweep lead failed", "leadId", leadID.String(), "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (w *Worker) runOne(ctx context.Context, leadID uuid.UUID) error {
	lead, err := w.leads.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, leadsrepo.ErrNotFound) {
			w.log.Warn("auction task for unknown lead", "leadId", leadID.String())
			return nil
		}
		return err
	}

	// Only fresh or already claimed leads can enter an auction. Anything
	// else is a stale task from a retry and is dropped.
	if lead.Status != domain.StatusPending && lead.Status != domain.StatusProcessing {
		w.log.Info("skipping auction task, lead already settled",
			"leadId", leadID.String(), "status", string(lead.Status))
		return nil
	}

	_, err = w.coordinator.Run(ctx, lead)
	if errors.Is(err, auction.ErrAlreadyRunning) {
		return nil
	}
	return err
}
