package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TaskRunLead auctions a single lead by id.
const TaskRunLead = "auction.run_lead"

// TaskRunPending sweeps the PENDING backlog and auctions each lead. It acts
// as the safety net for leads whose intake-time enqueue failed.
const TaskRunPending = "auction.run_pending"

type RunLeadPayload struct {
	LeadID string `json:"leadId"`
}

func NewRunLeadTask(payload RunLeadPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRunLead, data), nil
}

func ParseRunLeadPayload(task *asynq.Task) (RunLeadPayload, error) {
	var payload RunLeadPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RunLeadPayload{}, err
	}
	return payload, nil
}

func NewRunPendingTask() *asynq.Task {
	return asynq.NewTask(TaskRunPending, nil)
}
