package jobs

import (
	"encoding/json"
	"strings"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLinkedRefresh reloads the server-side receivables workbook.
	TaskLinkedRefresh = "ardash:linked_refresh"
)

// LinkedRefreshPayload describes why a refresh was requested.
type LinkedRefreshPayload struct {
	Reason   string `json:"reason"`
	Snapshot bool   `json:"snapshot"`
}

// NewLinkedRefreshTask constructs an Asynq task. An empty reason is recorded as "manual".
func NewLinkedRefreshTask(reason string, snapshot bool) (*asynq.Task, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "manual"
	}
	data, err := json.Marshal(LinkedRefreshPayload{Reason: reason, Snapshot: snapshot})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLinkedRefresh, data, asynq.MaxRetry(3)), nil
}
