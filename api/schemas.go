package api

import (
	"time"

	"github.com/taskflow-go/taskflow/tasks"
)

// createRequest is the POST /tasks body.
type createRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// updateRequest is the PUT /tasks/{id} body. Every field is optional;
// absent fields keep their stored value. Result accompanies
// status=completed and ErrorMessage accompanies status=failed; each
// outcome requires its payload.
type updateRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	Priority     *string `json:"priority"`
	Status       *string `json:"status"`
	Result       *string `json:"result"`
	ErrorMessage *string `json:"error_message"`
}

// healthResponse is the GET /health body.
type healthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// priorityOf parses an optional priority string, defaulting to medium.
func priorityOf(raw string) (tasks.Priority, error) {
	if raw == "" {
		return tasks.PriorityMedium, nil
	}
	return tasks.ParsePriority(raw)
}
