package workflow

import "time"

// Workflow — описание сценария автоматизации на стороне оркестратора.
type Workflow struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Execution — одна запись о запуске сценария.
type Execution struct {
	ID         string    `json:"id"`
	WorkflowID string    `json:"workflowId"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"startedAt"`
	StoppedAt  time.Time `json:"stoppedAt"`
	Finished   bool      `json:"finished"`
}

type listWorkflowsResponse struct {
	Data []Workflow `json:"data"`
}

type listExecutionsResponse struct {
	Data []Execution `json:"data"`
}
