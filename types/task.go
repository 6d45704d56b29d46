package types

import "time"

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Terminal reports whether a task in this status accepts no further
// transitions.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

type Task struct {
	ID             string     `json:"id,omitempty"`
	UserID         string     `json:"user_id"`
	SessionID      string     `json:"session_id"`
	Prompt         string     `json:"prompt"`
	InputImages    []string   `json:"input_images,omitempty"`
	OutputImageURL string     `json:"output_image_url,omitempty"`
	Status         TaskStatus `json:"status"`
	ProviderJobID  string     `json:"provider_job_id,omitempty"` // assigned by the AI provider after dispatch
	ProviderModel  string     `json:"provider_model"`
	CreditsCost    int        `json:"credits_cost"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	SequenceOrder  int        `json:"sequence_order"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

type ProcessRequest struct {
	SessionID   string   `json:"session_id"`
	Prompt      string   `json:"prompt"`
	InputImages []string `json:"input_images,omitempty"`
	ModelID     string   `json:"model_id"`
}

type ProcessResponse struct {
	Success      bool   `json:"success"`
	TaskID       string `json:"task_id,omitempty"`
	ErrorMessage string `json:"error,omitempty"`
}

type TaskResponse struct {
	Success      bool   `json:"success"`
	Task         Task   `json:"task,omitempty"`
	ErrorMessage string `json:"error,omitempty"` // only set on failure
}

type GetTasksResponse struct {
	Success      bool   `json:"success"`
	Tasks        []Task `json:"tasks,omitempty"`
	Total        int    `json:"total,omitempty"`  // Optional: total count for pagination
	Limit        int    `json:"limit,omitempty"`  // Echoed back from request
	Offset       int    `json:"offset,omitempty"` // Echoed back from request
	ErrorMessage string `json:"error,omitempty"`  // Only set on failure
}
