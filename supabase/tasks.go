package supabase

import (
	"clementus360/ai-photo-editor/types"
	"encoding/json"
	"fmt"
	"time"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
)

const (
	TasksTable = "ai_photo_tasks"

	DefaultTaskLimit = 20
	MaxTaskLimit     = 100
)

// Statuses a task can still transition away from. Terminal updates are
// filtered to these so a late or duplicate signal cannot overwrite a
// finished task.
var runningStatuses = []string{
	string(types.TaskStatusPending),
	string(types.TaskStatusProcessing),
}

// CountSessionTasks returns how many tasks exist in a session. The next
// task's sequence order is this count plus one.
func CountSessionTasks(client *supabase.Client, sessionID string) (int, error) {
	resp, _, err := client.From(TasksTable).
		Select("id", "", false).
		Eq("session_id", sessionID).
		Execute()
	if err != nil {
		return 0, fmt.Errorf("failed to count session tasks: %w", err)
	}

	var rows []types.Task
	if err := json.Unmarshal(resp, &rows); err != nil {
		return 0, fmt.Errorf("failed to decode task rows: %w", err)
	}
	return len(rows), nil
}

func InsertTask(client *supabase.Client, task types.Task) (types.Task, error) {
	created := []types.Task{task}

	resp, _, err := client.From(TasksTable).Insert(created, false, "", "", "").Execute()
	if err != nil {
		return types.Task{}, fmt.Errorf("failed to insert task: %w", err)
	}

	if err := json.Unmarshal(resp, &created); err != nil {
		return types.Task{}, fmt.Errorf("failed to decode inserted task: %w", err)
	}
	return created[0], nil
}

// GetTask fetches one task scoped to its owner. Someone else's task is
// indistinguishable from a missing one.
func GetTask(client *supabase.Client, userID, taskID string) (types.Task, error) {
	resp, _, err := client.From(TasksTable).
		Select("*", "", false).
		Eq("id", taskID).
		Eq("user_id", userID).
		Limit(1, "").
		Execute()
	if err != nil {
		return types.Task{}, err
	}

	var tasks []types.Task
	if err := json.Unmarshal(resp, &tasks); err != nil {
		return types.Task{}, fmt.Errorf("failed to decode task data: %w", err)
	}
	if len(tasks) == 0 {
		return types.Task{}, ErrNotFound
	}

	return tasks[0], nil
}

// GetTaskByID fetches a task without owner scoping. Webhook deliveries
// carry no user identity, only the correlation id.
func GetTaskByID(client *supabase.Client, taskID string) (types.Task, error) {
	resp, _, err := client.From(TasksTable).
		Select("*", "", false).
		Eq("id", taskID).
		Limit(1, "").
		Execute()
	if err != nil {
		return types.Task{}, err
	}

	var tasks []types.Task
	if err := json.Unmarshal(resp, &tasks); err != nil {
		return types.Task{}, fmt.Errorf("failed to decode task data: %w", err)
	}
	if len(tasks) == 0 {
		return types.Task{}, ErrNotFound
	}

	return tasks[0], nil
}

// GetTasks lists a user's tasks, optionally filtered by session, in
// sequence order.
func GetTasks(client *supabase.Client, userID, sessionID string, limit, offset int) ([]types.Task, error) {
	if limit < 1 {
		limit = DefaultTaskLimit
	}
	if limit > MaxTaskLimit {
		limit = MaxTaskLimit
	}

	query := client.From(TasksTable).
		Select("*", "", false).
		Eq("user_id", userID)

	if sessionID != "" {
		query = query.Eq("session_id", sessionID)
	}

	resp, _, err := query.
		Order("sequence_order", &postgrest.OrderOpts{Ascending: true}).
		Range(offset, offset+limit-1, "").
		Execute()
	if err != nil {
		return nil, err
	}

	var tasks []types.Task
	if err := json.Unmarshal(resp, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode task data: %w", err)
	}
	return tasks, nil
}

// SetTaskDispatched moves a pending task to processing and records the
// provider's job id for later correlation.
func SetTaskDispatched(client *supabase.Client, taskID, providerJobID string) error {
	_, _, err := client.From(TasksTable).
		Update(map[string]interface{}{
			"status":          types.TaskStatusProcessing,
			"provider_job_id": providerJobID,
		}, "", "").
		Eq("id", taskID).
		In("status", runningStatuses).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to mark task dispatched: %w", err)
	}
	return nil
}

// RefreshTaskProcessing applies an intermediate provider signal. It is
// a status refresh only: no completion timestamp, no output.
func RefreshTaskProcessing(client *supabase.Client, taskID string) error {
	_, _, err := client.From(TasksTable).
		Update(map[string]interface{}{
			"status": types.TaskStatusProcessing,
		}, "", "").
		Eq("id", taskID).
		In("status", runningStatuses).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to refresh task status: %w", err)
	}
	return nil
}

// CompleteTaskIfRunning transitions a task to completed with its owned
// output URL, but only if it is still running. The returned flag is
// false when the task was already terminal, which callers treat as a
// duplicate signal to discard.
func CompleteTaskIfRunning(client *supabase.Client, taskID, outputURL string) (bool, error) {
	resp, _, err := client.From(TasksTable).
		Update(map[string]interface{}{
			"status":           types.TaskStatusCompleted,
			"output_image_url": outputURL,
			"completed_at":     time.Now(),
		}, "", "").
		Eq("id", taskID).
		In("status", runningStatuses).
		Execute()
	if err != nil {
		return false, fmt.Errorf("failed to complete task: %w", err)
	}

	var updated []types.Task
	if err := json.Unmarshal(resp, &updated); err != nil {
		return false, fmt.Errorf("failed to decode update result: %w", err)
	}
	return len(updated) > 0, nil
}

// FailTaskIfRunning transitions a task to failed with an error message,
// only if it is still running.
func FailTaskIfRunning(client *supabase.Client, taskID, message string) (bool, error) {
	resp, _, err := client.From(TasksTable).
		Update(map[string]interface{}{
			"status":        types.TaskStatusFailed,
			"error_message": message,
			"completed_at":  time.Now(),
		}, "", "").
		Eq("id", taskID).
		In("status", runningStatuses).
		Execute()
	if err != nil {
		return false, fmt.Errorf("failed to mark task failed: %w", err)
	}

	var updated []types.Task
	if err := json.Unmarshal(resp, &updated); err != nil {
		return false, fmt.Errorf("failed to decode update result: %w", err)
	}
	return len(updated) > 0, nil
}
