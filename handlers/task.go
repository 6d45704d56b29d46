package handlers

import (
	"clementus360/ai-photo-editor/config"
	"clementus360/ai-photo-editor/provider"
	"clementus360/ai-photo-editor/reconciler"
	"clementus360/ai-photo-editor/supabase"
	"clementus360/ai-photo-editor/types"
	"errors"
	"net/http"
	"strconv"

	supa "github.com/supabase-community/supabase-go"
)

// GetTaskHandler answers a status query. When the task is still
// processing it also pulls the provider's current view and runs it
// through the reconciler, so the pull channel converges the record the
// same way the webhook channel does.
func GetTaskHandler(w http.ResponseWriter, r *http.Request) {
	taskID := r.URL.Query().Get("id")
	if taskID == "" {
		writeError(w, "Missing task ID", http.StatusBadRequest)
		return
	}

	client, userID, err := supabase.SupabaseClientFromRequest(r)
	if err != nil {
		config.Logger.Error("Failed to create Supabase client:", err)
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	task, err := supabase.GetTask(client, userID, taskID)
	if err != nil {
		if errors.Is(err, supabase.ErrNotFound) {
			writeError(w, "Task not found", http.StatusNotFound)
			return
		}
		config.Logger.Error("Failed to fetch task:", err)
		writeError(w, "Failed to fetch task", http.StatusInternalServerError)
		return
	}

	if task.Status == types.TaskStatusProcessing && task.ProviderJobID != "" {
		task = refreshFromProvider(client, userID, task)
	}

	writeJSON(w, http.StatusOK, types.TaskResponse{
		Success: true,
		Task:    task,
	})
}

// refreshFromProvider polls the provider for a processing task and
// reconciles whatever it reports. Failures here are logged and the
// stored record answered as-is; the next poll will try again.
func refreshFromProvider(client *supa.Client, userID string, task types.Task) types.Task {
	service, err := provider.CreateAIService("replicate")
	if err != nil {
		config.Logger.Warn("AI service unavailable for status refresh:", err)
		return task
	}

	prediction, err := service.GetPrediction(task.ProviderJobID)
	if err != nil {
		config.Logger.Warnf("failed to query provider for task %s: %v", task.ID, err)
		return task
	}

	if _, err := reconciler.Apply(client, task, reconciler.NormalizePrediction(prediction)); err != nil {
		config.Logger.Errorf("failed to reconcile task %s: %v", task.ID, err)
		return task
	}

	refreshed, err := supabase.GetTask(client, userID, task.ID)
	if err != nil {
		config.Logger.Warnf("failed to re-read task %s after reconciliation: %v", task.ID, err)
		return task
	}
	return refreshed
}

func GetTasksHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	sessionID := q.Get("session_id")
	limitStr := q.Get("limit")
	offsetStr := q.Get("offset")

	limit := supabase.DefaultTaskLimit
	offset := 0
	var err error

	if limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			config.Logger.Error("Invalid limit value:", err)
			writeError(w, "Invalid limit value", http.StatusBadRequest)
			return
		}
		if limit > supabase.MaxTaskLimit {
			limit = supabase.MaxTaskLimit
		}
	}

	if offsetStr != "" {
		offset, err = strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			config.Logger.Error("Invalid offset value:", err)
			writeError(w, "Invalid offset value", http.StatusBadRequest)
			return
		}
	}

	client, userID, err := supabase.SupabaseClientFromRequest(r)
	if err != nil {
		config.Logger.Error("Failed to create Supabase client:", err)
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	tasks, err := supabase.GetTasks(client, userID, sessionID, limit, offset)
	if err != nil {
		config.Logger.Error("Failed to fetch tasks:", err)
		writeError(w, "Failed to fetch tasks", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, types.GetTasksResponse{
		Success: true,
		Tasks:   tasks,
		Total:   len(tasks),
		Limit:   limit,
		Offset:  offset,
	})
}
