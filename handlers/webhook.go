package handlers

import (
	"clementus360/ai-photo-editor/config"
	"clementus360/ai-photo-editor/reconciler"
	"clementus360/ai-photo-editor/supabase"
	"clementus360/ai-photo-editor/types"
	"encoding/json"
	"errors"
	"net/http"
)

// PhotoCompletionWebhookHandler receives the provider's callback. The
// internal task id rides on the query string; the body is the raw
// prediction. Aside from a missing correlation id (the provider is
// misconfigured, a retry cannot help) and an unknown task, this always
// acknowledges with 200 so the provider does not retry forever over a
// problem that is ours to fix.
//
// Replicate signature verification is not implemented yet.
func PhotoCompletionWebhookHandler(w http.ResponseWriter, r *http.Request) {
	taskID := r.URL.Query().Get("task_id")
	if taskID == "" {
		config.Logger.Warn("Webhook missing task_id parameter")
		writeJSON(w, http.StatusBadRequest, types.WebhookResponse{
			Received:     false,
			ErrorMessage: "Missing task_id parameter",
		})
		return
	}

	var payload types.ReplicateWebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		config.Logger.Warn("Invalid webhook payload:", err)
		writeJSON(w, http.StatusBadRequest, types.WebhookResponse{
			Received:     false,
			ErrorMessage: "Invalid JSON body",
		})
		return
	}

	config.Logger.Infof("webhook received for task %s: provider id %s, status %s, outputs %d", taskID, payload.ID, payload.Status, len(payload.Output))

	// Webhook deliveries carry no user identity; the service client
	// looks the task up by correlation id alone.
	task, err := supabase.GetTaskByID(supabase.Client, taskID)
	if err != nil {
		if errors.Is(err, supabase.ErrNotFound) {
			config.Logger.Errorf("webhook for unknown task %s", taskID)
			writeJSON(w, http.StatusNotFound, types.WebhookResponse{
				Received:     false,
				ErrorMessage: "Task not found",
			})
			return
		}
		config.Logger.Errorf("failed to load task %s for webhook: %v", taskID, err)
		writeJSON(w, http.StatusOK, types.WebhookResponse{Received: true})
		return
	}

	outcome, err := reconciler.Apply(supabase.Client, task, reconciler.NormalizeWebhook(payload))
	if err != nil {
		// Acknowledge anyway; a provider retry would hit the same error.
		config.Logger.Errorf("failed to reconcile webhook for task %s: %v", taskID, err)
		writeJSON(w, http.StatusOK, types.WebhookResponse{Received: true})
		return
	}

	config.Logger.Infof("webhook for task %s applied: %s", taskID, outcome)
	writeJSON(w, http.StatusOK, types.WebhookResponse{Received: true})
}

// WebhookHealthHandler answers the provider-facing health check.
func WebhookHealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.WebhookHealthResponse{
		Status:  "ok",
		Message: "AI Photo Completion Webhook Endpoint",
	})
}
