package handlers

import (
	"clementus360/ai-photo-editor/config"
	"clementus360/ai-photo-editor/credits"
	"clementus360/ai-photo-editor/provider"
	"clementus360/ai-photo-editor/supabase"
	"clementus360/ai-photo-editor/types"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProcessHandler accepts a generation request and dispatches it to the
// AI provider. The synchronous response only says accepted-or-rejected;
// the outcome arrives later through the webhook or the status query.
//
// Order matters: validate, then charge credits, then create the task,
// then dispatch. Credits consumed for a dispatch that later fails are
// not refunded.
func ProcessHandler(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()[:8]

	client, userID, err := supabase.SupabaseClientFromRequest(r)
	if err != nil {
		config.Logger.Errorf("[%s] Failed to create Supabase client: %v", requestID, err)
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req types.ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.Logger.Errorf("[%s] Failed to decode process request: %v", requestID, err)
		writeError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	if req.SessionID == "" || strings.TrimSpace(req.Prompt) == "" || req.ModelID == "" {
		writeError(w, "Missing required parameters", http.StatusBadRequest)
		return
	}

	session, err := supabase.GetSession(client, req.SessionID, userID)
	if err != nil {
		if errors.Is(err, supabase.ErrNotFound) {
			writeError(w, "Session not found", http.StatusNotFound)
			return
		}
		config.Logger.Errorf("[%s] Failed to fetch session: %v", requestID, err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	modelConfig := config.GetModelConfig(req.ModelID)
	if modelConfig == nil {
		writeError(w, "Invalid model", http.StatusBadRequest)
		return
	}

	balance, err := credits.GetUserCredits(client, userID)
	if err != nil {
		config.Logger.Errorf("[%s] Failed to fetch credit balance: %v", requestID, err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	config.Logger.Infof("[%s] user %s has %d credits, model %s needs %d", requestID, userID, balance, modelConfig.ID, modelConfig.CreditsPerUse)
	if balance < modelConfig.CreditsPerUse {
		err := &credits.InsufficientCreditsError{Required: modelConfig.CreditsPerUse, Available: balance}
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Charged before the task exists; no refund path from here on.
	if err := credits.ConsumeCredits(client, credits.Consumption{
		UserID:      userID,
		Amount:      modelConfig.CreditsPerUse,
		Description: fmt.Sprintf("AI image generation - %s", modelConfig.Name),
	}); err != nil {
		var insufficient *credits.InsufficientCreditsError
		if errors.As(err, &insufficient) {
			writeError(w, insufficient.Error(), http.StatusBadRequest)
			return
		}
		config.Logger.Errorf("[%s] Failed to consume credits: %v", requestID, err)
		writeError(w, "Failed to consume credits", http.StatusInternalServerError)
		return
	}

	sequence, err := supabase.CountSessionTasks(client, session.ID)
	if err != nil {
		config.Logger.Errorf("[%s] Failed to count session tasks: %v", requestID, err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	task := types.Task{
		ID:            uuid.NewString(),
		UserID:        userID,
		SessionID:     session.ID,
		Prompt:        req.Prompt,
		InputImages:   req.InputImages,
		Status:        types.TaskStatusPending,
		ProviderModel: req.ModelID,
		CreditsCost:   modelConfig.CreditsPerUse,
		SequenceOrder: sequence + 1,
		CreatedAt:     &now,
	}

	task, err = supabase.InsertTask(client, task)
	if err != nil {
		config.Logger.Errorf("[%s] Failed to insert task: %v", requestID, err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	config.Logger.Infof("[%s] created task %s (sequence %d) in session %s", requestID, task.ID, task.SequenceOrder, session.ID)

	// The record exists now, so the aggregate counts it immediately.
	// A dispatch failure below leaves a failed task behind, not a
	// session whose count disagrees with its records.
	if err := supabase.TouchSession(client, session, req.Prompt); err != nil {
		config.Logger.Errorf("[%s] Failed to touch session: %v", requestID, err)
	}

	prediction, err := dispatchTask(task)
	if err != nil {
		config.Logger.Errorf("[%s] AI service call failed: %v", requestID, err)
		if _, failErr := supabase.FailTaskIfRunning(client, task.ID, err.Error()); failErr != nil {
			config.Logger.Errorf("[%s] Failed to mark task failed: %v", requestID, failErr)
		}
		writeError(w, "AI service request failed; credits were consumed but the task did not complete", http.StatusInternalServerError)
		return
	}

	if err := supabase.SetTaskDispatched(client, task.ID, prediction.ID); err != nil {
		config.Logger.Errorf("[%s] Failed to record dispatch: %v", requestID, err)
		// Without the provider job id the status query can never refresh
		// this task; fail it instead of stranding it pending.
		if _, failErr := supabase.FailTaskIfRunning(client, task.ID, "failed to record provider job id"); failErr != nil {
			config.Logger.Errorf("[%s] Failed to mark task failed: %v", requestID, failErr)
		}
		writeError(w, "Failed to record dispatch; credits were consumed but the task did not complete", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, types.ProcessResponse{
		Success: true,
		TaskID:  task.ID,
	})
}

func dispatchTask(task types.Task) (provider.Prediction, error) {
	service, err := provider.CreateAIService("replicate")
	if err != nil {
		return provider.Prediction{}, err
	}

	webhookURL := provider.BuildWebhookURL(config.WebhookBaseURL(), task.ID)

	return service.CreatePrediction(provider.CreatePredictionParams{
		Prompt:      task.Prompt,
		InputImages: task.InputImages,
		ModelID:     task.ProviderModel,
		WebhookURL:  webhookURL,
	})
}
