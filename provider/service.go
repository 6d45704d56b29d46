package provider

import (
	"fmt"
	"net/url"
	"os"

	"clementus360/ai-photo-editor/config"
)

// Prediction statuses reported by providers. "starting" and
// "processing" are intermediate, the rest are terminal.
const (
	StatusStarting   = "starting"
	StatusProcessing = "processing"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
	StatusCanceled   = "canceled"
)

type CreatePredictionParams struct {
	Prompt      string
	InputImages []string
	ModelID     string
	WebhookURL  string
}

type Prediction struct {
	ID          string   `json:"id"`
	Status      string   `json:"status"`
	Output      []string `json:"output,omitempty"`
	Error       string   `json:"error,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
	CompletedAt string   `json:"completed_at,omitempty"`
}

// AIService is the capability an image-generation backend must offer:
// submit a job, query a job, name itself.
type AIService interface {
	CreatePrediction(params CreatePredictionParams) (Prediction, error)
	GetPrediction(predictionID string) (Prediction, error)
	ProviderName() string
}

// CreateAIService builds the service for the named provider.
func CreateAIService(providerName string) (AIService, error) {
	switch providerName {
	case "replicate":
		apiToken := os.Getenv("REPLICATE_API_TOKEN")
		if apiToken == "" {
			return nil, fmt.Errorf("REPLICATE_API_TOKEN not set")
		}
		return NewReplicateService(apiToken), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", providerName)
	}
}

// BuildWebhookURL derives the callback address for a task. The task id
// travels as a query parameter so the webhook receiver can correlate
// the provider's signal back to our record. Returns "" when no base URL
// is configured, which puts the task on the polling-only path.
func BuildWebhookURL(baseURL, taskID string) string {
	if baseURL == "" {
		return ""
	}
	return baseURL + config.WebhookPath + "?task_id=" + url.QueryEscape(taskID)
}
