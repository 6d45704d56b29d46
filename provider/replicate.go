package provider

import (
	"bytes"
	"clementus360/ai-photo-editor/config"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

const replicateAPIURL = "https://api.replicate.com/v1"

type ReplicateService struct {
	apiToken   string
	baseURL    string
	httpClient *http.Client
}

func NewReplicateService(apiToken string) *ReplicateService {
	baseURL := replicateAPIURL
	// Overridable for local development against a stand-in endpoint.
	if override := os.Getenv("REPLICATE_API_URL"); override != "" {
		baseURL = override
	}
	return &ReplicateService{
		apiToken: apiToken,
		baseURL:  baseURL,
		// Add timeout to prevent hanging
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type replicateError struct {
	Detail string `json:"detail"`
}

// CreatePrediction submits a generation job. Replicate models accept a
// single input image; extra images are dropped with a warning rather
// than silently reshaping the request.
func (s *ReplicateService) CreatePrediction(params CreatePredictionParams) (Prediction, error) {
	input := map[string]interface{}{
		"prompt":      params.Prompt,
		"num_outputs": 1,
	}

	if len(params.InputImages) > 0 {
		input["image"] = params.InputImages[0]
		if len(params.InputImages) > 1 {
			config.Logger.Warnf("replicate supports a single input image, forwarding only the first of %d", len(params.InputImages))
		}
	}

	body := map[string]interface{}{
		"version": params.ModelID,
		"input":   input,
	}

	if params.WebhookURL != "" {
		body["webhook"] = params.WebhookURL
		body["webhook_events_filter"] = []string{"completed"}
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return Prediction{}, fmt.Errorf("failed to marshal request: %v", err)
	}

	req, err := http.NewRequest("POST", s.baseURL+"/predictions", bytes.NewReader(jsonData))
	if err != nil {
		return Prediction{}, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Prediction{}, fmt.Errorf("Replicate API error: %s", s.errorDetail(resp))
	}

	var prediction Prediction
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return Prediction{}, fmt.Errorf("failed to decode response: %v", err)
	}
	return prediction, nil
}

// GetPrediction queries the current state of a submitted job.
func (s *ReplicateService) GetPrediction(predictionID string) (Prediction, error) {
	req, err := http.NewRequest("GET", s.baseURL+"/predictions/"+predictionID, nil)
	if err != nil {
		return Prediction{}, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Prediction{}, fmt.Errorf("Replicate API error: %s", s.errorDetail(resp))
	}

	var prediction Prediction
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return Prediction{}, fmt.Errorf("failed to decode response: %v", err)
	}
	return prediction, nil
}

func (s *ReplicateService) ProviderName() string {
	return "Replicate"
}

// errorDetail pulls the "detail" field out of an error body, falling
// back to the HTTP status text when the body cannot be parsed.
func (s *ReplicateService) errorDetail(resp *http.Response) string {
	var apiErr replicateError
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return resp.Status
}
