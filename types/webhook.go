package types

// ReplicateWebhookPayload is the body Replicate delivers to the callback
// URL. The same shape comes back from the prediction query endpoint, so
// the polling path reuses it.
type ReplicateWebhookPayload struct {
	ID          string   `json:"id"` // Replicate prediction id
	Status      string   `json:"status"`
	Output      []string `json:"output,omitempty"`
	Error       string   `json:"error,omitempty"`
	CompletedAt string   `json:"completed_at,omitempty"`
}

type WebhookResponse struct {
	Received     bool   `json:"received"`
	ErrorMessage string `json:"error,omitempty"`
}

type WebhookHealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
