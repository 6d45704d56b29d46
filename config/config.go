package config

import "os"

const (
	// Storage bucket for persisted output images.
	DefaultImagesBucket = "ai-photo-editor"

	// Path the provider calls back on; the internal task id rides along
	// as a query parameter for correlation.
	WebhookPath = "/api/webhooks/ai-photo-completion"
)

func ImagesBucket() string {
	if bucket := os.Getenv("AI_IMAGES_BUCKET"); bucket != "" {
		return bucket
	}
	return DefaultImagesBucket
}

// WebhookBaseURL returns the externally reachable base URL for provider
// callbacks, or "" when none is configured (polling-only mode).
func WebhookBaseURL() string {
	if url := os.Getenv("REPLICATE_WEBHOOK_URL"); url != "" {
		return url
	}
	return os.Getenv("WEBHOOK_URL")
}
