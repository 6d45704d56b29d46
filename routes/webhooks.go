package routes

import (
	"clementus360/ai-photo-editor/config"
	"clementus360/ai-photo-editor/handlers"
	"net/http"
)

// RegisterWebhookRoutes registers the provider callback endpoint
func RegisterWebhookRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST "+config.WebhookPath, handlers.PhotoCompletionWebhookHandler)
	mux.HandleFunc("GET "+config.WebhookPath, handlers.WebhookHealthHandler)
}
