package routes

import "net/http"

// RegisterAllRoutes registers all application routes
func RegisterAllRoutes(mux *http.ServeMux) {
	RegisterSessionRoutes(mux)
	RegisterTaskRoutes(mux)
	RegisterWebhookRoutes(mux)
}
