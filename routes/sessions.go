package routes

import (
	"clementus360/ai-photo-editor/handlers"
	"net/http"
)

// RegisterSessionRoutes registers all session-related routes
func RegisterSessionRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /sessions", handlers.CreateSessionHandler)
	mux.HandleFunc("GET /sessions", handlers.GetSessionsHandler)
	mux.HandleFunc("GET /session", handlers.GetSessionHandler)
	mux.HandleFunc("PATCH /sessions/update", handlers.UpdateSessionHandler)
}
