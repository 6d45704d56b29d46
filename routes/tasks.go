package routes

import (
	"clementus360/ai-photo-editor/handlers"
	"net/http"
)

// RegisterTaskRoutes registers generation dispatch and task queries
func RegisterTaskRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /process", handlers.ProcessHandler)
	mux.HandleFunc("GET /task", handlers.GetTaskHandler)
	mux.HandleFunc("GET /tasks", handlers.GetTasksHandler)
	mux.HandleFunc("GET /models", handlers.GetModelsHandler)
}
