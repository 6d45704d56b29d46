package handlers

import (
	"clementus360/ai-photo-editor/config"
	"clementus360/ai-photo-editor/types"
	"net/http"
)

// GetModelsHandler lists the model catalog with per-use credit costs.
func GetModelsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.GetModelsResponse{
		Success: true,
		Models:  config.AvailableModels,
	})
}
