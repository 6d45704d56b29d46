package types

type AIModel struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	CreditsPerUse int    `json:"credits_per_use"`
	MaxImages     int    `json:"max_images"`
	Description   string `json:"description,omitempty"`
}

type GetModelsResponse struct {
	Success bool      `json:"success"`
	Models  []AIModel `json:"models"`
}

type ErrorResponse struct {
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error,omitempty"`
}
