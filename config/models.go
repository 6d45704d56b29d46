package config

import "clementus360/ai-photo-editor/types"

// Models available in the photo editor. Each use costs a fixed number
// of credits, charged before the provider is called.
var AvailableModels = []types.AIModel{
	{
		ID:            "google/nano-banana",
		Name:          "Nano Banana",
		Provider:      "Google",
		CreditsPerUse: 8,
		MaxImages:     1,
		Description:   "Google's efficient image generation model, optimized for conversational editing",
	},
	{
		ID:            "bytedance/seedream-4",
		Name:          "SeeDream 4",
		Provider:      "ByteDance",
		CreditsPerUse: 12,
		MaxImages:     1,
		Description:   "ByteDance's advanced image generation model for high quality image creation",
	},
}

const DefaultModelID = "google/nano-banana"

// GetModelConfig returns the model with the given id, or nil if unknown.
func GetModelConfig(modelID string) *types.AIModel {
	for i := range AvailableModels {
		if AvailableModels[i].ID == modelID {
			return &AvailableModels[i]
		}
	}
	return nil
}

func IsValidModel(modelID string) bool {
	return GetModelConfig(modelID) != nil
}

// GetAffordableModels filters the catalog down to models the user can
// currently pay for.
func GetAffordableModels(userCredits int) []types.AIModel {
	affordable := []types.AIModel{}
	for _, model := range AvailableModels {
		if model.CreditsPerUse <= userCredits {
			affordable = append(affordable, model)
		}
	}
	return affordable
}
