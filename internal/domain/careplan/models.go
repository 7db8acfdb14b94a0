package careplan

import (
	"fmt"

	"github.com/frat/frat/internal/platform/apperr"
)

// Model is a selectable language model.
type Model struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	upstream    string
}

// Models is the catalogue offered to clients, in display order.
var Models = []Model{
	{ID: "gemma", Name: "Gemma 3-27B IT (Free)", Description: "Advanced reasoning model by Google, completely free", upstream: "google/gemma-3-27b-it:free"},
	{ID: "nemotron-nano", Name: "NVIDIA Nemotron Nano 9B (Free)", Description: "Fast and efficient free model", upstream: "nvidia/nemotron-nano-9b-v2:free"},
	{ID: "gpt-oss-20b", Name: "GPT OSS 20B (Free)", Description: "Open-source GPT model, free to use", upstream: "openai/gpt-oss-20b:free"},
}

// LookupModel returns the catalogue entry for id.
func LookupModel(id string) (Model, error) {
	for _, m := range Models {
		if m.ID == id {
			return m, nil
		}
	}
	return Model{}, apperr.New(apperr.ErrValidation, fmt.Sprintf("Model '%s' not available", id))
}

// Upstream returns the provider's model name.
func (m Model) Upstream() string { return m.upstream }
