package proxy

import (
	"encoding/json"
	"net/http"

	"github.com/quillfox/devgate/internal/types"
)

// model represents a single model in OpenAI-compatible list format.
type model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// modelsListResponse represents the OpenAI models list response.
type modelsListResponse struct {
	Object string  `json:"object"`
	Data   []model `json:"data"`
}

// ListModels serves GET /v1/models from the configured model aliases.
// The backend has no model discovery endpoint, so the alias table is the
// source of truth.
func (h *Handlers) ListModels(w http.ResponseWriter, r *http.Request) {
	aliases := h.Router.Models()

	data := make([]model, len(aliases))
	for i, a := range aliases {
		data[i] = model{
			ID:      a.Slug,
			Object:  "model",
			OwnedBy: a.Provider,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(modelsListResponse{
		Object: "list",
		Data:   data,
	})
}

// GetModel serves GET /v1/models/{model} from the configured model aliases.
func (h *Handlers) GetModel(w http.ResponseWriter, r *http.Request) {
	modelID := r.PathValue("model")
	if modelID == "" {
		types.WriteError(w, http.StatusBadRequest, types.ErrInvalidRequest("model ID required"))
		return
	}

	for _, a := range h.Router.Models() {
		if a.Slug == modelID {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(model{
				ID:      a.Slug,
				Object:  "model",
				OwnedBy: a.Provider,
			})
			return
		}
	}

	types.WriteError(w, http.StatusNotFound, types.ErrInvalidRequest("model '"+modelID+"' not found"))
}
