package admin

import (
	"encoding/json"
	"net/http"

	"github.com/quillfox/devgate/internal/storage"
	"github.com/quillfox/devgate/internal/types"
)

// UpdateAPIKey updates an API key (PUT /api/admin/apikeys/{id}).
func (h *Handlers) UpdateAPIKey(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		types.WriteError(w, http.StatusBadRequest, types.ErrInvalidRequest("id required"))
		return
	}

	var updates UpdateAPIKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		types.WriteError(w, http.StatusBadRequest, types.ErrInvalidRequest("invalid request body"))
		return
	}

	key, err := h.Storage.GetAPIKey(id)
	if err != nil {
		if err == storage.ErrNotFound {
			types.WriteError(w, http.StatusNotFound, types.ErrNotFound("key not found"))
			return
		}
		types.WriteError(w, http.StatusInternalServerError, types.ErrServer("failed to get key"))
		return
	}

	if updates.Name != nil {
		key.Name = *updates.Name
	}
	if updates.Scopes != nil {
		for _, scope := range updates.Scopes {
			if !validScopes[scope] {
				types.WriteError(w, http.StatusBadRequest, types.ErrInvalidRequest("invalid scope: "+scope))
				return
			}
		}
		key.Scopes = updates.Scopes
	}
	if updates.RateLimit != nil {
		key.RateLimit = *updates.RateLimit
	}
	if updates.IsActive != nil {
		key.IsActive = *updates.IsActive
	}

	if err := h.Storage.UpdateAPIKey(key); err != nil {
		types.WriteError(w, http.StatusInternalServerError, types.ErrServer("failed to update key"))
		return
	}

	// Cached auth entries carry the old scopes and limits
	h.InvalidateAPIKeyCache(key.KeyPrefix)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(key.ToPreview())
}

// DeleteAPIKey deletes an API key (DELETE /api/admin/apikeys/{id}).
func (h *Handlers) DeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		types.WriteError(w, http.StatusBadRequest, types.ErrInvalidRequest("id required"))
		return
	}

	key, err := h.Storage.GetAPIKey(id)
	if err != nil {
		if err == storage.ErrNotFound {
			types.WriteError(w, http.StatusNotFound, types.ErrNotFound("key not found"))
			return
		}
		types.WriteError(w, http.StatusInternalServerError, types.ErrServer("failed to get key"))
		return
	}

	if err := h.Storage.DeleteAPIKey(id); err != nil {
		types.WriteError(w, http.StatusInternalServerError, types.ErrServer("failed to delete key"))
		return
	}

	h.InvalidateAPIKeyCache(key.KeyPrefix)

	w.WriteHeader(http.StatusNoContent)
}
