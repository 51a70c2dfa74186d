package api

import (
	"net/http"

	"github.com/erazemk/powerlister/internal/listing"
)

// ListingsHandler exposes the listing lifecycle for a single item.
type ListingsHandler struct {
	Lifecycle *listing.Controller
}

type updateListingRequest struct {
	Updates map[string]any `json:"updates" validate:"required,min=1"`
}

// List handles POST /api/items/{id}/listings/{marketplace}.
func (h *ListingsHandler) List(w http.ResponseWriter, r *http.Request) {
	item, err := h.Lifecycle.List(r.Context(), r.PathValue("id"), r.PathValue("marketplace"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Unlist handles DELETE /api/items/{id}/listings/{marketplace}.
func (h *ListingsHandler) Unlist(w http.ResponseWriter, r *http.Request) {
	item, err := h.Lifecycle.Unlist(r.Context(), r.PathValue("id"), r.PathValue("marketplace"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Update handles PUT /api/items/{id}/listings/{marketplace}.
func (h *ListingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateListingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	item, err := h.Lifecycle.Update(r.Context(), r.PathValue("id"), r.PathValue("marketplace"), req.Updates)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}
