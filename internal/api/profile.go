package api

import (
	"net/http"

	"github.com/erazemk/powerlister/internal/model"
	"github.com/erazemk/powerlister/internal/store"
)

// ProfileHandler serves the profile, dashboard stats and editor catalog.
type ProfileHandler struct {
	KV store.KV
}

type updateProfileRequest struct {
	Name     string  `json:"name" validate:"required,max=100"`
	Email    string  `json:"email" validate:"required,email"`
	Phone    string  `json:"phone" validate:"max=40"`
	Location string  `json:"location" validate:"max=100"`
	Avatar   string  `json:"avatar"`
	JoinDate string  `json:"join_date" validate:"omitempty,datetime=2006-01-02"`
	Rating   float64 `json:"rating" validate:"gte=0,lte=5"`
}

// Get handles GET /api/profile.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	profile, err := store.LoadProfile(r.Context(), h.KV)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, profile)
}

// Update handles PUT /api/profile. Sales figures are always derived and cannot be set.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	current, err := store.LoadProfile(r.Context(), h.KV)
	if err != nil {
		writeError(w, r, err)
		return
	}
	current.Name = req.Name
	current.Email = req.Email
	current.Phone = req.Phone
	current.Location = req.Location
	if req.Avatar != "" {
		current.Avatar = req.Avatar
	}
	if req.JoinDate != "" {
		current.JoinDate = req.JoinDate
	}
	current.Rating = req.Rating

	if err := store.SaveProfile(r.Context(), h.KV, current); err != nil {
		writeError(w, r, err)
		return
	}

	profile, err := store.LoadProfile(r.Context(), h.KV)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, profile)
}

// Stats handles GET /api/stats.
func (h *ProfileHandler) Stats(w http.ResponseWriter, r *http.Request) {
	items, err := store.LoadItems(r.Context(), h.KV)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, model.ComputeStats(items))
}

// Catalog handles GET /api/catalog, the choices offered by the item editor.
func (h *ProfileHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]any{
		"categories":      model.Categories,
		"conditions":      model.Conditions,
		"editable_fields": model.EditableFields,
	})
}
