package api

import (
	"net/http"

	"github.com/erazemk/powerlister/internal/listing"
	"github.com/erazemk/powerlister/internal/model"
	"github.com/erazemk/powerlister/internal/store"
)

// ItemsHandler handles item CRUD endpoints.
type ItemsHandler struct {
	KV        store.KV
	Lifecycle *listing.Controller
}

type createItemRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=5000"`
	Price       string   `json:"price"`
	MSRP        string   `json:"msrp"`
	Category    string   `json:"category"`
	Condition   string   `json:"condition"`
	Brand       string   `json:"brand"`
	Model       string   `json:"model"`
	Color       string   `json:"color"`
	Size        string   `json:"size"`
	Weight      string   `json:"weight"`
	Dimensions  string   `json:"dimensions"`
	Images      []string `json:"images" validate:"omitempty,dive,required"`
}

func (r createItemRequest) fields() model.ItemFields {
	return model.ItemFields{
		Title:       r.Title,
		Description: r.Description,
		Price:       r.Price,
		MSRP:        r.MSRP,
		Category:    r.Category,
		Condition:   r.Condition,
		Brand:       r.Brand,
		Model:       r.Model,
		Color:       r.Color,
		Size:        r.Size,
		Weight:      r.Weight,
		Dimensions:  r.Dimensions,
	}
}

type patchItemRequest struct {
	Field string `json:"field" validate:"required,oneof=title description price msrp category condition brand model color size weight dimensions"`
	Value string `json:"value"`
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ItemFilter{
		Query:    q.Get("q"),
		Status:   q.Get("status"),
		Category: q.Get("category"),
	}
	switch filter.Status {
	case "", model.ItemStatusDraft, model.ItemStatusListed, model.ItemStatusSold:
	default:
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	items, err := store.ListItems(r.Context(), h.KV, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	item, err := store.CreateItem(r.Context(), h.KV, req.fields(), req.Images)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := store.GetItem(r.Context(), h.KV, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Patch handles PATCH /api/items/{id}, a single field edit.
func (h *ItemsHandler) Patch(w http.ResponseWriter, r *http.Request) {
	var req patchItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	item, err := store.UpdateItemField(r.Context(), h.KV, r.PathValue("id"), req.Field, req.Value)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// MarkSold handles POST /api/items/{id}/sold.
func (h *ItemsHandler) MarkSold(w http.ResponseWriter, r *http.Request) {
	item, err := store.MarkItemSold(r.Context(), h.KV, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}. Active listings are taken down first.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Lifecycle.Remove(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}
