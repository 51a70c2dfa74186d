package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/powerlister/internal/imaging"
	"github.com/erazemk/powerlister/internal/model"
	"github.com/erazemk/powerlister/internal/store"
)

// ImagesHandler handles photo upload and gallery endpoints.
type ImagesHandler struct {
	KV store.KV
}

type moveImageRequest struct {
	From *int `json:"from" validate:"required,min=0"`
	To   *int `json:"to" validate:"required,min=0"`
}

// storeUpload reads the "photo" form file, processes it and stores it.
// It returns the image reference to put into an item.
func storeUpload(w http.ResponseWriter, r *http.Request, kv store.KV) (string, *imaging.Photo, error) {
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadSize)
	if err := r.ParseMultipartForm(imaging.MaxUploadSize); err != nil {
		return "", nil, &model.ValidationError{Field: "photo", Message: "file too large or invalid multipart form"}
	}

	file, _, err := r.FormFile("photo")
	if err != nil {
		return "", nil, &model.ValidationError{Field: "photo", Message: "photo file required"}
	}
	defer file.Close()

	photo, err := imaging.ProcessPhoto(file)
	if err != nil {
		return "", nil, err
	}

	id, err := store.PutImage(r.Context(), kv, store.Image{
		MIME:   photo.MIME,
		Data:   photo.Data,
		Thumb:  photo.Thumb,
		Width:  photo.Width,
		Height: photo.Height,
	})
	if err != nil {
		return "", nil, err
	}
	return store.ImageURL(id), photo, nil
}

// Upload handles POST /api/items/{id}/images.
func (h *ImagesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	itemID := r.PathValue("id")
	existing, err := store.GetItem(r.Context(), h.KV, itemID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if existing == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	ref, _, err := storeUpload(w, r, h.KV)
	if err != nil {
		writeError(w, r, err)
		return
	}

	item, err := store.AddItemImage(r.Context(), h.KV, itemID, ref)
	if err != nil {
		if id, ok := store.ImageIDFromURL(ref); ok {
			if derr := store.DeleteImage(context.WithoutCancel(r.Context()), h.KV, id); derr != nil {
				slog.Error("error discarding uploaded image", "image", id, "error", derr)
			}
		}
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, item)
}

// Delete handles DELETE /api/items/{id}/images/{index}.
func (h *ImagesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid image index")
		return
	}

	item, removed, err := store.DeleteItemImage(r.Context(), h.KV, r.PathValue("id"), index)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Drop the blob if this item owned it.
	if id, ok := store.ImageIDFromURL(removed); ok {
		if err := store.DeleteImage(r.Context(), h.KV, id); err != nil {
			writeError(w, r, err)
			return
		}
	}
	jsonResponse(w, http.StatusOK, item)
}

// Move handles POST /api/items/{id}/images/move.
func (h *ImagesHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req moveImageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	item, err := store.MoveItemImage(r.Context(), h.KV, r.PathValue("id"), *req.From, *req.To)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Get handles GET /api/images/{id}.
func (h *ImagesHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, false)
}

// Thumb handles GET /api/images/{id}/thumb.
func (h *ImagesHandler) Thumb(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, true)
}

func (h *ImagesHandler) serve(w http.ResponseWriter, r *http.Request, thumb bool) {
	img, err := store.GetImage(r.Context(), h.KV, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if img == nil {
		jsonError(w, http.StatusNotFound, "image not found")
		return
	}

	data := img.Data
	if thumb && len(img.Thumb) > 0 {
		data = img.Thumb
	}
	w.Header().Set("Content-Type", img.MIME)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}
