package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/erazemk/powerlister/internal/analysis"
	"github.com/erazemk/powerlister/internal/model"
	"github.com/erazemk/powerlister/internal/store"
)

// AnalyzeHandler turns an uploaded photo into suggested item fields.
type AnalyzeHandler struct {
	KV       store.KV
	Analyzer *analysis.Analyzer
}

type analyzeResponse struct {
	Fields model.ItemFields `json:"fields"`
	Image  string           `json:"image"`
}

// Analyze handles POST /api/analyze. The photo is stored first so that the
// returned image reference can be passed straight to POST /api/items.
// With ?stream=1 the response is newline-delimited JSON: progress lines
// followed by the result.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	ref, photo, err := storeUpload(w, r, h.KV)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if r.URL.Query().Get("stream") != "1" {
		fields, err := h.Analyzer.Analyze(r.Context(), photo.Data, nil)
		if err != nil {
			h.discard(r, ref)
			writeError(w, r, err)
			return
		}
		jsonResponse(w, http.StatusOK, analyzeResponse{Fields: fields, Image: ref})
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	emit := func(v any) {
		if err := enc.Encode(v); err != nil {
			slog.Error("error encoding stream line", "error", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	fields, err := h.Analyzer.Analyze(r.Context(), photo.Data, func(p analysis.Progress) {
		emit(p)
	})
	if err != nil {
		h.discard(r, ref)
		emit(map[string]string{"error": err.Error()})
		return
	}
	emit(analyzeResponse{Fields: fields, Image: ref})
}

// discard removes an image stored for an analysis that did not finish.
func (h *AnalyzeHandler) discard(r *http.Request, ref string) {
	id, ok := store.ImageIDFromURL(ref)
	if !ok {
		return
	}
	if err := store.DeleteImage(context.WithoutCancel(r.Context()), h.KV, id); err != nil {
		slog.Error("error discarding analysis image", "image", id, "error", err)
	}
}
