package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/powerlister/internal/marketplace"
	"github.com/erazemk/powerlister/internal/model"
	"github.com/erazemk/powerlister/internal/secrets"
	"github.com/erazemk/powerlister/internal/store"
)

// MarketplacesHandler serves the marketplace catalog and stored connections.
type MarketplacesHandler struct {
	Registry *marketplace.Registry
	KV       store.KV
	Box      *secrets.Box
}

type connectRequest struct {
	APIKey    string `json:"api_key" validate:"required,max=512"`
	APISecret string `json:"api_secret" validate:"required,max=512"`
}

type marketplaceView struct {
	marketplace.Definition
	Connected bool `json:"connected"`
}

type connectionView struct {
	MarketplaceID string    `json:"marketplace_id"`
	APIKey        string    `json:"api_key"`
	ConnectedAt   time.Time `json:"connected_at"`
}

func newConnectionView(c model.Connection) connectionView {
	return connectionView{
		MarketplaceID: c.MarketplaceID,
		APIKey:        maskKey(c.APIKey),
		ConnectedAt:   c.ConnectedAt,
	}
}

// maskKey keeps the last four characters of an API key.
func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

// connected reports the marketplaces with a usable connection. A connection
// whose secret no longer opens, for example after the store's key changed,
// has to be set up again.
func (h *MarketplacesHandler) connected(r *http.Request) (map[string]bool, error) {
	conns, err := store.ListConnections(r.Context(), h.KV)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(conns))
	for _, c := range conns {
		if _, err := h.Box.Open(c.SealedSecret); err != nil {
			slog.Warn("stored connection cannot be opened", "marketplace", c.MarketplaceID, "error", err)
			continue
		}
		set[c.MarketplaceID] = true
	}
	return set, nil
}

// List handles GET /api/marketplaces.
func (h *MarketplacesHandler) List(w http.ResponseWriter, r *http.Request) {
	connected, err := h.connected(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	defs := h.Registry.All()
	views := make([]marketplaceView, 0, len(defs))
	for _, d := range defs {
		views = append(views, marketplaceView{Definition: d, Connected: connected[d.ID]})
	}
	jsonResponse(w, http.StatusOK, views)
}

// Get handles GET /api/marketplaces/{id}.
func (h *MarketplacesHandler) Get(w http.ResponseWriter, r *http.Request) {
	def, ok := h.Registry.FindByID(r.PathValue("id"))
	if !ok {
		jsonError(w, http.StatusNotFound, "marketplace not found")
		return
	}

	connected, err := h.connected(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, marketplaceView{Definition: def, Connected: connected[def.ID]})
}

// Connect handles PUT /api/marketplaces/{id}/connection.
func (h *MarketplacesHandler) Connect(w http.ResponseWriter, r *http.Request) {
	def, ok := h.Registry.FindByID(r.PathValue("id"))
	if !ok {
		jsonError(w, http.StatusNotFound, "marketplace not found")
		return
	}
	if !def.SetupRequired {
		jsonError(w, http.StatusUnprocessableEntity, fmt.Sprintf("%s does not need a connection", def.Name))
		return
	}

	var req connectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	sealed, err := h.Box.Seal([]byte(req.APISecret))
	if err != nil {
		writeError(w, r, err)
		return
	}

	conn := model.Connection{
		MarketplaceID: def.ID,
		APIKey:        req.APIKey,
		SealedSecret:  sealed,
		ConnectedAt:   time.Now().UTC(),
	}
	if err := store.PutConnection(r.Context(), h.KV, conn); err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, newConnectionView(conn))
}

// Disconnect handles DELETE /api/marketplaces/{id}/connection.
func (h *MarketplacesHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := h.Registry.FindByID(id); !ok {
		jsonError(w, http.StatusNotFound, "marketplace not found")
		return
	}

	if err := store.DeleteConnection(r.Context(), h.KV, id); err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "disconnected"})
}

// Connections handles GET /api/connections.
func (h *MarketplacesHandler) Connections(w http.ResponseWriter, r *http.Request) {
	conns, err := store.ListConnections(r.Context(), h.KV)
	if err != nil {
		writeError(w, r, err)
		return
	}

	views := make([]connectionView, 0, len(conns))
	for _, c := range conns {
		views = append(views, newConnectionView(c))
	}
	jsonResponse(w, http.StatusOK, views)
}
