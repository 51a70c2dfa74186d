package api

import (
	"net/http"

	"github.com/erazemk/powerlister/internal/analysis"
	"github.com/erazemk/powerlister/internal/listing"
	"github.com/erazemk/powerlister/internal/marketplace"
	"github.com/erazemk/powerlister/internal/secrets"
	"github.com/erazemk/powerlister/internal/store"
)

// Deps are the components the API handlers work with.
type Deps struct {
	KV        store.KV
	Registry  *marketplace.Registry
	Lifecycle *listing.Controller
	Box       *secrets.Box
	Analyzer  *analysis.Analyzer
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	itemsHandler := &ItemsHandler{KV: d.KV, Lifecycle: d.Lifecycle}
	imagesHandler := &ImagesHandler{KV: d.KV}
	listingsHandler := &ListingsHandler{Lifecycle: d.Lifecycle}
	marketplacesHandler := &MarketplacesHandler{Registry: d.Registry, KV: d.KV, Box: d.Box}
	profileHandler := &ProfileHandler{KV: d.KV}
	sessionHandler := &SessionHandler{KV: d.KV}
	analyzeHandler := &AnalyzeHandler{KV: d.KV, Analyzer: d.Analyzer}

	// Items.
	mux.HandleFunc("GET /api/items", itemsHandler.List)
	mux.HandleFunc("POST /api/items", itemsHandler.Create)
	mux.HandleFunc("GET /api/items/{id}", itemsHandler.Get)
	mux.HandleFunc("PATCH /api/items/{id}", itemsHandler.Patch)
	mux.HandleFunc("DELETE /api/items/{id}", itemsHandler.Delete)
	mux.HandleFunc("POST /api/items/{id}/sold", itemsHandler.MarkSold)

	// Item images.
	mux.HandleFunc("POST /api/items/{id}/images", imagesHandler.Upload)
	mux.HandleFunc("POST /api/items/{id}/images/move", imagesHandler.Move)
	mux.HandleFunc("DELETE /api/items/{id}/images/{index}", imagesHandler.Delete)
	mux.HandleFunc("GET /api/images/{id}", imagesHandler.Get)
	mux.HandleFunc("GET /api/images/{id}/thumb", imagesHandler.Thumb)

	// Listing lifecycle.
	mux.HandleFunc("POST /api/items/{id}/listings/{marketplace}", listingsHandler.List)
	mux.HandleFunc("DELETE /api/items/{id}/listings/{marketplace}", listingsHandler.Unlist)
	mux.HandleFunc("PUT /api/items/{id}/listings/{marketplace}", listingsHandler.Update)

	// Marketplaces.
	mux.HandleFunc("GET /api/marketplaces", marketplacesHandler.List)
	mux.HandleFunc("GET /api/marketplaces/{id}", marketplacesHandler.Get)
	mux.HandleFunc("PUT /api/marketplaces/{id}/connection", marketplacesHandler.Connect)
	mux.HandleFunc("DELETE /api/marketplaces/{id}/connection", marketplacesHandler.Disconnect)
	mux.HandleFunc("GET /api/connections", marketplacesHandler.Connections)

	// Profile and dashboard.
	mux.HandleFunc("GET /api/profile", profileHandler.Get)
	mux.HandleFunc("PUT /api/profile", profileHandler.Update)
	mux.HandleFunc("GET /api/stats", profileHandler.Stats)
	mux.HandleFunc("GET /api/catalog", profileHandler.Catalog)

	// Session.
	mux.HandleFunc("GET /api/session", sessionHandler.Get)
	mux.HandleFunc("POST /api/session", sessionHandler.Login)
	mux.HandleFunc("DELETE /api/session", sessionHandler.Logout)

	mux.HandleFunc("POST /api/analyze", analyzeHandler.Analyze)

	return mux
}
