// Package marketplace holds the catalog of supported marketplaces and the
// Lister implementations used to talk to them.
package marketplace

import (
	"context"

	"github.com/erazemk/powerlister/internal/model"
)

// Marketplace ids.
const (
	EBay     = "ebay"
	Facebook = "facebook"
	Mercari  = "mercari"
	Poshmark = "poshmark"
	Depop    = "depop"
)

// MsgAPINotAvailable is reported by marketplaces without an integration.
const MsgAPINotAvailable = "API not available"

// PostResult is the outcome of posting an item.
type PostResult struct {
	Success   bool   `json:"success"`
	ListingID string `json:"listing_id"`
	Error     string `json:"error,omitempty"`
}

// Result is the outcome of an update, unlist or remove call.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Lister performs remote listing operations on one marketplace.
//
// A failure reported by the marketplace is returned as a result with Success
// false. The error return is reserved for calls that did not complete, for
// example because ctx was cancelled or the circuit breaker is open.
type Lister interface {
	PostItem(ctx context.Context, item model.Item) (PostResult, error)
	UpdateItem(ctx context.Context, listingID string, updates map[string]any) (Result, error)
	UnlistItem(ctx context.Context, item model.Item) (Result, error)
	RemoveItem(ctx context.Context, listingID string) (Result, error)
}

// Definition describes a marketplace. Definitions are built once and never mutated.
type Definition struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Icon          string `json:"icon"`
	Description   string `json:"description"`
	HasAPI        bool   `json:"has_api"`
	SetupRequired bool   `json:"setup_required"`

	Lister Lister `json:"-"`
}
