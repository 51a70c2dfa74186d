package model

import (
	"encoding/json"
	"slices"
)

// Item statuses. The status is derived from Sold and Marketplaces, see Item.Status.
const (
	ItemStatusDraft  = "draft"
	ItemStatusListed = "listed"
	ItemStatusSold   = "sold"
)

// Item represents a single inventory record owned by the reseller.
type Item struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Brand       string  `json:"brand"`
	Model       string  `json:"model"`
	Color       string  `json:"color"`
	Size        string  `json:"size"`
	Weight      string  `json:"weight"`
	Dimensions  string  `json:"dimensions"`
	Category    string  `json:"category"`
	Condition   string  `json:"condition"`
	Price       float64 `json:"price"`
	MSRP        float64 `json:"msrp"`

	// Image is always Images[0] when Images is non-empty.
	Image     string   `json:"image"`
	Images    []string `json:"images"`
	DateAdded string   `json:"date_added"`

	Sold         bool              `json:"sold"`
	Marketplaces []string          `json:"marketplaces"`
	ListingIDs   map[string]string `json:"listing_ids,omitempty"`
}

// Status derives the item status. A sold item stays sold regardless of its listings.
func (i Item) Status() string {
	switch {
	case i.Sold:
		return ItemStatusSold
	case len(i.Marketplaces) > 0:
		return ItemStatusListed
	default:
		return ItemStatusDraft
	}
}

// Discounted reports whether the reference price is above the asking price.
func (i Item) Discounted() bool {
	return i.MSRP > i.Price
}

// HasMarketplace reports whether the item has an active listing on the marketplace.
func (i Item) HasMarketplace(id string) bool {
	return slices.Contains(i.Marketplaces, id)
}

// AddMarketplace records an active listing. Adding a marketplace twice keeps a single entry.
func (i *Item) AddMarketplace(id, listingID string) {
	if !i.HasMarketplace(id) {
		i.Marketplaces = append(i.Marketplaces, id)
	}
	if listingID == "" {
		return
	}
	if i.ListingIDs == nil {
		i.ListingIDs = make(map[string]string)
	}
	i.ListingIDs[id] = listingID
}

// RemoveMarketplace drops an active listing. Removing an absent marketplace is a no-op.
func (i *Item) RemoveMarketplace(id string) {
	i.Marketplaces = slices.DeleteFunc(i.Marketplaces, func(m string) bool { return m == id })
	delete(i.ListingIDs, id)
	if len(i.ListingIDs) == 0 {
		i.ListingIDs = nil
	}
}

// ListingID returns the remote listing id for a marketplace, if known.
func (i Item) ListingID(marketplaceID string) string {
	return i.ListingIDs[marketplaceID]
}

// Clone returns a deep copy that shares no slices or maps with the original.
func (i *Item) Clone() Item {
	c := *i
	c.Images = slices.Clone(i.Images)
	c.Marketplaces = slices.Clone(i.Marketplaces)
	if c.Marketplaces == nil {
		c.Marketplaces = []string{}
	}
	if i.ListingIDs != nil {
		c.ListingIDs = make(map[string]string, len(i.ListingIDs))
		for k, v := range i.ListingIDs {
			c.ListingIDs[k] = v
		}
	}
	return c
}

// Normalize fills empty collections so that encoded items always carry arrays.
// An item that only has a primary image gets it as its single gallery image.
func (i *Item) Normalize() {
	if i.Marketplaces == nil {
		i.Marketplaces = []string{}
	}
	if len(i.Images) == 0 && i.Image != "" {
		i.Images = []string{i.Image}
	}
	if i.Images == nil {
		i.Images = []string{}
	}
	if len(i.Images) > 0 {
		i.Image = i.Images[0]
	}
}

type itemJSON Item

// MarshalJSON adds the derived status to the encoded item.
func (i Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		itemJSON
		Status string `json:"status"`
	}{
		itemJSON: itemJSON(i),
		Status:   i.Status(),
	})
}

// UnmarshalJSON accepts the encoded status for compatibility: "sold" marks the
// item sold, any other value is recomputed from the listings.
func (i *Item) UnmarshalJSON(data []byte) error {
	aux := struct {
		*itemJSON
		Status string `json:"status"`
	}{
		itemJSON: (*itemJSON)(i),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Status == ItemStatusSold {
		i.Sold = true
	}
	return nil
}
