package model

import "time"

// Connection holds the credentials a user supplied for a marketplace.
// SealedSecret is never sent to clients.
type Connection struct {
	MarketplaceID string    `json:"marketplace_id"`
	APIKey        string    `json:"api_key"`
	SealedSecret  []byte    `json:"sealed_secret,omitempty"`
	ConnectedAt   time.Time `json:"connected_at"`
}
