// Package events publishes listing lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// Event types. They double as AMQP routing keys.
const (
	TypeListingPosted   = "listing.posted"
	TypeListingUnlisted = "listing.unlisted"
	TypeListingUpdated  = "listing.updated"
	TypeListingRemoved  = "listing.removed"
)

// Event records a completed listing operation.
type Event struct {
	Type        string    `json:"type"`
	ItemID      string    `json:"item_id"`
	Marketplace string    `json:"marketplace"`
	ListingID   string    `json:"listing_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Publisher delivers events. Publishing is best effort; callers log failures.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

func encode(e Event) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encoding event: %w", err)
	}
	return data, nil
}

// LogPublisher writes events to a logger. It is used when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher returns a LogPublisher. A nil logger means slog.Default().
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	p.logger.Info("listing event",
		"type", e.Type,
		"item_id", e.ItemID,
		"marketplace", e.Marketplace,
		"listing_id", e.ListingID,
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
