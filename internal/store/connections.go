package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/erazemk/powerlister/internal/model"
)

// ListConnections returns the stored marketplace connections.
func ListConnections(ctx context.Context, kv KV) ([]model.Connection, error) {
	conns, _, err := loadConnections(ctx, kv)
	return conns, err
}

func loadConnections(ctx context.Context, kv KV) ([]model.Connection, int64, error) {
	data, version, err := kv.Get(ctx, KeyConnections)
	if err != nil {
		return nil, 0, fmt.Errorf("loading connections: %w", err)
	}
	conns := []model.Connection{}
	if data != nil {
		if err := json.Unmarshal(data, &conns); err != nil {
			return nil, 0, fmt.Errorf("decoding connections: %w", err)
		}
	}
	return conns, version, nil
}

func updateConnections(ctx context.Context, kv KV, fn func([]model.Connection) []model.Connection) error {
	conns, version, err := loadConnections(ctx, kv)
	if err != nil {
		return err
	}
	data, err := json.Marshal(fn(conns))
	if err != nil {
		return fmt.Errorf("encoding connections: %w", err)
	}
	if _, err := kv.CompareAndSet(ctx, KeyConnections, data, version); err != nil {
		return fmt.Errorf("saving connections: %w", err)
	}
	return nil
}

// GetConnection returns the connection for a marketplace, or nil.
func GetConnection(ctx context.Context, kv KV, marketplaceID string) (*model.Connection, error) {
	conns, err := ListConnections(ctx, kv)
	if err != nil {
		return nil, err
	}
	for i := range conns {
		if conns[i].MarketplaceID == marketplaceID {
			return &conns[i], nil
		}
	}
	return nil, nil
}

// PutConnection stores conn, replacing any existing connection for the same marketplace.
func PutConnection(ctx context.Context, kv KV, conn model.Connection) error {
	return updateConnections(ctx, kv, func(conns []model.Connection) []model.Connection {
		conns = slices.DeleteFunc(conns, func(c model.Connection) bool {
			return c.MarketplaceID == conn.MarketplaceID
		})
		return append(conns, conn)
	})
}

// DeleteConnection removes the connection for a marketplace. Missing connections are ignored.
func DeleteConnection(ctx context.Context, kv KV, marketplaceID string) error {
	return updateConnections(ctx, kv, func(conns []model.Connection) []model.Connection {
		return slices.DeleteFunc(conns, func(c model.Connection) bool {
			return c.MarketplaceID == marketplaceID
		})
	})
}
