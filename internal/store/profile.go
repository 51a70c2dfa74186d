package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/erazemk/powerlister/internal/model"
)

// LoadProfile returns the stored profile merged over the defaults, with the
// sales figures recomputed from the current item collection.
func LoadProfile(ctx context.Context, kv KV) (model.Profile, error) {
	profile := model.DefaultProfile()

	data, _, err := kv.Get(ctx, KeyProfile)
	if err != nil {
		return profile, fmt.Errorf("loading profile: %w", err)
	}
	if data != nil {
		if err := json.Unmarshal(data, &profile); err != nil {
			return profile, fmt.Errorf("decoding profile: %w", err)
		}
	}

	items, err := LoadItems(ctx, kv)
	if err != nil {
		return profile, err
	}
	return profile.WithDerivedStats(items), nil
}

// SaveProfile stores the editable part of the profile.
func SaveProfile(ctx context.Context, kv KV, profile model.Profile) error {
	profile.TotalSales = 0
	profile.TotalListings = 0
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	if _, err := kv.Put(ctx, KeyProfile, data); err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	return nil
}
