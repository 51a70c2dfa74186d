package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/erazemk/powerlister/internal/model"
)

const placeholderImage = "/placeholder.svg"

// DemoItems returns the sample collection shown to first-time users.
func DemoItems() []model.Item {
	items := []model.Item{
		{
			ID:          "1",
			Title:       "iPhone 14 Pro Max",
			Description: "Premium smartphone with advanced camera system, A16 Bionic chip, and stunning display. Perfect for photography enthusiasts and power users.",
			Price:       899,
			MSRP:        1099,
			Category:    "Electronics",
			Condition:   "Excellent",
			Brand:       "Apple",
			Model:       "iPhone 14 Pro Max",
			Color:       "Deep Purple",
			Size:        `6.7"`,
			Weight:      "240g",
			Dimensions:  "6.33 × 3.05 × 0.31 in",
			Image:       placeholderImage,
			DateAdded:   "2024-01-15",
		},
		{
			ID:          "2",
			Title:       "Nike Air Jordan 1 Retro",
			Description: "Classic basketball sneakers with iconic design and premium materials. A timeless addition to any sneaker collection with authentic styling.",
			Price:       180,
			MSRP:        170,
			Category:    "Footwear",
			Condition:   "Good",
			Brand:       "Nike",
			Model:       "Air Jordan 1 Retro",
			Color:       "White/Black/Red",
			Size:        "10",
			Weight:      "1.2 lbs",
			Dimensions:  "12 × 8 × 5 in",
			Image:       placeholderImage,
			DateAdded:   "2024-01-14",
			Sold:        true,
		},
		{
			ID:          "3",
			Title:       `MacBook Pro 16" M2`,
			Description: "Powerful laptop with M2 chip delivering exceptional performance for creative professionals. Features stunning Retina display and all-day battery life.",
			Price:       2199,
			MSRP:        2499,
			Category:    "Electronics",
			Condition:   "Like New",
			Brand:       "Apple",
			Model:       `MacBook Pro 16"`,
			Color:       "Space Gray",
			Size:        `16"`,
			Weight:      "4.7 lbs",
			Dimensions:  "14.01 × 9.77 × 0.66 in",
			Image:       placeholderImage,
			DateAdded:   "2024-01-13",
		},
	}
	items[0].AddMarketplace("ebay", "ebay-1705312800000")
	items[0].AddMarketplace("facebook", "fb-1705312800000")
	for i := range items {
		items[i].Normalize()
	}
	return items
}

// SeedDemoItems stores the demo collection if the store has no items yet.
// It reports whether the demo items were written.
func SeedDemoItems(ctx context.Context, kv KV) (bool, error) {
	data, err := encodeItems(DemoItems())
	if err != nil {
		return false, err
	}
	_, err = kv.CompareAndSet(ctx, KeyItems, data, 0)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrConflict) {
		return false, nil
	}
	return false, fmt.Errorf("seeding items: %w", err)
}
