package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const imageURLPrefix = "/api/images/"

// Image is a stored photo together with its thumbnail.
type Image struct {
	ID     string `json:"id"`
	MIME   string `json:"mime"`
	Data   []byte `json:"data"`
	Thumb  []byte `json:"thumb"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ImageURL returns the reference stored in Item.Images for an image id.
func ImageURL(id string) string {
	return imageURLPrefix + id
}

// ImageIDFromURL extracts the image id from a reference made by ImageURL.
// References to external images report false.
func ImageIDFromURL(ref string) (string, bool) {
	id, ok := strings.CutPrefix(ref, imageURLPrefix)
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// PutImage stores img, assigning an id if it has none, and returns the id.
func PutImage(ctx context.Context, kv KV, img Image) (string, error) {
	if img.ID == "" {
		img.ID = uuid.NewString()
	}
	data, err := json.Marshal(img)
	if err != nil {
		return "", fmt.Errorf("encoding image: %w", err)
	}
	if _, err := kv.Put(ctx, imageKeyPrefix+img.ID, data); err != nil {
		return "", fmt.Errorf("storing image: %w", err)
	}
	return img.ID, nil
}

// GetImage returns a stored image, or nil if it does not exist.
func GetImage(ctx context.Context, kv KV, id string) (*Image, error) {
	data, _, err := kv.Get(ctx, imageKeyPrefix+id)
	if err != nil {
		return nil, fmt.Errorf("getting image: %w", err)
	}
	if data == nil {
		return nil, nil
	}
	var img Image
	if err := json.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return &img, nil
}

// DeleteImage removes a stored image.
func DeleteImage(ctx context.Context, kv KV, id string) error {
	if err := kv.Delete(ctx, imageKeyPrefix+id); err != nil {
		return fmt.Errorf("deleting image: %w", err)
	}
	return nil
}
