package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/powerlister/internal/model"
)

// maxWriteAttempts bounds the read-modify-write loop of UpdateItems.
const maxWriteAttempts = 3

// ErrLastImage is returned when deleting the only image of an item.
var ErrLastImage = errors.New("an item must keep at least one image")

// ItemFilter narrows ListItems. Empty fields match everything.
type ItemFilter struct {
	Query    string
	Status   string
	Category string
}

// LoadItems returns the whole item collection. A store that was never
// written returns an empty collection.
func LoadItems(ctx context.Context, kv KV) ([]model.Item, error) {
	items, _, err := loadItems(ctx, kv)
	return items, err
}

func loadItems(ctx context.Context, kv KV) ([]model.Item, int64, error) {
	data, version, err := kv.Get(ctx, KeyItems)
	if err != nil {
		return nil, 0, fmt.Errorf("loading items: %w", err)
	}
	items := []model.Item{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, 0, fmt.Errorf("decoding items: %w", err)
		}
	}
	for i := range items {
		items[i].Normalize()
	}
	return items, version, nil
}

func encodeItems(items []model.Item) ([]byte, error) {
	if items == nil {
		items = []model.Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encoding items: %w", err)
	}
	return data, nil
}

// SaveItems replaces the whole collection. The last writer wins; use
// UpdateItems for read-modify-write changes.
func SaveItems(ctx context.Context, kv KV, items []model.Item) error {
	data, err := encodeItems(items)
	if err != nil {
		return err
	}
	if _, err := kv.Put(ctx, KeyItems, data); err != nil {
		return fmt.Errorf("saving items: %w", err)
	}
	return nil
}

// UpdateItems loads the collection, applies fn and writes the result back
// only if nobody else wrote in between. On a version conflict the whole
// cycle is repeated, up to maxWriteAttempts times. fn may therefore run
// more than once and must not have side effects. An error from fn aborts.
func UpdateItems(ctx context.Context, kv KV, fn func([]model.Item) ([]model.Item, error)) ([]model.Item, error) {
	var lastErr error
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		items, version, err := loadItems(ctx, kv)
		if err != nil {
			return nil, err
		}
		updated, err := fn(items)
		if err != nil {
			return nil, err
		}
		data, err := encodeItems(updated)
		if err != nil {
			return nil, err
		}
		_, err = kv.CompareAndSet(ctx, KeyItems, data, version)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, ErrConflict) {
			return nil, fmt.Errorf("saving items: %w", err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("saving items after %d attempts: %w", maxWriteAttempts, lastErr)
}

// ModifyItem applies fn to the stored copy of one item and persists the
// collection. It returns the updated item, or ErrNotFound.
func ModifyItem(ctx context.Context, kv KV, id string, fn func(*model.Item) error) (*model.Item, error) {
	var result model.Item
	_, err := UpdateItems(ctx, kv, func(items []model.Item) ([]model.Item, error) {
		idx := indexOf(items, id)
		if idx < 0 {
			return nil, fmt.Errorf("item %s: %w", id, ErrNotFound)
		}
		if err := fn(&items[idx]); err != nil {
			return nil, err
		}
		items[idx].Normalize()
		result = items[idx].Clone()
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func indexOf(items []model.Item, id string) int {
	return slices.IndexFunc(items, func(it model.Item) bool { return it.ID == id })
}

// CreateItem validates fields, assigns an id and creation date and appends the item.
func CreateItem(ctx context.Context, kv KV, fields model.ItemFields, images []string) (*model.Item, error) {
	item := model.Item{
		ID:        uuid.NewString(),
		DateAdded: time.Now().Format(model.DateLayout),
		Images:    slices.Clone(images),
	}
	if err := fields.Apply(&item); err != nil {
		return nil, err
	}
	item.Normalize()

	_, err := UpdateItems(ctx, kv, func(items []model.Item) ([]model.Item, error) {
		return append(items, item.Clone()), nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}
	return &item, nil
}

// GetItem returns an item by id, or nil if it does not exist.
func GetItem(ctx context.Context, kv KV, id string) (*model.Item, error) {
	items, err := LoadItems(ctx, kv)
	if err != nil {
		return nil, err
	}
	idx := indexOf(items, id)
	if idx < 0 {
		return nil, nil
	}
	return &items[idx], nil
}

// ListItems returns the items matching filter in collection order. The query
// matches title, description and brand case-insensitively.
func ListItems(ctx context.Context, kv KV, filter ItemFilter) ([]model.Item, error) {
	items, err := LoadItems(ctx, kv)
	if err != nil {
		return nil, err
	}
	query := strings.ToLower(strings.TrimSpace(filter.Query))

	matched := []model.Item{}
	for _, it := range items {
		if filter.Status != "" && it.Status() != filter.Status {
			continue
		}
		if filter.Category != "" && !strings.EqualFold(it.Category, filter.Category) {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(it.Title), query) &&
			!strings.Contains(strings.ToLower(it.Description), query) &&
			!strings.Contains(strings.ToLower(it.Brand), query) {
			continue
		}
		matched = append(matched, it)
	}
	return matched, nil
}

// UpdateItemField edits a single descriptive field.
func UpdateItemField(ctx context.Context, kv KV, id, field, value string) (*model.Item, error) {
	return ModifyItem(ctx, kv, id, func(it *model.Item) error {
		return it.SetField(field, value)
	})
}

// MarkItemSold flags the item as sold. Active listings are kept.
func MarkItemSold(ctx context.Context, kv KV, id string) (*model.Item, error) {
	return ModifyItem(ctx, kv, id, func(it *model.Item) error {
		it.Sold = true
		return nil
	})
}

// DeleteItem removes the item and the images it owns.
func DeleteItem(ctx context.Context, kv KV, id string) error {
	var removed model.Item
	_, err := UpdateItems(ctx, kv, func(items []model.Item) ([]model.Item, error) {
		idx := indexOf(items, id)
		if idx < 0 {
			return nil, fmt.Errorf("item %s: %w", id, ErrNotFound)
		}
		removed = items[idx]
		return slices.Delete(items, idx, idx+1), nil
	})
	if err != nil {
		return err
	}

	for _, ref := range removed.Images {
		imageID, ok := ImageIDFromURL(ref)
		if !ok {
			continue
		}
		if err := DeleteImage(ctx, kv, imageID); err != nil {
			return err
		}
	}
	return nil
}

// AddItemImage appends an image reference to the item's gallery.
func AddItemImage(ctx context.Context, kv KV, id, ref string) (*model.Item, error) {
	return ModifyItem(ctx, kv, id, func(it *model.Item) error {
		it.Images = append(it.Images, ref)
		return nil
	})
}

// DeleteItemImage removes the image at index of the stored gallery and
// returns the updated item together with the removed reference. The last
// image cannot be removed.
func DeleteItemImage(ctx context.Context, kv KV, id string, index int) (*model.Item, string, error) {
	var removed string
	item, err := ModifyItem(ctx, kv, id, func(it *model.Item) error {
		if index < 0 || index >= len(it.Images) {
			return &model.ValidationError{Field: "index", Message: fmt.Sprintf("no image at index %d", index)}
		}
		if len(it.Images) <= 1 {
			return ErrLastImage
		}
		removed = it.Images[index]
		it.Images = slices.Delete(it.Images, index, index+1)
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return item, removed, nil
}

// MoveItemImage moves the image at from to position to, shifting the others.
func MoveItemImage(ctx context.Context, kv KV, id string, from, to int) (*model.Item, error) {
	return ModifyItem(ctx, kv, id, func(it *model.Item) error {
		n := len(it.Images)
		if from < 0 || from >= n {
			return &model.ValidationError{Field: "from", Message: fmt.Sprintf("no image at index %d", from)}
		}
		if to < 0 || to >= n {
			return &model.ValidationError{Field: "to", Message: fmt.Sprintf("no image at index %d", to)}
		}
		img := it.Images[from]
		it.Images = slices.Delete(it.Images, from, from+1)
		it.Images = slices.Insert(it.Images, to, img)
		return nil
	})
}
