// Package listing drives items through the marketplace listing lifecycle.
package listing

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/erazemk/powerlister/internal/events"
	"github.com/erazemk/powerlister/internal/marketplace"
	"github.com/erazemk/powerlister/internal/model"
	"github.com/erazemk/powerlister/internal/store"
)

// Controller lists and unlists items on marketplaces. Only one operation
// runs at a time; concurrent calls fail with ErrOperationInProgress.
//
// The local item is changed only after the marketplace call succeeded, and
// the change is merged into the freshest stored copy of the item so that
// edits made while the call was in flight are kept.
type Controller struct {
	kv        store.KV
	registry  *marketplace.Registry
	publisher events.Publisher
	logger    *slog.Logger

	// Timeout bounds each marketplace call. Zero means no limit.
	Timeout time.Duration

	busy atomic.Bool
	now  func() time.Time
}

// NewController returns a Controller. A nil publisher logs events instead.
func NewController(kv store.KV, registry *marketplace.Registry, publisher events.Publisher, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = events.NewLogPublisher(logger)
	}
	return &Controller{
		kv:        kv,
		registry:  registry,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Busy reports whether an operation is in flight.
func (c *Controller) Busy() bool {
	return c.busy.Load()
}

func (c *Controller) acquire() error {
	if !c.busy.CompareAndSwap(false, true) {
		return ErrOperationInProgress
	}
	return nil
}

func (c *Controller) release() {
	c.busy.Store(false)
}

// capable returns the definition of a marketplace that has an integration.
func (c *Controller) capable(marketplaceID string) (marketplace.Definition, error) {
	def, ok := c.registry.FindByID(marketplaceID)
	if !ok {
		return def, &NotFoundError{Kind: "marketplace", ID: marketplaceID}
	}
	if !def.HasAPI {
		return def, &CapabilityError{Marketplace: marketplaceID}
	}
	return def, nil
}

func (c *Controller) loadItem(ctx context.Context, itemID string) (model.Item, error) {
	item, err := store.GetItem(ctx, c.kv, itemID)
	if err != nil {
		return model.Item{}, err
	}
	if item == nil {
		return model.Item{}, &NotFoundError{Kind: "item", ID: itemID}
	}
	return item.Clone(), nil
}

func (c *Controller) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout > 0 {
		return context.WithTimeout(ctx, c.Timeout)
	}
	return context.WithCancel(ctx)
}

// persist merges change into the stored item. The remote side has already
// changed at this point, so the write is not tied to the caller's context.
func (c *Controller) persist(ctx context.Context, itemID string, change func(*model.Item)) (*model.Item, error) {
	updated, err := store.ModifyItem(context.WithoutCancel(ctx), c.kv, itemID, func(it *model.Item) error {
		change(it)
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, &NotFoundError{Kind: "item", ID: itemID}
	}
	return updated, err
}

func (c *Controller) publish(ctx context.Context, typ, itemID, marketplaceID, listingID string) {
	e := events.Event{
		Type:        typ,
		ItemID:      itemID,
		Marketplace: marketplaceID,
		ListingID:   listingID,
		OccurredAt:  c.now().UTC(),
	}
	if err := c.publisher.Publish(context.WithoutCancel(ctx), e); err != nil {
		c.logger.Warn("failed to publish listing event", "type", typ, "item_id", itemID, "error", err)
	}
}

// List posts the item to a marketplace and records the listing. Listing an
// item on a marketplace it is already listed on succeeds without a remote call.
func (c *Controller) List(ctx context.Context, itemID, marketplaceID string) (*model.Item, error) {
	def, err := c.capable(marketplaceID)
	if err != nil {
		return nil, err
	}
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.release()

	item, err := c.loadItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.HasMarketplace(marketplaceID) {
		return &item, nil
	}

	callCtx, cancel := c.callContext(ctx)
	res, err := def.Lister.PostItem(callCtx, item.Clone())
	cancel()
	if err != nil || !res.Success {
		c.logger.Warn("posting item failed", "item_id", itemID, "marketplace", marketplaceID, "error", err, "reported", res.Error)
		return nil, remoteError(marketplaceID, "post", err, res.Error)
	}

	updated, err := c.persist(ctx, itemID, func(it *model.Item) {
		it.AddMarketplace(marketplaceID, res.ListingID)
	})
	if err != nil {
		c.logger.Error("listing posted but not recorded", "item_id", itemID, "marketplace", marketplaceID, "listing_id", res.ListingID, "error", err)
		return nil, err
	}

	c.logger.Info("item listed", "item_id", itemID, "marketplace", marketplaceID, "listing_id", res.ListingID)
	c.publish(ctx, events.TypeListingPosted, itemID, marketplaceID, res.ListingID)
	return updated, nil
}

// Unlist takes the item down from a marketplace it is listed on.
func (c *Controller) Unlist(ctx context.Context, itemID, marketplaceID string) (*model.Item, error) {
	def, err := c.capable(marketplaceID)
	if err != nil {
		return nil, err
	}
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.release()

	item, err := c.loadItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !item.HasMarketplace(marketplaceID) {
		return nil, &NotFoundError{Kind: "listing", ID: itemID + "@" + marketplaceID}
	}
	listingID := item.ListingID(marketplaceID)

	callCtx, cancel := c.callContext(ctx)
	res, err := def.Lister.UnlistItem(callCtx, item.Clone())
	cancel()
	if err != nil || !res.Success {
		c.logger.Warn("unlisting item failed", "item_id", itemID, "marketplace", marketplaceID, "error", err, "reported", res.Error)
		return nil, remoteError(marketplaceID, "unlist", err, res.Error)
	}

	updated, err := c.persist(ctx, itemID, func(it *model.Item) {
		it.RemoveMarketplace(marketplaceID)
	})
	if err != nil {
		c.logger.Error("item unlisted but not recorded", "item_id", itemID, "marketplace", marketplaceID, "error", err)
		return nil, err
	}

	c.logger.Info("item unlisted", "item_id", itemID, "marketplace", marketplaceID)
	c.publish(ctx, events.TypeListingUnlisted, itemID, marketplaceID, listingID)
	return updated, nil
}

// Update pushes changed fields to an existing listing. The local item is not
// modified; the edit has already been stored.
func (c *Controller) Update(ctx context.Context, itemID, marketplaceID string, updates map[string]any) (*model.Item, error) {
	def, err := c.capable(marketplaceID)
	if err != nil {
		return nil, err
	}
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.release()

	item, err := c.loadItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !item.HasMarketplace(marketplaceID) {
		return nil, &NotFoundError{Kind: "listing", ID: itemID + "@" + marketplaceID}
	}
	listingID := item.ListingID(marketplaceID)

	callCtx, cancel := c.callContext(ctx)
	res, err := def.Lister.UpdateItem(callCtx, listingID, updates)
	cancel()
	if err != nil || !res.Success {
		c.logger.Warn("updating listing failed", "item_id", itemID, "marketplace", marketplaceID, "error", err, "reported", res.Error)
		return nil, remoteError(marketplaceID, "update", err, res.Error)
	}

	c.logger.Info("listing updated", "item_id", itemID, "marketplace", marketplaceID, "listing_id", listingID)
	c.publish(ctx, events.TypeListingUpdated, itemID, marketplaceID, listingID)
	return &item, nil
}

// Remove takes down every active listing of the item and then deletes it.
// If a marketplace refuses, the listings removed so far are recorded and
// the item is kept. Listings on marketplaces without an integration are
// skipped.
func (c *Controller) Remove(ctx context.Context, itemID string) error {
	if err := c.acquire(); err != nil {
		return err
	}
	defer c.release()

	item, err := c.loadItem(ctx, itemID)
	if err != nil {
		return err
	}

	var removed []string
	for _, marketplaceID := range item.Marketplaces {
		def, err := c.capable(marketplaceID)
		if err != nil {
			c.logger.Warn("skipping listing removal", "item_id", itemID, "marketplace", marketplaceID, "error", err)
			continue
		}
		listingID := item.ListingID(marketplaceID)

		callCtx, cancel := c.callContext(ctx)
		res, err := def.Lister.RemoveItem(callCtx, listingID)
		cancel()
		if err != nil || !res.Success {
			c.logger.Warn("removing listing failed", "item_id", itemID, "marketplace", marketplaceID, "error", err, "reported", res.Error)
			c.recordRemoved(ctx, itemID, removed)
			return remoteError(marketplaceID, "remove", err, res.Error)
		}
		removed = append(removed, marketplaceID)
		c.publish(ctx, events.TypeListingRemoved, itemID, marketplaceID, listingID)
	}

	if err := store.DeleteItem(context.WithoutCancel(ctx), c.kv, itemID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &NotFoundError{Kind: "item", ID: itemID}
		}
		return err
	}
	c.logger.Info("item removed", "item_id", itemID, "listings", len(removed))
	return nil
}

// recordRemoved drops listings that were already taken down before a later one failed.
func (c *Controller) recordRemoved(ctx context.Context, itemID string, removed []string) {
	if len(removed) == 0 {
		return
	}
	_, err := c.persist(ctx, itemID, func(it *model.Item) {
		for _, id := range removed {
			it.RemoveMarketplace(id)
		}
	})
	if err != nil {
		c.logger.Error("listings removed but not recorded", "item_id", itemID, "marketplaces", removed, "error", err)
	}
}
