package marketplace

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/erazemk/powerlister/internal/model"
)

// StubLister simulates a marketplace integration: every call waits for a
// fixed delay and then succeeds. Listing ids are Prefix-<unix ms>.
type StubLister struct {
	Name      string
	Prefix    string
	PostDelay time.Duration
	CallDelay time.Duration
	Logger    *slog.Logger

	// Now overrides the clock used for listing ids.
	Now func() time.Time
}

func (s *StubLister) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *StubLister) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *StubLister) PostItem(ctx context.Context, item model.Item) (PostResult, error) {
	s.logger().Info("posting item", "title", item.Title)
	if err := sleep(ctx, s.PostDelay); err != nil {
		return PostResult{}, err
	}
	id := fmt.Sprintf("%s-%d", s.Prefix, s.now().UnixMilli())
	s.logger().Info("item posted", "listing_id", id)
	return PostResult{Success: true, ListingID: id}, nil
}

func (s *StubLister) UpdateItem(ctx context.Context, listingID string, updates map[string]any) (Result, error) {
	s.logger().Info("updating listing", "listing_id", listingID, "fields", len(updates))
	if err := sleep(ctx, s.CallDelay); err != nil {
		return Result{}, err
	}
	return Result{Success: true}, nil
}

func (s *StubLister) UnlistItem(ctx context.Context, item model.Item) (Result, error) {
	s.logger().Info("unlisting item", "title", item.Title)
	if err := sleep(ctx, s.CallDelay); err != nil {
		return Result{}, err
	}
	return Result{Success: true}, nil
}

func (s *StubLister) RemoveItem(ctx context.Context, listingID string) (Result, error) {
	s.logger().Info("removing listing", "listing_id", listingID)
	if err := sleep(ctx, s.CallDelay); err != nil {
		return Result{}, err
	}
	return Result{Success: true}, nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Unavailable is the Lister of marketplaces without an integration. Every call fails.
type Unavailable struct{}

func (Unavailable) PostItem(context.Context, model.Item) (PostResult, error) {
	return PostResult{Error: MsgAPINotAvailable}, nil
}

func (Unavailable) UpdateItem(context.Context, string, map[string]any) (Result, error) {
	return Result{Error: MsgAPINotAvailable}, nil
}

func (Unavailable) UnlistItem(context.Context, model.Item) (Result, error) {
	return Result{Error: MsgAPINotAvailable}, nil
}

func (Unavailable) RemoveItem(context.Context, string) (Result, error) {
	return Result{Error: MsgAPINotAvailable}, nil
}
