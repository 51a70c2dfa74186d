package marketplace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/erazemk/powerlister/internal/model"
)

// ErrCircuitOpen is returned while a marketplace's breaker rejects calls.
var ErrCircuitOpen = errors.New("marketplace temporarily unavailable")

// errReported marks a failure the marketplace reported in its result, so the
// breaker counts it like a transport error.
var errReported = errors.New("marketplace reported failure")

type breakerLister struct {
	id   string
	next Lister
	cb   *gobreaker.CircuitBreaker[any]
}

// WithBreaker wraps l in a circuit breaker that opens after the given number
// of consecutive failures and then rejects calls for timeout. Cancelled calls
// are not counted as failures.
func WithBreaker(id string, l Lister, failures uint32, timeout time.Duration, logger *slog.Logger) Lister {
	if logger == nil {
		logger = slog.Default()
	}
	settings := gobreaker.Settings{
		Name:        id,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"marketplace", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}
	return &breakerLister{
		id:   id,
		next: l,
		cb:   gobreaker.NewCircuitBreaker[any](settings),
	}
}

func (b *breakerLister) execute(fn func() (any, bool, error)) (any, error) {
	result, err := b.cb.Execute(func() (any, error) {
		r, ok, err := fn()
		if err != nil {
			return nil, err
		}
		if !ok {
			return r, errReported
		}
		return r, nil
	})
	switch {
	case errors.Is(err, errReported):
		return result, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, fmt.Errorf("%s: %w", b.id, ErrCircuitOpen)
	}
	return result, err
}

func (b *breakerLister) PostItem(ctx context.Context, item model.Item) (PostResult, error) {
	r, err := b.execute(func() (any, bool, error) {
		res, err := b.next.PostItem(ctx, item)
		return res, res.Success, err
	})
	if err != nil {
		return PostResult{}, err
	}
	return r.(PostResult), nil
}

func (b *breakerLister) UpdateItem(ctx context.Context, listingID string, updates map[string]any) (Result, error) {
	return b.call(func() (Result, error) { return b.next.UpdateItem(ctx, listingID, updates) })
}

func (b *breakerLister) UnlistItem(ctx context.Context, item model.Item) (Result, error) {
	return b.call(func() (Result, error) { return b.next.UnlistItem(ctx, item) })
}

func (b *breakerLister) RemoveItem(ctx context.Context, listingID string) (Result, error) {
	return b.call(func() (Result, error) { return b.next.RemoveItem(ctx, listingID) })
}

func (b *breakerLister) call(fn func() (Result, error)) (Result, error) {
	r, err := b.execute(func() (any, bool, error) {
		res, err := fn()
		return res, res.Success, err
	})
	if err != nil {
		return Result{}, err
	}
	return r.(Result), nil
}
