package marketplace

import (
	"log/slog"
	"time"
)

// Registry is a read-only catalog of marketplace definitions in a fixed order.
type Registry struct {
	defs []Definition
	byID map[string]int
}

// NewRegistry builds a registry from defs. Later definitions with a duplicate id are ignored.
func NewRegistry(defs ...Definition) *Registry {
	r := &Registry{byID: make(map[string]int, len(defs))}
	for _, d := range defs {
		if _, dup := r.byID[d.ID]; dup {
			continue
		}
		r.byID[d.ID] = len(r.defs)
		r.defs = append(r.defs, d)
	}
	return r
}

// FindByID returns the definition with the given id.
func (r *Registry) FindByID(id string) (Definition, bool) {
	idx, ok := r.byID[id]
	if !ok {
		return Definition{}, false
	}
	return r.defs[idx], true
}

// All returns every definition in catalog order.
func (r *Registry) All() []Definition {
	out := make([]Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Options configures DefaultRegistry.
type Options struct {
	// DelayScale multiplies the simulated network delays. Zero disables them.
	DelayScale float64
	// BreakerFailures is the number of consecutive failures that opens a
	// marketplace's circuit breaker. Zero disables the breakers.
	BreakerFailures uint32
	// BreakerTimeout is how long an open breaker rejects calls.
	BreakerTimeout time.Duration
	Logger         *slog.Logger
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		DelayScale:      1,
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
	}
}

func scaled(d time.Duration, scale float64) time.Duration {
	if scale <= 0 {
		return 0
	}
	return time.Duration(float64(d) * scale)
}

// DefaultRegistry returns the built-in catalog. eBay and Facebook use the
// simulated integration; the others have no API.
func DefaultRegistry(opts Options) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	capable := func(id, name, prefix string, postDelay time.Duration) Lister {
		var l Lister = &StubLister{
			Name:      name,
			Prefix:    prefix,
			PostDelay: scaled(postDelay, opts.DelayScale),
			CallDelay: scaled(1000*time.Millisecond, opts.DelayScale),
			Logger:    logger.With("marketplace", id),
		}
		if opts.BreakerFailures > 0 {
			l = WithBreaker(id, l, opts.BreakerFailures, opts.BreakerTimeout, logger)
		}
		return l
	}

	return NewRegistry(
		Definition{
			ID:            EBay,
			Name:          "eBay",
			Icon:          "🛒",
			Description:   "Reach millions of buyers worldwide",
			HasAPI:        true,
			SetupRequired: true,
			Lister:        capable(EBay, "eBay", "ebay", 1500*time.Millisecond),
		},
		Definition{
			ID:            Facebook,
			Name:          "Facebook Marketplace",
			Icon:          "📘",
			Description:   "Sell locally in your community",
			HasAPI:        true,
			SetupRequired: true,
			Lister:        capable(Facebook, "Facebook", "fb", 1200*time.Millisecond),
		},
		Definition{
			ID:          Mercari,
			Name:        "Mercari",
			Icon:        "🛍️",
			Description: "Mobile-first marketplace",
			Lister:      Unavailable{},
		},
		Definition{
			ID:          Poshmark,
			Name:        "Poshmark",
			Icon:        "👗",
			Description: "Fashion and lifestyle marketplace",
			Lister:      Unavailable{},
		},
		Definition{
			ID:          Depop,
			Name:        "Depop",
			Icon:        "✨",
			Description: "Creative community marketplace",
			Lister:      Unavailable{},
		},
	)
}
