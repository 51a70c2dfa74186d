// Package analysis simulates extracting listing details from a product photo.
package analysis

import (
	"context"
	"time"

	"github.com/erazemk/powerlister/internal/model"
)

// Steps are the labels shown while the analysis runs, in rotation.
var Steps = []string{
	"Analyzing image content...",
	"Identifying product details...",
	"Researching market prices...",
	"Generating description...",
	"Finalizing analysis...",
}

// CompleteMessage is the step label of the final progress report.
const CompleteMessage = "AI has successfully analyzed your item"

const percentPerTick = 2

// Progress is a coarse, time-based progress report.
type Progress struct {
	Percent int    `json:"percent"`
	Step    string `json:"step"`
	Done    bool   `json:"done"`
}

// Analyzer produces item fields from a photo. The photo is not inspected;
// every analysis returns the same result after a fixed sequence of delays.
type Analyzer struct {
	// Tick is the interval between progress reports. Each tick adds 2%.
	Tick time.Duration
	// StepInterval is how long each step label is shown.
	StepInterval time.Duration
	// FinalPause is the delay between reaching 100% and returning the result.
	FinalPause time.Duration
}

// New returns an Analyzer with the default timings, about five and a half seconds in total.
func New() *Analyzer {
	return &Analyzer{
		Tick:         100 * time.Millisecond,
		StepInterval: 1200 * time.Millisecond,
		FinalPause:   500 * time.Millisecond,
	}
}

// Analyze runs the analysis, calling progress after every tick. It stops
// early with ctx.Err() when ctx is done.
func (a *Analyzer) Analyze(ctx context.Context, photo []byte, progress func(Progress)) (model.ItemFields, error) {
	if progress == nil {
		progress = func(Progress) {}
	}

	var elapsed time.Duration
	for percent := 0; percent < 100; {
		if err := wait(ctx, a.Tick); err != nil {
			return model.ItemFields{}, err
		}
		elapsed += a.Tick
		percent = min(percent+percentPerTick, 100)

		p := Progress{Percent: percent, Step: a.step(elapsed)}
		if percent == 100 {
			p.Step = CompleteMessage
			p.Done = true
		}
		progress(p)
	}

	if err := wait(ctx, a.FinalPause); err != nil {
		return model.ItemFields{}, err
	}
	return Result(), nil
}

func (a *Analyzer) step(elapsed time.Duration) string {
	if a.StepInterval <= 0 {
		return Steps[0]
	}
	return Steps[int(elapsed/a.StepInterval)%len(Steps)]
}

// Result is the canned analysis outcome.
func Result() model.ItemFields {
	return model.ItemFields{
		Title:       "Apple iPhone 14 Pro",
		Description: "Premium smartphone with advanced camera system and A16 Bionic chip. Features ProRAW photography and Cinematic mode.",
		Price:       "899",
		MSRP:        "999",
		Category:    "Electronics",
		Condition:   "Excellent",
		Brand:       "Apple",
		Model:       "iPhone 14 Pro",
		Color:       "Deep Purple",
		Size:        `6.1"`,
		Weight:      "206g",
		Dimensions:  "5.81 × 2.81 × 0.31 in",
	}
}

func wait(ctx context.Context, d time.Duration) error {
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
