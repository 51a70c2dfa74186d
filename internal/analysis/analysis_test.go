package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeReportsProgress(t *testing.T) {
	a := &Analyzer{Tick: time.Millisecond, StepInterval: 12 * time.Millisecond}

	var reports []Progress
	fields, err := a.Analyze(context.Background(), nil, func(p Progress) {
		reports = append(reports, p)
	})
	require.NoError(t, err)

	require.Len(t, reports, 50)
	for i, p := range reports {
		assert.Equal(t, (i+1)*2, p.Percent)
	}
	last := reports[len(reports)-1]
	assert.True(t, last.Done)
	assert.Equal(t, CompleteMessage, last.Step)
	assert.False(t, reports[len(reports)-2].Done)

	assert.Equal(t, Steps[0], reports[0].Step)
	// The 12th tick crosses the first step interval.
	assert.Equal(t, Steps[1], reports[11].Step)

	assert.Equal(t, Result(), fields)
}

func TestStepsRotate(t *testing.T) {
	a := &Analyzer{StepInterval: time.Second}
	assert.Equal(t, Steps[0], a.step(500*time.Millisecond))
	assert.Equal(t, Steps[4], a.step(4500*time.Millisecond))
	assert.Equal(t, Steps[0], a.step(5*time.Second))
}

func TestAnalyzeCancelled(t *testing.T) {
	a := New()
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := a.Analyze(ctx, nil, func(Progress) {
		calls++
		if calls == 3 {
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, calls)
}

func TestResultHasParsableAmounts(t *testing.T) {
	r := Result()
	assert.Equal(t, "Apple iPhone 14 Pro", r.Title)
	assert.Equal(t, "899", r.Price)
	assert.Equal(t, "999", r.MSRP)
}
