// Package snapshot bridges streaming OHLCV bars to evaluator contexts.
// The builder feeds a goti indicator suite and flattens its
// already-computed oscillator values into the snapshot/history shape the
// evaluator consumes; it performs no indicator math of its own.
package snapshot

import (
	"github.com/evdnx/goti"

	"github.com/khanyong/kyyquant-ai-solution-sub002/condition"
	"github.com/khanyong/kyyquant-ai-solution-sub002/evaluator"
	"github.com/khanyong/kyyquant-ai-solution-sub002/logger"
)

// warmUpCloses matches the longest oscillator warm-up in the suite (RSI
// needs 14 closes).
const warmUpCloses = 14

// Builder accumulates bars and produces one evaluator.Context per tick.
// Not safe for concurrent use; one builder serves one symbol's stream.
type Builder struct {
	suite *goti.IndicatorSuite
	log   logger.Logger

	closes  *window
	rsiHist *window
	mfiHist *window

	prev *evaluator.Snapshot
}

// NewBuilder creates a builder around a default-configured suite.
func NewBuilder(log logger.Logger) (*Builder, error) {
	suite, err := goti.NewIndicatorSuiteWithConfig(goti.DefaultConfig())
	if err != nil {
		return nil, err
	}
	return NewBuilderWithSuite(suite, log), nil
}

// NewBuilderWithSuite wraps a caller-configured suite. A nil logger falls
// back to a no-op one.
func NewBuilderWithSuite(suite *goti.IndicatorSuite, log logger.Logger) *Builder {
	if log == nil {
		log = logger.NewNop()
	}
	return &Builder{
		suite:   suite,
		log:     log,
		closes:  newWindow(64),
		rsiHist: newWindow(64),
		mfiHist: newWindow(64),
	}
}

// AddBar feeds one OHLCV bar through the suite and refreshes the rolling
// histories. Suite errors are logged and reported but leave the builder
// usable; the next Context call simply reflects the last good state.
func (b *Builder) AddBar(high, low, close, volume float64) error {
	if err := b.suite.Add(high, low, close, volume); err != nil {
		b.log.Warn("suite_add_error", logger.Err(err))
		return err
	}
	b.closes.Add(close)
	if rsi, err := b.suite.GetRSI().Calculate(); err == nil {
		b.rsiHist.Add(rsi)
	}
	if mfi, err := b.suite.GetMFI().Calculate(); err == nil {
		b.mfiHist.Add(mfi)
	}
	return nil
}

// Ready reports whether enough closes are buffered for the oscillators to
// have settled.
func (b *Builder) Ready() bool {
	return len(b.suite.GetRSI().GetCloses()) >= warmUpCloses
}

// Context assembles the evaluation context for the current tick: the
// flattened current snapshot, the previous tick's snapshot for crossover
// predicates, and the short histories divergence predicates read. The
// second return is false until the suite has warmed up.
//
// Calling Context advances the previous-snapshot state, so call it once
// per AddBar.
func (b *Builder) Context() (evaluator.Context, bool) {
	if !b.Ready() {
		return evaluator.Context{}, false
	}

	values := map[string]float64{}
	closes := b.closes.Values()
	if len(closes) > 0 {
		values[condition.SeriesClose] = closes[len(closes)-1]
	}
	if rsi, err := b.suite.GetRSI().Calculate(); err == nil {
		values[condition.SeriesRSI] = rsi
	}
	if mfi, err := b.suite.GetMFI().Calculate(); err == nil {
		values["mfi"] = mfi
	}

	cur := evaluator.Snapshot{Values: values}
	ctx := evaluator.Context{
		Current:  cur,
		Previous: b.prev,
		History: map[string][]float64{
			condition.SeriesRSI: b.rsiHist.Values(),
			"mfi":               b.mfiHist.Values(),
		},
		PriceHistory: closes,
	}
	b.prev = &cur
	return ctx, true
}
