package evaluator

import (
	"math"

	"github.com/khanyong/kyyquant-ai-solution-sub002/condition"
	"github.com/khanyong/kyyquant-ai-solution-sub002/types"
)

// divergence compares the direction of the indicator history against the
// direction of the price history over the configured window (default 3
// samples). Regular bullish divergence wants price falling while the
// indicator rises; regular bearish the reverse. Hidden variants swap the
// price leg: hidden bullish reads price rising against a falling
// indicator, hidden bearish price falling against a rising indicator.
// Too little history, or a flat window, evaluates false.
func (e *Evaluator) divergence(c types.Condition, ctx Context, op string) bool {
	if c.Left == nil || c.Left.IsNumber() {
		return false
	}
	ind := lastWindow(ctx.History[c.Left.Series], e.cfg.DivergenceWindow)
	price := lastWindow(ctx.PriceHistory, e.cfg.DivergenceWindow)
	if ind == nil || price == nil {
		return false
	}

	indDir := e.direction(ind)
	priceDir := e.direction(price)
	if indDir == 0 || priceDir == 0 {
		return false
	}

	switch op {
	case condition.OpBullishDivergence:
		return priceDir < 0 && indDir > 0
	case condition.OpBearishDivergence:
		return priceDir > 0 && indDir < 0
	case condition.OpHiddenBullishDiv:
		return priceDir > 0 && indDir < 0
	case condition.OpHiddenBearishDiv:
		return priceDir < 0 && indDir > 0
	}
	return false
}

// direction reduces a window to -1/0/+1 by its first-to-last move; changes
// inside the epsilon dead zone count as flat.
func (e *Evaluator) direction(window []float64) int {
	delta := window[len(window)-1] - window[0]
	if math.Abs(delta) <= e.cfg.EpsilonTolerance {
		return 0
	}
	if delta > 0 {
		return 1
	}
	return -1
}

// lastWindow returns the trailing n samples, or nil when the history is
// too short.
func lastWindow(history []float64, n int) []float64 {
	if len(history) < n {
		return nil
	}
	return history[len(history)-n:]
}
