package staged

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/khanyong/kyyquant-ai-solution-sub002/condition"
	"github.com/khanyong/kyyquant-ai-solution-sub002/evaluator"
	"github.com/khanyong/kyyquant-ai-solution-sub002/logger"
	"github.com/khanyong/kyyquant-ai-solution-sub002/types"
)

// Exit signal reasons.
const (
	ReasonStopLoss     = "stop_loss"
	ReasonTargetProfit = "target_profit"
	ReasonSimpleTarget = "simple_target"
	ReasonIndicator    = "indicator"
)

// Ratchet tracks the dynamic stop-loss floor of one open position. The
// floor starts at the entry price and only ever moves up: once a profit
// stage with DynamicStopLoss completes, the floor becomes the previous
// stage's target price (entry price for the first stage) and never falls
// back, even if later stages never activate.
type Ratchet struct {
	entry float64
	floor float64
}

// NewRatchet starts a ratchet at the position's entry price.
func NewRatchet(entryPrice float64) *Ratchet {
	return &Ratchet{entry: entryPrice, floor: entryPrice}
}

// Floor returns the current stop-loss floor price.
func (r *Ratchet) Floor() float64 { return r.floor }

// OnTargetReached applies the pure transition for a completed ladder
// stage: floor(stage_i) = targetPrice(stage_{i-1}), floor(stage_1) =
// entry price. Lower candidates are ignored, keeping the floor monotonic.
func (r *Ratchet) OnTargetReached(ladder []types.ProfitStage, completed int) {
	candidate := FloorFor(r.entry, ladder, completed)
	if candidate > r.floor {
		r.floor = candidate
	}
}

// FloorFor computes the ratchet floor a completed stage implies, without
// any state: the target price of the stage before it in ladder order, or
// the entry price when the completed stage is the first rung.
func FloorFor(entryPrice float64, ladder []types.ProfitStage, completed int) float64 {
	sorted := sortedLadder(ladder)
	var prev *types.ProfitStage
	for i := range sorted {
		if sorted[i].Stage == completed {
			if prev == nil {
				return entryPrice
			}
			return targetPrice(entryPrice, prev.TargetPercent)
		}
		prev = &sorted[i]
	}
	return entryPrice
}

// targetPrice runs on decimals like CascadeAllocations so a 10% target
// at entry 100 is exactly 110, not a float artifact.
func targetPrice(entry, targetPercent float64) float64 {
	e := decimal.NewFromFloat(entry)
	pct := decimal.NewFromFloat(targetPercent)
	price, _ := e.Mul(hundred.Add(pct)).Div(hundred).Float64()
	return price
}

// ExitState is the per-position input to the sell-side decision: where
// the position was opened and what the ratchet currently holds. A nil
// Ratchet disables the stop-loss override.
type ExitState struct {
	EntryPrice float64
	Ratchet    *Ratchet
}

// SellSignal decides the sell side for one tick. Target-profit conditions
// and indicator conditions combine with OR at the top level regardless of
// any stage's internal combinator: either one triggers an exit. A current
// price at or under the ratchet floor always wins with a full-position
// exit. When several ladder stages fire in the same tick, the one with
// the larger exit ratio is chosen. Completed stages with DynamicStopLoss
// raise the ratchet as a side effect on state.Ratchet.
func (e *Engine) SellSignal(s *types.StagedStrategy, tp *types.TargetProfit,
	state ExitState, ctx evaluator.Context) (types.ExitSignal, bool) {

	price, ok := ctx.Current.Lookup(condition.SeriesClose)
	if !ok {
		return types.ExitSignal{}, false
	}

	// Stop loss overrides everything, including partial-exit ratios.
	if state.Ratchet != nil && price <= state.Ratchet.Floor() {
		return types.ExitSignal{StageIndex: 0, ExitPercent: 100, Reason: ReasonStopLoss}, true
	}

	best := types.ExitSignal{}
	fired := false
	take := func(sig types.ExitSignal) {
		if !fired || sig.ExitPercent > best.ExitPercent {
			best = sig
			fired = true
		}
	}

	profitPct := 0.0
	if state.EntryPrice > 0 {
		profitPct = (price - state.EntryPrice) / state.EntryPrice * 100
	}

	if tp != nil && tp.Staged != nil && tp.Staged.Enabled {
		for _, ps := range sortedLadder(tp.Staged.Stages) {
			if profitPct < ps.TargetPercent {
				continue
			}
			if ps.DynamicStopLoss && state.Ratchet != nil {
				state.Ratchet.OnTargetReached(tp.Staged.Stages, ps.Stage)
			}
			take(types.ExitSignal{
				StageIndex:  ps.Stage,
				ExitPercent: ps.ExitRatioPercent,
				Reason:      ReasonTargetProfit,
			})
		}
	}

	if tp != nil && tp.Simple != nil && tp.Simple.Enabled && profitPct >= tp.Simple.TargetPercent {
		take(types.ExitSignal{StageIndex: 0, ExitPercent: 100, Reason: ReasonSimpleTarget})
	}

	// Indicator-based sell conditions: the last enabled stage of the sell
	// strategy, OR-ed against the profit targets above.
	if side := e.EvaluateSide(s, ctx); side.Passed {
		last, _ := s.LastEnabled()
		take(types.ExitSignal{
			StageIndex:  last.Index,
			ExitPercent: exitPercentFor(last),
			Reason:      ReasonIndicator,
		})
	}

	if fired {
		e.log.Info("sell_signal",
			logger.Int("stage", best.StageIndex),
			logger.Float64("exit_percent", best.ExitPercent),
			logger.String("reason", best.Reason),
		)
	}
	return best, fired
}

// exitPercentFor maps an indicator-triggered stage to an exit size: the
// stage's configured position percent, full exit when unset.
func exitPercentFor(st types.Stage) float64 {
	if st.PositionPercent > 0 {
		return st.PositionPercent
	}
	return 100
}

func sortedLadder(ladder []types.ProfitStage) []types.ProfitStage {
	out := make([]types.ProfitStage, len(ladder))
	copy(out, ladder)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Stage < out[j].Stage })
	return out
}
