package staged

import (
	"testing"

	"github.com/khanyong/kyyquant-ai-solution-sub002/condition"
	"github.com/khanyong/kyyquant-ai-solution-sub002/evaluator"
	"github.com/khanyong/kyyquant-ai-solution-sub002/types"
)

func ladder(stages ...types.ProfitStage) *types.TargetProfit {
	return &types.TargetProfit{Staged: &types.StagedTarget{Enabled: true, Stages: stages}}
}

func tickAt(price float64) evaluator.Context {
	return evaluator.Context{Current: evaluator.Snapshot{
		Values: map[string]float64{condition.SeriesClose: price},
	}}
}

/*
-----------------------------------------------------------------------
Ratchet – floor(stage_i) = targetPrice(stage_{i-1}), floor(stage_1) =
entry, and the floor never moves down.
-----------------------------------------------------------------------
*/
func TestRatchetFloors(t *testing.T) {
	entry := 100.0
	steps := []types.ProfitStage{
		{Stage: 1, TargetPercent: 5, ExitRatioPercent: 30, DynamicStopLoss: true},
		{Stage: 2, TargetPercent: 10, ExitRatioPercent: 30, DynamicStopLoss: true},
		{Stage: 3, TargetPercent: 20, ExitRatioPercent: 40, DynamicStopLoss: true},
	}

	if got := FloorFor(entry, steps, 1); got != entry {
		t.Fatalf("stage 1 floor = %v, want entry %v", got, entry)
	}
	if got := FloorFor(entry, steps, 2); got != 105 {
		t.Fatalf("stage 2 floor = %v, want 105", got)
	}
	if got := FloorFor(entry, steps, 3); got != 110 {
		t.Fatalf("stage 3 floor = %v, want 110", got)
	}
}

// Target prices must come out exact for decimal inputs. In binary float
// 30*1.1 is 33.000000000000004, which would poison the ratchet floor.
func TestRatchetFloorExactPercentMath(t *testing.T) {
	steps := []types.ProfitStage{
		{Stage: 1, TargetPercent: 10, ExitRatioPercent: 50, DynamicStopLoss: true},
		{Stage: 2, TargetPercent: 20, ExitRatioPercent: 50, DynamicStopLoss: true},
	}
	if got := FloorFor(30, steps, 2); got != 33 {
		t.Fatalf("stage 2 floor = %v, want exactly 33", got)
	}
	if got := FloorFor(70.85, []types.ProfitStage{
		{Stage: 1, TargetPercent: 3, DynamicStopLoss: true},
		{Stage: 2, TargetPercent: 6, DynamicStopLoss: true},
	}, 2); got != 72.9755 {
		t.Fatalf("stage 2 floor = %v, want exactly 72.9755", got)
	}
}

func TestRatchetMonotonic(t *testing.T) {
	entry := 100.0
	steps := []types.ProfitStage{
		{Stage: 1, TargetPercent: 5, DynamicStopLoss: true},
		{Stage: 2, TargetPercent: 10, DynamicStopLoss: true},
	}
	r := NewRatchet(entry)
	r.OnTargetReached(steps, 2) // floor rises to stage 1 target, 105
	if r.Floor() != 105 {
		t.Fatalf("floor = %v, want 105", r.Floor())
	}
	// A later transition for an earlier stage must not lower the floor,
	// even though stage 3 never activates.
	r.OnTargetReached(steps, 1)
	if r.Floor() != 105 {
		t.Fatalf("floor fell to %v after an earlier-stage transition", r.Floor())
	}
}

/*
-----------------------------------------------------------------------
Sell signals – stop loss overrides everything with a full exit; among
simultaneously firing ladder stages the larger exit ratio wins; target
profit and indicator conditions OR together.
-----------------------------------------------------------------------
*/
func TestSellSignalStopLossOverrides(t *testing.T) {
	e := newEngine(t)
	r := NewRatchet(100)
	steps := []types.ProfitStage{{Stage: 1, TargetPercent: 5, ExitRatioPercent: 30, DynamicStopLoss: true}}
	r.OnTargetReached(steps, 1)

	sig, ok := e.SellSignal(nil, ladder(steps...), ExitState{EntryPrice: 100, Ratchet: r}, tickAt(99))
	if !ok {
		t.Fatal("price under the floor must produce a signal")
	}
	if sig.Reason != ReasonStopLoss || sig.ExitPercent != 100 {
		t.Fatalf("stop loss must exit the full position: %+v", sig)
	}
}

func TestSellSignalLargerExitWins(t *testing.T) {
	e := newEngine(t)
	tp := ladder(
		types.ProfitStage{Stage: 1, TargetPercent: 5, ExitRatioPercent: 30},
		types.ProfitStage{Stage: 2, TargetPercent: 10, ExitRatioPercent: 50},
	)
	// +12% profit reaches both targets in the same tick.
	sig, ok := e.SellSignal(nil, tp, ExitState{EntryPrice: 100}, tickAt(112))
	if !ok {
		t.Fatal("expected a signal")
	}
	if sig.StageIndex != 2 || sig.ExitPercent != 50 {
		t.Fatalf("the larger exit ratio must win: %+v", sig)
	}
	if sig.Reason != ReasonTargetProfit {
		t.Fatalf("unexpected reason %q", sig.Reason)
	}
}

func TestSellSignalTargetRaisesRatchet(t *testing.T) {
	e := newEngine(t)
	steps := []types.ProfitStage{
		{Stage: 1, TargetPercent: 5, ExitRatioPercent: 30, DynamicStopLoss: true},
		{Stage: 2, TargetPercent: 10, ExitRatioPercent: 30, DynamicStopLoss: true},
	}
	r := NewRatchet(100)
	if _, ok := e.SellSignal(nil, ladder(steps...), ExitState{EntryPrice: 100, Ratchet: r}, tickAt(111)); !ok {
		t.Fatal("expected a signal at +11%")
	}
	// Stage 2 completed, so the floor is stage 1's target price.
	if r.Floor() != 105 {
		t.Fatalf("floor = %v, want 105", r.Floor())
	}
}

func TestSellSignalIndicatorORsWithTargets(t *testing.T) {
	e := newEngine(t)
	s := &types.StagedStrategy{
		Side: types.Sell,
		Stages: []types.Stage{{
			Index: 1, Enabled: true, PositionPercent: 40,
			Indicators: []types.Condition{{
				Left: types.SeriesRef("rsi"), Operator: condition.OpGT, Right: types.Number(70),
			}},
		}},
	}
	ctx := tickAt(101)
	ctx.Current.Values["rsi"] = 80

	// No profit target configured at all: the indicator leg alone exits.
	sig, ok := e.SellSignal(s, nil, ExitState{EntryPrice: 100}, ctx)
	if !ok {
		t.Fatal("indicator condition alone must trigger an exit")
	}
	if sig.Reason != ReasonIndicator || sig.ExitPercent != 40 {
		t.Fatalf("unexpected signal: %+v", sig)
	}
}

func TestSellSignalSimpleTarget(t *testing.T) {
	e := newEngine(t)
	tp := &types.TargetProfit{Simple: &types.SimpleTarget{Enabled: true, TargetPercent: 3}}
	sig, ok := e.SellSignal(nil, tp, ExitState{EntryPrice: 100}, tickAt(104))
	if !ok || sig.Reason != ReasonSimpleTarget || sig.ExitPercent != 100 {
		t.Fatalf("simple target at +4%%: got %v %+v", ok, sig)
	}
	if _, ok := e.SellSignal(nil, tp, ExitState{EntryPrice: 100}, tickAt(102)); ok {
		t.Fatal("below the simple target no signal may fire")
	}
}

func TestSellSignalNoCloseNoSignal(t *testing.T) {
	e := newEngine(t)
	tp := &types.TargetProfit{Simple: &types.SimpleTarget{Enabled: true, TargetPercent: 3}}
	if _, ok := e.SellSignal(nil, tp, ExitState{EntryPrice: 100}, evaluator.Context{}); ok {
		t.Fatal("a snapshot without a close price must not signal")
	}
}
