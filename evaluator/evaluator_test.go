package evaluator

import (
	"errors"
	"testing"

	"github.com/khanyong/kyyquant-ai-solution-sub002/condition"
	"github.com/khanyong/kyyquant-ai-solution-sub002/config"
	"github.com/khanyong/kyyquant-ai-solution-sub002/testutils"
	"github.com/khanyong/kyyquant-ai-solution-sub002/types"
)

func newEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	ev, err := New(config.Default(), testutils.NewMockLogger())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return ev
}

func canon(left string, op string, right *types.Operand) types.Condition {
	return types.Condition{Left: types.SeriesRef(left), Operator: op, Right: right}
}

func snap(vals map[string]float64) Snapshot {
	return Snapshot{Values: vals}
}

/*
-----------------------------------------------------------------------
End-to-end scenario from the editing surface: a legacy rsi > 70 rule
evaluates true at rsi 75 and false at rsi 65.
-----------------------------------------------------------------------
*/
func TestEvaluateLegacyRSIThreshold(t *testing.T) {
	ev := newEvaluator(t)
	legacy := types.Condition{Indicator: "rsi", Operator: ">", Value: types.Number(70)}

	got, err := ev.Evaluate(legacy, Context{Current: snap(map[string]float64{"rsi": 75})})
	if err != nil || !got {
		t.Fatalf("rsi 75 > 70: got %v, %v", got, err)
	}
	got, err = ev.Evaluate(legacy, Context{Current: snap(map[string]float64{"rsi": 65})})
	if err != nil || got {
		t.Fatalf("rsi 65 > 70: got %v, %v", got, err)
	}
}

// Equality uses the epsilon tolerance rather than exact float comparison.
func TestEvaluateEpsilonEquality(t *testing.T) {
	ev := newEvaluator(t)
	c := canon("rsi", condition.OpEQ, types.Number(50))

	got, _ := ev.Evaluate(c, Context{Current: snap(map[string]float64{"rsi": 50.00005})})
	if !got {
		t.Fatal("value inside the epsilon band should compare equal")
	}
	got, _ = ev.Evaluate(c, Context{Current: snap(map[string]float64{"rsi": 50.1})})
	if got {
		t.Fatal("value outside the epsilon band should not compare equal")
	}
}

/*
-----------------------------------------------------------------------
Crossover boundary – previous exactly at the threshold arms the cross;
previous already above must not re-trigger.
-----------------------------------------------------------------------
*/
func TestCrossoverBoundary(t *testing.T) {
	ev := newEvaluator(t)
	c := canon("rsi", condition.OpCrossover, types.Number(30))

	prevAt := snap(map[string]float64{"rsi": 30})
	prevAbove := snap(map[string]float64{"rsi": 31})
	cur := snap(map[string]float64{"rsi": 32})

	got, _ := ev.Evaluate(c, Context{Current: cur, Previous: &prevAt})
	if !got {
		t.Fatal("previous at threshold, current above: crossover must fire")
	}
	got, _ = ev.Evaluate(c, Context{Current: cur, Previous: &prevAbove})
	if got {
		t.Fatal("previous already above: crossover must not re-trigger")
	}
}

// Without a previous snapshot the crossover is false, not an error.
func TestCrossoverNeedsPrevious(t *testing.T) {
	ev := newEvaluator(t)
	c := canon("rsi", condition.OpCrossover, types.Number(30))
	got, err := ev.Evaluate(c, Context{Current: snap(map[string]float64{"rsi": 40})})
	if err != nil || got {
		t.Fatalf("missing previous snapshot: got %v, %v", got, err)
	}
}

// Series-vs-series crossunder, the macd line dropping through its signal.
func TestCrossunderSeriesRight(t *testing.T) {
	ev := newEvaluator(t)
	c := canon("macd_line", condition.OpCrossunder, types.SeriesRef("macd_signal"))

	prev := snap(map[string]float64{"macd_line": 1.0, "macd_signal": 0.9})
	cur := snap(map[string]float64{"macd_line": 0.7, "macd_signal": 0.8})
	got, _ := ev.Evaluate(c, Context{Current: cur, Previous: &prev})
	if !got {
		t.Fatal("macd line fell through its signal; crossunder must fire")
	}
}

/*
-----------------------------------------------------------------------
Composite records – snapshots may carry multi-output indicators as one
record; missing sub-fields evaluate false rather than erroring.
-----------------------------------------------------------------------
*/
func TestCompositeRecordLookup(t *testing.T) {
	ev := newEvaluator(t)
	c := canon("macd_hist", condition.OpGT, types.Number(0))

	ctx := Context{Current: Snapshot{
		Records: map[string]map[string]float64{
			"macd": {"macd": 1.2, "signal": 0.8, "histogram": 0.4},
		},
	}}
	got, err := ev.Evaluate(c, ctx)
	if err != nil || !got {
		t.Fatalf("histogram 0.4 > 0: got %v, %v", got, err)
	}

	// Drop the sub-field; the predicate degrades to false.
	ctx.Current.Records["macd"] = map[string]float64{"macd": 1.2}
	got, err = ev.Evaluate(c, ctx)
	if err != nil || got {
		t.Fatalf("missing sub-field: got %v, %v", got, err)
	}
}

func TestCloudPredicates(t *testing.T) {
	ev := newEvaluator(t)
	above := canon("close", condition.OpPriceAboveCloud, types.SeriesRef("ichimoku_cloud"))
	below := canon("close", condition.OpPriceBelowCloud, types.SeriesRef("ichimoku_cloud"))

	ctx := Context{Current: Snapshot{
		Values: map[string]float64{"close": 110},
		Records: map[string]map[string]float64{
			"ichimoku": {"senkou_a": 100, "senkou_b": 105},
		},
	}}
	if got, _ := ev.Evaluate(above, ctx); !got {
		t.Fatal("close 110 is above both senkou lines")
	}
	if got, _ := ev.Evaluate(below, ctx); got {
		t.Fatal("close 110 is not below the cloud")
	}

	// Inside the cloud: neither predicate holds.
	ctx.Current.Values["close"] = 102
	if got, _ := ev.Evaluate(above, ctx); got {
		t.Fatal("close inside the cloud must not count as above")
	}
	if got, _ := ev.Evaluate(below, ctx); got {
		t.Fatal("close inside the cloud must not count as below")
	}
}

// A missing series resolves to a conservative false.
func TestMissingSeriesIsFalse(t *testing.T) {
	ev := newEvaluator(t)
	c := canon("rsi", condition.OpGT, types.Number(70))
	got, err := ev.Evaluate(c, Context{Current: snap(map[string]float64{"mfi": 80})})
	if err != nil || got {
		t.Fatalf("missing rsi series: got %v, %v", got, err)
	}
}

func TestUnknownOperatorIsAnError(t *testing.T) {
	ev := newEvaluator(t)
	c := canon("rsi", "no_such_op", types.Number(70))
	if _, err := ev.Evaluate(c, Context{Current: snap(map[string]float64{"rsi": 75})}); !errors.Is(err, condition.ErrUnknownOperator) {
		t.Fatalf("expected ErrUnknownOperator, got %v", err)
	}
}

func TestEvaluateAllCombinators(t *testing.T) {
	ev := newEvaluator(t)
	ctx := Context{Current: snap(map[string]float64{"rsi": 75, "mfi": 10})}
	pass := canon("rsi", condition.OpGT, types.Number(70))
	fail := canon("mfi", condition.OpGT, types.Number(50))

	if ev.EvaluateAll([]types.Condition{pass, fail}, true, ctx) {
		t.Fatal("AND with one failing condition must not pass")
	}
	if !ev.EvaluateAll([]types.Condition{pass, fail}, false, ctx) {
		t.Fatal("OR with one passing condition must pass")
	}
	if ev.EvaluateAll(nil, false, ctx) {
		t.Fatal("an empty list never passes")
	}
}
