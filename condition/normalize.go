package condition

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/khanyong/kyyquant-ai-solution-sub002/metrics"
	"github.com/khanyong/kyyquant-ai-solution-sub002/types"
)

// ErrUnknownOperator marks a caller precondition violation: an operator
// string outside the comparator set and every predicate table. Persistence
// must be blocked on it.
var ErrUnknownOperator = errors.New("unknown operator")

// ErrMissingValue marks a value-requiring comparator with no supplied
// scalar. The returned condition still evaluates to a conservative false,
// so evaluation-time callers may ignore the error; persistence-time
// callers must not.
var ErrMissingValue = errors.New("operator requires a value")

// FamilyOf classifies a legacy indicator name. Moving-average prefixes
// (sma_, ema_, wma_, hma_) deliberately stay generic: the family fold must
// not collapse one MA family into another.
func FamilyOf(indicator string) Family {
	name := strings.ToLower(strings.TrimSpace(indicator))
	switch {
	case name == "rsi":
		return FamilyRSI
	case name == "macd" || strings.HasPrefix(name, "macd_"):
		return FamilyMACD
	case name == "bollinger" || name == "bb" || strings.HasPrefix(name, "bollinger_"):
		return FamilyBollinger
	case name == "stochastic" || name == "stoch" || strings.HasPrefix(name, "stoch_"):
		return FamilyStochastic
	case name == "ichimoku" || strings.HasPrefix(name, "ichimoku_"):
		return FamilyIchimoku
	default:
		return FamilyGeneric
	}
}

// canonicalSeries folds a legacy indicator name plus its selector into the
// canonical series identifier the evaluator resolves against a snapshot.
func canonicalSeries(c types.Condition) string {
	name := strings.ToLower(strings.TrimSpace(c.Indicator))
	switch FamilyOf(name) {
	case FamilyMACD:
		switch c.MACDOutput {
		case "signal":
			return SeriesMACDSignal
		case "histogram":
			return SeriesMACDHist
		default:
			return SeriesMACDLine
		}
	case FamilyBollinger:
		return bollingerSeries(c.BollingerLine)
	case FamilyStochastic:
		if c.StochLine == "d" {
			return SeriesStochD
		}
		return SeriesStochK
	case FamilyIchimoku:
		return ichimokuSeries(c.IchimokuLine)
	}
	// Generic price aliases fold to the canonical close series; everything
	// else (sma_20, ema_5, mfi, volume, ...) is already a series name.
	switch name {
	case "price", "current_price", "stock_price":
		return SeriesClose
	}
	return name
}

func bollingerSeries(line string) string {
	switch line {
	case "upper":
		return SeriesBollingerUpper
	case "lower":
		return SeriesBollingerLower
	default:
		return SeriesBollingerMiddle
	}
}

func ichimokuSeries(line string) string {
	switch line {
	case "kijun":
		return SeriesIchimokuKijun
	case "senkou_a":
		return SeriesIchimokuSenkouA
	case "senkou_b":
		return SeriesIchimokuSenkouB
	case "tenkan":
		return SeriesIchimokuTenkan
	default:
		return SeriesIchimokuCloud
	}
}

// Normalize converts one condition to the canonical encoding. Already
// canonical input is returned unchanged, which makes the function
// idempotent. The input is never mutated.
//
// A missing scalar on a value-requiring comparator yields the canonical
// condition without a right operand together with ErrMissingValue: the
// evaluator resolves such a condition to false, and the validator reports
// it, so a broken condition can never trigger a trade.
func Normalize(c types.Condition) (types.Condition, error) {
	if c.IsStandard() {
		metrics.ConditionsNormalized.WithLabelValues(string(types.FormatStandard)).Inc()
		return c, nil
	}

	op := strings.TrimSpace(c.Operator)
	if folded, ok := operatorAliases[op]; ok {
		op = folded
	}
	family := FamilyOf(c.Indicator)

	out := types.Condition{CombineWith: c.CombineWith, ConfirmBars: c.ConfirmBars}

	// Family shortcut predicates carry their operands in the table.
	if preds, ok := namedPredicates[family]; ok {
		if p, ok := preds[op]; ok {
			out.Left = types.SeriesRef(p.left)
			out.Operator = p.op
			out.Right = cloneOperand(p.right)
			metrics.ConditionsNormalized.WithLabelValues(string(types.FormatLegacy)).Inc()
			return out, nil
		}
	}

	// "Price vs selected band" predicates: the selector picks the right
	// operand, the close series is the left one.
	if family == FamilyBollinger || (family == FamilyIchimoku && c.IchimokuLine != "") {
		if bandOp, ok := bandOps[c.Operator]; ok {
			out.Left = types.SeriesRef(SeriesClose)
			out.Operator = bandOp
			out.Right = types.SeriesRef(canonicalSeries(c))
			metrics.ConditionsNormalized.WithLabelValues(string(types.FormatLegacy)).Inc()
			return out, nil
		}
	}

	// Divergence predicates keep their operator; the indicator becomes the
	// left series and the implied price series the right one.
	if divergenceOps[op] {
		out.Left = types.SeriesRef(canonicalSeries(c))
		out.Operator = op
		out.Right = types.SeriesRef(SeriesClose)
		metrics.ConditionsNormalized.WithLabelValues(string(types.FormatLegacy)).Inc()
		return out, nil
	}

	// Raw comparators require a caller-supplied scalar (or series name).
	if comparators[op] {
		out.Left = types.SeriesRef(canonicalSeries(c))
		out.Operator = op
		if c.Value == nil {
			return out, fmt.Errorf("%w: %q on %q", ErrMissingValue, c.Operator, c.Indicator)
		}
		out.Right = cloneOperand(c.Value)
		metrics.ConditionsNormalized.WithLabelValues(string(types.FormatLegacy)).Inc()
		return out, nil
	}

	return types.Condition{}, fmt.Errorf("%w: %q on %q", ErrUnknownOperator, c.Operator, c.Indicator)
}

// NeedsValue reports whether a legacy condition with the given indicator
// and operator requires a caller-supplied scalar. It agrees with the
// desugaring tables above: predicates that bake their threshold into the
// name need none, raw comparators do, and Bollinger band predicates take
// their right operand from the selector. Ichimoku band predicates are
// valid only with a line selector, which this function cannot see, so
// they are left to Normalize.
func NeedsValue(indicator, operator string) bool {
	op := strings.TrimSpace(operator)
	if folded, ok := operatorAliases[op]; ok {
		op = folded
	}
	family := FamilyOf(indicator)
	if preds, ok := namedPredicates[family]; ok {
		if _, ok := preds[op]; ok {
			return false
		}
	}
	if family == FamilyBollinger {
		if _, ok := bandOps[operator]; ok {
			return false
		}
	}
	if divergenceOps[op] {
		return false
	}
	return comparators[op]
}

// EnsureStandard returns the list with every item in canonical form. A
// list already classified standard is returned as-is; otherwise a new
// slice is built and the input stays untouched. Per-item failures are
// aggregated, and the returned list always carries every convertible item
// so evaluation-time callers get the conservative-false behaviour without
// branching on the error.
func EnsureStandard(list []types.Condition) ([]types.Condition, error) {
	if DetectFormat(list) == types.FormatStandard {
		return list, nil
	}
	out := make([]types.Condition, 0, len(list))
	var errs error
	for i, c := range list {
		nc, err := Normalize(c)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("condition %d: %w", i+1, err))
		}
		out = append(out, nc)
	}
	return out, errs
}

func cloneOperand(o *types.Operand) *types.Operand {
	if o == nil {
		return nil
	}
	cp := *o
	return &cp
}
