// Package evaluator resolves canonical conditions against indicator
// snapshots supplied by the caller. It never computes indicators itself
// and never fails hard on missing data: anything unresolvable evaluates
// to false, so a broken condition cannot trigger a trade.
package evaluator

import (
	"github.com/khanyong/kyyquant-ai-solution-sub002/condition"
	"github.com/khanyong/kyyquant-ai-solution-sub002/types"
)

// Snapshot carries the already-computed indicator values of one tick.
// Flat series live in Values; multi-output indicators may instead arrive
// as composite records keyed by family, e.g.
//
//	Records["macd"] = {"macd": 1.2, "signal": 0.8, "histogram": 0.4}
//
// Lookup checks Values first and falls back to destructuring the record.
type Snapshot struct {
	Values  map[string]float64
	Records map[string]map[string]float64
}

// recordKeys maps a canonical series name to its composite record and
// sub-field. Missing sub-fields resolve to "not found", never an error.
var recordKeys = map[string][2]string{
	condition.SeriesMACDLine:   {"macd", "macd"},
	condition.SeriesMACDSignal: {"macd", "signal"},
	condition.SeriesMACDHist:   {"macd", "histogram"},

	condition.SeriesBollingerUpper:  {"bollinger", "upper"},
	condition.SeriesBollingerMiddle: {"bollinger", "middle"},
	condition.SeriesBollingerLower:  {"bollinger", "lower"},

	condition.SeriesStochK: {"stochastic", "k"},
	condition.SeriesStochD: {"stochastic", "d"},

	condition.SeriesIchimokuTenkan:  {"ichimoku", "tenkan"},
	condition.SeriesIchimokuKijun:   {"ichimoku", "kijun"},
	condition.SeriesIchimokuSenkouA: {"ichimoku", "senkou_a"},
	condition.SeriesIchimokuSenkouB: {"ichimoku", "senkou_b"},
}

// Lookup resolves a canonical series name to its current value.
func (s Snapshot) Lookup(series string) (float64, bool) {
	if v, ok := s.Values[series]; ok {
		return v, true
	}
	if key, ok := recordKeys[series]; ok {
		if rec, ok := s.Records[key[0]]; ok {
			v, ok := rec[key[1]]
			return v, ok
		}
	}
	return 0, false
}

// Context is one evaluation call's worth of market state. Previous is
// required only by crossover/crossunder predicates; History and
// PriceHistory (oldest first) only by divergence predicates.
type Context struct {
	Current      Snapshot
	Previous     *Snapshot
	History      map[string][]float64
	PriceHistory []float64
}

// resolve returns the numeric value of an operand against a snapshot.
func resolve(o *types.Operand, snap Snapshot) (float64, bool) {
	if o == nil {
		return 0, false
	}
	if o.IsNumber() {
		return o.Num, true
	}
	return snap.Lookup(o.Series)
}
