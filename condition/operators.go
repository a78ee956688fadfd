// Package condition normalizes strategy conditions between the legacy
// indicator/value encoding and the canonical left/operator/right encoding
// every downstream package operates on. All functions are pure; inputs are
// never mutated.
package condition

import "github.com/khanyong/kyyquant-ai-solution-sub002/types"

// Canonical series identifiers.
const (
	SeriesClose = "close"

	SeriesRSI = "rsi"

	SeriesMACDLine   = "macd_line"
	SeriesMACDSignal = "macd_signal"
	SeriesMACDHist   = "macd_hist"

	SeriesBollingerUpper  = "bollinger_upper"
	SeriesBollingerMiddle = "bollinger_middle"
	SeriesBollingerLower  = "bollinger_lower"

	SeriesStochK = "stoch_k"
	SeriesStochD = "stoch_d"

	SeriesIchimokuTenkan  = "ichimoku_tenkan"
	SeriesIchimokuKijun   = "ichimoku_kijun"
	SeriesIchimokuSenkouA = "ichimoku_senkou_a"
	SeriesIchimokuSenkouB = "ichimoku_senkou_b"
	// SeriesIchimokuCloud names the senkou A/B pair as one composite; only
	// the cloud predicates reference it.
	SeriesIchimokuCloud = "ichimoku_cloud"
)

// Canonical operators.
const (
	OpGT  = ">"
	OpLT  = "<"
	OpGTE = ">="
	OpLTE = "<="
	OpEQ  = "=="
	OpNEQ = "!="

	OpCrossover  = "crossover"
	OpCrossunder = "crossunder"
)

// Named predicates that survive normalization and are evaluated directly.
const (
	OpPriceAboveCloud = "price_above_cloud"
	OpPriceBelowCloud = "price_below_cloud"

	OpBullishDivergence = "bullish_divergence"
	OpBearishDivergence = "bearish_divergence"
	OpHiddenBullishDiv  = "hidden_bullish_div"
	OpHiddenBearishDiv  = "hidden_bearish_div"
)

// Family identifies the indicator family a legacy condition belongs to.
type Family string

const (
	FamilyRSI        Family = "rsi"
	FamilyMACD       Family = "macd"
	FamilyBollinger  Family = "bollinger"
	FamilyStochastic Family = "stochastic"
	FamilyIchimoku   Family = "ichimoku"
	// FamilyGeneric covers single-output indicators (moving averages,
	// volume, mfi, ...) whose name is already the series name.
	FamilyGeneric Family = "generic"
)

// operatorAliases folds legacy comparator spellings into canonical ones.
var operatorAliases = map[string]string{
	"=":           OpEQ,
	"cross_above": OpCrossover,
	"cross_below": OpCrossunder,
}

// comparators is the closed set of raw canonical operators. Anything not
// here and not in a predicate table is unknown and rejected.
var comparators = map[string]bool{
	OpGT: true, OpLT: true, OpGTE: true, OpLTE: true,
	OpEQ: true, OpNEQ: true,
	OpCrossover: true, OpCrossunder: true,
}

// predicate describes how a named shortcut desugars. A nil right means the
// predicate survives as-is and the evaluator handles it directly.
type predicate struct {
	left  string
	op    string
	right *types.Operand
}

// namedPredicates maps family-specific shortcut operators to their
// canonical form. The thresholds baked into the names (30/70, 20/80) come
// from the conventional oscillator bands.
var namedPredicates = map[Family]map[string]predicate{
	FamilyRSI: {
		"rsi_oversold_30":     {left: SeriesRSI, op: OpLT, right: types.Number(30)},
		"rsi_overbought_70":   {left: SeriesRSI, op: OpGT, right: types.Number(70)},
		"rsi_exit_oversold":   {left: SeriesRSI, op: OpCrossover, right: types.Number(30)},
		"rsi_exit_overbought": {left: SeriesRSI, op: OpCrossunder, right: types.Number(70)},
	},
	FamilyMACD: {
		"macd_above_signal":      {left: SeriesMACDLine, op: OpGT, right: types.SeriesRef(SeriesMACDSignal)},
		"macd_below_signal":      {left: SeriesMACDLine, op: OpLT, right: types.SeriesRef(SeriesMACDSignal)},
		"histogram_positive":     {left: SeriesMACDHist, op: OpGT, right: types.Number(0)},
		"histogram_negative":     {left: SeriesMACDHist, op: OpLT, right: types.Number(0)},
		"macd_cross_signal_up":   {left: SeriesMACDLine, op: OpCrossover, right: types.SeriesRef(SeriesMACDSignal)},
		"macd_cross_signal_down": {left: SeriesMACDLine, op: OpCrossunder, right: types.SeriesRef(SeriesMACDSignal)},
	},
	FamilyStochastic: {
		"stoch_oversold":   {left: SeriesStochK, op: OpLT, right: types.Number(20)},
		"stoch_overbought": {left: SeriesStochK, op: OpGT, right: types.Number(80)},
		"stoch_cross_up":   {left: SeriesStochK, op: OpCrossover, right: types.SeriesRef(SeriesStochD)},
		"stoch_cross_down": {left: SeriesStochK, op: OpCrossunder, right: types.SeriesRef(SeriesStochD)},
	},
	FamilyIchimoku: {
		"price_above_cloud":      {left: SeriesClose, op: OpPriceAboveCloud, right: types.SeriesRef(SeriesIchimokuCloud)},
		"price_below_cloud":      {left: SeriesClose, op: OpPriceBelowCloud, right: types.SeriesRef(SeriesIchimokuCloud)},
		"tenkan_kijun_cross_up":   {left: SeriesIchimokuTenkan, op: OpCrossover, right: types.SeriesRef(SeriesIchimokuKijun)},
		"tenkan_kijun_cross_down": {left: SeriesIchimokuTenkan, op: OpCrossunder, right: types.SeriesRef(SeriesIchimokuKijun)},
	},
}

// bandOps maps the Bollinger "price vs selected band" predicates to the
// canonical operator applied between the close series and the band the
// selector picked. The same table serves an Ichimoku line selector.
var bandOps = map[string]string{
	"price_above": OpGT,
	"price_below": OpLT,
	"cross_above": OpCrossover,
	"cross_below": OpCrossunder,
}

// divergenceOps are family-independent: the legacy indicator supplies the
// left series, the price series is implied.
var divergenceOps = map[string]bool{
	OpBullishDivergence: true,
	OpBearishDivergence: true,
	OpHiddenBullishDiv:  true,
	OpHiddenBearishDiv:  true,
}

// IsDivergenceOp reports whether op is one of the divergence predicates.
func IsDivergenceOp(op string) bool { return divergenceOps[op] }

// IsCloudOp reports whether op is one of the Ichimoku cloud predicates.
func IsCloudOp(op string) bool {
	return op == OpPriceAboveCloud || op == OpPriceBelowCloud
}
