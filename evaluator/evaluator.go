package evaluator

import (
	"fmt"
	"math"
	"strconv"

	"github.com/khanyong/kyyquant-ai-solution-sub002/condition"
	"github.com/khanyong/kyyquant-ai-solution-sub002/config"
	"github.com/khanyong/kyyquant-ai-solution-sub002/logger"
	"github.com/khanyong/kyyquant-ai-solution-sub002/metrics"
	"github.com/khanyong/kyyquant-ai-solution-sub002/types"
)

// Evaluator turns canonical conditions into booleans against a supplied
// context. Safe for concurrent use across different strategies; callers
// must hand each call a consistent snapshot.
type Evaluator struct {
	cfg config.EngineConfig
	log logger.Logger
}

// New validates the config and builds an evaluator. A nil logger falls
// back to a no-op one.
func New(cfg config.EngineConfig, log logger.Logger) (*Evaluator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Evaluator{cfg: cfg, log: log}, nil
}

// Evaluate resolves one condition. Legacy-encoded input is normalized on
// the fly; a condition that cannot be resolved (missing series, missing
// previous snapshot, short history) yields false with a nil error. The
// only error is an unrecognized operator, which the caller must treat as
// a precondition violation.
func (e *Evaluator) Evaluate(c types.Condition, ctx Context) (bool, error) {
	if c.IsLegacy() {
		nc, err := condition.Normalize(c)
		if err != nil && nc.Left == nil {
			return false, err
		}
		c = nc
	}

	result, err := e.eval(c, ctx)
	if err != nil {
		return false, err
	}
	metrics.ConditionsEvaluated.WithLabelValues(strconv.FormatBool(result)).Inc()
	return result, nil
}

// EvaluateAll combines a condition list with AND (passAll) or OR
// semantics. Unknown-operator errors are logged and the offending
// condition counts as false; an empty list never passes.
func (e *Evaluator) EvaluateAll(list []types.Condition, passAll bool, ctx Context) bool {
	if len(list) == 0 {
		return false
	}
	for _, c := range list {
		ok, err := e.Evaluate(c, ctx)
		if err != nil {
			e.log.Warn("condition_eval_error",
				logger.String("operator", c.Operator),
				logger.Err(err),
			)
			ok = false
		}
		if passAll && !ok {
			return false
		}
		if !passAll && ok {
			return true
		}
	}
	return passAll
}

func (e *Evaluator) eval(c types.Condition, ctx Context) (bool, error) {
	op := c.Operator
	switch op {
	case condition.OpGT, condition.OpLT, condition.OpGTE, condition.OpLTE,
		condition.OpEQ, condition.OpNEQ:
		left, ok := resolve(c.Left, ctx.Current)
		if !ok {
			return false, nil
		}
		right, ok := resolve(c.Right, ctx.Current)
		if !ok {
			return false, nil
		}
		return e.compare(left, right, op), nil

	case condition.OpCrossover, condition.OpCrossunder:
		return e.cross(c, ctx, op == condition.OpCrossover), nil

	case condition.OpPriceAboveCloud, condition.OpPriceBelowCloud:
		return e.cloud(ctx.Current, op == condition.OpPriceAboveCloud), nil

	case condition.OpBullishDivergence, condition.OpBearishDivergence,
		condition.OpHiddenBullishDiv, condition.OpHiddenBearishDiv:
		return e.divergence(c, ctx, op), nil
	}
	return false, fmt.Errorf("%w: %q", condition.ErrUnknownOperator, op)
}

// compare applies one raw comparator. Equality uses the configured
// epsilon rather than exact float comparison.
func (e *Evaluator) compare(left, right float64, op string) bool {
	switch op {
	case condition.OpGT:
		return left > right
	case condition.OpLT:
		return left < right
	case condition.OpGTE:
		return left >= right
	case condition.OpLTE:
		return left <= right
	case condition.OpEQ:
		return math.Abs(left-right) <= e.cfg.EpsilonTolerance
	case condition.OpNEQ:
		return math.Abs(left-right) > e.cfg.EpsilonTolerance
	}
	return false
}

// cross is true only on the tick where the relation flips: the previous
// values must not satisfy it and the current ones must. A previous value
// sitting exactly on the threshold still arms the crossover.
func (e *Evaluator) cross(c types.Condition, ctx Context, over bool) bool {
	if ctx.Previous == nil {
		return false
	}
	curL, ok := resolve(c.Left, ctx.Current)
	if !ok {
		return false
	}
	curR, ok := resolve(c.Right, ctx.Current)
	if !ok {
		return false
	}
	prevL, ok := resolve(c.Left, *ctx.Previous)
	if !ok {
		return false
	}
	prevR, ok := resolve(c.Right, *ctx.Previous)
	if !ok {
		return false
	}
	if over {
		return prevL <= prevR && curL > curR
	}
	return prevL >= prevR && curL < curR
}

// cloud checks the close price against the Ichimoku cloud: above means
// over both senkou lines, below means under both.
func (e *Evaluator) cloud(snap Snapshot, above bool) bool {
	closePrice, ok := snap.Lookup(condition.SeriesClose)
	if !ok {
		return false
	}
	senkouA, ok := snap.Lookup(condition.SeriesIchimokuSenkouA)
	if !ok {
		return false
	}
	senkouB, ok := snap.Lookup(condition.SeriesIchimokuSenkouB)
	if !ok {
		return false
	}
	if above {
		return closePrice > math.Max(senkouA, senkouB)
	}
	return closePrice < math.Min(senkouA, senkouB)
}
