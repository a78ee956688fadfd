// Package staged implements the sequential-stage strategy engine: gated
// enable transitions, per-stage AND/OR evaluation, cascading position
// sizing and the sell-side exit logic with its dynamic stop-loss ratchet.
package staged

import (
	"errors"
	"fmt"
	"sort"

	"github.com/khanyong/kyyquant-ai-solution-sub002/evaluator"
	"github.com/khanyong/kyyquant-ai-solution-sub002/logger"
	"github.com/khanyong/kyyquant-ai-solution-sub002/metrics"
	"github.com/khanyong/kyyquant-ai-solution-sub002/types"
)

// ErrStageOrder marks an enable transition that would break the
// sequential-gate invariant (enabling stage k with stage k-1 off).
var ErrStageOrder = errors.New("stages must be enabled in index order")

// ErrStageIndex marks a transition targeting a stage index that does not
// exist in the list.
var ErrStageIndex = errors.New("no such stage index")

// SetStageEnabled returns a new stage list with the transition applied;
// the input list is never mutated. Enabling stage k requires stage k-1 to
// be enabled already. Disabling stage k cascades: every later stage is
// disabled and its condition list cleared, not just flagged off.
func SetStageEnabled(stages []types.Stage, index int, enabled bool) ([]types.Stage, error) {
	out := make([]types.Stage, len(stages))
	copy(out, stages)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })

	pos := -1
	for i, st := range out {
		if st.Index == index {
			pos = i
			break
		}
	}
	if pos < 0 {
		return nil, fmt.Errorf("%w: %d", ErrStageIndex, index)
	}

	if enabled {
		if pos > 0 && !out[pos-1].Enabled {
			return nil, fmt.Errorf("%w: stage %d requires stage %d", ErrStageOrder, index, out[pos-1].Index)
		}
		out[pos].Enabled = true
		return out, nil
	}

	for i := pos; i < len(out); i++ {
		out[i].Enabled = false
		if i > pos {
			out[i].Indicators = nil
		}
	}
	return out, nil
}

// StageResult is the per-tick verdict of one stage.
type StageResult struct {
	Index   int  `json:"stageIndex"`
	Enabled bool `json:"enabled"`
	Passed  bool `json:"passed"`
}

// SideResult aggregates a side's stage verdicts. Passed reflects the last
// enabled stage of the tick; cross-tick prerequisite tracking (re-entry)
// belongs to the execution engine.
type SideResult struct {
	Side   types.Side    `json:"side"`
	Stages []StageResult `json:"stages"`
	Passed bool          `json:"passed"`
}

// Engine evaluates staged strategies. It owns no mutable state; every
// call works off the supplied documents and context.
type Engine struct {
	eval *evaluator.Evaluator
	log  logger.Logger
}

// NewEngine wires the evaluator in. A nil logger falls back to a no-op.
func NewEngine(ev *evaluator.Evaluator, log logger.Logger) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{eval: ev, log: log}
}

// EvaluateSide computes every enabled stage's boolean for this tick. A
// stage with PassAllRequired applies AND across its conditions, otherwise
// OR. The side passes when its last enabled stage passes.
func (e *Engine) EvaluateSide(s *types.StagedStrategy, ctx evaluator.Context) SideResult {
	res := SideResult{}
	if s == nil {
		return res
	}
	res.Side = s.Side

	stages := make([]types.Stage, len(s.Stages))
	copy(stages, s.Stages)
	sort.SliceStable(stages, func(i, j int) bool { return stages[i].Index < stages[j].Index })

	lastEnabled := -1
	for _, st := range stages {
		sr := StageResult{Index: st.Index, Enabled: st.Enabled}
		if st.Enabled {
			sr.Passed = e.eval.EvaluateAll(st.Indicators, st.PassAllRequired, ctx)
			lastEnabled = len(res.Stages)
		}
		res.Stages = append(res.Stages, sr)
	}
	if lastEnabled >= 0 {
		res.Passed = res.Stages[lastEnabled].Passed
	}
	if res.Passed {
		metrics.StagePasses.WithLabelValues(string(s.Side)).Inc()
	}
	return res
}
