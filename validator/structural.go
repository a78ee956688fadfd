package validator

import (
	"fmt"
	"sort"

	"go.uber.org/multierr"

	"github.com/khanyong/kyyquant-ai-solution-sub002/condition"
	"github.com/khanyong/kyyquant-ai-solution-sub002/logger"
	"github.com/khanyong/kyyquant-ai-solution-sub002/types"
)

// ValidateStrategyData is the blocking verdict used before persistence.
// Unlike CheckConflicts it rejects the document outright: missing name,
// no conditions on either side under either representation, out-of-range
// sizing, malformed conditions and per-stage structural errors all land
// in Errors.
func (v *Validator) ValidateStrategyData(s *types.Strategy) types.ValidationResult {
	var errs []string
	var warns []string

	if s.Name == "" {
		errs = append(errs, "strategy name is required")
	}

	if len(s.BuyConditions) == 0 && !v.stagesHaveConditions(s.BuyStages) {
		errs = append(errs, "strategy has no buy conditions in either representation")
	}
	hasSellExit := s.TargetProfit != nil &&
		((s.TargetProfit.Simple != nil && s.TargetProfit.Simple.Enabled) ||
			(s.TargetProfit.Staged != nil && s.TargetProfit.Staged.Enabled))
	if len(s.SellConditions) == 0 && !v.stagesHaveConditions(s.SellStages) && !hasSellExit {
		errs = append(errs, "strategy has no sell conditions or profit target in either representation")
	}

	if s.PositionSizePercent < 0 || s.PositionSizePercent > 100 {
		errs = append(errs, fmt.Sprintf("position size %.4g%% is outside 0-100", s.PositionSizePercent))
	}

	errs = append(errs, v.conditionErrors("buy", s.BuyConditions)...)
	errs = append(errs, v.conditionErrors("sell", s.SellConditions)...)

	be, bw := v.stageErrors("buy", s.BuyStages)
	se, sw := v.stageErrors("sell", s.SellStages)
	errs = append(errs, be...)
	errs = append(errs, se...)
	warns = append(warns, bw...)
	warns = append(warns, sw...)

	result := types.ValidationResult{
		IsValid:  len(errs) == 0,
		Errors:   errs,
		Warnings: warns,
	}
	if !result.IsValid {
		v.log.Warn("strategy_rejected",
			logger.String("name", s.Name),
			logger.Int("errors", len(errs)),
		)
	}
	return result
}

func (v *Validator) stagesHaveConditions(s *types.StagedStrategy) bool {
	if s == nil {
		return false
	}
	for _, st := range s.Stages {
		if st.Enabled && len(st.Indicators) > 0 {
			return true
		}
	}
	return false
}

// conditionErrors normalizes a legacy list in persistence context, where
// malformed conditions are hard errors rather than tolerated falses.
func (v *Validator) conditionErrors(side string, list []types.Condition) []string {
	_, err := condition.EnsureStandard(list)
	var out []string
	for _, e := range multierr.Errors(err) {
		out = append(out, fmt.Sprintf("%s %v", side, e))
	}
	return out
}

func (v *Validator) stageErrors(side string, s *types.StagedStrategy) (errs, warns []string) {
	if s == nil {
		return nil, nil
	}
	stages := make([]types.Stage, len(s.Stages))
	copy(stages, s.Stages)
	sort.SliceStable(stages, func(i, j int) bool { return stages[i].Index < stages[j].Index })

	seen := map[int]bool{}
	prevEnabled := true
	for _, st := range stages {
		if st.Index < 1 || st.Index > v.cfg.MaxStages {
			errs = append(errs, fmt.Sprintf("%s stage index %d is outside 1-%d", side, st.Index, v.cfg.MaxStages))
		}
		if seen[st.Index] {
			errs = append(errs, fmt.Sprintf("%s stage index %d appears more than once", side, st.Index))
		}
		seen[st.Index] = true

		if len(st.Indicators) > v.cfg.MaxIndicatorsPerStage {
			errs = append(errs, fmt.Sprintf("%s stage %d has %d indicators, limit is %d",
				side, st.Index, len(st.Indicators), v.cfg.MaxIndicatorsPerStage))
		}
		if st.PositionPercent < 0 || st.PositionPercent > 100 {
			errs = append(errs, fmt.Sprintf("%s stage %d position percent %.4g is outside 0-100",
				side, st.Index, st.PositionPercent))
		}
		if st.Enabled && !prevEnabled {
			errs = append(errs, fmt.Sprintf("%s stage %d is enabled while an earlier stage is disabled",
				side, st.Index))
		}
		if st.Enabled && len(st.Indicators) == 0 {
			warns = append(warns, fmt.Sprintf("%s stage %d is enabled but has no conditions", side, st.Index))
		}
		for i, c := range st.Indicators {
			if _, err := condition.Normalize(c); err != nil {
				errs = append(errs, fmt.Sprintf("%s stage %d condition %d: %v", side, st.Index, i+1, err))
			}
		}
		prevEnabled = st.Enabled
	}
	return errs, warns
}
