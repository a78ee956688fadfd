package validator

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/khanyong/kyyquant-ai-solution-sub002/condition"
	"github.com/khanyong/kyyquant-ai-solution-sub002/metrics"
	"github.com/khanyong/kyyquant-ai-solution-sub002/types"
)

// CheckConflicts runs every conflict check independently — a hit in one
// never short-circuits the rest — and returns the aggregated report.
// Nothing is auto-corrected; the entries are data for a human.
func (v *Validator) CheckConflicts(s *types.Strategy) types.ConflictCheckResult {
	var conflicts []types.Conflict

	conflicts = append(conflicts, v.dualConfiguration(s)...)
	conflicts = append(conflicts, v.riskSignConvention(s)...)
	conflicts = append(conflicts, v.doubleProfitTarget(s)...)
	conflicts = append(conflicts, v.buyAllocationSum(s)...)
	conflicts = append(conflicts, v.sellExitRatioSum(s)...)
	conflicts = append(conflicts, v.contradictoryThresholds(s)...)
	conflicts = append(conflicts, v.trailingStopFlags(s)...)

	for _, c := range conflicts {
		metrics.ConflictsDetected.WithLabelValues(string(c.Severity)).Inc()
	}
	return types.ConflictCheckResult{
		HasConflicts: len(conflicts) > 0,
		Conflicts:    conflicts,
	}
}

// dualConfiguration flags a side configured through both the legacy flat
// list and an enabled staged strategy at once.
func (v *Validator) dualConfiguration(s *types.Strategy) []types.Conflict {
	var out []types.Conflict
	if len(s.BuyConditions) > 0 && s.BuyStages.HasEnabledStage() {
		out = append(out, types.Conflict{
			Severity:   types.SeverityCritical,
			Category:   CategoryBuyConditions,
			Message:    "legacy buy conditions and an enabled staged buy strategy are configured at the same time",
			Suggestion: "keep either the flat condition list or the staged strategy for the buy side",
		})
	}
	if len(s.SellConditions) > 0 && s.SellStages.HasEnabledStage() {
		out = append(out, types.Conflict{
			Severity:   types.SeverityCritical,
			Category:   CategorySellConditions,
			Message:    "legacy sell conditions and an enabled staged sell strategy are configured at the same time",
			Suggestion: "keep either the flat condition list or the staged strategy for the sell side",
		})
	}
	return out
}

// riskSignConvention compares the old negative stop-loss scalar with the
// new positive-magnitude block.
func (v *Validator) riskSignConvention(s *types.Strategy) []types.Conflict {
	if s.Risk == nil || !s.Risk.StopLoss.Enabled || s.StopLossOld == 0 {
		return nil
	}
	oldMag := math.Abs(s.StopLossOld)
	if math.Abs(oldMag-s.Risk.StopLoss.Percent) <= v.cfg.EpsilonTolerance {
		return nil
	}
	return []types.Conflict{{
		Severity: types.SeverityCritical,
		Category: CategoryRiskSettings,
		Message: fmt.Sprintf("stop-loss magnitudes disagree: legacy %.4g vs risk block %.4g",
			oldMag, s.Risk.StopLoss.Percent),
		Suggestion: "align the legacy stopLoss scalar with riskManagement.stopLoss.percent",
	}}
}

// doubleProfitTarget flags the simple and staged profit targets being
// enabled simultaneously.
func (v *Validator) doubleProfitTarget(s *types.Strategy) []types.Conflict {
	tp := s.TargetProfit
	if tp == nil || tp.Simple == nil || tp.Staged == nil {
		return nil
	}
	if !tp.Simple.Enabled || !tp.Staged.Enabled {
		return nil
	}
	return []types.Conflict{{
		Severity:   types.SeverityWarning,
		Category:   CategoryTargetProfit,
		Message:    "simple and staged profit targets are both enabled",
		Suggestion: "disable one of the two profit-target modes",
	}}
}

// buyAllocationSum warns when enabled buy stages allocate anything other
// than exactly 100 percent in total (a zero total means sizing is simply
// unset and stays silent).
func (v *Validator) buyAllocationSum(s *types.Strategy) []types.Conflict {
	if s.BuyStages == nil {
		return nil
	}
	total := decimal.Zero
	for _, st := range s.BuyStages.Stages {
		if st.Enabled {
			total = total.Add(decimal.NewFromFloat(st.PositionPercent))
		}
	}
	if total.IsZero() || total.Equal(decimal.NewFromInt(100)) {
		return nil
	}
	return []types.Conflict{{
		Severity:   types.SeverityWarning,
		Category:   CategoryPositionSizing,
		Message:    fmt.Sprintf("enabled buy stages allocate %s%% in total, not 100%%", total.String()),
		Suggestion: "adjust the stage position percentages to sum to 100",
	}}
}

// sellExitRatioSum reports a staged sell ladder that exits less than the
// full position. Intentional partial exits are allowed, hence info.
func (v *Validator) sellExitRatioSum(s *types.Strategy) []types.Conflict {
	tp := s.TargetProfit
	if tp == nil || tp.Staged == nil || !tp.Staged.Enabled || len(tp.Staged.Stages) == 0 {
		return nil
	}
	total := decimal.Zero
	for _, ps := range tp.Staged.Stages {
		total = total.Add(decimal.NewFromFloat(ps.ExitRatioPercent))
	}
	if total.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return nil
	}
	return []types.Conflict{{
		Severity: types.SeverityInfo,
		Category: CategoryExitRatio,
		Message:  fmt.Sprintf("staged exit ratios total %s%%; part of the position stays open", total.String()),
	}}
}

// contradictoryThresholds finds AND-combined bounds on one series that no
// value can satisfy, e.g. rsi < 30 together with rsi > 70.
func (v *Validator) contradictoryThresholds(s *types.Strategy) []types.Conflict {
	var out []types.Conflict
	out = append(out, v.contradictionsIn(s.BuyConditions, CategoryBuyConditions)...)
	out = append(out, v.contradictionsIn(s.SellConditions, CategorySellConditions)...)
	for _, staged := range []*types.StagedStrategy{s.BuyStages, s.SellStages} {
		if staged == nil {
			continue
		}
		cat := CategoryBuyConditions
		if staged.Side == types.Sell {
			cat = CategorySellConditions
		}
		for _, st := range staged.Stages {
			if st.Enabled && st.PassAllRequired {
				out = append(out, v.contradictionsIn(st.Indicators, cat)...)
			}
		}
	}
	return out
}

// bound is one AND-combined numeric constraint on a series.
type bound struct {
	lower  bool // ">" or ">=" when true, "<" or "<=" otherwise
	strict bool // ">" or "<" rather than ">=" / "<="
	value  float64
}

func (v *Validator) contradictionsIn(list []types.Condition, category string) []types.Conflict {
	normalized, _ := condition.EnsureStandard(list)
	bounds := map[string][]bound{}
	for _, c := range normalized {
		if c.CombineWith == types.CombineOr {
			continue
		}
		if c.Left == nil || c.Left.IsNumber() || c.Right == nil || !c.Right.IsNumber() {
			continue
		}
		switch c.Operator {
		case condition.OpGT, condition.OpGTE:
			bounds[c.Left.Series] = append(bounds[c.Left.Series],
				bound{lower: true, strict: c.Operator == condition.OpGT, value: c.Right.Num})
		case condition.OpLT, condition.OpLTE:
			bounds[c.Left.Series] = append(bounds[c.Left.Series],
				bound{lower: false, strict: c.Operator == condition.OpLT, value: c.Right.Num})
		}
	}

	var out []types.Conflict
	for series, bs := range bounds {
		lower, upper := math.Inf(-1), math.Inf(1)
		lowerStrict, upperStrict := false, false
		for _, b := range bs {
			if b.lower {
				if b.value > lower || (b.value == lower && b.strict) {
					lower, lowerStrict = b.value, b.strict
				}
			} else {
				if b.value < upper || (b.value == upper && b.strict) {
					upper, upperStrict = b.value, b.strict
				}
			}
		}
		// An empty interval: the bounds cross, or touch with a strict edge.
		if lower > upper || (lower == upper && (lowerStrict || upperStrict)) {
			out = append(out, types.Conflict{
				Severity: types.SeverityCritical,
				Category: category,
				Message: fmt.Sprintf("conditions on %q require > %g and < %g at once; nothing can satisfy both",
					series, lower, upper),
				Suggestion: "remove or loosen one of the AND-combined thresholds",
			})
		}
	}
	return out
}

// trailingStopFlags compares the old scalar trailing flag with the new
// nested block.
func (v *Validator) trailingStopFlags(s *types.Strategy) []types.Conflict {
	if s.Risk == nil {
		return nil
	}
	if s.TrailingStopOld == s.Risk.TrailingStop.Enabled {
		return nil
	}
	return []types.Conflict{{
		Severity:   types.SeverityWarning,
		Category:   CategoryRiskSettings,
		Message:    "trailing-stop flags disagree between the legacy scalar and riskManagement.trailingStop",
		Suggestion: "set both trailing-stop flags to the same state",
	}}
}
