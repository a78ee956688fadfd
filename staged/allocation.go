package staged

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/khanyong/kyyquant-ai-solution-sub002/types"
)

var hundred = decimal.NewFromInt(100)

// Allocation is one enabled stage's share of the ORIGINAL capital, after
// the cascade has been applied.
type Allocation struct {
	StageIndex int
	Percent    decimal.Decimal
}

// CascadeAllocations computes cascading position sizing: each enabled
// stage's PositionPercent applies to the capital remaining after the
// stages before it, never to the original total. The math runs on
// decimals so stages of [30,30,30] leave exactly 34.3, not a float
// artifact. Returns the per-stage shares of original capital and the
// remaining share.
func CascadeAllocations(stages []types.Stage) ([]Allocation, decimal.Decimal) {
	remaining := hundred
	var out []Allocation
	for _, st := range sortedByIndex(stages) {
		if !st.Enabled {
			continue
		}
		pct := decimal.NewFromFloat(st.PositionPercent)
		consumed := remaining.Mul(pct).Div(hundred)
		remaining = remaining.Sub(consumed)
		out = append(out, Allocation{StageIndex: st.Index, Percent: consumed})
	}
	return out, remaining
}

// ExitRatioTotal sums a profit ladder's exit ratios exactly. A total
// under 100 is a deliberate partial exit, not an error.
func ExitRatioTotal(ladder []types.ProfitStage) decimal.Decimal {
	total := decimal.Zero
	for _, ps := range ladder {
		total = total.Add(decimal.NewFromFloat(ps.ExitRatioPercent))
	}
	return total
}

func sortedByIndex(stages []types.Stage) []types.Stage {
	out := make([]types.Stage, len(stages))
	copy(out, stages)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
