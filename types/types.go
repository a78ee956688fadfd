// Package types holds the document shapes shared by every engine package:
// conditions in both wire encodings, stages, the assembled strategy and the
// result records returned by validation and evaluation.
package types

import (
	"encoding/json"
	"fmt"
)

// Side of a strategy leg.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Combine joins a condition (or a target-profit rule) with its neighbours.
type Combine string

const (
	CombineAnd Combine = "AND"
	CombineOr  Combine = "OR"
)

// Format classifies a condition list as a whole.
type Format string

const (
	FormatStandard Format = "standard"
	FormatLegacy   Format = "legacy"
	FormatMixed    Format = "mixed"
)

// Severity grades a detected conflict.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Operand is either a literal number or a named series identifier such as
// "close", "rsi" or "bollinger_upper". On the wire it appears as a bare
// number or a JSON string.
type Operand struct {
	Series string
	Num    float64
}

// Number builds a literal operand.
func Number(v float64) *Operand { return &Operand{Num: v} }

// SeriesRef builds a named-series operand.
func SeriesRef(name string) *Operand { return &Operand{Series: name} }

// IsNumber reports whether the operand is a literal rather than a series.
func (o Operand) IsNumber() bool { return o.Series == "" }

func (o Operand) MarshalJSON() ([]byte, error) {
	if o.Series != "" {
		return json.Marshal(o.Series)
	}
	return json.Marshal(o.Num)
}

func (o *Operand) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*o = Operand{Num: num}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("operand must be a number or a series name: %w", err)
	}
	*o = Operand{Series: s}
	return nil
}

// String renders the operand the way error messages and logs show it.
func (o Operand) String() string {
	if o.Series != "" {
		return o.Series
	}
	return fmt.Sprintf("%g", o.Num)
}

// Condition is the atomic rule unit. Both wire encodings share the struct:
// canonical documents populate Left/Operator/Right, legacy documents
// populate Indicator/Operator/Value plus the selector fields their
// indicator family needs. Normalization (package condition) converts the
// latter into the former and never mutates its input.
type Condition struct {
	// canonical shape
	Left  *Operand `json:"left,omitempty"`
	Right *Operand `json:"right,omitempty"`

	// legacy shape
	Indicator   string   `json:"indicator,omitempty"`
	Value       *Operand `json:"value,omitempty"`
	CombineWith Combine  `json:"combineWith,omitempty"`

	Operator string `json:"operator"`

	// Selectors for multi-output indicators (legacy shape only).
	BollingerLine string `json:"bollingerLine,omitempty"` // upper | middle | lower
	MACDOutput    string `json:"macdOutput,omitempty"`    // macd | signal | histogram
	StochLine     string `json:"stochLine,omitempty"`     // k | d
	IchimokuLine  string `json:"ichimokuLine,omitempty"`  // tenkan | kijun | senkou_a | senkou_b
	ConfirmBars   int    `json:"confirmBars,omitempty"`
}

// IsStandard reports whether the condition already carries the canonical
// left/right operands.
func (c Condition) IsStandard() bool { return c.Left != nil && c.Right != nil }

// IsLegacy reports whether the condition uses the indicator/value encoding.
func (c Condition) IsLegacy() bool { return c.Indicator != "" && !c.IsStandard() }

// Stage is one of up to three sequential condition groups on a side.
type Stage struct {
	Index           int         `json:"stage"`
	Enabled         bool        `json:"enabled"`
	Indicators      []Condition `json:"indicators"`
	PassAllRequired bool        `json:"passAllRequired"`
	PositionPercent float64     `json:"positionPercent"`
}

// StagedStrategy groups the stages of one side.
type StagedStrategy struct {
	Side   Side    `json:"side"`
	Stages []Stage `json:"stages"`
}

// HasEnabledStage reports whether at least one stage is switched on.
func (s *StagedStrategy) HasEnabledStage() bool {
	if s == nil {
		return false
	}
	for _, st := range s.Stages {
		if st.Enabled {
			return true
		}
	}
	return false
}

// LastEnabled returns the highest-index enabled stage.
func (s *StagedStrategy) LastEnabled() (Stage, bool) {
	if s == nil {
		return Stage{}, false
	}
	var out Stage
	found := false
	for _, st := range s.Stages {
		if st.Enabled && (!found || st.Index > out.Index) {
			out = st
			found = true
		}
	}
	return out, found
}

// SimpleTarget is the single-threshold sell-side profit target.
type SimpleTarget struct {
	Enabled       bool    `json:"enabled"`
	TargetPercent float64 `json:"targetProfitPercent"`
	CombineWith   Combine `json:"combineWith"`
}

// ProfitStage is one rung of the staged sell-side profit ladder.
type ProfitStage struct {
	Stage            int     `json:"stage"`
	TargetPercent    float64 `json:"targetProfitPercent"`
	ExitRatioPercent float64 `json:"exitRatioPercent"`
	DynamicStopLoss  bool    `json:"dynamicStopLoss"`
	CombineWith      Combine `json:"combineWith"`
}

// StagedTarget is the laddered profit-target variant.
type StagedTarget struct {
	Enabled bool          `json:"enabled"`
	Stages  []ProfitStage `json:"stages"`
}

// TargetProfit carries both profit-target variants; having both enabled at
// once is a conflict the validator reports, never an evaluation state.
type TargetProfit struct {
	Simple *SimpleTarget `json:"simple,omitempty"`
	Staged *StagedTarget `json:"staged,omitempty"`
}

// RiskSetting is the new-convention risk field: positive magnitude plus an
// explicit enable flag.
type RiskSetting struct {
	Enabled bool    `json:"enabled"`
	Percent float64 `json:"percent"`
}

// RiskSettings is the new-convention risk block.
type RiskSettings struct {
	StopLoss     RiskSetting `json:"stopLoss"`
	TakeProfit   RiskSetting `json:"takeProfit"`
	TrailingStop RiskSetting `json:"trailingStop"`
}

// Strategy is the assembled document handed to validation and, once valid,
// to the external execution engine. Legacy flat condition lists and staged
// strategies may coexist in the document; the validator decides whether
// that coexistence is a conflict.
type Strategy struct {
	Name string `json:"name"`

	BuyConditions  []Condition `json:"buyConditions,omitempty"`
	SellConditions []Condition `json:"sellConditions,omitempty"`

	BuyStages  *StagedStrategy `json:"buyStageStrategy,omitempty"`
	SellStages *StagedStrategy `json:"sellStageStrategy,omitempty"`

	TargetProfit *TargetProfit `json:"targetProfit,omitempty"`

	// Old-convention risk scalars. StopLossOld is negative by convention.
	StopLossOld         float64 `json:"stopLoss,omitempty"`
	TakeProfitOld       float64 `json:"takeProfit,omitempty"`
	TrailingStopOld     bool    `json:"trailingStop,omitempty"`
	TrailingStopPctOld  float64 `json:"trailingStopPercent,omitempty"`
	PositionSizePercent float64 `json:"positionSize,omitempty"`
	MaxPositions        int     `json:"maxPositions,omitempty"`

	// New-convention risk block.
	Risk *RiskSettings `json:"riskManagement,omitempty"`
}

// ValidationResult is the blocking verdict used before persistence.
type ValidationResult struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Conflict is one entry of the non-blocking conflict report.
type Conflict struct {
	Severity   Severity `json:"severity"`
	Category   string   `json:"category"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// ConflictCheckResult is the full non-blocking conflict report.
type ConflictCheckResult struct {
	HasConflicts bool       `json:"hasConflicts"`
	Conflicts    []Conflict `json:"conflicts"`
}

// ExitSignal is the sell-side per-tick output consumed by the execution
// engine. ExitPercent is the share of the open position to close.
type ExitSignal struct {
	StageIndex  int     `json:"stageIndex"`
	ExitPercent float64 `json:"exitPercent"`
	Reason      string  `json:"reason"`
}
