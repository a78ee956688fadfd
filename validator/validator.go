// Package validator inspects assembled strategy documents. CheckConflicts
// reports structural conflicts without blocking or auto-resolving
// anything; ValidateStrategyData is the stricter verdict that gates
// persistence.
package validator

import (
	"github.com/khanyong/kyyquant-ai-solution-sub002/config"
	"github.com/khanyong/kyyquant-ai-solution-sub002/logger"
)

// Conflict categories. English equivalents of the editing surface's
// labels.
const (
	CategoryBuyConditions  = "buy conditions"
	CategorySellConditions = "sell conditions"
	CategoryRiskSettings   = "risk settings"
	CategoryTargetProfit   = "target profit"
	CategoryPositionSizing = "position sizing"
	CategoryExitRatio      = "exit ratio"
)

// Validator runs both check flavours. Stateless; safe for concurrent use.
type Validator struct {
	cfg config.EngineConfig
	log logger.Logger
}

// New validates the config and builds a validator. A nil logger falls
// back to a no-op one.
func New(cfg config.EngineConfig, log logger.Logger) (*Validator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Validator{cfg: cfg, log: log}, nil
}
