package config

import (
	"errors"
	"fmt"
	"time"
)

// DefaultDebounce is the recommended interval for collapsing bursts of
// edit-time normalization/validation calls. Correctness never depends on
// it — every engine call is idempotent — so the engine only exports the
// hint and leaves the timer to the owning application.
const DefaultDebounce = 500 * time.Millisecond

// EngineConfig holds all tunable parameters of the condition engine.
type EngineConfig struct {
	// EpsilonTolerance absorbs floating-point noise on == / != comparisons.
	EpsilonTolerance float64 // default 1e-4

	// DivergenceWindow is the number of samples compared when detecting
	// price/indicator divergence.
	DivergenceWindow int // default 3

	// Structural limits enforced by the blocking validator.
	MaxStages             int // default 3
	MaxIndicatorsPerStage int // default 5
}

// Default returns the engine configuration matching the conventional
// limits: three stages, five indicators per stage, 3-sample divergence
// window, 1e-4 comparison tolerance.
func Default() EngineConfig {
	return EngineConfig{
		EpsilonTolerance:      1e-4,
		DivergenceWindow:      3,
		MaxStages:             3,
		MaxIndicatorsPerStage: 5,
	}
}

// Validate checks that all numeric fields are within sensible bounds.
// It returns the first encountered error, allowing the caller to surface
// a clear configuration problem before any evaluation starts.
func (c *EngineConfig) Validate() error {
	if c.EpsilonTolerance <= 0 || c.EpsilonTolerance > 1 {
		return fmt.Errorf("EpsilonTolerance (%g) must be >0 and <=1", c.EpsilonTolerance)
	}
	if c.DivergenceWindow < 2 {
		return errors.New("DivergenceWindow must be at least 2")
	}
	if c.MaxStages <= 0 {
		return errors.New("MaxStages must be positive")
	}
	if c.MaxIndicatorsPerStage <= 0 {
		return errors.New("MaxIndicatorsPerStage must be positive")
	}
	return nil
}
