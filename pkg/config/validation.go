package config

import (
	"fmt"
	"time"
)

// ValidationError marks a configuration problem found at construction.
// It is fatal: hosts must refuse to start on it.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Validate checks the whole configuration. Any error returned here must
// prevent startup.
func (c *Config) Validate() error {
	if err := c.Risk.Validate(); err != nil {
		return err
	}
	if err := c.Executor.Validate(); err != nil {
		return err
	}
	if err := c.Slippage.Validate(); err != nil {
		return err
	}
	return c.Router.Validate()
}

// Validate checks the risk limits and bounds.
func (r *RiskConfig) Validate() error {
	caps := []struct {
		name  string
		value float64
	}{
		{"max_exposure_total", r.MaxExposureTotal},
		{"max_exposure_symbol", r.MaxExposureSymbol},
		{"max_sector_exposure", r.MaxSectorExposure},
		{"max_leverage", r.MaxLeverage},
		{"max_concentration_top5", r.MaxConcentrationTop5},
	}
	for _, c := range caps {
		if c.value <= 0 {
			return invalid(c.name, "must be positive, got: %.4f", c.value)
		}
	}

	if r.VaRConfidence <= 0 || r.VaRConfidence >= 1 {
		return invalid("var_confidence", "must be within (0, 1), got: %.4f", r.VaRConfidence)
	}
	if r.MaxVaRPct <= 0 {
		return invalid("max_var_pct", "must be positive, got: %.4f", r.MaxVaRPct)
	}

	if r.KellyMin < 0 {
		return invalid("kelly_min", "must be non-negative, got: %.4f", r.KellyMin)
	}
	if r.KellyMax <= r.KellyMin {
		return invalid("kelly_max", "must be greater than kelly_min %.4f, got: %.4f", r.KellyMin, r.KellyMax)
	}
	if r.KellyDefault < r.KellyMin || r.KellyDefault > r.KellyMax {
		return invalid("kelly_default", "must be within [%.4f, %.4f], got: %.4f", r.KellyMin, r.KellyMax, r.KellyDefault)
	}

	if r.MaxDrawdown <= 0 || r.MaxDrawdown >= 1 {
		return invalid("max_drawdown", "must be within (0, 1), got: %.4f", r.MaxDrawdown)
	}
	if r.MaxLosingStreak <= 0 {
		return invalid("max_losing_streak", "must be positive, got: %d", r.MaxLosingStreak)
	}
	if r.CooldownHours <= 0 {
		return invalid("cooldown_hours", "must be positive, got: %.2f", r.CooldownHours)
	}
	if r.DrawdownThreshold < 0 || r.DrawdownThreshold >= 1 {
		return invalid("drawdown_threshold", "must be within [0, 1), got: %.4f", r.DrawdownThreshold)
	}

	if r.BetaThreshold < 0 {
		return invalid("beta_threshold", "must be non-negative, got: %.4f", r.BetaThreshold)
	}
	if r.HedgeRatioTarget <= 0 || r.HedgeRatioTarget > 1 {
		return invalid("hedge_ratio_target", "must be within (0, 1], got: %.4f", r.HedgeRatioTarget)
	}

	return nil
}

// Validate checks the executor parameters.
func (e *ExecutorConfig) Validate() error {
	if e.BatchWindow <= 0 {
		return invalid("batch_window", "must be positive, got: %s", e.BatchWindow)
	}
	if _, err := time.LoadLocation(e.ExchangeTZ); err != nil {
		return invalid("exchange_tz", "unknown time zone %q", e.ExchangeTZ)
	}
	return nil
}

// Validate checks the slippage-model parameters.
func (s *SlippageConfig) Validate() error {
	if s.BaseBps < 0 {
		return invalid("base_bps", "must be non-negative, got: %.4f", s.BaseBps)
	}
	if s.VolumeImpactFactor < 0 {
		return invalid("volume_impact_factor", "must be non-negative, got: %.4f", s.VolumeImpactFactor)
	}
	if s.VolatilityMultiplier < 0 {
		return invalid("volatility_multiplier", "must be non-negative, got: %.4f", s.VolatilityMultiplier)
	}
	return nil
}

// Validate checks the router parameters.
func (r *RouterConfig) Validate() error {
	if r.VolatilityThreshold <= 0 {
		return invalid("volatility_threshold", "must be positive, got: %.4f", r.VolatilityThreshold)
	}
	if r.StopATRMultiple <= 0 || r.TargetATRMultiple <= 0 {
		return invalid("atr_multiples", "must be positive, got: stop=%.2f target=%.2f", r.StopATRMultiple, r.TargetATRMultiple)
	}
	return nil
}
