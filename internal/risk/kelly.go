package risk

import (
	"math"

	"github.com/quantforge/riskpipe/internal/logger"
	"github.com/quantforge/riskpipe/pkg/config"
)

// KellySizer converts win-rate and payoff statistics into a bounded
// capital fraction.
type KellySizer struct {
	minFraction     float64
	maxFraction     float64
	defaultFraction float64
	logger          *logger.Logger
}

// NewKellySizer creates a sizer with the configured bounds.
func NewKellySizer(cfg config.RiskConfig, log *logger.Logger) *KellySizer {
	return &KellySizer{
		minFraction:     cfg.KellyMin,
		maxFraction:     cfg.KellyMax,
		defaultFraction: cfg.KellyDefault,
		logger:          log,
	}
}

// Calculate applies the classic Kelly formula f = (p*b - q) / b with
// b = avgWin/avgLoss, scales by confidence and clamps to the
// configured bounds. Invalid inputs fall back to the default fraction
// rather than erroring: sizing degrades to conservative, it never
// fails a decision.
func (k *KellySizer) Calculate(winRate, avgWin, avgLoss, confidence float64) float64 {
	if winRate <= 0 || winRate >= 1 || avgWin <= 0 || avgLoss <= 0 {
		if k.logger != nil {
			k.logger.Warning("kelly: invalid inputs (win_rate=%.4f avg_win=%.4f avg_loss=%.4f), using default fraction %.4f",
				winRate, avgWin, avgLoss, k.defaultFraction)
		}
		return k.defaultFraction
	}
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}

	b := avgWin / avgLoss
	q := 1 - winRate
	fraction := (winRate*b - q) / b

	return k.clamp(fraction * confidence)
}

// AdjustForVolatility rescales a fraction by targetVol/currentVol,
// clamped to the configured bounds. A non-positive volatility on
// either side makes this a no-op.
func (k *KellySizer) AdjustForVolatility(fraction, currentVol, targetVol float64) float64 {
	if currentVol <= 0 || targetVol <= 0 {
		return fraction
	}
	return k.clamp(fraction * targetVol / currentVol)
}

// AdjustForDrawdown decays the fraction exponentially once drawdown
// exceeds the threshold, floored at the minimum fraction. Sizing
// shrinks sharply but never reaches zero here; zeroing out is the
// engine's call, not the sizer's.
func (k *KellySizer) AdjustForDrawdown(fraction, drawdown, threshold float64) float64 {
	if drawdown <= threshold {
		return fraction
	}
	adjusted := fraction * math.Exp(-5*(drawdown-threshold))
	if adjusted < k.minFraction {
		return k.minFraction
	}
	return adjusted
}

func (k *KellySizer) clamp(fraction float64) float64 {
	if fraction < k.minFraction {
		return k.minFraction
	}
	if fraction > k.maxFraction {
		return k.maxFraction
	}
	return fraction
}
