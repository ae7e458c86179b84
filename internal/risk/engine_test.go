package risk

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantforge/riskpipe/internal/logger"
	"github.com/quantforge/riskpipe/pkg/config"
)

func newTestEngine(t *testing.T, mutate func(*config.RiskConfig)) *Engine {
	t.Helper()
	cfg := config.DefaultRiskConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	engine, err := NewEngine(cfg, logger.NewWithWriter("test", io.Discard))
	require.NoError(t, err)
	return engine
}

// calm return history: worst day -1%, well inside the VaR cap
func calmReturns() []float64 {
	returns := make([]float64, 20)
	for i := range returns {
		if i%2 == 0 {
			returns[i] = 0.01
		} else {
			returns[i] = -0.01
		}
	}
	return returns
}

func baseContext() *Context {
	return &Context{
		PortfolioValue: 100_000,
		BuyingPower:    50_000,
		SettledCash:    50_000,
		Positions:      map[string]float64{},
		Returns:        calmReturns(),
	}
}

func TestEvaluateTradeApproved(t *testing.T) {
	engine := newTestEngine(t, nil)

	decision := engine.EvaluateTrade("AAPL", 9_000, 1.0, baseContext(), "")

	assert.True(t, decision.Approved)
	assert.Equal(t, "approved", decision.Reason)
	assert.Equal(t, 9_000.0, decision.MaxPositionSize)
	assert.Greater(t, decision.KellyFraction, 0.0)
	assert.InDelta(t, 1_000, decision.VaR, 1)
}

func TestEvaluateTradeSymbolLimitRejection(t *testing.T) {
	engine := newTestEngine(t, nil)

	decision := engine.EvaluateTrade("AAPL", 11_000, 1.0, baseContext(), "")

	assert.False(t, decision.Approved)
	assert.Contains(t, decision.Reason, "11.00% > 10.00%")
	assert.Zero(t, decision.MaxPositionSize)
}

func TestEvaluateTradeDrawdownEntersCooldown(t *testing.T) {
	engine := newTestEngine(t, nil)

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	engine.SetClock(func() time.Time { return now })

	ctx := baseContext()
	ctx.CurrentDrawdown = 0.09

	first := engine.EvaluateTrade("AAPL", 5_000, 1.0, ctx, "")
	assert.False(t, first.Approved)
	assert.Contains(t, first.Reason, "entering cooldown")

	// A healthy follow-up request is still blocked by the cooldown.
	second := engine.EvaluateTrade("AAPL", 5_000, 1.0, baseContext(), "")
	assert.False(t, second.Approved)
	assert.Contains(t, second.Reason, "cooldown active")

	// The cooldown clears itself once its expiry passes.
	now = now.Add(25 * time.Hour)
	third := engine.EvaluateTrade("AAPL", 5_000, 1.0, baseContext(), "")
	assert.True(t, third.Approved)
}

func TestEvaluateTradeCooldownNotExtendedByRepeatBreach(t *testing.T) {
	engine := newTestEngine(t, nil)

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	engine.SetClock(func() time.Time { return now })

	ctx := baseContext()
	ctx.CurrentDrawdown = 0.09
	engine.EvaluateTrade("AAPL", 5_000, 1.0, ctx, "")

	// 12 hours in, the cooldown gate fires before the drawdown check,
	// so the expiry cannot be pushed out.
	now = now.Add(12 * time.Hour)
	engine.EvaluateTrade("AAPL", 5_000, 1.0, ctx, "")

	// 13 more hours puts us past the original 24h expiry.
	now = now.Add(13 * time.Hour)
	decision := engine.EvaluateTrade("AAPL", 5_000, 1.0, baseContext(), "")
	assert.True(t, decision.Approved, "repeat breach during cooldown must not extend it")
}

func TestEvaluateTradeLosingStreak(t *testing.T) {
	engine := newTestEngine(t, nil)

	ctx := baseContext()
	ctx.LosingStreak = 5

	decision := engine.EvaluateTrade("AAPL", 5_000, 1.0, ctx, "")
	assert.False(t, decision.Approved)
	assert.Contains(t, decision.Reason, "losing streak")
}

func TestEvaluateTradeBuyingPower(t *testing.T) {
	engine := newTestEngine(t, func(cfg *config.RiskConfig) {
		cfg.MaxExposureSymbol = 1.0
		cfg.MaxExposureTotal = 1.0
		cfg.MaxConcentrationTop5 = 1.0
	})

	decision := engine.EvaluateTrade("AAPL", 60_000, 1.0, baseContext(), "")
	assert.False(t, decision.Approved)
	assert.Contains(t, decision.Reason, "insufficient buying power")
	assert.Contains(t, decision.Reason, "need 60000.00, have 50000.00")

	// Sells are not buying-power gated.
	sell := engine.EvaluateTrade("AAPL", -5_000, 1.0, baseContext(), "")
	assert.True(t, sell.Approved)
}

func TestEvaluateTradeVaRRejectionCarriesNumbers(t *testing.T) {
	engine := newTestEngine(t, nil)

	ctx := baseContext()
	// worst days -8% and -10%: VaR far beyond the 3% cap
	ctx.Returns = sampleReturns()

	decision := engine.EvaluateTrade("AAPL", 5_000, 1.0, ctx, "")
	assert.False(t, decision.Approved)
	assert.True(t, strings.HasPrefix(decision.Reason, "VaR "))
	assert.Greater(t, decision.VaR, 3_000.0)
	assert.Greater(t, decision.CVaR, 0.0, "rejected decision still reports CVaR for observability")
}

func TestEvaluateTradeKellyCap(t *testing.T) {
	engine := newTestEngine(t, func(cfg *config.RiskConfig) {
		cfg.MaxExposureSymbol = 0.50
		cfg.MaxConcentrationTop5 = 1.0
	})

	ctx := baseContext()
	ctx.BuyingPower = 100_000

	decision := engine.EvaluateTrade("AAPL", 30_000, 1.0, ctx, "")
	require.True(t, decision.Approved)

	// placeholder stats: f = (0.55*(0.02/0.015) - 0.45) / (0.02/0.015)
	b := 0.02 / 0.015
	wantFraction := (0.55*b - 0.45) / b
	assert.InDelta(t, wantFraction, decision.KellyFraction, 1e-9)
	assert.InDelta(t, 100_000*wantFraction, decision.MaxPositionSize, 1e-6,
		"proposed size beyond the Kelly maximum must be capped")
}

func TestEvaluateTradeKellyUsesCallerStats(t *testing.T) {
	engine := newTestEngine(t, func(cfg *config.RiskConfig) {
		cfg.MaxExposureSymbol = 0.50
		cfg.MaxConcentrationTop5 = 1.0
	})

	ctx := baseContext()
	ctx.BuyingPower = 100_000
	ctx.WinRate = 0.60
	ctx.AvgWin = 0.03
	ctx.AvgLoss = 0.015

	decision := engine.EvaluateTrade("AAPL", 30_000, 1.0, ctx, "")
	require.True(t, decision.Approved)
	assert.InDelta(t, 0.25, decision.KellyFraction, 1e-9, "caller stats clamp at the configured max")
	assert.InDelta(t, 25_000, decision.MaxPositionSize, 1e-6)
}

func TestShouldHedge(t *testing.T) {
	engine := newTestEngine(t, nil)

	ctx := baseContext()
	qty, reason := engine.ShouldHedge(ctx, 400)
	assert.Zero(t, qty)
	assert.Equal(t, "no_beta_data", reason)

	ctx.Positions = map[string]float64{"AAPL": 100_000}
	ctx.Betas = map[string]float64{"AAPL": 1.0}
	qty, reason = engine.ShouldHedge(ctx, 400)
	assert.Equal(t, -125.0, qty)
	assert.Equal(t, HedgeReasonShortBenchmark, reason)
}

func TestRiskMetricsIsPureRead(t *testing.T) {
	engine := newTestEngine(t, nil)

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	engine.SetClock(func() time.Time { return now })

	ctx := baseContext()
	ctx.CurrentDrawdown = 0.09
	ctx.Positions = map[string]float64{"AAPL": 20_000, "SPY": -10_000}
	engine.EvaluateTrade("AAPL", 5_000, 1.0, ctx, "")

	metrics := engine.RiskMetrics(ctx)
	assert.True(t, metrics.InCooldown)
	assert.Equal(t, 30_000.0, metrics.TotalExposure)
	assert.InDelta(t, 0.30, metrics.ExposurePct, 1e-9)
	assert.InDelta(t, 0.09, metrics.Drawdown, 1e-9)

	// After expiry the metric flips, but reading must not clear the
	// internal flag; the next evaluate call does that.
	now = now.Add(25 * time.Hour)
	metrics = engine.RiskMetrics(ctx)
	assert.False(t, metrics.InCooldown)

	engine.mu.Lock()
	stillSet := engine.inCooldown
	engine.mu.Unlock()
	assert.True(t, stillSet, "RiskMetrics must never mutate cooldown state")
}

func TestNewEngineRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultRiskConfig()
	cfg.MaxDrawdown = -1

	_, err := NewEngine(cfg, logger.NewWithWriter("test", io.Discard))
	assert.Error(t, err)
}
