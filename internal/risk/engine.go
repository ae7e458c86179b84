package risk

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/quantforge/riskpipe/internal/logger"
	"github.com/quantforge/riskpipe/internal/monitoring"
	"github.com/quantforge/riskpipe/pkg/config"
)

// Placeholder sizing statistics used when the caller's context does
// not supply win-rate/payoff numbers. Callers with real statistics
// should set them on the Context; these defaults exist so sizing still
// produces a bounded fraction without them.
const (
	placeholderWinRate = 0.55
	placeholderAvgWin  = 0.02
	placeholderAvgLoss = 0.015
)

// Engine orchestrates the sizer, VaR calculator, limits enforcer and
// hedger into a single trade-approval decision. The only state it owns
// is the cooldown pair (inCooldown, cooldownUntil), guarded by mu.
type Engine struct {
	cfg     config.RiskConfig
	kelly   *KellySizer
	varCalc *VaRCalculator
	limits  *LimitsEnforcer
	hedger  *BetaHedger
	logger  *logger.Logger

	mu            sync.Mutex
	inCooldown    bool
	cooldownUntil time.Time

	// now is injectable for tests.
	now func() time.Time
}

// NewEngine wires the risk components from one config.
func NewEngine(cfg config.RiskConfig, log *logger.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:     cfg,
		kelly:   NewKellySizer(cfg, log),
		varCalc: NewVaRCalculator(cfg.VaRConfidence, log),
		limits:  NewLimitsEnforcer(cfg, log),
		hedger:  NewBetaHedger(cfg, log),
		logger:  log,
		now:     time.Now,
	}, nil
}

// SetClock replaces the wall clock. Tests only.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// EvaluateTrade runs the fail-closed decision sequence for a proposed
// trade: cooldown, drawdown, losing streak, buying power, VaR, hard
// limits, then Kelly sizing. Short-circuits on the first rejection.
func (e *Engine) EvaluateTrade(symbol string, proposedValue, signalConfidence float64, ctx *Context, sector string) Decision {
	// (a) Cooldown gate, with lazy expiry.
	if active, until := e.cooldownActive(); active {
		return e.reject(symbol, fmt.Sprintf("cooldown active until %s", until.Format(time.RFC3339)), 0, 0)
	}

	// (b) Drawdown breach enters cooldown.
	if ctx.CurrentDrawdown >= e.cfg.MaxDrawdown {
		e.enterCooldown("drawdown")
		return e.reject(symbol, fmt.Sprintf("drawdown %.2f%% >= %.2f%% limit, entering cooldown",
			ctx.CurrentDrawdown*100, e.cfg.MaxDrawdown*100), 0, 0)
	}

	// (c) Losing streak breach enters cooldown.
	if ctx.LosingStreak >= e.cfg.MaxLosingStreak {
		e.enterCooldown("losing_streak")
		return e.reject(symbol, fmt.Sprintf("losing streak %d >= %d limit, entering cooldown",
			ctx.LosingStreak, e.cfg.MaxLosingStreak), 0, 0)
	}

	// (d) Buys need buying power.
	if proposedValue > 0 && proposedValue > ctx.BuyingPower {
		return e.reject(symbol, fmt.Sprintf("insufficient buying power: need %.2f, have %.2f",
			proposedValue, ctx.BuyingPower), 0, 0)
	}

	// (e) Tail risk. The computed numbers ride along on the decision
	// either way, for observability.
	varAmount := e.varCalc.HistoricalVaR(ctx.Returns, ctx.PortfolioValue)
	cvarAmount := e.varCalc.CVaR(ctx.Returns, ctx.PortfolioValue)
	monitoring.SetVaR(varAmount)
	if maxVaR := ctx.PortfolioValue * e.cfg.MaxVaRPct; varAmount > maxVaR {
		return e.reject(symbol, fmt.Sprintf("VaR %.2f exceeds %.2f (%.2f%% of portfolio)",
			varAmount, maxVaR, e.cfg.MaxVaRPct*100), varAmount, cvarAmount)
	}

	// (f) Hard limits. A LimitBreach becomes a rejection reason.
	if err := e.limits.CheckNewPosition(symbol, proposedValue, ctx.PortfolioValue, ctx.Positions, sector, ctx.Sectors); err != nil {
		var breach *LimitBreach
		if errors.As(err, &breach) {
			return e.reject(symbol, breach.Error(), varAmount, cvarAmount)
		}
		return e.reject(symbol, err.Error(), varAmount, cvarAmount)
	}

	// (g) Kelly sizing caps the proposed value.
	winRate, avgWin, avgLoss := e.kellyStats(ctx)
	fraction := e.kelly.Calculate(winRate, avgWin, avgLoss, signalConfidence)
	fraction = e.kelly.AdjustForDrawdown(fraction, ctx.CurrentDrawdown, e.cfg.DrawdownThreshold)

	maxSize := ctx.PortfolioValue * fraction
	size := proposedValue
	if math.Abs(size) > maxSize {
		capped := maxSize
		if size < 0 {
			capped = -maxSize
		}
		e.logger.Risk("size reduced for %s: %.2f -> %.2f (kelly fraction %.4f)", symbol, size, capped, fraction)
		size = capped
	}

	monitoring.RecordDecision(symbol, "approved")
	e.logger.LogDecision(symbol, true, "", size, varAmount)

	return Decision{
		Approved:        true,
		Reason:          "approved",
		MaxPositionSize: size,
		KellyFraction:   fraction,
		VaR:             varAmount,
		CVaR:            cvarAmount,
	}
}

// ShouldHedge computes the hedge quantity against the benchmark. A
// context with no beta data cannot be hedged.
func (e *Engine) ShouldHedge(ctx *Context, benchmarkPrice float64) (float64, string) {
	if ctx.Betas == nil {
		return 0, "no_beta_data"
	}
	beta := e.hedger.PortfolioBeta(ctx.Positions, ctx.Betas, ctx.PortfolioValue)
	return e.hedger.CalculateHedge(ctx.PortfolioValue, beta, benchmarkPrice)
}

// RiskMetrics exposes the engine's current read of the portfolio. It
// never mutates state; cooldown is reported as-of-now without being
// cleared.
func (e *Engine) RiskMetrics(ctx *Context) Metrics {
	var gross float64
	for _, v := range ctx.Positions {
		gross += math.Abs(v)
	}
	exposurePct := 0.0
	if ctx.PortfolioValue > 0 {
		exposurePct = gross / ctx.PortfolioValue
	}

	e.mu.Lock()
	inCooldown := e.inCooldown && e.now().Before(e.cooldownUntil)
	e.mu.Unlock()

	return Metrics{
		VaR:           e.varCalc.HistoricalVaR(ctx.Returns, ctx.PortfolioValue),
		CVaR:          e.varCalc.CVaR(ctx.Returns, ctx.PortfolioValue),
		TotalExposure: gross,
		ExposurePct:   exposurePct,
		PortfolioBeta: e.hedger.PortfolioBeta(ctx.Positions, ctx.Betas, ctx.PortfolioValue),
		Drawdown:      ctx.CurrentDrawdown,
		InCooldown:    inCooldown,
	}
}

// cooldownActive reports whether the engine is cooling down, clearing
// the flag the first time a request observes the expiry has passed.
func (e *Engine) cooldownActive() (bool, time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.inCooldown {
		return false, time.Time{}
	}
	if !e.now().Before(e.cooldownUntil) {
		e.inCooldown = false
		e.logger.Risk("cooldown expired at %s, resuming", e.cooldownUntil.Format(time.RFC3339))
		return false, time.Time{}
	}
	return true, e.cooldownUntil
}

// enterCooldown activates the cooldown. A breach while already cooling
// down does not reset or extend the expiry.
func (e *Engine) enterCooldown(trigger string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.inCooldown && e.now().Before(e.cooldownUntil) {
		return
	}
	e.inCooldown = true
	e.cooldownUntil = e.now().Add(time.Duration(e.cfg.CooldownHours * float64(time.Hour)))
	e.logger.Risk("entering cooldown (%s) until %s", trigger, e.cooldownUntil.Format(time.RFC3339))
	monitoring.RecordCooldown(trigger)
}

func (e *Engine) kellyStats(ctx *Context) (winRate, avgWin, avgLoss float64) {
	if ctx.WinRate > 0 && ctx.AvgWin > 0 && ctx.AvgLoss > 0 {
		return ctx.WinRate, ctx.AvgWin, ctx.AvgLoss
	}
	return placeholderWinRate, placeholderAvgWin, placeholderAvgLoss
}

func (e *Engine) reject(symbol, reason string, varAmount, cvarAmount float64) Decision {
	monitoring.RecordDecision(symbol, "rejected")
	e.logger.LogDecision(symbol, false, reason, 0, varAmount)
	return Decision{
		Approved: false,
		Reason:   reason,
		VaR:      varAmount,
		CVaR:     cvarAmount,
	}
}
