package risk

import (
	"math"

	"github.com/quantforge/riskpipe/internal/logger"
	"github.com/quantforge/riskpipe/pkg/config"
)

// BetaHedger computes portfolio-level hedge quantities against a
// benchmark instrument.
type BetaHedger struct {
	betaThreshold    float64
	hedgeRatioTarget float64
	logger           *logger.Logger
}

// Hedge reason strings returned by CalculateHedge and
// AdjustExistingHedge.
const (
	HedgeReasonBelowThreshold = "beta_below_threshold"
	HedgeReasonInvalidPrice   = "invalid_hedge_price"
	HedgeReasonShortBenchmark = "short_benchmark"
	HedgeReasonCloseHedge     = "close_hedge"
	HedgeReasonOpenHedge      = "open_hedge"
	HedgeReasonRebalance      = "rebalance"
	HedgeReasonWithinBand     = "within_rebalance_band"
)

// NewBetaHedger creates a hedger with the configured threshold and
// target ratio.
func NewBetaHedger(cfg config.RiskConfig, log *logger.Logger) *BetaHedger {
	return &BetaHedger{
		betaThreshold:    cfg.BetaThreshold,
		hedgeRatioTarget: cfg.HedgeRatioTarget,
		logger:           log,
	}
}

// PortfolioBeta is the position-value-weighted average of per-symbol
// betas, defaulting unknown symbols to 1.0. Zero portfolio value or no
// positions yield 0.
func (h *BetaHedger) PortfolioBeta(positions map[string]float64, betas map[string]float64, portfolioValue float64) float64 {
	if portfolioValue == 0 || len(positions) == 0 {
		return 0
	}

	var weighted float64
	for sym, value := range positions {
		beta := 1.0
		if b, ok := betas[sym]; ok {
			beta = b
		}
		weighted += beta * value / portfolioValue
	}
	return weighted
}

// CalculateHedge returns the signed quantity of the hedge instrument
// to hold (negative = short) and a reason string. Betas below the
// threshold need no hedge.
func (h *BetaHedger) CalculateHedge(portfolioValue, portfolioBeta, hedgePrice float64) (float64, string) {
	if portfolioBeta < h.betaThreshold {
		return 0, HedgeReasonBelowThreshold
	}
	if hedgePrice <= 0 {
		return 0, HedgeReasonInvalidPrice
	}

	hedgeValue := portfolioValue * portfolioBeta * h.hedgeRatioTarget
	qty := -math.Floor(hedgeValue / hedgePrice)
	if h.logger != nil {
		h.logger.Risk("hedge: beta=%.2f value=%.2f qty=%.0f", portfolioBeta, hedgeValue, qty)
	}
	return qty, HedgeReasonShortBenchmark
}

// AdjustExistingHedge compares the current hedge position to the
// target and returns the signed quantity delta to trade. Small drifts
// inside the rebalance band are left alone.
func (h *BetaHedger) AdjustExistingHedge(currentQty, targetQty, rebalanceThreshold float64) (float64, string) {
	if targetQty == 0 {
		if currentQty == 0 {
			return 0, HedgeReasonWithinBand
		}
		return -currentQty, HedgeReasonCloseHedge
	}
	if currentQty == 0 {
		return targetQty, HedgeReasonOpenHedge
	}

	drift := math.Abs(currentQty-targetQty) / math.Abs(targetQty)
	if drift > rebalanceThreshold {
		return targetQty - currentQty, HedgeReasonRebalance
	}
	return 0, HedgeReasonWithinBand
}
