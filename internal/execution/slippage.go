package execution

import (
	"math"

	"github.com/quantforge/riskpipe/internal/exchange"
	"github.com/quantforge/riskpipe/pkg/config"
)

// SlippageModel estimates execution cost in basis points from order
// size relative to daily volume and from realized volatility.
type SlippageModel struct {
	baseBps              float64
	volumeImpactFactor   float64
	volatilityMultiplier float64
}

func NewSlippageModel(cfg config.SlippageConfig) *SlippageModel {
	return &SlippageModel{
		baseBps:              cfg.BaseBps,
		volumeImpactFactor:   cfg.VolumeImpactFactor,
		volatilityMultiplier: cfg.VolatilityMultiplier,
	}
}

// EstimateSlippage returns expected slippage in basis points.
// avgDailyVolume and volatility are optional; pass 0 to skip the
// corresponding impact term. Limit orders pay half the base figure
// since they do not cross the spread.
func (m *SlippageModel) EstimateSlippage(qty, avgDailyVolume, volatility float64, isMarketOrder bool) float64 {
	bps := m.baseBps
	if !isMarketOrder {
		bps /= 2
	}

	// Impact terms are scaled so typical inputs land in single-digit
	// basis points: 1% daily-volume participation at factor 10 adds
	// 10bps, 30% annualized volatility at multiplier 2 adds 6bps.
	if avgDailyVolume > 0 {
		participation := math.Abs(qty) / avgDailyVolume
		bps += participation * m.volumeImpactFactor * 100
	}
	if volatility > 0 {
		bps += volatility * m.volatilityMultiplier * 10
	}
	return bps
}

// EstimateExecutionPrice applies the slippage estimate as a price
// penalty: buys pay up, sells receive less.
func (m *SlippageModel) EstimateExecutionPrice(price, qty, avgDailyVolume, volatility float64, side exchange.Side, isMarketOrder bool) float64 {
	bps := m.EstimateSlippage(qty, avgDailyVolume, volatility, isMarketOrder)
	penalty := price * bps / 10000
	if side == exchange.SideBuy {
		return price + penalty
	}
	return price - penalty
}

// EstimateCost returns the expected dollar cost of slippage for the
// whole order.
func (m *SlippageModel) EstimateCost(price, qty, avgDailyVolume, volatility float64, isMarketOrder bool) float64 {
	bps := m.EstimateSlippage(qty, avgDailyVolume, volatility, isMarketOrder)
	return math.Abs(qty) * price * bps / 10000
}
