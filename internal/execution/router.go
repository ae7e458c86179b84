package execution

import (
	"github.com/quantforge/riskpipe/internal/exchange"
	"github.com/quantforge/riskpipe/pkg/config"
)

// Urgency expresses how fast a request needs to fill.
type Urgency int

const (
	UrgencyLow Urgency = iota
	UrgencyNormal
	UrgencyHigh
)

// Limit-price offsets as fractions of current price. Volatile names
// get the wider offset so resting orders are not picked off.
const (
	limitOffsetCalm     = 0.001
	limitOffsetVolatile = 0.002
)

// OrderRouter picks market vs. limit and prices the limit when one is
// chosen.
type OrderRouter struct {
	volatilityThreshold float64
	stopATRMultiple     float64
	targetATRMultiple   float64
}

func NewOrderRouter(cfg config.RouterConfig) *OrderRouter {
	return &OrderRouter{
		volatilityThreshold: cfg.VolatilityThreshold,
		stopATRMultiple:     cfg.StopATRMultiple,
		targetATRMultiple:   cfg.TargetATRMultiple,
	}
}

// RouteOrder sets the request's order type and, for limit orders, a
// limit price offset from currentPrice. High urgency always crosses
// the spread; otherwise volatility above the annualized threshold, or
// low urgency, prefers a resting limit order. Buys rest below the
// current price, sells above.
func (r *OrderRouter) RouteOrder(request *OrderRequest, currentPrice, volatility float64, urgency Urgency) {
	if urgency == UrgencyHigh {
		request.Type = exchange.OrderTypeMarket
		request.LimitPrice = 0
		return
	}

	volatile := volatility > r.volatilityThreshold
	if urgency == UrgencyNormal && !volatile {
		request.Type = exchange.OrderTypeMarket
		request.LimitPrice = 0
		return
	}

	offset := limitOffsetCalm
	if volatile {
		offset = limitOffsetVolatile
	}

	request.Type = exchange.OrderTypeLimit
	if request.Side == exchange.SideBuy {
		request.LimitPrice = currentPrice * (1 - offset)
	} else {
		request.LimitPrice = currentPrice * (1 + offset)
	}
}

// AddProtectiveStops derives stop-loss and take-profit prices from an
// ATR-like volatility measure. With no ATR available it falls back to
// 1% of price.
func (r *OrderRouter) AddProtectiveStops(entryPrice, atr float64, side exchange.Side) (stopLoss, takeProfit float64) {
	if atr <= 0 {
		atr = entryPrice * 0.01
	}

	if side == exchange.SideBuy {
		stopLoss = entryPrice - r.stopATRMultiple*atr
		takeProfit = entryPrice + r.targetATRMultiple*atr
	} else {
		stopLoss = entryPrice + r.stopATRMultiple*atr
		takeProfit = entryPrice - r.targetATRMultiple*atr
	}
	return stopLoss, takeProfit
}
