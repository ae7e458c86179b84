package execution

import (
	"math"
	"testing"

	"github.com/quantforge/riskpipe/internal/exchange"
	"github.com/quantforge/riskpipe/pkg/config"
)

func newTestRouter() *OrderRouter {
	return NewOrderRouter(config.DefaultRouterConfig())
}

func TestRouteOrder(t *testing.T) {
	router := newTestRouter()

	tests := []struct {
		name       string
		side       exchange.Side
		volatility float64
		urgency    Urgency
		wantType   exchange.OrderType
		wantLimit  float64
	}{
		{
			name:       "high urgency always crosses",
			side:       exchange.SideBuy,
			volatility: 0.50,
			urgency:    UrgencyHigh,
			wantType:   exchange.OrderTypeMarket,
		},
		{
			name:       "normal urgency in calm markets crosses",
			side:       exchange.SideBuy,
			volatility: 0.15,
			urgency:    UrgencyNormal,
			wantType:   exchange.OrderTypeMarket,
		},
		{
			name:       "normal urgency in volatile markets rests wide",
			side:       exchange.SideBuy,
			volatility: 0.40,
			urgency:    UrgencyNormal,
			wantType:   exchange.OrderTypeLimit,
			wantLimit:  100 * (1 - 0.002),
		},
		{
			name:       "low urgency rests near the touch",
			side:       exchange.SideBuy,
			volatility: 0.15,
			urgency:    UrgencyLow,
			wantType:   exchange.OrderTypeLimit,
			wantLimit:  100 * (1 - 0.001),
		},
		{
			name:       "sell limits rest above the price",
			side:       exchange.SideSell,
			volatility: 0.15,
			urgency:    UrgencyLow,
			wantType:   exchange.OrderTypeLimit,
			wantLimit:  100 * (1 + 0.001),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := NewOrderRequest("AAPL", tt.side, exchange.OrderTypeMarket)
			req.Qty = 10
			router.RouteOrder(req, 100, tt.volatility, tt.urgency)

			if req.Type != tt.wantType {
				t.Fatalf("order type = %v, want %v", req.Type, tt.wantType)
			}
			if tt.wantType == exchange.OrderTypeMarket {
				if req.LimitPrice != 0 {
					t.Errorf("market order should carry no limit price, got %.4f", req.LimitPrice)
				}
				return
			}
			if math.Abs(req.LimitPrice-tt.wantLimit) > 1e-9 {
				t.Errorf("limit price = %.4f, want %.4f", req.LimitPrice, tt.wantLimit)
			}
		})
	}
}

func TestAddProtectiveStops(t *testing.T) {
	router := newTestRouter()

	// long with ATR 2: stop 2x below, target 3x above
	stop, target := router.AddProtectiveStops(100, 2, exchange.SideBuy)
	if stop != 96 || target != 106 {
		t.Errorf("long stops = (%.2f, %.2f), want (96, 106)", stop, target)
	}

	// short mirrors
	stop, target = router.AddProtectiveStops(100, 2, exchange.SideSell)
	if stop != 104 || target != 94 {
		t.Errorf("short stops = (%.2f, %.2f), want (104, 94)", stop, target)
	}

	// no ATR: 1% of price fallback
	stop, target = router.AddProtectiveStops(100, 0, exchange.SideBuy)
	if stop != 98 || target != 103 {
		t.Errorf("fallback stops = (%.2f, %.2f), want (98, 103)", stop, target)
	}
}
