// Package execution decouples trade intent from broker submission:
// requests are queued, aggregated per batch window, gated on trading
// hours, and submitted to the broker port with partial-failure
// isolation.
package execution

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/quantforge/riskpipe/internal/exchange"
)

// OrderRequest is a single trade intent handed to the executor. It is
// consumed exactly once: either aggregated into a broker submission or
// retained across closed-session windows, never silently dropped.
// Exactly one of Qty or Notional should be set; when both are set,
// Notional is authoritative.
type OrderRequest struct {
	ClientID   string
	Symbol     string
	Side       exchange.Side
	Qty        float64
	Notional   float64
	Type       exchange.OrderType
	LimitPrice float64
	StopPrice  float64
	Metadata   map[string]string
}

// NewOrderRequest builds a request with a fresh client ID.
func NewOrderRequest(symbol string, side exchange.Side, orderType exchange.OrderType) *OrderRequest {
	return &OrderRequest{
		ClientID: uuid.NewString(),
		Symbol:   symbol,
		Side:     side,
		Type:     orderType,
	}
}

// Validate checks the request is submittable.
func (r *OrderRequest) Validate() error {
	if r.Symbol == "" {
		return fmt.Errorf("order request missing symbol")
	}
	if r.Qty == 0 && r.Notional == 0 {
		return fmt.Errorf("order request for %s has neither quantity nor notional", r.Symbol)
	}
	if r.Qty < 0 || r.Notional < 0 {
		return fmt.Errorf("order request for %s has negative size (qty=%.4f, notional=%.2f)",
			r.Symbol, r.Qty, r.Notional)
	}
	if r.Type == exchange.OrderTypeLimit && r.LimitPrice <= 0 {
		return fmt.Errorf("limit order for %s missing limit price", r.Symbol)
	}
	return nil
}

// PendingHandle identifies a queued request before it has a broker
// order ID.
type PendingHandle struct {
	ClientID string
	Symbol   string
}
