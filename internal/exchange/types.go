package exchange

import "time"

// Side is the closed set of order directions.
type Side int

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return "unknown"
	}
}

// OrderType is the closed set of supported order types.
type OrderType int

const (
	OrderTypeMarket OrderType = iota
	OrderTypeLimit
	OrderTypeStop
	OrderTypeStopLimit
)

func (t OrderType) String() string {
	switch t {
	case OrderTypeMarket:
		return "market"
	case OrderTypeLimit:
		return "limit"
	case OrderTypeStop:
		return "stop"
	case OrderTypeStopLimit:
		return "stop_limit"
	default:
		return "unknown"
	}
}

// OrderState is the broker-side order lifecycle state.
type OrderState string

const (
	OrderStateNew             OrderState = "new"
	OrderStatePartiallyFilled OrderState = "partially_filled"
	OrderStateFilled          OrderState = "filled"
	OrderStateCancelled       OrderState = "cancelled"
	OrderStateRejected        OrderState = "rejected"
)

// OrderTicket is the wire-level submission the executor hands to the
// broker. Exactly one of Qty or Notional should be set; when both are,
// Notional is authoritative.
type OrderTicket struct {
	Symbol     string
	Side       Side
	Qty        float64
	Notional   float64
	Type       OrderType
	LimitPrice float64
	StopPrice  float64
	ClientID   string
}

// OrderRecord is what the broker reports back for a submitted order.
type OrderRecord struct {
	ID           string
	ClientID     string
	Symbol       string
	Side         Side
	Qty          float64
	Notional     float64
	Type         OrderType
	LimitPrice   float64
	Status       OrderState
	AvgFillPrice float64
	SubmittedAt  time.Time
	UpdatedAt    time.Time
}

// Account is the broker account snapshot.
type Account struct {
	PortfolioValue float64
	BuyingPower    float64
	Cash           float64
}

// Position is one open broker position.
type Position struct {
	Symbol        string
	Qty           float64
	MarketValue   float64
	AvgEntryPrice float64
}

// Quote is the current market for a symbol.
type Quote struct {
	Symbol string
	Bid    float64
	Ask    float64
	Last   float64
	Volume float64
}
