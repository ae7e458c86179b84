package exchange

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PaperBroker is an in-memory broker used by tests and by hosts
// running without exchange credentials. Orders fill immediately at the
// posted quote.
type PaperBroker struct {
	mu        sync.Mutex
	connected bool
	account   Account
	positions map[string]*Position
	quotes    map[string]Quote
	orders    map[string]*OrderRecord
	submitted []OrderTicket

	// failNext makes the next N submissions fail with a 503, for
	// partial-failure tests.
	failNext int
}

// NewPaperBroker creates a paper broker with the given starting cash.
func NewPaperBroker(startingCash float64) *PaperBroker {
	return &PaperBroker{
		account: Account{
			PortfolioValue: startingCash,
			BuyingPower:    startingCash,
			Cash:           startingCash,
		},
		positions: make(map[string]*Position),
		quotes:    make(map[string]Quote),
		orders:    make(map[string]*OrderRecord),
	}
}

func (p *PaperBroker) GetName() string { return "paper" }

func (p *PaperBroker) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = true
	return nil
}

func (p *PaperBroker) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = false
	return nil
}

// SetQuote posts a quote the broker will fill against.
func (p *PaperBroker) SetQuote(symbol string, bid, ask, volume float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quotes[symbol] = Quote{
		Symbol: symbol,
		Bid:    bid,
		Ask:    ask,
		Last:   (bid + ask) / 2,
		Volume: volume,
	}
}

// FailNextSubmits makes the next n submissions fail with a retryable
// server error.
func (p *PaperBroker) FailNextSubmits(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failNext = n
}

// SubmittedTickets returns a copy of every ticket seen so far.
func (p *PaperBroker) SubmittedTickets() []OrderTicket {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]OrderTicket, len(p.submitted))
	copy(out, p.submitted)
	return out
}

func (p *PaperBroker) GetAccount(ctx context.Context) (*Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	acct := p.account
	return &acct, nil
}

func (p *PaperBroker) GetPositions(ctx context.Context) ([]Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Position, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, *pos)
	}
	return out, nil
}

func (p *PaperBroker) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	q, ok := p.quotes[symbol]
	if !ok {
		return nil, NewAPIError(http.StatusNotFound, 0, fmt.Sprintf("no quote for %s", symbol))
	}
	return &q, nil
}

func (p *PaperBroker) SubmitOrder(ctx context.Context, ticket OrderTicket) (*OrderRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failNext > 0 {
		p.failNext--
		return nil, NewAPIError(http.StatusServiceUnavailable, 0, "paper broker forced failure")
	}

	q, ok := p.quotes[ticket.Symbol]
	if !ok {
		return nil, NewAPIError(http.StatusUnprocessableEntity, 0, fmt.Sprintf("no quote for %s", ticket.Symbol))
	}

	p.submitted = append(p.submitted, ticket)

	fillPrice := q.Ask
	if ticket.Side == SideSell {
		fillPrice = q.Bid
	}

	qty := ticket.Qty
	if ticket.Notional > 0 {
		qty = ticket.Notional / fillPrice
	}

	now := time.Now()
	rec := &OrderRecord{
		ID:           uuid.NewString(),
		ClientID:     ticket.ClientID,
		Symbol:       ticket.Symbol,
		Side:         ticket.Side,
		Qty:          qty,
		Notional:     ticket.Notional,
		Type:         ticket.Type,
		LimitPrice:   ticket.LimitPrice,
		Status:       OrderStateFilled,
		AvgFillPrice: fillPrice,
		SubmittedAt:  now,
		UpdatedAt:    now,
	}
	p.orders[rec.ID] = rec

	p.applyFill(ticket.Symbol, ticket.Side, qty, fillPrice)

	out := *rec
	return &out, nil
}

func (p *PaperBroker) CancelOrder(ctx context.Context, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.orders[orderID]
	if !ok {
		return NewAPIError(http.StatusNotFound, 0, fmt.Sprintf("order %s not found", orderID))
	}
	if rec.Status == OrderStateFilled {
		return NewAPIError(http.StatusConflict, 0, fmt.Sprintf("order %s already filled", orderID))
	}
	rec.Status = OrderStateCancelled
	rec.UpdatedAt = time.Now()
	return nil
}

func (p *PaperBroker) GetOrderStatus(ctx context.Context, orderID string) (*OrderRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.orders[orderID]
	if !ok {
		return nil, NewAPIError(http.StatusNotFound, 0, fmt.Sprintf("order %s not found", orderID))
	}
	out := *rec
	return &out, nil
}

func (p *PaperBroker) applyFill(symbol string, side Side, qty, price float64) {
	signedQty := qty
	if side == SideSell {
		signedQty = -qty
	}

	pos, ok := p.positions[symbol]
	if !ok {
		pos = &Position{Symbol: symbol, AvgEntryPrice: price}
		p.positions[symbol] = pos
	}
	pos.Qty += signedQty
	pos.MarketValue = pos.Qty * price
	if pos.Qty == 0 {
		delete(p.positions, symbol)
	}

	p.account.Cash -= signedQty * price
	p.account.BuyingPower = p.account.Cash
}
