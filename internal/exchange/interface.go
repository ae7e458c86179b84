package exchange

import "context"

// Broker is the port the execution pipeline submits through. Every
// implementation must return a distinguishable *APIError for non-2xx
// broker responses and enforce its own timeouts; the batch loop relies
// on calls failing rather than hanging.
type Broker interface {
	GetName() string

	// Account and market data
	GetAccount(ctx context.Context) (*Account, error)
	GetPositions(ctx context.Context) ([]Position, error)
	GetQuote(ctx context.Context, symbol string) (*Quote, error)

	// Trading
	SubmitOrder(ctx context.Context, ticket OrderTicket) (*OrderRecord, error)
	CancelOrder(ctx context.Context, orderID string) error
	GetOrderStatus(ctx context.Context, orderID string) (*OrderRecord, error)

	// Connection management
	Connect(ctx context.Context) error
	Disconnect() error
}
