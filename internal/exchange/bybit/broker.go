// Package bybit adapts the Bybit v5 REST API to the exchange.Broker
// port. Crypto venues trade around the clock, so hosts pointing the
// executor here normally disable regular-trading-hours gating.
package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/quantforge/riskpipe/internal/exchange"
)

// Config holds the configuration for the Bybit broker.
type Config struct {
	APIKey    string
	APISecret string
	Testnet   bool
	Category  string // "spot", "linear", "inverse"; defaults to "spot"
	QuoteCoin string // settlement coin for account queries, default "USDT"
}

// Broker implements exchange.Broker against Bybit.
type Broker struct {
	httpClient *bybit_api.Client
	category   string
	quoteCoin  string
	retry      exchange.RetryConfig
	connected  bool
}

// New creates a Bybit broker.
func New(cfg Config) *Broker {
	baseURL := bybit_api.MAINNET
	if cfg.Testnet {
		baseURL = bybit_api.TESTNET
	}
	if cfg.Category == "" {
		cfg.Category = "spot"
	}
	if cfg.QuoteCoin == "" {
		cfg.QuoteCoin = "USDT"
	}

	return &Broker{
		httpClient: bybit_api.NewBybitHttpClient(cfg.APIKey, cfg.APISecret, bybit_api.WithBaseURL(baseURL)),
		category:   cfg.Category,
		quoteCoin:  cfg.QuoteCoin,
		retry:      exchange.DefaultRetryConfig(),
	}
}

func (b *Broker) GetName() string { return "bybit" }

// Connect verifies credentials with an account query.
func (b *Broker) Connect(ctx context.Context) error {
	if _, err := b.GetAccount(ctx); err != nil {
		return fmt.Errorf("bybit connect failed: %w", err)
	}
	b.connected = true
	return nil
}

func (b *Broker) Disconnect() error {
	b.connected = false
	return nil
}

func (b *Broker) GetAccount(ctx context.Context) (*exchange.Account, error) {
	params := map[string]interface{}{
		"accountType": "UNIFIED",
		"coin":        b.quoteCoin,
	}
	result, err := b.httpClient.NewUtaBybitServiceWithParams(params).GetAccountWallet(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	var wallet struct {
		List []struct {
			TotalEquity           string `json:"totalEquity"`
			TotalAvailableBalance string `json:"totalAvailableBalance"`
			Coin                  []struct {
				Coin             string `json:"coin"`
				WalletBalance    string `json:"walletBalance"`
				AvailableToTrade string `json:"availableToWithdraw"`
			} `json:"coin"`
		} `json:"list"`
	}
	if err := b.decodeResult(result, &wallet); err != nil {
		return nil, err
	}
	if len(wallet.List) == 0 {
		return nil, exchange.NewAPIError(http.StatusNotFound, 0, "empty wallet response")
	}

	acct := &exchange.Account{
		PortfolioValue: parseFloat(wallet.List[0].TotalEquity),
		BuyingPower:    parseFloat(wallet.List[0].TotalAvailableBalance),
	}
	for _, c := range wallet.List[0].Coin {
		if c.Coin == b.quoteCoin {
			acct.Cash = parseFloat(c.WalletBalance)
		}
	}
	return acct, nil
}

func (b *Broker) GetPositions(ctx context.Context) ([]exchange.Position, error) {
	params := map[string]interface{}{
		"category":   b.category,
		"settleCoin": b.quoteCoin,
	}
	result, err := b.httpClient.NewUtaBybitServiceWithParams(params).GetPositionList(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}

	var posResult struct {
		List []struct {
			Symbol        string `json:"symbol"`
			Side          string `json:"side"`
			Size          string `json:"size"`
			PositionValue string `json:"positionValue"`
			AvgPrice      string `json:"avgPrice"`
		} `json:"list"`
	}
	if err := b.decodeResult(result, &posResult); err != nil {
		return nil, err
	}

	positions := make([]exchange.Position, 0, len(posResult.List))
	for _, p := range posResult.List {
		qty := parseFloat(p.Size)
		value := parseFloat(p.PositionValue)
		if p.Side == "Sell" {
			qty = -qty
			value = -value
		}
		positions = append(positions, exchange.Position{
			Symbol:        p.Symbol,
			Qty:           qty,
			MarketValue:   value,
			AvgEntryPrice: parseFloat(p.AvgPrice),
		})
	}
	return positions, nil
}

func (b *Broker) GetQuote(ctx context.Context, symbol string) (*exchange.Quote, error) {
	params := map[string]interface{}{
		"category": b.category,
		"symbol":   symbol,
	}
	result, err := b.httpClient.NewUtaBybitServiceWithParams(params).GetMarketTickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}

	var tickers struct {
		List []struct {
			Symbol    string `json:"symbol"`
			Bid1Price string `json:"bid1Price"`
			Ask1Price string `json:"ask1Price"`
			LastPrice string `json:"lastPrice"`
			Volume24h string `json:"volume24h"`
		} `json:"list"`
	}
	if err := b.decodeResult(result, &tickers); err != nil {
		return nil, err
	}
	if len(tickers.List) == 0 {
		return nil, exchange.NewAPIError(http.StatusNotFound, 0, fmt.Sprintf("no ticker for %s", symbol))
	}

	t := tickers.List[0]
	return &exchange.Quote{
		Symbol: t.Symbol,
		Bid:    parseFloat(t.Bid1Price),
		Ask:    parseFloat(t.Ask1Price),
		Last:   parseFloat(t.LastPrice),
		Volume: parseFloat(t.Volume24h),
	}, nil
}

func (b *Broker) SubmitOrder(ctx context.Context, ticket exchange.OrderTicket) (*exchange.OrderRecord, error) {
	params := map[string]interface{}{
		"category":  b.category,
		"symbol":    ticket.Symbol,
		"side":      sideString(ticket.Side),
		"orderType": orderTypeString(ticket.Type),
	}
	if ticket.ClientID != "" {
		params["orderLinkId"] = ticket.ClientID
	}

	// Notional is authoritative when set: spot market orders take a
	// quote-coin quantity.
	if ticket.Notional > 0 {
		params["qty"] = formatFloat(ticket.Notional)
		params["marketUnit"] = "quoteCoin"
	} else {
		params["qty"] = formatFloat(ticket.Qty)
	}

	switch ticket.Type {
	case exchange.OrderTypeLimit:
		params["price"] = formatFloat(ticket.LimitPrice)
		params["timeInForce"] = "GTC"
	case exchange.OrderTypeStop, exchange.OrderTypeStopLimit:
		params["triggerPrice"] = formatFloat(ticket.StopPrice)
		if ticket.Type == exchange.OrderTypeStopLimit {
			params["price"] = formatFloat(ticket.LimitPrice)
		}
	}

	// Rate-limit and timeout retCodes come back as retryable API
	// errors; everything else fails on the first attempt.
	var placed struct {
		OrderID     string `json:"orderId"`
		OrderLinkID string `json:"orderLinkId"`
	}
	err := exchange.Retry(ctx, func() error {
		result, err := b.httpClient.NewUtaBybitServiceWithParams(params).PlaceOrder(ctx)
		if err != nil {
			return fmt.Errorf("failed to place order: %w", err)
		}
		return b.decodeResult(result, &placed)
	}, b.retry)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &exchange.OrderRecord{
		ID:          placed.OrderID,
		ClientID:    placed.OrderLinkID,
		Symbol:      ticket.Symbol,
		Side:        ticket.Side,
		Qty:         ticket.Qty,
		Notional:    ticket.Notional,
		Type:        ticket.Type,
		LimitPrice:  ticket.LimitPrice,
		Status:      exchange.OrderStateNew,
		SubmittedAt: now,
		UpdatedAt:   now,
	}, nil
}

func (b *Broker) CancelOrder(ctx context.Context, orderID string) error {
	params := map[string]interface{}{
		"category": b.category,
		"orderId":  orderID,
	}
	return exchange.Retry(ctx, func() error {
		result, err := b.httpClient.NewUtaBybitServiceWithParams(params).CancelOrder(ctx)
		if err != nil {
			return fmt.Errorf("failed to cancel order: %w", err)
		}
		var cancelled struct {
			OrderID string `json:"orderId"`
		}
		return b.decodeResult(result, &cancelled)
	}, b.retry)
}

func (b *Broker) GetOrderStatus(ctx context.Context, orderID string) (*exchange.OrderRecord, error) {
	params := map[string]interface{}{
		"category": b.category,
		"orderId":  orderID,
	}
	result, err := b.httpClient.NewUtaBybitServiceWithParams(params).GetOrderHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get order status: %w", err)
	}

	var history struct {
		List []struct {
			OrderID     string `json:"orderId"`
			OrderLinkID string `json:"orderLinkId"`
			Symbol      string `json:"symbol"`
			Side        string `json:"side"`
			OrderType   string `json:"orderType"`
			Qty         string `json:"qty"`
			Price       string `json:"price"`
			OrderStatus string `json:"orderStatus"`
			AvgPrice    string `json:"avgPrice"`
			UpdatedTime string `json:"updatedTime"`
		} `json:"list"`
	}
	if err := b.decodeResult(result, &history); err != nil {
		return nil, err
	}
	if len(history.List) == 0 {
		return nil, exchange.NewAPIError(http.StatusNotFound, 0, fmt.Sprintf("order %s not found", orderID))
	}

	o := history.List[0]
	side := exchange.SideBuy
	if o.Side == "Sell" {
		side = exchange.SideSell
	}
	return &exchange.OrderRecord{
		ID:           o.OrderID,
		ClientID:     o.OrderLinkID,
		Symbol:       o.Symbol,
		Side:         side,
		Qty:          parseFloat(o.Qty),
		LimitPrice:   parseFloat(o.Price),
		Status:       mapOrderStatus(o.OrderStatus),
		AvgFillPrice: parseFloat(o.AvgPrice),
		UpdatedAt:    time.UnixMilli(parseInt(o.UpdatedTime)),
	}, nil
}

// decodeResult validates the API envelope and unmarshals its result
// payload into out. Non-zero retCode maps to an APIError.
func (b *Broker) decodeResult(response interface{}, out interface{}) error {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return fmt.Errorf("invalid response type %T", response)
	}
	if serverResp.RetCode != 0 {
		return exchange.NewAPIError(statusForRetCode(serverResp.RetCode), serverResp.RetCode, serverResp.RetMsg)
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := json.Unmarshal(resultBytes, out); err != nil {
		return fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return nil
}

// Bybit error codes that should surface as retryable server-side
// failures.
const (
	retCodeRateLimit = 10006
	retCodeTimeout   = 10016
)

func statusForRetCode(code int) int {
	switch code {
	case retCodeRateLimit:
		return http.StatusTooManyRequests
	case retCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusUnprocessableEntity
	}
}

func sideString(s exchange.Side) string {
	if s == exchange.SideSell {
		return "Sell"
	}
	return "Buy"
}

func orderTypeString(t exchange.OrderType) string {
	if t == exchange.OrderTypeLimit || t == exchange.OrderTypeStopLimit {
		return "Limit"
	}
	return "Market"
}

func mapOrderStatus(status string) exchange.OrderState {
	switch status {
	case "Filled":
		return exchange.OrderStateFilled
	case "PartiallyFilled":
		return exchange.OrderStatePartiallyFilled
	case "Cancelled", "Deactivated":
		return exchange.OrderStateCancelled
	case "Rejected":
		return exchange.OrderStateRejected
	default:
		return exchange.OrderStateNew
	}
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func parseInt(s string) int64 {
	i, _ := strconv.ParseInt(s, 10, 64)
	return i
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
