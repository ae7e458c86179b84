package bybit

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quantforge/riskpipe/internal/exchange"
)

func TestMapOrderStatus(t *testing.T) {
	tests := []struct {
		bybitStatus string
		expected    exchange.OrderState
	}{
		{"Filled", exchange.OrderStateFilled},
		{"PartiallyFilled", exchange.OrderStatePartiallyFilled},
		{"Cancelled", exchange.OrderStateCancelled},
		{"Deactivated", exchange.OrderStateCancelled},
		{"Rejected", exchange.OrderStateRejected},
		{"New", exchange.OrderStateNew},
		{"Untriggered", exchange.OrderStateNew},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, mapOrderStatus(tt.bybitStatus), "status %s", tt.bybitStatus)
	}
}

func TestStatusForRetCode(t *testing.T) {
	assert.Equal(t, http.StatusTooManyRequests, statusForRetCode(retCodeRateLimit))
	assert.Equal(t, http.StatusGatewayTimeout, statusForRetCode(retCodeTimeout))
	assert.Equal(t, http.StatusUnprocessableEntity, statusForRetCode(110007))

	// The mapping keeps rate limits retryable and rejections not.
	assert.True(t, exchange.IsRetryable(exchange.NewAPIError(statusForRetCode(retCodeRateLimit), retCodeRateLimit, "")))
	assert.True(t, exchange.IsRejection(exchange.NewAPIError(statusForRetCode(110007), 110007, "insufficient balance")))
}

func TestSideAndTypeStrings(t *testing.T) {
	assert.Equal(t, "Buy", sideString(exchange.SideBuy))
	assert.Equal(t, "Sell", sideString(exchange.SideSell))
	assert.Equal(t, "Market", orderTypeString(exchange.OrderTypeMarket))
	assert.Equal(t, "Limit", orderTypeString(exchange.OrderTypeLimit))
	assert.Equal(t, "Limit", orderTypeString(exchange.OrderTypeStopLimit))
	assert.Equal(t, "Market", orderTypeString(exchange.OrderTypeStop))
}

func TestParseHelpers(t *testing.T) {
	assert.Equal(t, 199.95, parseFloat("199.95"))
	assert.Zero(t, parseFloat(""))
	assert.Zero(t, parseFloat("n/a"))
	assert.Equal(t, int64(1756700000000), parseInt("1756700000000"))
	assert.Equal(t, "0.001", formatFloat(0.001))
}

func TestNewDefaults(t *testing.T) {
	broker := New(Config{APIKey: "k", APISecret: "s", Testnet: true})
	assert.Equal(t, "bybit", broker.GetName())
	assert.Equal(t, "spot", broker.category)
	assert.Equal(t, "USDT", broker.quoteCoin)
	assert.Equal(t, exchange.DefaultRetryConfig(), broker.retry)
}

func TestRateLimitRetCodeIsRetried(t *testing.T) {
	cfg := exchange.RetryConfig{
		MaxRetries:    2,
		InitialDelay:  time.Millisecond,
		MaxDelay:      time.Millisecond,
		BackoffFactor: 1,
	}

	// Two rate-limited responses, then success. The retry wrapper
	// around PlaceOrder/CancelOrder must keep going.
	attempts := 0
	err := exchange.Retry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return exchange.NewAPIError(statusForRetCode(retCodeRateLimit), retCodeRateLimit, "rate limit exceeded")
		}
		return nil
	}, cfg)
	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)

	// Rejections stop after the first attempt.
	attempts = 0
	err = exchange.Retry(context.Background(), func() error {
		attempts++
		return exchange.NewAPIError(statusForRetCode(110007), 110007, "insufficient balance")
	}, cfg)
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}
