package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quantforge/riskpipe/internal/exchange"
	"github.com/quantforge/riskpipe/internal/logger"
	"github.com/quantforge/riskpipe/internal/monitoring"
	"github.com/quantforge/riskpipe/internal/notifications"
	"github.com/quantforge/riskpipe/internal/storage"
	"github.com/quantforge/riskpipe/pkg/config"
)

// Executor owns the order queue. Producers enqueue through Submit;
// a single background batch loop drains, aggregates, and submits.
// The queue lock is released before any broker or persistence I/O so
// submissions are never blocked on the network.
type Executor struct {
	cfg      config.ExecutorConfig
	broker   exchange.Broker
	store    storage.OrderStore
	notifier notifications.Notifier
	session  *SessionClock
	logger   *logger.Logger

	mu    sync.Mutex
	queue []*OrderRequest

	health *monitoring.HealthChecker
}

// NewExecutor wires the executor. store and notifier may be nil;
// persistence and alerts are then skipped.
func NewExecutor(cfg config.ExecutorConfig, broker exchange.Broker, store storage.OrderStore,
	notifier notifications.Notifier, log *logger.Logger) (*Executor, error) {
	if broker == nil {
		return nil, fmt.Errorf("executor requires a broker")
	}
	if cfg.BatchWindow <= 0 {
		return nil, fmt.Errorf("batch window must be positive, got: %v", cfg.BatchWindow)
	}

	session, err := NewSessionClock(cfg.ExchangeTZ, cfg.RTHOnly)
	if err != nil {
		return nil, err
	}
	if notifier == nil {
		notifier = notifications.NopNotifier{}
	}

	return &Executor{
		cfg:      cfg,
		broker:   broker,
		store:    store,
		notifier: notifier,
		session:  session,
		logger:   log,
	}, nil
}

// SetHealthChecker registers the checker that receives batch and
// order liveness marks. Nil disables reporting.
func (e *Executor) SetHealthChecker(h *monitoring.HealthChecker) {
	e.health = h
}

// Session exposes the session clock, mainly so tests and hosts can
// inject a clock.
func (e *Executor) Session() *SessionClock {
	return e.session
}

// Submit enqueues a request for the next batch window. Outside trading
// hours the request is still accepted; execution is gated, submission
// is not.
func (e *Executor) Submit(request *OrderRequest) (*PendingHandle, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.queue = append(e.queue, request)
	depth := len(e.queue)
	monitoring.SetQueueDepth(depth)
	e.mu.Unlock()
	e.logger.Info("Queued %s %s order (qty=%.4f, notional=%.2f), queue depth %d",
		request.Side, request.Symbol, request.Qty, request.Notional, depth)

	return &PendingHandle{ClientID: request.ClientID, Symbol: request.Symbol}, nil
}

// QueueDepth returns the number of requests awaiting the next window.
func (e *Executor) QueueDepth() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// Run drives the batch loop until ctx is cancelled. An in-flight batch
// is always completed before the loop exits.
func (e *Executor) Run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.BatchWindow)
	defer ticker.Stop()

	e.logger.Info("Executor batch loop started (window %v, rth_only=%v)",
		e.cfg.BatchWindow, e.cfg.RTHOnly)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Executor batch loop stopping")
			return
		case <-ticker.C:
			e.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch runs one batch cycle: drain under the lock, release,
// aggregate, submit. Exposed so tests and hosts can step the loop
// manually.
func (e *Executor) ProcessBatch(ctx context.Context) {
	e.mu.Lock()
	if len(e.queue) == 0 {
		e.mu.Unlock()
		return
	}
	if !e.session.InSession() {
		retained := len(e.queue)
		e.mu.Unlock()
		e.logger.Info("Market closed, retaining %d queued orders", retained)
		return
	}
	batch := e.queue
	e.queue = nil
	// Gauge updates stay under the lock so a concurrent Submit cannot
	// be overwritten by a stale drain-time value.
	monitoring.SetQueueDepth(len(e.queue))
	e.mu.Unlock()

	aggregated := aggregate(batch)

	submitted, failed := 0, 0
	for _, req := range aggregated {
		if req.Qty == 0 && req.Notional == 0 {
			continue
		}
		if err := e.submitToBroker(ctx, req); err != nil {
			failed++
			monitoring.RecordError("broker_submit")
			e.logger.LogError(fmt.Sprintf("submit %s %s", req.Side, req.Symbol), err)
			e.notifier.Publish(notifications.TopicOrderRejected,
				fmt.Sprintf("%s %s failed: %v", req.Side, req.Symbol, err), "executor")
			continue
		}
		submitted++
	}

	monitoring.RecordBatch(len(aggregated))
	if e.health != nil {
		e.health.RecordBatch()
	}
	e.logger.LogBatch(len(batch), len(aggregated), submitted, failed)
}

// submitToBroker places one aggregated request and persists the result
// best-effort.
func (e *Executor) submitToBroker(ctx context.Context, req *OrderRequest) error {
	ticket := exchange.OrderTicket{
		Symbol:     req.Symbol,
		Side:       req.Side,
		Qty:        req.Qty,
		Notional:   req.Notional,
		Type:       req.Type,
		LimitPrice: req.LimitPrice,
		StopPrice:  req.StopPrice,
		ClientID:   req.ClientID,
	}

	record, err := e.broker.SubmitOrder(ctx, ticket)
	if err != nil {
		return err
	}

	monitoring.RecordOrder(req.Symbol, req.Side.String(), string(record.Status))
	if e.health != nil {
		e.health.RecordOrder()
	}
	e.logger.Trade("Submitted %s %s: id=%s status=%s qty=%.4f notional=%.2f",
		req.Side, req.Symbol, record.ID, record.Status, req.Qty, req.Notional)
	e.notifier.Publish(notifications.TopicOrderFilled,
		fmt.Sprintf("%s %s submitted (id %s)", req.Side, req.Symbol, record.ID), "executor")

	if e.store != nil {
		if err := e.store.InsertOrder(record); err != nil {
			// The order is already live; persistence failure must not
			// fail it.
			monitoring.RecordError("order_persist")
			e.logger.LogError("persist order", err)
		}
	}
	return nil
}

// CancelOrder goes straight to the broker; batching semantics do not
// apply to cancellation.
func (e *Executor) CancelOrder(ctx context.Context, orderID string) error {
	if err := e.broker.CancelOrder(ctx, orderID); err != nil {
		return fmt.Errorf("failed to cancel order %s: %w", orderID, err)
	}
	if e.store != nil {
		if record, err := e.broker.GetOrderStatus(ctx, orderID); err == nil {
			if err := e.store.UpdateOrder(record); err != nil {
				e.logger.LogError("persist cancellation", err)
			}
		}
	}
	return nil
}

// GetOrderStatus delegates to the broker.
func (e *Executor) GetOrderStatus(ctx context.Context, orderID string) (*exchange.OrderRecord, error) {
	return e.broker.GetOrderStatus(ctx, orderID)
}

type aggregationKey struct {
	symbol     string
	side       exchange.Side
	orderType  exchange.OrderType
	byNotional bool
}

// aggregate merges requests with matching symbol, side, order type,
// and denomination by summing quantity or notional. Qty- and
// notional-denominated requests never merge: brokers treat a set
// Notional as authoritative, so folding a qty leg into a notional
// ticket would drop it. Order of first appearance is preserved. The
// first request in a group supplies limit/stop prices and the client
// ID.
func aggregate(batch []*OrderRequest) []*OrderRequest {
	grouped := make(map[aggregationKey]*OrderRequest)
	order := make([]aggregationKey, 0, len(batch))

	for _, req := range batch {
		key := aggregationKey{
			symbol:     req.Symbol,
			side:       req.Side,
			orderType:  req.Type,
			byNotional: req.Notional > 0,
		}
		if existing, ok := grouped[key]; ok {
			existing.Qty += req.Qty
			existing.Notional += req.Notional
			continue
		}
		merged := *req
		grouped[key] = &merged
		order = append(order, key)
	}

	result := make([]*OrderRequest, 0, len(order))
	for _, key := range order {
		result = append(result, grouped[key])
	}
	return result
}
