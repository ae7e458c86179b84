package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/quantforge/riskpipe/internal/exchange"
	"github.com/quantforge/riskpipe/internal/exchange/bybit"
	"github.com/quantforge/riskpipe/internal/execution"
	"github.com/quantforge/riskpipe/internal/logger"
	"github.com/quantforge/riskpipe/internal/monitoring"
	"github.com/quantforge/riskpipe/internal/notifications"
	"github.com/quantforge/riskpipe/internal/risk"
	"github.com/quantforge/riskpipe/internal/storage"
	"github.com/quantforge/riskpipe/pkg/config"
	"github.com/quantforge/riskpipe/pkg/reporting"
)

// Pipeline ties the risk engine and the executor to one broker
// connection.
type Pipeline struct {
	config        *config.Config
	engine        *risk.Engine
	executor      *execution.Executor
	broker        exchange.Broker
	store         storage.OrderStore
	notifier      notifications.Notifier
	healthChecker *monitoring.HealthChecker
	logger        *logger.Logger
}

// Start connects the broker and launches the batch loop.
func (p *Pipeline) Start(ctx context.Context) error {
	p.logger.Info("Starting risk pipeline (%s mode, broker %s)", p.config.Environment, p.broker.GetName())

	if err := p.broker.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}
	p.healthChecker.SetConnected(true)

	if p.config.Notifications.TelegramToken != "" {
		p.notifier.Publish("startup", "Risk pipeline started", "main")
	}

	go p.executor.Run(ctx)
	go p.snapshotLoop(ctx)
	if p.broker.GetName() == "paper" {
		go p.proposalLoop(ctx)
	}

	p.logger.Info("Risk pipeline started")
	return nil
}

// proposalLoop feeds the pipeline with small paper trades so an
// operator can watch decisions, batching, and reports end to end
// without wiring a strategy. Only runs against the paper broker.
func (p *Pipeline) proposalLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	symbols := make([]string, 0, len(demoQuotes))
	for symbol := range demoQuotes {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	next := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			riskCtx, err := p.buildRiskContext(ctx)
			if err != nil {
				p.logger.LogError("demo proposal", err)
				continue
			}

			symbol := symbols[next%len(symbols)]
			next++

			decision := p.engine.EvaluateTrade(symbol, 500, 0.8, riskCtx, "")
			if !decision.Approved {
				continue
			}

			request := execution.NewOrderRequest(symbol, exchange.SideBuy, exchange.OrderTypeMarket)
			request.Notional = decision.MaxPositionSize
			if _, err := p.executor.Submit(request); err != nil {
				p.logger.LogError("demo submit", err)
			}
		}
	}
}

// snapshotLoop periodically logs portfolio risk metrics for the
// operator.
func (p *Pipeline) snapshotLoop(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			riskCtx, err := p.buildRiskContext(ctx)
			if err != nil {
				p.logger.LogError("risk snapshot", err)
				p.healthChecker.AddError(err.Error())
				continue
			}
			metrics := p.engine.RiskMetrics(riskCtx)
			p.logger.Risk("Snapshot: var=%.2f cvar=%.2f exposure=%.1f%% beta=%.2f drawdown=%.2f%% cooldown=%v",
				metrics.VaR, metrics.CVaR, metrics.ExposurePct*100, metrics.PortfolioBeta,
				metrics.Drawdown*100, metrics.InCooldown)
		}
	}
}

// buildRiskContext pulls account and position state from the broker.
// Return history and betas stay empty here; callers with a data feed
// fill them in before evaluating trades.
func (p *Pipeline) buildRiskContext(ctx context.Context) (*risk.Context, error) {
	account, err := p.broker.GetAccount(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	positions, err := p.broker.GetPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}

	riskCtx := &risk.Context{
		PortfolioValue: account.PortfolioValue,
		BuyingPower:    account.BuyingPower,
		SettledCash:    account.Cash,
		Positions:      make(map[string]float64, len(positions)),
	}
	for _, pos := range positions {
		riskCtx.Positions[pos.Symbol] = pos.MarketValue
	}
	return riskCtx, nil
}

// Shutdown disconnects, flushes the store, and writes the end-of-day
// order report.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	p.logger.Info("Shutting down risk pipeline...")

	if err := p.broker.Disconnect(); err != nil {
		p.logger.LogError("broker disconnect", err)
	}
	p.healthChecker.SetConnected(false)

	if orders, err := p.store.FetchOrders(time.Now().Add(-24 * time.Hour)); err == nil && len(orders) > 0 {
		reporting.NewConsoleReporter().PrintOrders(orders)

		reportPath := fmt.Sprintf("reports/orders_%s.xlsx", time.Now().Format("2006-01-02"))
		if err := reporting.NewExcelReporter().WriteOrdersXLSX(orders, reportPath); err != nil {
			p.logger.LogError("excel report", err)
		} else {
			p.logger.Info("Order report written to %s", reportPath)
		}
	}

	if err := p.store.Close(); err != nil {
		p.logger.LogError("close order store", err)
	}

	p.logger.Info("Risk pipeline shutdown complete")
	return p.logger.Close()
}

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	appLogger, err := logger.New("riskpipe")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	healthChecker := monitoring.NewHealthChecker()

	var notifier notifications.Notifier = notifications.NopNotifier{}
	if cfg.Notifications.TelegramToken != "" {
		notifier = notifications.NewTelegramNotifier(
			cfg.Notifications.TelegramToken, cfg.Notifications.TelegramChatID, appLogger)
	}

	broker := newBroker(cfg)

	store, err := storage.NewFileStore("data/orders.json")
	if err != nil {
		log.Fatalf("Failed to open order store: %v", err)
	}

	engine, err := risk.NewEngine(cfg.Risk, appLogger)
	if err != nil {
		log.Fatalf("Failed to initialize risk engine: %v", err)
	}

	executor, err := execution.NewExecutor(cfg.Executor, broker, store, notifier, appLogger)
	if err != nil {
		log.Fatalf("Failed to initialize executor: %v", err)
	}
	executor.SetHealthChecker(healthChecker)

	pipeline := &Pipeline{
		config:        cfg,
		engine:        engine,
		executor:      executor,
		broker:        broker,
		store:         store,
		notifier:      notifier,
		healthChecker: healthChecker,
		logger:        appLogger,
	}

	go setupMonitoringServers(cfg, healthChecker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pipeline.Start(ctx); err != nil {
		log.Fatalf("Failed to start pipeline: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := pipeline.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}

func newBroker(cfg *config.Config) exchange.Broker {
	switch cfg.Exchange.Name {
	case "bybit":
		return bybit.New(bybit.Config{
			APIKey:    cfg.Exchange.APIKey,
			APISecret: cfg.Exchange.Secret,
			Testnet:   cfg.Exchange.Testnet,
		})
	default:
		paper := exchange.NewPaperBroker(100_000)
		// The demo proposal loop needs quotes to fill against.
		for symbol, quote := range demoQuotes {
			paper.SetQuote(symbol, quote.bid, quote.ask, quote.volume)
		}
		return paper
	}
}

// demoQuotes seeds the paper broker so the demo proposal loop has
// prices to fill against.
var demoQuotes = map[string]struct {
	bid, ask, volume float64
}{
	"AAPL": {bid: 199.90, ask: 200.10, volume: 55_000_000},
	"MSFT": {bid: 419.75, ask: 420.25, volume: 22_000_000},
}

func setupMonitoringServers(cfg *config.Config, healthChecker *monitoring.HealthChecker) {
	healthMux := http.NewServeMux()
	healthMux.Handle("/health", healthChecker)

	go func() {
		log.Printf("Starting health server on port %d", cfg.Monitoring.HealthPort)
		if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.Monitoring.HealthPort), healthMux); err != nil {
			log.Printf("Health server error: %v", err)
		}
	}()

	go func() {
		log.Printf("Starting Prometheus server on port %d", cfg.Monitoring.PrometheusPort)
		if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort), monitoring.NewMetricsHandler()); err != nil {
			log.Printf("Prometheus server error: %v", err)
		}
	}()
}
