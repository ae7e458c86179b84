package risk

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/quantforge/riskpipe/internal/logger"
	"github.com/quantforge/riskpipe/pkg/config"
)

func newTestEnforcer() *LimitsEnforcer {
	return NewLimitsEnforcer(config.DefaultRiskConfig(), logger.NewWithWriter("test", io.Discard))
}

func TestCheckNewPositionSymbolLimit(t *testing.T) {
	enforcer := newTestEnforcer()

	tests := []struct {
		name          string
		proposedValue float64
		positions     map[string]float64
		wantBreach    bool
		wantCheck     string
	}{
		{
			name:          "under the cap passes",
			proposedValue: 9_000,
			positions:     map[string]float64{},
		},
		{
			name:          "exactly at the cap passes",
			proposedValue: 10_000,
			positions:     map[string]float64{},
		},
		{
			name:          "over the cap breaches",
			proposedValue: 11_000,
			positions:     map[string]float64{},
			wantBreach:    true,
			wantCheck:     "symbol exposure",
		},
		{
			name:          "existing position counts toward the cap",
			proposedValue: 6_000,
			positions:     map[string]float64{"AAPL": 5_000},
			wantBreach:    true,
			wantCheck:     "symbol exposure",
		},
		{
			name:          "short position magnitude counts",
			proposedValue: -11_000,
			positions:     map[string]float64{},
			wantBreach:    true,
			wantCheck:     "symbol exposure",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := enforcer.CheckNewPosition("AAPL", tt.proposedValue, 100_000, tt.positions, "", nil)
			if !tt.wantBreach {
				if err != nil {
					t.Fatalf("unexpected breach: %v", err)
				}
				return
			}
			var breach *LimitBreach
			if !errors.As(err, &breach) {
				t.Fatalf("expected *LimitBreach, got %v", err)
			}
			if breach.Check != tt.wantCheck {
				t.Errorf("breach check = %q, want %q", breach.Check, tt.wantCheck)
			}
		})
	}
}

func TestCheckNewPositionBreachMessage(t *testing.T) {
	enforcer := newTestEnforcer()

	err := enforcer.CheckNewPosition("AAPL", 11_000, 100_000, map[string]float64{}, "", nil)
	if err == nil {
		t.Fatal("expected a breach")
	}
	if !strings.Contains(err.Error(), "11.00% > 10.00%") {
		t.Errorf("breach message should carry computed and configured percentages, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "AAPL") {
		t.Errorf("breach message should name the symbol, got %q", err.Error())
	}
}

func TestCheckNewPositionTotalExposure(t *testing.T) {
	enforcer := newTestEnforcer()

	// 76k gross already held, 5k more crosses the 80% cap.
	positions := map[string]float64{
		"MSFT": 9_500, "GOOG": 9_500, "AMZN": 9_500, "META": 9_500,
		"NVDA": 9_500, "TSLA": 9_500, "NFLX": 9_500, "AMD": 9_500,
	}

	err := enforcer.CheckNewPosition("AAPL", 5_000, 100_000, positions, "", nil)
	var breach *LimitBreach
	if !errors.As(err, &breach) {
		t.Fatalf("expected total exposure breach, got %v", err)
	}
	if breach.Check != "total exposure" {
		t.Errorf("breach check = %q, want total exposure", breach.Check)
	}

	// 4k stays exactly at 80%, which is allowed.
	if err := enforcer.CheckNewPosition("AAPL", 4_000, 100_000, positions, "", nil); err != nil {
		t.Errorf("boundary value should pass, got %v", err)
	}
}

func TestCheckNewPositionSectorLimit(t *testing.T) {
	enforcer := newTestEnforcer()

	positions := map[string]float64{
		"MSFT": 10_000, "GOOG": 10_000, "NVDA": 8_000,
	}
	sectorMap := map[string]string{
		"MSFT": "tech", "GOOG": "tech", "NVDA": "tech", "AAPL": "tech",
	}

	// tech holds 28k; 3k more crosses the 30% sector cap.
	err := enforcer.CheckNewPosition("AAPL", 3_000, 100_000, positions, "tech", sectorMap)
	var breach *LimitBreach
	if !errors.As(err, &breach) {
		t.Fatalf("expected sector breach, got %v", err)
	}

	// Without sector data the check is skipped entirely.
	if err := enforcer.CheckNewPosition("AAPL", 3_000, 100_000, positions, "", nil); err != nil {
		t.Errorf("sector check should be skipped without sector data, got %v", err)
	}
	if err := enforcer.CheckNewPosition("AAPL", 3_000, 100_000, positions, "tech", nil); err != nil {
		t.Errorf("sector check should be skipped without a sector map, got %v", err)
	}
}

func TestCheckNewPositionConcentration(t *testing.T) {
	cfg := config.DefaultRiskConfig()
	cfg.MaxExposureSymbol = 0.20 // loosen so concentration trips first
	enforcer := NewLimitsEnforcer(cfg, logger.NewWithWriter("test", io.Discard))

	// Five positions of 10k each; adding 12k to one makes the top five
	// worth 62k > 60%.
	positions := map[string]float64{
		"MSFT": 10_000, "GOOG": 10_000, "AMZN": 10_000, "META": 10_000, "NVDA": 10_000,
	}

	err := enforcer.CheckNewPosition("MSFT", 12_000, 100_000, positions, "", nil)
	var breach *LimitBreach
	if !errors.As(err, &breach) {
		t.Fatalf("expected concentration breach, got %v", err)
	}
	if breach.Check != "top-5 concentration" {
		t.Errorf("breach check = %q, want top-5 concentration", breach.Check)
	}
}

func TestCheckNewPositionInvalidPortfolio(t *testing.T) {
	enforcer := newTestEnforcer()

	if err := enforcer.CheckNewPosition("AAPL", 1_000, 0, nil, "", nil); err == nil {
		t.Error("zero portfolio value must be rejected")
	}
	if err := enforcer.CheckNewPosition("AAPL", 1_000, -5, nil, "", nil); err == nil {
		t.Error("negative portfolio value must be rejected")
	}
}

func TestCheckLeverage(t *testing.T) {
	enforcer := newTestEnforcer()

	if err := enforcer.CheckLeverage(150_000, 100_000); err != nil {
		t.Errorf("1.5x leverage should pass, got %v", err)
	}
	if err := enforcer.CheckLeverage(200_000, 100_000); err != nil {
		t.Errorf("2.0x boundary should pass, got %v", err)
	}

	err := enforcer.CheckLeverage(250_000, 100_000)
	var breach *LimitBreach
	if !errors.As(err, &breach) {
		t.Fatalf("expected leverage breach, got %v", err)
	}
	if breach.Current != 2.5 {
		t.Errorf("breach current = %.2f, want 2.50", breach.Current)
	}
}
