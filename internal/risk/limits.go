package risk

import (
	"fmt"
	"math"
	"sort"

	"github.com/quantforge/riskpipe/internal/logger"
	"github.com/quantforge/riskpipe/pkg/config"
)

// LimitsEnforcer is a stateless checker of hard position limits. Every
// check is fail-closed: the first breach fails the whole call.
type LimitsEnforcer struct {
	limits config.RiskConfig
	logger *logger.Logger
}

// NewLimitsEnforcer creates an enforcer over the configured caps.
func NewLimitsEnforcer(cfg config.RiskConfig, log *logger.Logger) *LimitsEnforcer {
	return &LimitsEnforcer{limits: cfg, logger: log}
}

// CheckNewPosition validates the proposed trade against the symbol,
// total, sector and concentration caps. The sector check only runs
// when both sector and sectorMap are supplied. Returns a *LimitBreach
// on the first violated cap; boundary values pass.
func (e *LimitsEnforcer) CheckNewPosition(symbol string, proposedValue, portfolioValue float64,
	positions map[string]float64, sector string, sectorMap map[string]string) error {

	if portfolioValue <= 0 {
		return fmt.Errorf("portfolio value must be positive, got: %.2f", portfolioValue)
	}

	// 1. Symbol exposure after the trade.
	symbolExposure := math.Abs(positions[symbol]+proposedValue) / portfolioValue
	if symbolExposure > e.limits.MaxExposureSymbol {
		return e.breach("symbol exposure", symbol, symbolExposure, e.limits.MaxExposureSymbol)
	}

	// 2. Total gross exposure.
	var gross float64
	for _, v := range positions {
		gross += math.Abs(v)
	}
	totalExposure := (gross + math.Abs(proposedValue)) / portfolioValue
	if totalExposure > e.limits.MaxExposureTotal {
		return e.breach("total exposure", symbol, totalExposure, e.limits.MaxExposureTotal)
	}

	// 3. Sector exposure, when sector data is available.
	if sector != "" && sectorMap != nil {
		var sectorGross float64
		for sym, v := range positions {
			if sectorMap[sym] == sector {
				sectorGross += math.Abs(v)
			}
		}
		sectorExposure := (sectorGross + math.Abs(proposedValue)) / portfolioValue
		if sectorExposure > e.limits.MaxSectorExposure {
			return e.breach("sector "+sector+" exposure", symbol, sectorExposure, e.limits.MaxSectorExposure)
		}
	}

	// 4. Concentration of the five largest positions after the trade.
	after := make([]float64, 0, len(positions)+1)
	seen := false
	for sym, v := range positions {
		if sym == symbol {
			v += proposedValue
			seen = true
		}
		after = append(after, math.Abs(v))
	}
	if !seen {
		after = append(after, math.Abs(proposedValue))
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(after)))

	var top5 float64
	for i, v := range after {
		if i >= 5 {
			break
		}
		top5 += v
	}
	concentration := top5 / portfolioValue
	if concentration > e.limits.MaxConcentrationTop5 {
		return e.breach("top-5 concentration", symbol, concentration, e.limits.MaxConcentrationTop5)
	}

	return nil
}

// CheckLeverage validates total position value against the leverage
// cap.
func (e *LimitsEnforcer) CheckLeverage(totalPositionValue, portfolioValue float64) error {
	if portfolioValue <= 0 {
		return fmt.Errorf("portfolio value must be positive, got: %.2f", portfolioValue)
	}
	leverage := math.Abs(totalPositionValue) / portfolioValue
	if leverage > e.limits.MaxLeverage {
		return &LimitBreach{
			Check:   "leverage",
			Current: leverage,
			Limit:   e.limits.MaxLeverage,
		}
	}
	return nil
}

func (e *LimitsEnforcer) breach(check, symbol string, current, limit float64) *LimitBreach {
	b := &LimitBreach{Check: check, Symbol: symbol, Current: current, Limit: limit}
	if e.logger != nil {
		e.logger.Risk("limit breach: %v", b)
	}
	return b
}
