package risk

import "fmt"

// Context is the caller-supplied, read-only view of the portfolio used
// for a single trade decision. The engine never mutates it.
type Context struct {
	PortfolioValue float64
	BuyingPower    float64
	SettledCash    float64

	// Positions maps symbol to signed position value (short positions
	// are negative).
	Positions map[string]float64

	// Returns is the historical return sequence used for VaR/CVaR.
	Returns []float64

	CurrentDrawdown float64 // 0..1
	LosingStreak    int     // consecutive losing days

	// Betas and Sectors are optional lookups. Nil means unknown.
	Betas   map[string]float64
	Sectors map[string]string

	// Optional sizing statistics. When any of them is unset (zero) the
	// engine falls back to its placeholder pair; see Engine.kellyStats.
	WinRate float64
	AvgWin  float64
	AvgLoss float64
}

// Decision is the outcome of a trade evaluation. When Approved is
// false the sizing fields carry no meaning for the caller.
type Decision struct {
	Approved        bool
	Reason          string
	MaxPositionSize float64
	KellyFraction   float64
	VaR             float64
	CVaR            float64
}

// Metrics is a read-only snapshot of the engine's view of the
// portfolio, exposed for observability.
type Metrics struct {
	VaR           float64
	CVaR          float64
	TotalExposure float64
	ExposurePct   float64
	PortfolioBeta float64
	Drawdown      float64
	InCooldown    bool
}

// LimitBreach is returned by the limits enforcer when a proposed trade
// violates a configured cap. The engine converts it into a rejected
// Decision; it never escapes the risk package boundary.
type LimitBreach struct {
	Check   string // which limit tripped
	Symbol  string
	Current float64 // computed ratio
	Limit   float64 // configured cap
}

func (b *LimitBreach) Error() string {
	return fmt.Sprintf("%s limit breached for %s: %.2f%% > %.2f%%",
		b.Check, b.Symbol, b.Current*100, b.Limit*100)
}
