package risk

import (
	"math"
	"sort"

	"github.com/quantforge/riskpipe/internal/logger"
)

// minVaRSamples is the minimum return history needed for the
// historical estimators. Below it they report 0: insufficient data is
// treated as "no risk signal", not as an error.
const minVaRSamples = 10

// VaRCalculator estimates tail losses at a fixed confidence level.
type VaRCalculator struct {
	confidence float64 // e.g. 0.95
	logger     *logger.Logger
}

// PositionStat carries the per-position inputs for the analytic
// portfolio estimator.
type PositionStat struct {
	Value float64
	Mean  float64
	Std   float64
}

// NewVaRCalculator creates a calculator at the given confidence level.
func NewVaRCalculator(confidence float64, log *logger.Logger) *VaRCalculator {
	return &VaRCalculator{confidence: confidence, logger: log}
}

// HistoricalVaR takes the (1-confidence) percentile of the return
// distribution and converts it to a dollar loss magnitude, floored at
// zero.
func (v *VaRCalculator) HistoricalVaR(returns []float64, portfolioValue float64) float64 {
	if len(returns) < minVaRSamples {
		if v.logger != nil {
			v.logger.Warning("var: only %d return samples (<%d), reporting 0", len(returns), minVaRSamples)
		}
		return 0
	}
	varReturn := percentile(returns, 1-v.confidence)
	return math.Max(0, -varReturn*portfolioValue)
}

// ParametricVaR derives the loss from a normal distribution with the
// given mean and standard deviation. Requires std > 0.
func (v *VaRCalculator) ParametricVaR(mean, std, portfolioValue float64) float64 {
	if std <= 0 {
		return 0
	}
	z := normInv(1 - v.confidence)
	varReturn := mean + z*std
	return math.Max(0, -varReturn*portfolioValue)
}

// CVaR averages the returns at or below the historical VaR threshold
// (the tail) and converts to a dollar loss. Empty tails report 0.
func (v *VaRCalculator) CVaR(returns []float64, portfolioValue float64) float64 {
	if len(returns) < minVaRSamples {
		if v.logger != nil {
			v.logger.Warning("cvar: only %d return samples (<%d), reporting 0", len(returns), minVaRSamples)
		}
		return 0
	}
	threshold := percentile(returns, 1-v.confidence)

	var sum float64
	var n int
	for _, r := range returns {
		if r <= threshold {
			sum += r
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return math.Max(0, -(sum/float64(n))*portfolioValue)
}

// PortfolioVaR aggregates per-position statistics into a portfolio
// VaR/CVaR pair. Without a correlation matrix positions are assumed
// independent. The CVaR here is the analytic normal expected
// shortfall, valid only under the normality assumption.
func (v *VaRCalculator) PortfolioVaR(positions []PositionStat, corr [][]float64) (varAmount, cvarAmount float64) {
	if len(positions) == 0 {
		return 0, 0
	}

	var total float64
	for _, p := range positions {
		total += math.Abs(p.Value)
	}
	if total == 0 {
		return 0, 0
	}

	weights := make([]float64, len(positions))
	var mean float64
	for i, p := range positions {
		weights[i] = p.Value / total
		mean += weights[i] * p.Mean
	}

	var variance float64
	if corr == nil {
		for i, p := range positions {
			variance += weights[i] * weights[i] * p.Std * p.Std
		}
	} else {
		for i, pi := range positions {
			for j, pj := range positions {
				variance += weights[i] * weights[j] * pi.Std * pj.Std * corr[i][j]
			}
		}
	}
	if variance < 0 {
		variance = 0
	}
	std := math.Sqrt(variance)

	z := normInv(1 - v.confidence)
	varReturn := mean + z*std
	varAmount = math.Max(0, -varReturn*total)

	// Analytic expected shortfall: E[r | r <= quantile] for a normal.
	tail := 1 - v.confidence
	if std > 0 && tail > 0 {
		esReturn := mean - std*normPDF(z)/tail
		cvarAmount = math.Max(0, -esReturn*total)
	}

	return varAmount, cvarAmount
}

// Confidence reports the configured confidence level.
func (v *VaRCalculator) Confidence() float64 {
	return v.confidence
}

// percentile computes the p-quantile (0..1) of the sample with linear
// interpolation between order statistics.
func percentile(values []float64, p float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}

	pos := p * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// normPDF is the standard normal density.
func normPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

// normInv approximates the inverse standard normal CDF using Acklam's
// rational approximation (relative error < 1.15e-9).
func normInv(p float64) float64 {
	if p <= 0 {
		return math.Inf(-1)
	}
	if p >= 1 {
		return math.Inf(1)
	}

	a := [6]float64{-3.969683028665376e+01, 2.209460984245205e+02, -2.759285104469687e+02,
		1.383577518672690e+02, -3.066479806614716e+01, 2.506628277459239e+00}
	b := [5]float64{-5.447609879822406e+01, 1.615858368580409e+02, -1.556989798598866e+02,
		6.680131188771972e+01, -1.328068155288572e+01}
	c := [6]float64{-7.784894002430293e-03, -3.223964580411365e-01, -2.400758277161838e+00,
		-2.549732539343734e+00, 4.374664141464968e+00, 2.938163982698783e+00}
	d := [4]float64{7.784695709041462e-03, 3.224671290700398e-01, 2.445134137142996e+00,
		3.754408661907416e+00}

	const pLow = 0.02425
	const pHigh = 1 - pLow

	switch {
	case p < pLow:
		q := math.Sqrt(-2 * math.Log(p))
		return (((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	case p > pHigh:
		q := math.Sqrt(-2 * math.Log(1-p))
		return -(((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	default:
		q := p - 0.5
		r := q * q
		return (((((a[0]*r+a[1])*r+a[2])*r+a[3])*r+a[4])*r + a[5]) * q /
			(((((b[0]*r+b[1])*r+b[2])*r+b[3])*r+b[4])*r + 1)
	}
}
