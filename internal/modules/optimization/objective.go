package optimization

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	// PeriodsPerYear annualizes daily return observations.
	PeriodsPerYear = 252.0

	// weightTolerance is the floating-point tolerance for weight-sum and
	// sector-bound checks.
	weightTolerance = 1e-6

	// volatilityFloor is the variance level below which the Sharpe ratio is
	// treated as undefined.
	volatilityFloor = 1e-12

	// undefinedSharpePenalty is returned by the objective instead of dividing
	// by a numerically zero volatility, steering the solver away from the
	// degenerate region rather than propagating a numeric fault.
	undefinedSharpePenalty = 1e6
)

// Evaluator computes annualized portfolio statistics and the negative Sharpe
// ratio minimization target for candidate weight vectors. It holds the mean
// return vector and annualized covariance, both read-only after construction.
type Evaluator struct {
	n     int
	mu    []float64  // annualized mean returns
	sigma *mat.Dense // annualized covariance
}

// NewEvaluator derives the evaluator inputs from a return series and its
// periodic covariance matrix. Both inputs are annualized once here.
func NewEvaluator(series *ReturnSeries, covMatrix [][]float64) (*Evaluator, error) {
	n := len(series.Symbols)
	if len(covMatrix) != n {
		return nil, fmt.Errorf("covariance matrix size %d doesn't match symbol count %d", len(covMatrix), n)
	}
	for i := range covMatrix {
		if len(covMatrix[i]) != n {
			return nil, fmt.Errorf("covariance matrix row %d has size %d, expected %d", i, len(covMatrix[i]), n)
		}
	}

	periodicMeans := series.MeanReturns()
	mu := make([]float64, n)
	for i, m := range periodicMeans {
		mu[i] = m * PeriodsPerYear
	}

	sigma := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sigma.Set(i, j, covMatrix[i][j]*PeriodsPerYear)
		}
	}

	return &Evaluator{n: n, mu: mu, sigma: sigma}, nil
}

// NumAssets returns the dimensionality of the weight vector.
func (e *Evaluator) NumAssets() int {
	return e.n
}

// PortfolioStats returns the annualized expected return and volatility for a
// weight vector.
func (e *Evaluator) PortfolioStats(weights []float64) (portfolioReturn, portfolioVol float64) {
	var variance float64
	for i := 0; i < e.n; i++ {
		portfolioReturn += e.mu[i] * weights[i]
		for j := 0; j < e.n; j++ {
			variance += weights[i] * weights[j] * e.sigma.At(i, j)
		}
	}
	return portfolioReturn, math.Sqrt(math.Max(variance, 0))
}

// NegativeSharpe is the minimization target. A numerically zero volatility is
// guarded with a large penalty instead of a division.
func (e *Evaluator) NegativeSharpe(weights []float64) float64 {
	portfolioReturn, portfolioVol := e.PortfolioStats(weights)
	if portfolioVol*portfolioVol < volatilityFloor {
		return undefinedSharpePenalty
	}
	return -portfolioReturn / portfolioVol
}

// addSharpeGradient accumulates the gradient of -sharpe into grad.
func (e *Evaluator) addSharpeGradient(grad, weights []float64) {
	var portfolioReturn, variance float64
	for i := 0; i < e.n; i++ {
		portfolioReturn += e.mu[i] * weights[i]
		for j := 0; j < e.n; j++ {
			variance += weights[i] * weights[j] * e.sigma.At(i, j)
		}
	}
	if variance < volatilityFloor {
		// Objective is a flat penalty in this region; no gradient signal.
		return
	}
	stdDev := math.Sqrt(variance)

	for i := 0; i < e.n; i++ {
		var dVariance float64
		for j := 0; j < e.n; j++ {
			dVariance += 2 * e.sigma.At(i, j) * weights[j]
		}
		grad[i] += -e.mu[i]/stdDev + portfolioReturn*dVariance/(2*stdDev*stdDev*stdDev)
	}
}
