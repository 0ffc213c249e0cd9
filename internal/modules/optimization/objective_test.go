package optimization

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// evaluatorFromMeans builds an evaluator whose daily means and periodic
// covariance are known exactly.
func evaluatorFromMeans(t *testing.T, symbols []string, dailyMeans []float64, covMatrix [][]float64) *Evaluator {
	t.Helper()

	returns := make(map[string][]float64, len(symbols))
	for i, symbol := range symbols {
		// Two observations averaging to the requested mean.
		returns[symbol] = []float64{0.0, 2 * dailyMeans[i]}
	}
	series, err := NewReturnSeries(symbols, returns)
	require.NoError(t, err)

	eval, err := NewEvaluator(series, covMatrix)
	require.NoError(t, err)
	return eval
}

func TestEvaluator_PortfolioStats(t *testing.T) {
	eval := evaluatorFromMeans(t,
		[]string{"A", "B"},
		[]float64{0.001, 0.0005},
		[][]float64{
			{0.0004, 0.0},
			{0.0, 0.0004},
		},
	)

	ret, vol := eval.PortfolioStats([]float64{0.5, 0.5})

	// Annualized return: (0.5*0.001 + 0.5*0.0005) * 252
	assert.InDelta(t, 0.189, ret, 1e-9)

	// Annualized vol: sqrt(0.25*0.0004*2 * 252)
	expectedVol := math.Sqrt(0.5 * 0.0004 * 252)
	assert.InDelta(t, expectedVol, vol, 1e-9)
}

func TestEvaluator_NegativeSharpe(t *testing.T) {
	eval := evaluatorFromMeans(t,
		[]string{"A", "B"},
		[]float64{0.001, 0.0005},
		[][]float64{
			{0.0004, 0.0},
			{0.0, 0.0004},
		},
	)

	weights := []float64{0.5, 0.5}
	ret, vol := eval.PortfolioStats(weights)
	assert.InDelta(t, -ret/vol, eval.NegativeSharpe(weights), 1e-9)
}

func TestEvaluator_ZeroVolatilityGuard(t *testing.T) {
	eval := evaluatorFromMeans(t,
		[]string{"A", "B"},
		[]float64{0.001, 0.0005},
		[][]float64{
			{0.0, 0.0},
			{0.0, 0.0},
		},
	)

	// Zero covariance means zero volatility for any weights: the objective
	// returns the guard penalty instead of dividing.
	assert.Equal(t, undefinedSharpePenalty, eval.NegativeSharpe([]float64{0.5, 0.5}))
}

func TestEvaluator_DimensionMismatch(t *testing.T) {
	series, err := NewReturnSeries([]string{"A", "B"}, map[string][]float64{
		"A": {0.01, 0.02},
		"B": {0.00, 0.01},
	})
	require.NoError(t, err)

	_, err = NewEvaluator(series, [][]float64{{0.0004}})
	assert.Error(t, err)
}

func TestEvaluator_GradientMatchesFiniteDifference(t *testing.T) {
	eval := evaluatorFromMeans(t,
		[]string{"A", "B", "C"},
		[]float64{0.001, 0.0005, 0.0008},
		[][]float64{
			{0.0004, 0.0001, 0.00005},
			{0.0001, 0.0003, 0.00008},
			{0.00005, 0.00008, 0.00035},
		},
	)

	weights := []float64{0.4, 0.35, 0.25}
	grad := make([]float64, 3)
	eval.addSharpeGradient(grad, weights)

	const h = 1e-7
	for i := range weights {
		bumped := make([]float64, len(weights))
		copy(bumped, weights)
		bumped[i] += h
		numeric := (eval.NegativeSharpe(bumped) - eval.NegativeSharpe(weights)) / h
		assert.InDelta(t, numeric, grad[i], 1e-4, "analytic gradient should match finite difference")
	}
}
