package optimization

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildConstraints(t *testing.T, assets []Asset, bounds map[string]SectorBounds) ConstraintSet {
	t.Helper()
	cons, err := NewConstraintBuilder(zerolog.Nop()).Build(assets, bounds)
	require.NoError(t, err)
	return cons
}

func assertBudgetAndBox(t *testing.T, weights []float64) {
	t.Helper()
	sum := 0.0
	for _, w := range weights {
		assert.GreaterOrEqual(t, w, 0.0, "weights should be non-negative")
		assert.LessOrEqual(t, w, 1.0, "weights should be <= 1")
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-6, "weights should sum to 1")
}

func TestDriver_FavoursHigherMeanWithinBounds(t *testing.T) {
	// Two assets with identical variance and zero correlation; X earns twice
	// the daily mean of Y. With each sector bounded to [0.3, 0.7] the solver
	// should give X more weight, but no more than its sector maximum.
	assets := []Asset{
		{Symbol: "X", Sector: "growth"},
		{Symbol: "Y", Sector: "value"},
	}
	eval := evaluatorFromMeans(t,
		[]string{"X", "Y"},
		[]float64{0.001, 0.0005},
		[][]float64{
			{0.0004, 0.0},
			{0.0, 0.0004},
		},
	)
	cons := buildConstraints(t, assets, map[string]SectorBounds{
		"growth": {Min: 0.3, Max: 0.7},
		"value":  {Min: 0.3, Max: 0.7},
	})

	weights, err := NewDriver(zerolog.Nop()).Solve(eval, cons)
	require.NoError(t, err)
	require.Len(t, weights, 2)

	assertBudgetAndBox(t, weights)
	assert.Greater(t, weights[0], weights[1], "higher-mean asset should carry more weight")
	assert.LessOrEqual(t, weights[0], 0.7+0.01, "sector maximum should hold")
	assert.GreaterOrEqual(t, weights[1], 0.3-0.01, "sector minimum should hold")
}

func TestDriver_Unconstrained(t *testing.T) {
	assets := []Asset{
		{Symbol: "X", Sector: "growth"},
		{Symbol: "Y", Sector: "value"},
	}
	eval := evaluatorFromMeans(t,
		[]string{"X", "Y"},
		[]float64{0.001, 0.0005},
		[][]float64{
			{0.0004, 0.0},
			{0.0, 0.0004},
		},
	)
	cons := buildConstraints(t, assets, map[string]SectorBounds{})

	weights, err := NewDriver(zerolog.Nop()).Solve(eval, cons)
	require.NoError(t, err)

	assertBudgetAndBox(t, weights)
	assert.Greater(t, weights[0], weights[1])
}

func TestDriver_PinnedSector(t *testing.T) {
	// min == max pins the sector's aggregate weight.
	assets := []Asset{
		{Symbol: "X", Sector: "growth"},
		{Symbol: "Y", Sector: "value"},
		{Symbol: "Z", Sector: "value"},
	}
	eval := evaluatorFromMeans(t,
		[]string{"X", "Y", "Z"},
		[]float64{0.001, 0.0006, 0.0004},
		[][]float64{
			{0.0004, 0.0, 0.0},
			{0.0, 0.0004, 0.0001},
			{0.0, 0.0001, 0.0004},
		},
	)
	cons := buildConstraints(t, assets, map[string]SectorBounds{
		"growth": {Min: 0.4, Max: 0.4},
	})

	weights, err := NewDriver(zerolog.Nop()).Solve(eval, cons)
	require.NoError(t, err)

	assertBudgetAndBox(t, weights)
	assert.InDelta(t, 0.4, weights[0], 0.05, "pinned sector should hold its target weight")
}

func TestDriver_Deterministic(t *testing.T) {
	assets := []Asset{
		{Symbol: "X", Sector: "growth"},
		{Symbol: "Y", Sector: "value"},
	}
	eval := evaluatorFromMeans(t,
		[]string{"X", "Y"},
		[]float64{0.001, 0.0005},
		[][]float64{
			{0.0004, 0.0001},
			{0.0001, 0.0004},
		},
	)
	bounds := map[string]SectorBounds{
		"growth": {Min: 0.2, Max: 0.8},
		"value":  {Min: 0.2, Max: 0.8},
	}

	driver := NewDriver(zerolog.Nop())
	first, err := driver.Solve(eval, buildConstraints(t, assets, bounds))
	require.NoError(t, err)
	second, err := driver.Solve(eval, buildConstraints(t, assets, bounds))
	require.NoError(t, err)

	assert.Equal(t, first, second, "identical inputs should produce identical weights")
}

func TestProjectToBox(t *testing.T) {
	proj := projectToBox([]float64{-0.5, 0.3, 1.7})
	assert.Equal(t, []float64{0.0, 0.3, 1.0}, proj)
}

func TestAggregateResult(t *testing.T) {
	assets := []Asset{
		{Symbol: "X", Sector: "growth"},
		{Symbol: "Y", Sector: "value"},
		{Symbol: "Z", Sector: "value"},
	}
	eval := evaluatorFromMeans(t,
		[]string{"X", "Y", "Z"},
		[]float64{0.001, 0.0006, 0.0004},
		[][]float64{
			{0.0004, 0.0, 0.0},
			{0.0, 0.0004, 0.0},
			{0.0, 0.0, 0.0004},
		},
	)

	result, err := AggregateResult(assets, []float64{0.5, 0.3, 0.2}, eval)
	require.NoError(t, err)

	assert.NotEmpty(t, result.ID)
	assert.InDelta(t, 0.5, result.Weights["X"], 1e-12)
	assert.InDelta(t, 0.5, result.SectorWeights["growth"], 1e-12)
	assert.InDelta(t, 0.5, result.SectorWeights["value"], 1e-12)
	assert.Greater(t, result.Volatility, 0.0)
	assert.InDelta(t, result.ExpectedReturn/result.Volatility, result.SharpeRatio, 1e-12)
}

func TestAggregateResult_UndefinedRatio(t *testing.T) {
	assets := []Asset{{Symbol: "X", Sector: "growth"}}
	eval := evaluatorFromMeans(t,
		[]string{"X"},
		[]float64{0.001},
		[][]float64{{0.0}},
	)

	_, err := AggregateResult(assets, []float64{1.0}, eval)
	require.Error(t, err)

	var undefinedRatio *UndefinedRatioError
	assert.ErrorAs(t, err, &undefinedRatio)
}
