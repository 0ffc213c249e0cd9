package optimization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleCovariance_TwoAssets(t *testing.T) {
	// Hand-checkable series: cov(A,A) = var(A), cov(A,B) computed with the
	// N-1 denominator.
	series, err := NewReturnSeries([]string{"A", "B"}, map[string][]float64{
		"A": {0.01, -0.01, 0.02, 0.00},
		"B": {0.00, 0.01, -0.01, 0.02},
	})
	require.NoError(t, err)

	cov, err := SampleCovariance(series)
	require.NoError(t, err)
	require.Len(t, cov, 2)

	// var(A) = sum((x-mean)^2)/(n-1) with mean 0.005
	assert.InDelta(t, 0.000166667, cov[0][0], 1e-8)
	assert.InDelta(t, 0.000166667, cov[1][1], 1e-8)
	assert.InDelta(t, -0.000133333, cov[0][1], 1e-8)
	assert.Equal(t, cov[0][1], cov[1][0], "covariance matrix must be symmetric")
}

func TestSampleCovariance_InsufficientData(t *testing.T) {
	series, err := NewReturnSeries([]string{"A"}, map[string][]float64{
		"A": {0.01},
	})
	require.NoError(t, err)

	_, err = SampleCovariance(series)
	require.Error(t, err)

	var insufficientData *InsufficientDataError
	require.ErrorAs(t, err, &insufficientData)
	assert.Equal(t, 1, insufficientData.Observations)
}

func TestApplyLedoitWolfShrinkage_PreservesSymmetry(t *testing.T) {
	sampleCov := [][]float64{
		{0.04, 0.01, 0.005},
		{0.01, 0.03, 0.008},
		{0.005, 0.008, 0.025},
	}

	shrunk, err := ApplyLedoitWolfShrinkage(sampleCov)
	require.NoError(t, err)
	require.Len(t, shrunk, 3)

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.Equal(t, shrunk[i][j], shrunk[j][i], "shrunk matrix must stay symmetric")
		}
		assert.Greater(t, shrunk[i][i], 0.0, "variances must stay positive")
	}
}

func TestApplyLedoitWolfShrinkage_MovesOffDiagonalTowardsAverage(t *testing.T) {
	sampleCov := [][]float64{
		{0.04, 0.02},
		{0.02, 0.04},
	}

	shrunk, err := ApplyLedoitWolfShrinkage(sampleCov)
	require.NoError(t, err)

	// Equal variances: the diagonal matches the target exactly, so shrinkage
	// leaves it unchanged. Off-diagonal moves towards the average covariance,
	// which here equals the sample value.
	assert.InDelta(t, 0.04, shrunk[0][0], 1e-12)
	assert.InDelta(t, 0.02, shrunk[0][1], 1e-12)
}

func TestEstimateCovariance_EndToEnd(t *testing.T) {
	series, err := NewReturnSeries([]string{"A", "B"}, map[string][]float64{
		"A": {0.01, -0.02, 0.015, 0.005, -0.01},
		"B": {-0.005, 0.01, 0.02, -0.015, 0.0},
	})
	require.NoError(t, err)

	cov, err := EstimateCovariance(series)
	require.NoError(t, err)
	require.Len(t, cov, 2)

	assert.Equal(t, cov[0][1], cov[1][0])
	assert.Greater(t, cov[0][0], 0.0)
	assert.Greater(t, cov[1][1], 0.0)
}
