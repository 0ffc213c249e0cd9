package optimization

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// SampleCovariance calculates the sample covariance matrix from a return
// series. Element (i,j) is the covariance between Symbols[i] and Symbols[j],
// using the N-1 denominator.
func SampleCovariance(series *ReturnSeries) ([][]float64, error) {
	n := len(series.Symbols)
	if n == 0 {
		return nil, fmt.Errorf("no symbols provided")
	}

	observations := series.Observations()
	if observations < 2 {
		return nil, &InsufficientDataError{Observations: observations}
	}

	covMatrix := make([][]float64, n)
	for i := range covMatrix {
		covMatrix[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		colI := series.Returns[series.Symbols[i]]
		for j := i; j < n; j++ {
			colJ := series.Returns[series.Symbols[j]]
			cov := stat.Covariance(colI, colJ, nil)
			covMatrix[i][j] = cov
			if i != j {
				covMatrix[j][i] = cov
			}
		}
	}

	return covMatrix, nil
}

// ApplyLedoitWolfShrinkage shrinks a sample covariance matrix towards a
// constant-correlation target to improve conditioning when the observation
// count is not large relative to the asset count. The blend of two PSD
// matrices keeps the result symmetric and positive-semidefinite.
//
// Reference: Ledoit, O., & Wolf, M. (2004). "A well-conditioned estimator
// for large-dimensional covariance matrices"
func ApplyLedoitWolfShrinkage(sampleCov [][]float64) ([][]float64, error) {
	n := len(sampleCov)
	if n == 0 {
		return nil, fmt.Errorf("empty covariance matrix")
	}

	// Shrinkage target: average variance on the diagonal, average covariance
	// off-diagonal (constant correlation model).
	var avgVar, avgCov float64
	for i := 0; i < n; i++ {
		avgVar += sampleCov[i][i]
		for j := 0; j < n; j++ {
			if i != j {
				avgCov += sampleCov[i][j]
			}
		}
	}
	avgVar /= float64(n)
	if n > 1 {
		avgCov /= float64(n * (n - 1))
	}

	target := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				target.Set(i, j, avgVar)
			} else if avgVar > 0 {
				target.Set(i, j, avgCov)
			}
		}
	}

	// Shrinkage intensity: default 20% towards the target, refined from the
	// dispersion of the sample elements when there is enough structure.
	shrinkage := 0.2
	if n > 2 && avgVar > 0 {
		var sumSqDiff float64
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				diff := sampleCov[i][j] - target.At(i, j)
				sumSqDiff += diff * diff
			}
		}
		meanSqDiff := sumSqDiff / float64(n*n)

		var sumSqSample, meanSample float64
		count := 0
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				val := sampleCov[i][j]
				meanSample += val
				sumSqSample += val * val
				count++
			}
		}
		meanSample /= float64(count)
		varSample := sumSqSample/float64(count) - meanSample*meanSample

		if varSample > 0 && meanSqDiff > 0 {
			shrinkage = math.Min(0.5, math.Max(0.0, varSample/(varSample+meanSqDiff)))
		}
	}

	// Σ_shrunk = (1-δ) * Σ_sample + δ * Σ_target
	shrunk := make([][]float64, n)
	for i := 0; i < n; i++ {
		shrunk[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			shrunk[i][j] = (1-shrinkage)*sampleCov[i][j] + shrinkage*target.At(i, j)
		}
	}

	return shrunk, nil
}

// EstimateCovariance produces the shrinkage-stabilized covariance matrix for
// a return series: sample covariance followed by Ledoit-Wolf shrinkage.
func EstimateCovariance(series *ReturnSeries) ([][]float64, error) {
	sampleCov, err := SampleCovariance(series)
	if err != nil {
		return nil, err
	}

	shrunkCov, err := ApplyLedoitWolfShrinkage(sampleCov)
	if err != nil {
		return nil, fmt.Errorf("failed to apply Ledoit-Wolf shrinkage: %w", err)
	}

	return shrunkCov, nil
}
