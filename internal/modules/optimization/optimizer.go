package optimization

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/optimize"
)

const defaultPenaltyWeight = 1000.0

// Driver runs the constrained max-Sharpe minimization: a penalty-method
// formulation of the equality and sector inequality constraints over the
// [0, 1] box, solved with a gradient-based method and a derivative-free
// fallback. The solve is deterministic: identical inputs yield identical
// weight vectors.
type Driver struct {
	penaltyWeight float64
	log           zerolog.Logger
}

// NewDriver creates a new optimizer driver.
func NewDriver(log zerolog.Logger) *Driver {
	return &Driver{
		penaltyWeight: defaultPenaltyWeight,
		log:           log.With().Str("component", "optimizer").Logger(),
	}
}

// Solve minimizes -sharpe over the constraint set, starting from the
// equal-weight vector. On success it returns the solution weights, already
// projected to [0, 1] and normalized to sum to 1. On non-convergence it
// returns an OptimizationFailedError carrying the solver's status; the
// failure is not retried internally.
func (d *Driver) Solve(eval *Evaluator, cons ConstraintSet) ([]float64, error) {
	n := eval.NumAssets()
	if n == 0 {
		return nil, fmt.Errorf("no assets provided")
	}
	if len(cons.Symbols) != n {
		return nil, fmt.Errorf("constraint set covers %d assets, evaluator has %d", len(cons.Symbols), n)
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			xProj := projectToBox(x)

			obj := eval.NegativeSharpe(xProj)

			sum := 0.0
			for i := 0; i < n; i++ {
				sum += xProj[i]
			}
			obj += d.penaltyWeight * (sum - 1.0) * (sum - 1.0)
			obj += d.sectorPenalty(xProj, cons.Sectors)

			return obj
		},
		Grad: func(grad, x []float64) {
			xProj := projectToBox(x)

			for i := range grad {
				grad[i] = 0
			}
			eval.addSharpeGradient(grad, xProj)

			sum := 0.0
			for i := 0; i < n; i++ {
				sum += xProj[i]
			}
			for i := 0; i < n; i++ {
				grad[i] += 2 * d.penaltyWeight * (sum - 1.0)
			}

			d.addSectorPenaltyGradient(grad, xProj, cons.Sectors)
		},
	}

	// Equal-weight starting point.
	initial := make([]float64, n)
	for i := range initial {
		initial[i] = 1.0 / float64(n)
	}

	result, err := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.BFGS{})
	if err != nil || !converged(result.Status) {
		// Gradient method stalled; retry with the derivative-free fallback.
		status := "error"
		if err == nil {
			status = result.Status.String()
		}
		d.log.Debug().
			Str("status", status).
			Msg("BFGS did not converge, retrying with Nelder-Mead")

		result, err = optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.NelderMead{})
		if err != nil {
			return nil, fmt.Errorf("optimization failed: %w", err)
		}
		if !converged(result.Status) {
			return nil, &OptimizationFailedError{Status: result.Status.String()}
		}
	}

	weights := projectToBox(result.X)
	sum := 0.0
	for i := range weights {
		weights[i] = math.Max(0.0, weights[i])
		sum += weights[i]
	}
	if sum <= 0 {
		return nil, &OptimizationFailedError{Status: "degenerate solution: weights sum to zero"}
	}
	for i := range weights {
		weights[i] /= sum
	}

	d.log.Debug().
		Int("num_assets", n).
		Str("status", result.Status.String()).
		Msg("Solver converged")

	return weights, nil
}

// converged reports whether a solver status counts as successful convergence.
func converged(status optimize.Status) bool {
	switch status {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence:
		return true
	default:
		return false
	}
}

// projectToBox clamps each weight into [0, 1].
func projectToBox(x []float64) []float64 {
	proj := make([]float64, len(x))
	for i := range x {
		proj[i] = math.Max(0.0, math.Min(1.0, x[i]))
	}
	return proj
}

// sectorPenalty calculates the quadratic penalty for violated sector
// constraints. Satisfied constraints (residual >= 0) contribute nothing.
func (d *Driver) sectorPenalty(x []float64, constraints []SectorConstraint) float64 {
	var penalty float64
	for _, c := range constraints {
		if r := c.Residual(x); r < 0 {
			penalty += d.penaltyWeight * r * r
		}
	}
	return penalty
}

// addSectorPenaltyGradient accumulates the gradient of the sector penalty.
func (d *Driver) addSectorPenaltyGradient(grad, x []float64, constraints []SectorConstraint) {
	for _, c := range constraints {
		r := c.Residual(x)
		if r >= 0 {
			continue
		}
		// d/dw of penalty*r^2 is 2*penalty*r*dr/dw; dr/dw is +1 for min
		// constraints and -1 for max constraints on the sector's indices.
		slope := 2 * d.penaltyWeight * r
		if c.Kind == SectorMax {
			slope = -slope
		}
		for _, idx := range c.Indices {
			grad[idx] += slope
		}
	}
}
