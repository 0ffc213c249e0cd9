package optimization

import "fmt"

// InsufficientDataError indicates the return series does not contain enough
// valid observations to estimate a covariance matrix.
type InsufficientDataError struct {
	Observations int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient return data: %d observations, need at least 2", e.Observations)
}

// InvalidConstraintError indicates malformed or contradictory sector bounds.
// It is raised at constraint-construction time, before any solver iteration.
type InvalidConstraintError struct {
	Sector string
	Reason string
}

func (e *InvalidConstraintError) Error() string {
	if e.Sector == "" {
		return fmt.Sprintf("invalid constraints: %s", e.Reason)
	}
	return fmt.Sprintf("invalid constraint for sector %s: %s", e.Sector, e.Reason)
}

// OptimizationFailedError indicates the solver did not converge to a feasible,
// optimal point. Status carries the solver's termination reason. The failure
// is fatal for the run; callers decide whether to relax constraints and retry.
type OptimizationFailedError struct {
	Status string
}

func (e *OptimizationFailedError) Error() string {
	return fmt.Sprintf("optimization did not converge: status=%s", e.Status)
}

// UndefinedRatioError indicates the solution's volatility is zero or
// numerically negligible, leaving the Sharpe ratio undefined.
type UndefinedRatioError struct {
	Volatility float64
}

func (e *UndefinedRatioError) Error() string {
	return fmt.Sprintf("sharpe ratio undefined: portfolio volatility %g is numerically zero", e.Volatility)
}
