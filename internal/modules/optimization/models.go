package optimization

import "time"

// Asset is one investable instrument in the optimization universe.
// Each asset belongs to exactly one sector for the lifetime of a run.
type Asset struct {
	Symbol string `json:"symbol"`
	Sector string `json:"sector"`
}

// SectorBounds is the aggregate weight band for one sector.
type SectorBounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ConstraintKind distinguishes the two inequality residuals emitted per sector.
type ConstraintKind string

const (
	// SectorMin is the residual sum(w[indices]) - bound >= 0.
	SectorMin ConstraintKind = "sector_min"
	// SectorMax is the residual bound - sum(w[indices]) >= 0.
	SectorMax ConstraintKind = "sector_max"
)

// SectorConstraint is a self-contained inequality record. Indices is the
// sector's asset-index list, fixed at construction time so each constraint
// evaluates independently of any loop state.
type SectorConstraint struct {
	Sector  string
	Kind    ConstraintKind
	Bound   float64
	Indices []int
}

// Residual evaluates the constraint at a candidate weight vector.
// A non-negative value means the constraint is satisfied.
func (c SectorConstraint) Residual(weights []float64) float64 {
	sum := 0.0
	for _, idx := range c.Indices {
		sum += weights[idx]
	}
	if c.Kind == SectorMin {
		return sum - c.Bound
	}
	return c.Bound - sum
}

// ConstraintSet is the normalized constraint set for one optimization run:
// the structural equality (weights sum to 1), per-sector inequality records,
// and the implicit per-asset box bounds [0, 1].
type ConstraintSet struct {
	Symbols []string
	Sectors []SectorConstraint
}

// PortfolioResult is the read-only solution snapshot produced on a successful
// run. It is created once by the optimizer driver and never mutated.
type PortfolioResult struct {
	ID            string             `json:"id"`
	Timestamp     time.Time          `json:"timestamp"`
	Weights       map[string]float64 `json:"weights"`
	SectorWeights map[string]float64 `json:"sector_weights"`
	// Annualized statistics evaluated at the solution.
	ExpectedReturn float64 `json:"expected_return"`
	Volatility     float64 `json:"volatility"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
}
