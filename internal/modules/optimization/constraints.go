// Package optimization computes sector-constrained, risk-adjusted-optimal
// portfolio allocations: return series in, shrinkage covariance, constrained
// max-Sharpe solve, per-asset and per-sector weights out.
package optimization

import (
	"github.com/rs/zerolog"
)

// ConstraintBuilder translates sector bounds into the normalized constraint
// set the optimizer driver consumes.
type ConstraintBuilder struct {
	log zerolog.Logger
}

// NewConstraintBuilder creates a new constraint builder.
func NewConstraintBuilder(log zerolog.Logger) *ConstraintBuilder {
	return &ConstraintBuilder{
		log: log.With().Str("component", "constraints").Logger(),
	}
}

// sectorIndexView derives each sector's asset-index list once from the
// asset list, preserving first-appearance sector order.
func sectorIndexView(assets []Asset) (map[string][]int, []string) {
	indices := make(map[string][]int)
	order := make([]string, 0)
	for i, asset := range assets {
		if _, seen := indices[asset.Sector]; !seen {
			order = append(order, asset.Sector)
		}
		indices[asset.Sector] = append(indices[asset.Sector], i)
	}
	return indices, order
}

// Build validates the sector bounds and produces the constraint set: the
// structural sum-to-one equality, two inequality records per bounded sector,
// and implicit per-asset box bounds [0, 1].
//
// A sector present in the asset mapping but absent from bounds is left
// unconstrained on purpose; only its box bounds apply.
func (cb *ConstraintBuilder) Build(assets []Asset, bounds map[string]SectorBounds) (ConstraintSet, error) {
	if err := cb.Validate(assets, bounds); err != nil {
		return ConstraintSet{}, err
	}

	indices, order := sectorIndexView(assets)

	symbols := make([]string, len(assets))
	for i, asset := range assets {
		symbols[i] = asset.Symbol
	}

	constraints := make([]SectorConstraint, 0, 2*len(bounds))
	for _, sector := range order {
		b, ok := bounds[sector]
		if !ok {
			cb.log.Debug().
				Str("sector", sector).
				Msg("No bounds configured for sector - leaving unconstrained")
			continue
		}

		idx := indices[sector]
		constraints = append(constraints,
			SectorConstraint{Sector: sector, Kind: SectorMin, Bound: b.Min, Indices: idx},
			SectorConstraint{Sector: sector, Kind: SectorMax, Bound: b.Max, Indices: idx},
		)
	}

	cb.log.Debug().
		Int("num_assets", len(assets)).
		Int("sector_constraints", len(constraints)).
		Msg("Built constraint set")

	return ConstraintSet{Symbols: symbols, Sectors: constraints}, nil
}

// Validate checks sector bounds for malformed or contradictory values so
// failures surface before any solver iteration is spent.
func (cb *ConstraintBuilder) Validate(assets []Asset, bounds map[string]SectorBounds) error {
	if len(assets) == 0 {
		return &InvalidConstraintError{Reason: "no assets in universe"}
	}

	indices, _ := sectorIndexView(assets)

	totalMin := 0.0
	totalMax := 0.0
	constrained := 0
	for sector, b := range bounds {
		if _, ok := indices[sector]; !ok {
			return &InvalidConstraintError{Sector: sector, Reason: "no assets mapped to this sector"}
		}
		if b.Min < 0 || b.Max > 1 {
			return &InvalidConstraintError{Sector: sector, Reason: "bounds must lie within [0, 1]"}
		}
		if b.Min > b.Max {
			return &InvalidConstraintError{Sector: sector, Reason: "min bound exceeds max bound"}
		}
		totalMin += b.Min
		totalMax += b.Max
		constrained++
	}

	// Infeasibility checks across sectors: minimums cannot demand more than
	// 100% of the portfolio, and if every sector is bounded the maximums must
	// still allow the weights to sum to 1.
	if totalMin > 1.0+weightTolerance {
		return &InvalidConstraintError{Reason: "sector minimum weights sum to more than 100%"}
	}
	if constrained == len(indices) && constrained > 0 && totalMax < 1.0-weightTolerance {
		return &InvalidConstraintError{Reason: "sector maximum weights sum to less than 100%"}
	}

	return nil
}
