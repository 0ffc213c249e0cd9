package optimization

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AggregateResult maps a solved weight vector back to per-asset and
// per-sector weights and evaluates the summary statistics at the solution.
// Pure function of the solved vector and the already-computed evaluator
// inputs; no side effects.
func AggregateResult(assets []Asset, weights []float64, eval *Evaluator) (*PortfolioResult, error) {
	if len(weights) != len(assets) {
		return nil, fmt.Errorf("weight vector has %d entries, expected %d", len(weights), len(assets))
	}

	assetWeights := make(map[string]float64, len(assets))
	sectorWeights := make(map[string]float64)
	for i, asset := range assets {
		assetWeights[asset.Symbol] = weights[i]
		sectorWeights[asset.Sector] += weights[i]
	}

	portfolioReturn, portfolioVol := eval.PortfolioStats(weights)
	if portfolioVol*portfolioVol < volatilityFloor {
		return nil, &UndefinedRatioError{Volatility: portfolioVol}
	}

	return &PortfolioResult{
		ID:             uuid.New().String(),
		Timestamp:      time.Now().UTC(),
		Weights:        assetWeights,
		SectorWeights:  sectorWeights,
		ExpectedReturn: portfolioReturn,
		Volatility:     portfolioVol,
		SharpeRatio:    portfolioReturn / portfolioVol,
	}, nil
}
