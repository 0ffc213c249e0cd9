package optimization

import (
	"github.com/aristath/allocator/internal/modules/calculations"
	"github.com/aristath/allocator/internal/modules/universe"
	"github.com/rs/zerolog"
)

// Runner orchestrates a full optimization pass: load the universe, build the
// return series from stored prices, solve, and persist the result. It is the
// shared entry point for the HTTP trigger and the scheduled job.
type Runner struct {
	universeRepo *universe.Repository
	historyDB    *universe.HistoryDB
	cache        *calculations.Cache
	resultRepo   *ResultRepository
	lookbackDays int
	log          zerolog.Logger
}

// NewRunner creates an optimization runner.
func NewRunner(
	universeRepo *universe.Repository,
	historyDB *universe.HistoryDB,
	cache *calculations.Cache,
	resultRepo *ResultRepository,
	lookbackDays int,
	log zerolog.Logger,
) *Runner {
	return &Runner{
		universeRepo: universeRepo,
		historyDB:    historyDB,
		cache:        cache,
		resultRepo:   resultRepo,
		lookbackDays: lookbackDays,
		log:          log.With().Str("component", "optimization_runner").Logger(),
	}
}

// Run executes one optimization pass and stores the result. The returned
// result is the freshly solved portfolio; typed errors from the core
// (insufficient data, invalid constraints, failed solve, undefined ratio)
// propagate unchanged so callers can classify them.
func (r *Runner) Run() (*PortfolioResult, error) {
	assets, err := r.universeRepo.GetAllAssets()
	if err != nil {
		return nil, err
	}

	optAssets := make([]Asset, len(assets))
	symbols := make([]string, len(assets))
	for i, a := range assets {
		optAssets[i] = Asset{Symbol: a.Symbol, Sector: a.Sector}
		symbols[i] = a.Symbol
	}

	service, err := NewService(optAssets, r.cache, r.log)
	if err != nil {
		return nil, err
	}

	prices := make(map[string][]float64, len(assets))
	minLen := -1
	for _, a := range assets {
		closes, err := r.historyDB.GetClosePrices(a.Symbol, r.lookbackDays)
		if err != nil {
			return nil, err
		}
		prices[a.Symbol] = closes
		if minLen == -1 || len(closes) < minLen {
			minLen = len(closes)
		}
	}

	// Align on the common tail so every asset covers the same window.
	if minLen > 0 {
		for symbol, closes := range prices {
			prices[symbol] = closes[len(closes)-minLen:]
		}
	}

	series, err := SeriesFromPrices(TimeSeriesData{Data: prices}, symbols)
	if err != nil {
		return nil, err
	}
	if err := service.SetReturns(series); err != nil {
		return nil, err
	}

	stored, err := r.universeRepo.GetSectorBounds()
	if err != nil {
		return nil, err
	}
	bounds := make(map[string]SectorBounds, len(stored))
	for sector, b := range stored {
		bounds[sector] = SectorBounds{Min: b.Min, Max: b.Max}
	}
	if err := service.SetSectorBounds(bounds); err != nil {
		return nil, err
	}

	result, err := service.Optimize()
	if err != nil {
		return nil, err
	}

	if err := r.resultRepo.Save(result); err != nil {
		// Persistence failure should not hide a successful solve.
		r.log.Error().Err(err).Msg("Failed to persist optimization result")
	}

	return result, nil
}
