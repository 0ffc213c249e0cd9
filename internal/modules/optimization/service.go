package optimization

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"sort"

	"github.com/aristath/allocator/internal/modules/calculations"
	"github.com/rs/zerolog"
)

// Service is the external interface of the optimization core. Lifecycle per
// run: construct with the asset universe, ingest a return series (triggering
// covariance estimation), set sector bounds, then optimize. The return series
// and covariance matrix are read-only once computed.
type Service struct {
	assets  []Asset
	builder *ConstraintBuilder
	driver  *Driver
	cache   *calculations.Cache // optional; nil disables covariance caching
	log     zerolog.Logger

	series    *ReturnSeries
	covMatrix [][]float64
	bounds    map[string]SectorBounds
}

// NewService creates an optimization service for a fixed asset universe.
// cache may be nil.
func NewService(assets []Asset, cache *calculations.Cache, log zerolog.Logger) (*Service, error) {
	if len(assets) == 0 {
		return nil, fmt.Errorf("no assets provided")
	}
	seen := make(map[string]bool, len(assets))
	for _, asset := range assets {
		if asset.Symbol == "" {
			return nil, fmt.Errorf("asset with empty symbol")
		}
		if asset.Sector == "" {
			return nil, fmt.Errorf("asset %s has no sector", asset.Symbol)
		}
		if seen[asset.Symbol] {
			return nil, fmt.Errorf("duplicate asset symbol %s", asset.Symbol)
		}
		seen[asset.Symbol] = true
	}

	return &Service{
		assets:  assets,
		builder: NewConstraintBuilder(log),
		driver:  NewDriver(log),
		cache:   cache,
		log:     log.With().Str("component", "optimization").Logger(),
	}, nil
}

// Assets returns the universe in optimization order.
func (s *Service) Assets() []Asset {
	return s.assets
}

// Sectors returns the unique sector labels in first-appearance order.
func (s *Service) Sectors() []string {
	_, order := sectorIndexView(s.assets)
	return order
}

// SetReturns ingests the aligned return series and estimates the shrinkage
// covariance matrix. The covariance is recomputed only when the series
// changes; for identical symbol sets and observation counts a cached matrix
// is reused when a cache is configured.
func (s *Service) SetReturns(series *ReturnSeries) error {
	if len(series.Symbols) != len(s.assets) {
		return fmt.Errorf("return series covers %d symbols, universe has %d", len(series.Symbols), len(s.assets))
	}
	for i, asset := range s.assets {
		if series.Symbols[i] != asset.Symbol {
			return fmt.Errorf("return series symbol %s at position %d, expected %s",
				series.Symbols[i], i, asset.Symbol)
		}
	}

	cacheKey := hashSeriesKey(series)
	if s.cache != nil {
		var cached [][]float64
		if ok := s.cache.Get(calculations.NamespaceCovariance, cacheKey, &cached); ok && len(cached) == len(s.assets) {
			s.log.Debug().
				Str("key", cacheKey[:8]).
				Msg("Using cached covariance matrix")
			s.series = series
			s.covMatrix = cached
			return nil
		}
	}

	covMatrix, err := EstimateCovariance(series)
	if err != nil {
		return err
	}

	s.log.Info().
		Int("num_assets", len(series.Symbols)).
		Int("observations", series.Observations()).
		Msg("Estimated covariance matrix with Ledoit-Wolf shrinkage")

	if s.cache != nil {
		if err := s.cache.Set(calculations.NamespaceCovariance, cacheKey, covMatrix, calculations.TTLCovariance); err != nil {
			s.log.Warn().Err(err).Msg("Failed to cache covariance matrix")
		}
	}

	s.series = series
	s.covMatrix = covMatrix
	return nil
}

// SetSectorBounds validates and stores the per-sector weight bounds.
// Malformed or contradictory bounds fail here, before optimization starts.
func (s *Service) SetSectorBounds(bounds map[string]SectorBounds) error {
	if err := s.builder.Validate(s.assets, bounds); err != nil {
		return err
	}
	s.bounds = bounds
	return nil
}

// Optimize runs the constrained max-Sharpe solve and returns the portfolio
// result. Errors are raised to the caller without internal recovery.
func (s *Service) Optimize() (*PortfolioResult, error) {
	if s.series == nil || s.covMatrix == nil {
		return nil, fmt.Errorf("no return series ingested")
	}

	cons, err := s.builder.Build(s.assets, s.bounds)
	if err != nil {
		return nil, err
	}

	eval, err := NewEvaluator(s.series, s.covMatrix)
	if err != nil {
		return nil, err
	}

	weights, err := s.driver.Solve(eval, cons)
	if err != nil {
		return nil, err
	}

	result, err := AggregateResult(s.assets, weights, eval)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Float64("expected_return", result.ExpectedReturn).
		Float64("volatility", result.Volatility).
		Float64("sharpe_ratio", result.SharpeRatio).
		Msg("Optimization complete")

	return result, nil
}

// hashSeriesKey builds a deterministic cache key from the symbol set and the
// return values themselves, so a same-shape series with different content
// (a rolled-forward lookback window, say) never reuses a stale matrix.
// Symbols are sorted so the key is order-independent.
func hashSeriesKey(series *ReturnSeries) string {
	sorted := make([]string, len(series.Symbols))
	copy(sorted, series.Symbols)
	sort.Strings(sorted)

	h := sha256.New()
	var buf [8]byte
	for _, symbol := range sorted {
		h.Write([]byte(symbol))
		h.Write([]byte{'|'})
		for _, r := range series.Returns[symbol] {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(r))
			h.Write(buf[:])
		}
	}
	fmt.Fprintf(h, "|%d", series.Observations())

	return hex.EncodeToString(h.Sum(nil)[:16])
}
