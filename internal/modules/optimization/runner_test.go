package optimization

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/allocator/internal/database"
	"github.com/aristath/allocator/internal/modules/calculations"
	"github.com/aristath/allocator/internal/modules/universe"
)

func newTestRunner(t *testing.T) (*Runner, *universe.Repository, *universe.HistoryDB, *ResultRepository) {
	t.Helper()

	dir := t.TempDir()

	universeDB, err := database.New(database.Config{
		Path:    filepath.Join(dir, "universe.db"),
		Profile: database.ProfileStandard,
		Name:    "universe",
	})
	require.NoError(t, err)
	t.Cleanup(func() { universeDB.Close() })
	require.NoError(t, universeDB.Migrate())

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(dir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	require.NoError(t, err)
	t.Cleanup(func() { cacheDB.Close() })
	require.NoError(t, cacheDB.Migrate())

	log := zerolog.Nop()
	repo := universe.NewRepository(universeDB.Conn(), log)
	historyDB := universe.NewHistoryDB(universeDB.Conn(), log)
	cache := calculations.NewCache(cacheDB.Conn(), log)
	resultRepo := NewResultRepository(cacheDB.Conn(), log)

	return NewRunner(repo, historyDB, cache, resultRepo, 252, log), repo, historyDB, resultRepo
}

// seedPrices writes a synthetic price walk with the given daily drift.
func seedPrices(t *testing.T, historyDB *universe.HistoryDB, symbol string, drift float64, days int) {
	t.Helper()

	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	price := 100.0
	prices := make([]universe.DailyPrice, 0, days)
	for i := 0; i < days; i++ {
		// Alternate noise around the drift keeps variance nonzero.
		noise := 0.004
		if i%2 == 1 {
			noise = -0.004
		}
		price *= 1 + drift + noise
		prices = append(prices, universe.DailyPrice{
			Date:  start.AddDate(0, 0, i).Format("2006-01-02"),
			Close: price,
		})
	}
	require.NoError(t, historyDB.SaveDailyPrices(symbol, prices))
}

func TestRunner_EndToEnd(t *testing.T) {
	runner, repo, historyDB, resultRepo := newTestRunner(t)

	require.NoError(t, repo.SaveAsset(universe.Asset{Symbol: "GRW", Sector: "growth"}))
	require.NoError(t, repo.SaveAsset(universe.Asset{Symbol: "VAL", Sector: "value"}))
	seedPrices(t, historyDB, "GRW", 0.0010, 60)
	seedPrices(t, historyDB, "VAL", 0.0005, 60)

	require.NoError(t, repo.SaveSectorBound(universe.SectorBound{Sector: "growth", Min: 0.3, Max: 0.7}))
	require.NoError(t, repo.SaveSectorBound(universe.SectorBound{Sector: "value", Min: 0.3, Max: 0.7}))

	result, err := runner.Run()
	require.NoError(t, err)
	require.NotNil(t, result)

	sum := 0.0
	for _, w := range result.Weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
	assert.GreaterOrEqual(t, result.SectorWeights["growth"], 0.3-0.01)
	assert.LessOrEqual(t, result.SectorWeights["growth"], 0.7+0.01)

	// The solved run is persisted as the latest result.
	latest, err := resultRepo.Latest()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, result.ID, latest.ID)
}

func TestRunner_InsufficientHistory(t *testing.T) {
	runner, repo, historyDB, _ := newTestRunner(t)

	require.NoError(t, repo.SaveAsset(universe.Asset{Symbol: "GRW", Sector: "growth"}))
	require.NoError(t, historyDB.SaveDailyPrice("GRW", "2026-08-25", 100.0))

	_, err := runner.Run()
	require.Error(t, err)

	var insufficientData *InsufficientDataError
	assert.ErrorAs(t, err, &insufficientData)
}

func TestRunner_ContradictoryBoundsFailBeforeSolve(t *testing.T) {
	runner, repo, historyDB, _ := newTestRunner(t)

	require.NoError(t, repo.SaveAsset(universe.Asset{Symbol: "GRW", Sector: "growth"}))
	require.NoError(t, repo.SaveAsset(universe.Asset{Symbol: "VAL", Sector: "value"}))
	seedPrices(t, historyDB, "GRW", 0.0010, 30)
	seedPrices(t, historyDB, "VAL", 0.0005, 30)

	require.NoError(t, repo.SaveSectorBound(universe.SectorBound{Sector: "growth", Min: 0.6, Max: 1.0}))
	require.NoError(t, repo.SaveSectorBound(universe.SectorBound{Sector: "value", Min: 0.6, Max: 1.0}))

	_, err := runner.Run()
	require.Error(t, err)

	var invalidConstraint *InvalidConstraintError
	assert.ErrorAs(t, err, &invalidConstraint)
}

func TestRunner_CachedCovarianceReused(t *testing.T) {
	runner, repo, historyDB, _ := newTestRunner(t)

	require.NoError(t, repo.SaveAsset(universe.Asset{Symbol: "GRW", Sector: "growth"}))
	require.NoError(t, repo.SaveAsset(universe.Asset{Symbol: "VAL", Sector: "value"}))
	seedPrices(t, historyDB, "GRW", 0.0010, 40)
	seedPrices(t, historyDB, "VAL", 0.0005, 40)

	first, err := runner.Run()
	require.NoError(t, err)

	// Second run hits the cached covariance; the solve is deterministic so
	// the weights match.
	second, err := runner.Run()
	require.NoError(t, err)

	for symbol, w := range first.Weights {
		assert.InDelta(t, w, second.Weights[symbol], 1e-9, fmt.Sprintf("weight for %s", symbol))
	}
}
