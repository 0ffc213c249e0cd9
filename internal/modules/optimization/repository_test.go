package optimization

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/allocator/internal/database"
)

func newTestResultRepo(t *testing.T) *ResultRepository {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	return NewResultRepository(db.Conn(), zerolog.Nop())
}

func sampleResult(id string, ts time.Time) *PortfolioResult {
	return &PortfolioResult{
		ID:             id,
		Timestamp:      ts,
		Weights:        map[string]float64{"X": 0.6, "Y": 0.4},
		SectorWeights:  map[string]float64{"growth": 0.6, "value": 0.4},
		ExpectedReturn: 0.18,
		Volatility:     0.22,
		SharpeRatio:    0.18 / 0.22,
	}
}

func TestResultRepository_SaveAndGet(t *testing.T) {
	repo := newTestResultRepo(t)

	saved := sampleResult("run-1", time.Now().UTC())
	require.NoError(t, repo.Save(saved))

	got, err := repo.Get("run-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, saved.Weights, got.Weights)
	assert.InDelta(t, saved.SharpeRatio, got.SharpeRatio, 1e-12)

	missing, err := repo.Get("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestResultRepository_Latest(t *testing.T) {
	repo := newTestResultRepo(t)

	empty, err := repo.Latest()
	require.NoError(t, err)
	assert.Nil(t, empty, "no stored results yet")

	now := time.Now().UTC()
	require.NoError(t, repo.Save(sampleResult("older", now.Add(-time.Hour))))
	require.NoError(t, repo.Save(sampleResult("newer", now)))

	latest, err := repo.Latest()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "newer", latest.ID)
}

func TestResultRepository_DeleteOlderThan(t *testing.T) {
	repo := newTestResultRepo(t)

	now := time.Now().UTC()
	require.NoError(t, repo.Save(sampleResult("ancient", now.Add(-48*time.Hour))))
	require.NoError(t, repo.Save(sampleResult("recent", now)))

	deleted, err := repo.DeleteOlderThan(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	latest, err := repo.Latest()
	require.NoError(t, err)
	assert.Equal(t, "recent", latest.ID)
}
