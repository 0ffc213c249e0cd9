package optimization

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ResultRepository persists optimization runs so the latest allocation can be
// served without re-solving.
type ResultRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewResultRepository creates a result repository on the cache database.
func NewResultRepository(db *sql.DB, log zerolog.Logger) *ResultRepository {
	return &ResultRepository{
		db:  db,
		log: log.With().Str("component", "result_repository").Logger(),
	}
}

// Save stores a portfolio result. The weight maps and statistics are stored
// as a JSON payload keyed by run ID.
func (r *ResultRepository) Save(result *PortfolioResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	_, err = r.db.Exec(
		`INSERT INTO optimization_results (id, created_at, payload) VALUES (?, ?, ?)`,
		result.ID, result.Timestamp.Unix(), payload,
	)
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}

	r.log.Debug().Str("id", result.ID).Msg("Saved optimization result")
	return nil
}

// Latest returns the most recent stored result, or nil when none exists.
func (r *ResultRepository) Latest() (*PortfolioResult, error) {
	var payload []byte
	err := r.db.QueryRow(
		`SELECT payload FROM optimization_results ORDER BY created_at DESC, id DESC LIMIT 1`,
	).Scan(&payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query latest result: %w", err)
	}

	var result PortfolioResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	return &result, nil
}

// Get returns a stored result by run ID, or nil when not found.
func (r *ResultRepository) Get(id string) (*PortfolioResult, error) {
	var payload []byte
	err := r.db.QueryRow(
		`SELECT payload FROM optimization_results WHERE id = ?`, id,
	).Scan(&payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query result: %w", err)
	}

	var result PortfolioResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	return &result, nil
}

// DeleteOlderThan removes stored results created before the cutoff.
func (r *ResultRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM optimization_results WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old results: %w", err)
	}
	return res.RowsAffected()
}
