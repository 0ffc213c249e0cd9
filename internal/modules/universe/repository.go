package universe

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
)

// Repository provides access to the asset universe and sector bounds.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new universe repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("component", "universe_repository").Logger(),
	}
}

// GetAllAssets returns every asset in the universe, ordered by symbol so the
// optimization vector layout is stable across runs.
func (r *Repository) GetAllAssets() ([]Asset, error) {
	rows, err := r.db.Query(`SELECT symbol, name, sector FROM assets ORDER BY symbol ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		var a Asset
		var name sql.NullString
		if err := rows.Scan(&a.Symbol, &name, &a.Sector); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		if name.Valid {
			a.Name = name.String
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets: %w", err)
	}

	return assets, nil
}

// GetAsset returns a single asset by symbol, or nil when not found.
func (r *Repository) GetAsset(symbol string) (*Asset, error) {
	var a Asset
	var name sql.NullString
	err := r.db.QueryRow(
		`SELECT symbol, name, sector FROM assets WHERE symbol = ?`, symbol,
	).Scan(&a.Symbol, &name, &a.Sector)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query asset: %w", err)
	}
	if name.Valid {
		a.Name = name.String
	}
	return &a, nil
}

// SaveAsset inserts or updates an asset.
func (r *Repository) SaveAsset(asset Asset) error {
	if asset.Symbol == "" {
		return fmt.Errorf("asset symbol is required")
	}
	if asset.Sector == "" {
		return fmt.Errorf("asset %s has no sector", asset.Symbol)
	}

	_, err := r.db.Exec(
		`INSERT INTO assets (symbol, name, sector) VALUES (?, ?, ?)
		 ON CONFLICT(symbol) DO UPDATE SET name = excluded.name, sector = excluded.sector`,
		asset.Symbol, asset.Name, asset.Sector,
	)
	if err != nil {
		return fmt.Errorf("failed to save asset: %w", err)
	}

	r.log.Debug().Str("symbol", asset.Symbol).Str("sector", asset.Sector).Msg("Saved asset")
	return nil
}

// DeleteAsset removes an asset and its stored prices.
func (r *Repository) DeleteAsset(symbol string) error {
	if _, err := r.db.Exec(`DELETE FROM daily_prices WHERE symbol = ?`, symbol); err != nil {
		return fmt.Errorf("failed to delete prices for %s: %w", symbol, err)
	}
	if _, err := r.db.Exec(`DELETE FROM assets WHERE symbol = ?`, symbol); err != nil {
		return fmt.Errorf("failed to delete asset %s: %w", symbol, err)
	}
	return nil
}

// GetSectorBounds returns all configured sector bounds keyed by sector.
func (r *Repository) GetSectorBounds() (map[string]SectorBound, error) {
	rows, err := r.db.Query(`SELECT sector, min_weight, max_weight FROM sector_bounds`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sector bounds: %w", err)
	}
	defer rows.Close()

	bounds := make(map[string]SectorBound)
	for rows.Next() {
		var b SectorBound
		if err := rows.Scan(&b.Sector, &b.Min, &b.Max); err != nil {
			return nil, fmt.Errorf("failed to scan sector bound: %w", err)
		}
		bounds[b.Sector] = b
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sector bounds: %w", err)
	}

	return bounds, nil
}

// SaveSectorBound inserts or updates the bounds for one sector. Range and
// consistency checks happen at optimization time against the full universe;
// here only the obvious shape errors are rejected.
func (r *Repository) SaveSectorBound(bound SectorBound) error {
	if bound.Sector == "" {
		return fmt.Errorf("sector is required")
	}
	if bound.Min < 0 || bound.Max > 1 || bound.Min > bound.Max {
		return fmt.Errorf("invalid bounds [%f, %f] for sector %s", bound.Min, bound.Max, bound.Sector)
	}

	_, err := r.db.Exec(
		`INSERT INTO sector_bounds (sector, min_weight, max_weight) VALUES (?, ?, ?)
		 ON CONFLICT(sector) DO UPDATE SET min_weight = excluded.min_weight, max_weight = excluded.max_weight`,
		bound.Sector, bound.Min, bound.Max,
	)
	if err != nil {
		return fmt.Errorf("failed to save sector bound: %w", err)
	}

	r.log.Debug().
		Str("sector", bound.Sector).
		Float64("min", bound.Min).
		Float64("max", bound.Max).
		Msg("Saved sector bound")
	return nil
}

// DeleteSectorBound removes the bounds for a sector, leaving it unconstrained.
func (r *Repository) DeleteSectorBound(sector string) error {
	if _, err := r.db.Exec(`DELETE FROM sector_bounds WHERE sector = ?`, sector); err != nil {
		return fmt.Errorf("failed to delete sector bound: %w", err)
	}
	return nil
}
