package universe

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// HistoryDB provides access to historical price data
type HistoryDB struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewHistoryDB creates a new history database accessor
func NewHistoryDB(db *sql.DB, log zerolog.Logger) *HistoryDB {
	return &HistoryDB{
		db:  db,
		log: log.With().Str("component", "history_db").Logger(),
	}
}

// DailyPrice represents a daily closing price point
type DailyPrice struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

// GetDailyPrices fetches daily closing prices for a symbol in ascending date
// order, limited to the most recent `limit` rows. Ascending order is what the
// return calculation expects.
func (h *HistoryDB) GetDailyPrices(symbol string, limit int) ([]DailyPrice, error) {
	query := `
		SELECT date, close FROM (
			SELECT date, close
			FROM daily_prices
			WHERE symbol = ?
			ORDER BY date DESC
			LIMIT ?
		)
		ORDER BY date ASC
	`

	rows, err := h.db.Query(query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	var prices []DailyPrice
	for rows.Next() {
		var p DailyPrice
		var dateUnix sql.NullInt64

		if err := rows.Scan(&dateUnix, &p.Close); err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}

		if dateUnix.Valid {
			t := time.Unix(dateUnix.Int64, 0).UTC()
			p.Date = t.Format("2006-01-02")
		}

		prices = append(prices, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily prices: %w", err)
	}

	return prices, nil
}

// SaveDailyPrice inserts or updates a single closing price.
// Dates are stored as Unix timestamps at UTC midnight.
func (h *HistoryDB) SaveDailyPrice(symbol string, date string, close float64) error {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", date, err)
	}

	_, err = h.db.Exec(
		`INSERT INTO daily_prices (symbol, date, close) VALUES (?, ?, ?)
		 ON CONFLICT(symbol, date) DO UPDATE SET close = excluded.close`,
		symbol, t.Unix(), close,
	)
	if err != nil {
		return fmt.Errorf("failed to save daily price: %w", err)
	}
	return nil
}

// SaveDailyPrices stores a batch of prices for one symbol in a transaction.
func (h *HistoryDB) SaveDailyPrices(symbol string, prices []DailyPrice) error {
	tx, err := h.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO daily_prices (symbol, date, close) VALUES (?, ?, ?)
		 ON CONFLICT(symbol, date) DO UPDATE SET close = excluded.close`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range prices {
		t, err := time.Parse("2006-01-02", p.Date)
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", p.Date, err)
		}
		if _, err := stmt.Exec(symbol, t.Unix(), p.Close); err != nil {
			return fmt.Errorf("failed to save price for %s on %s: %w", symbol, p.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit prices: %w", err)
	}

	h.log.Debug().Str("symbol", symbol).Int("count", len(prices)).Msg("Saved daily prices")
	return nil
}

// GetClosePrices returns just the closing price values for a symbol in
// ascending date order, the shape the return series builder consumes.
func (h *HistoryDB) GetClosePrices(symbol string, limit int) ([]float64, error) {
	prices, err := h.GetDailyPrices(symbol, limit)
	if err != nil {
		return nil, err
	}

	closes := make([]float64, len(prices))
	for i, p := range prices {
		closes[i] = p.Close
	}
	return closes, nil
}

// CountPrices returns the number of stored price rows for a symbol.
func (h *HistoryDB) CountPrices(symbol string) (int, error) {
	var count int
	err := h.db.QueryRow(`SELECT COUNT(*) FROM daily_prices WHERE symbol = ?`, symbol).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count prices: %w", err)
	}
	return count, nil
}
