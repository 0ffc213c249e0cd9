// Package calculations provides a sqlite-backed TTL cache for derived
// numeric results that are expensive to recompute.
package calculations

import (
	"database/sql"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Cache namespaces.
const (
	NamespaceCovariance = "covariance"
)

// TTLs per namespace.
const (
	TTLCovariance = 24 * time.Hour
)

// Cache stores msgpack-encoded values in the cache database with expiry.
type Cache struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewCache creates a cache backed by the given database connection.
func NewCache(db *sql.DB, log zerolog.Logger) *Cache {
	return &Cache{
		db:  db,
		log: log.With().Str("component", "calc_cache").Logger(),
	}
}

// Get decodes the cached value for (namespace, key) into out. Returns false
// on miss, expiry, or decode failure; a stale decode is treated as a miss so
// callers recalculate instead of failing.
func (c *Cache) Get(namespace, key string, out interface{}) bool {
	var payload []byte
	var expiresAt int64

	err := c.db.QueryRow(
		`SELECT payload, expires_at FROM calc_cache WHERE namespace = ? AND cache_key = ?`,
		namespace, key,
	).Scan(&payload, &expiresAt)
	if err != nil {
		if err != sql.ErrNoRows {
			c.log.Warn().Err(err).Str("namespace", namespace).Msg("Cache read failed")
		}
		return false
	}

	if time.Now().Unix() > expiresAt {
		// Expired entries are removed lazily on read.
		if _, err := c.db.Exec(
			`DELETE FROM calc_cache WHERE namespace = ? AND cache_key = ?`,
			namespace, key,
		); err != nil {
			c.log.Warn().Err(err).Str("namespace", namespace).Msg("Failed to delete expired cache entry")
		}
		return false
	}

	if err := msgpack.Unmarshal(payload, out); err != nil {
		c.log.Warn().Err(err).Str("namespace", namespace).Msg("Failed to decode cached value, treating as miss")
		return false
	}
	return true
}

// Set encodes and stores a value for (namespace, key) with the given TTL,
// replacing any existing entry.
func (c *Cache) Set(namespace, key string, value interface{}, ttl time.Duration) error {
	payload, err := msgpack.Marshal(value)
	if err != nil {
		return err
	}

	_, err = c.db.Exec(
		`INSERT OR REPLACE INTO calc_cache (namespace, cache_key, payload, expires_at) VALUES (?, ?, ?, ?)`,
		namespace, key, payload, time.Now().Add(ttl).Unix(),
	)
	return err
}

// Purge removes all expired entries across namespaces.
func (c *Cache) Purge() error {
	_, err := c.db.Exec(`DELETE FROM calc_cache WHERE expires_at < ?`, time.Now().Unix())
	return err
}
