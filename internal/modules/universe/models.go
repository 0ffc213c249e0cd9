// Package universe manages the investable asset universe: the securities
// eligible for allocation, their sector classification, the per-sector weight
// bounds, and the historical prices that drive return estimation.
package universe

// Asset represents a security in the investable universe.
type Asset struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name,omitempty"`
	Sector string `json:"sector"`
}

// SectorBound stores the allowed aggregate weight range for a sector.
// Bounds are fractions of the total portfolio, in [0, 1].
type SectorBound struct {
	Sector string  `json:"sector"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}
