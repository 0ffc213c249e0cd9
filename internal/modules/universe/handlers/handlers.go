// Package handlers provides HTTP handlers for universe management.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aristath/allocator/internal/modules/universe"
	"github.com/rs/zerolog"
)

// Handler handles universe HTTP requests
type Handler struct {
	repo      *universe.Repository
	historyDB *universe.HistoryDB
	log       zerolog.Logger
}

// NewHandler creates a new universe handler
func NewHandler(repo *universe.Repository, historyDB *universe.HistoryDB, log zerolog.Logger) *Handler {
	return &Handler{
		repo:      repo,
		historyDB: historyDB,
		log:       log.With().Str("handler", "universe").Logger(),
	}
}

// HandleListAssets handles GET /api/universe/assets
func (h *Handler) HandleListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.repo.GetAllAssets()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list assets")
		http.Error(w, "Failed to list assets", http.StatusInternalServerError)
		return
	}
	if assets == nil {
		assets = []universe.Asset{}
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"assets": assets,
			"count":  len(assets),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	h.writeJSON(w, http.StatusOK, response)
}

// HandleSaveAsset handles PUT /api/universe/assets
func (h *Handler) HandleSaveAsset(w http.ResponseWriter, r *http.Request) {
	var asset universe.Asset
	if err := json.NewDecoder(r.Body).Decode(&asset); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.repo.SaveAsset(asset); err != nil {
		h.log.Error().Err(err).Str("symbol", asset.Symbol).Msg("Failed to save asset")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"symbol": asset.Symbol,
			"saved":  true,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	h.writeJSON(w, http.StatusOK, response)
}

// HandleDeleteAsset handles DELETE /api/universe/assets/{symbol}
func (h *Handler) HandleDeleteAsset(w http.ResponseWriter, r *http.Request, symbol string) {
	if err := h.repo.DeleteAsset(symbol); err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to delete asset")
		http.Error(w, "Failed to delete asset", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"symbol":  symbol,
			"deleted": true,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetSectorBounds handles GET /api/universe/sector-bounds
func (h *Handler) HandleGetSectorBounds(w http.ResponseWriter, r *http.Request) {
	bounds, err := h.repo.GetSectorBounds()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get sector bounds")
		http.Error(w, "Failed to get sector bounds", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"sector_bounds": bounds,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	h.writeJSON(w, http.StatusOK, response)
}

// HandleSaveSectorBound handles PUT /api/universe/sector-bounds
func (h *Handler) HandleSaveSectorBound(w http.ResponseWriter, r *http.Request) {
	var bound universe.SectorBound
	if err := json.NewDecoder(r.Body).Decode(&bound); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.repo.SaveSectorBound(bound); err != nil {
		h.log.Error().Err(err).Str("sector", bound.Sector).Msg("Failed to save sector bound")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"sector": bound.Sector,
			"min":    bound.Min,
			"max":    bound.Max,
			"saved":  true,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	h.writeJSON(w, http.StatusOK, response)
}

// HandleIngestPrices handles POST /api/universe/assets/{symbol}/prices
func (h *Handler) HandleIngestPrices(w http.ResponseWriter, r *http.Request, symbol string) {
	asset, err := h.repo.GetAsset(symbol)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to look up asset")
		http.Error(w, "Failed to look up asset", http.StatusInternalServerError)
		return
	}
	if asset == nil {
		http.Error(w, "Unknown asset", http.StatusNotFound)
		return
	}

	var payload struct {
		Prices []universe.DailyPrice `json:"prices"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(payload.Prices) == 0 {
		http.Error(w, "No prices provided", http.StatusBadRequest)
		return
	}

	if err := h.historyDB.SaveDailyPrices(symbol, payload.Prices); err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to save prices")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"symbol": symbol,
			"saved":  len(payload.Prices),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetPrices handles GET /api/universe/assets/{symbol}/prices
func (h *Handler) HandleGetPrices(w http.ResponseWriter, r *http.Request, symbol string) {
	prices, err := h.historyDB.GetDailyPrices(symbol, 1000)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get prices")
		http.Error(w, "Failed to get prices", http.StatusInternalServerError)
		return
	}
	if prices == nil {
		prices = []universe.DailyPrice{}
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"symbol": symbol,
			"prices": prices,
			"count":  len(prices),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	h.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
