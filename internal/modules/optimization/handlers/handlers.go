// Package handlers provides HTTP handlers for portfolio optimization.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/allocator/internal/modules/optimization"
	"github.com/rs/zerolog"
)

// Handler handles optimization HTTP requests
type Handler struct {
	runner     *optimization.Runner
	resultRepo *optimization.ResultRepository
	log        zerolog.Logger
}

// NewHandler creates a new optimization handler
func NewHandler(runner *optimization.Runner, resultRepo *optimization.ResultRepository, log zerolog.Logger) *Handler {
	return &Handler{
		runner:     runner,
		resultRepo: resultRepo,
		log:        log.With().Str("handler", "optimization").Logger(),
	}
}

// HandleRunOptimization handles POST /api/optimization/run
func (h *Handler) HandleRunOptimization(w http.ResponseWriter, r *http.Request) {
	result, err := h.runner.Run()
	if err != nil {
		h.writeOptimizationError(w, err)
		return
	}

	response := map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetLatestResult handles GET /api/optimization/results/latest
func (h *Handler) HandleGetLatestResult(w http.ResponseWriter, r *http.Request) {
	result, err := h.resultRepo.Latest()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load latest result")
		http.Error(w, "Failed to load latest result", http.StatusInternalServerError)
		return
	}
	if result == nil {
		http.Error(w, "No optimization result stored", http.StatusNotFound)
		return
	}

	response := map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetResult handles GET /api/optimization/results/{id}
func (h *Handler) HandleGetResult(w http.ResponseWriter, r *http.Request, id string) {
	result, err := h.resultRepo.Get(id)
	if err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("Failed to load result")
		http.Error(w, "Failed to load result", http.StatusInternalServerError)
		return
	}
	if result == nil {
		http.Error(w, "Result not found", http.StatusNotFound)
		return
	}

	response := map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	h.writeJSON(w, http.StatusOK, response)
}

// writeOptimizationError maps the typed optimization errors to HTTP status
// codes and a machine-readable error_type field.
func (h *Handler) writeOptimizationError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	errorType := "internal"

	var insufficientData *optimization.InsufficientDataError
	var invalidConstraint *optimization.InvalidConstraintError
	var optimizationFailed *optimization.OptimizationFailedError
	var undefinedRatio *optimization.UndefinedRatioError

	switch {
	case errors.As(err, &insufficientData):
		status = http.StatusUnprocessableEntity
		errorType = "insufficient_data"
	case errors.As(err, &invalidConstraint):
		status = http.StatusBadRequest
		errorType = "invalid_constraint"
	case errors.As(err, &optimizationFailed):
		status = http.StatusUnprocessableEntity
		errorType = "optimization_failed"
	case errors.As(err, &undefinedRatio):
		status = http.StatusUnprocessableEntity
		errorType = "undefined_ratio"
	}

	h.log.Error().Err(err).Str("error_type", errorType).Msg("Optimization request failed")

	response := map[string]interface{}{
		"error":      err.Error(),
		"error_type": errorType,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	h.writeJSON(w, status, response)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
