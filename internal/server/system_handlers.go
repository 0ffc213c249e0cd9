package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/allocator/internal/database"
)

// SystemHandlers serves health and system status endpoints.
type SystemHandlers struct {
	log        zerolog.Logger
	universeDB *database.DB
	cacheDB    *database.DB
	startedAt  time.Time
}

// NewSystemHandlers creates system handlers for the given databases.
func NewSystemHandlers(log zerolog.Logger, universeDB, cacheDB *database.DB) *SystemHandlers {
	return &SystemHandlers{
		log:        log.With().Str("handler", "system").Logger(),
		universeDB: universeDB,
		cacheDB:    cacheDB,
		startedAt:  time.Now(),
	}
}

// HandleHealth handles GET /health - a fast liveness probe.
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK

	if err := h.universeDB.QuickCheck(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("Universe database unreachable")
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	if err := h.cacheDB.QuickCheck(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("Cache database unreachable")
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	h.writeJSON(w, code, map[string]interface{}{
		"status":         status,
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
	})
}

// HandleHealthDetail handles GET /api/health - includes system resource usage.
func (h *SystemHandlers) HandleHealthDetail(w http.ResponseWriter, r *http.Request) {
	cpuAvg, ramPercent := h.getSystemStats()

	databases := map[string]string{}
	status := "ok"
	for _, db := range []*database.DB{h.universeDB, h.cacheDB} {
		if err := db.QuickCheck(r.Context()); err != nil {
			databases[db.Name()] = "unreachable"
			status = "degraded"
		} else {
			databases[db.Name()] = "ok"
		}
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"status":         status,
			"databases":      databases,
			"cpu_percent":    cpuAvg,
			"ram_percent":    ramPercent,
			"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	h.writeJSON(w, code, response)
}

// getSystemStats returns CPU and RAM usage percentages. A short sampling
// interval keeps the endpoint responsive for frequent polling.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
