package handler

import (
	"net/http"
	"runtime"
	"time"

	"economy-ledger/internal/repository"
	"economy-ledger/internal/service"
	"economy-ledger/pkg/response"
)

// AdminHandler handles operational HTTP requests. It never serves ledger
// records; that stays with the embedding application.
type AdminHandler struct {
	ledger    repository.Ledger
	sweeper   *service.ExpirySweeper
	backend   string
	startTime time.Time
}

// NewAdminHandler creates a new admin handler. sweeper may be nil when the
// sweeper is disabled.
func NewAdminHandler(ledger repository.Ledger, sweeper *service.ExpirySweeper, backend string) *AdminHandler {
	return &AdminHandler{
		ledger:    ledger,
		sweeper:   sweeper,
		backend:   backend,
		startTime: time.Now(),
	}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := make(map[string]interface{})

	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["backend"] = h.backend

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":   float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":     float64(memStats.Sys) / 1024 / 1024,
		"num_gc":     memStats.NumGC,
		"goroutines": runtime.NumGoroutine(),
	}

	if h.ledger != nil {
		ledgerStats, err := h.ledger.Stats(ctx)
		if err != nil {
			stats["ledger"] = map[string]interface{}{"status": "error", "error": err.Error()}
		} else {
			stats["ledger"] = ledgerStats
		}
	}

	response.OK(w, stats)
}

// TriggerSweep handles POST /api/v1/admin/sweep - runs an immediate expiry
// sweep and reports how many listings it closed.
func (h *AdminHandler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	if h.sweeper == nil {
		response.Error(w, http.StatusServiceUnavailable, "SWEEPER_DISABLED", "expiry sweeper is not running")
		return
	}

	closed, err := h.sweeper.RunNow()
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}

	response.OK(w, map[string]interface{}{"closed": closed})
}
