package api

import (
	"maps"
	"net/http"

	"github.com/okian/ecotrack/internal/domain/dedupe"
)

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves the service stats together with the API's own
// counters.
type StatsHandler struct {
	statsProvider StatsProvider
	deduper       dedupe.Deduper
	limiter       *RateLimiter
}

// NewStatsHandler creates a new stats handler. deduper and limiter may be nil.
func NewStatsHandler(statsProvider StatsProvider, deduper dedupe.Deduper, limiter *RateLimiter) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider, deduper: deduper, limiter: limiter}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	stats := make(map[string]interface{})
	if h.statsProvider != nil {
		maps.Copy(stats, h.statsProvider.GetStats())
	}
	stats["idempotencyEnabled"] = h.deduper != nil
	if h.deduper != nil {
		stats["idempotencyKeys"] = h.deduper.Size()
	}
	if h.limiter != nil {
		stats["rateLimitedClients"] = h.limiter.Clients()
	}
	writeJSON(w, http.StatusOK, stats)
}
