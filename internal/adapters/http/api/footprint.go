package api

import (
	"context"
	"net/http"

	"github.com/okian/ecotrack/internal/domain/types"
	"github.com/okian/ecotrack/pkg/logger"
)

// FootprintDependencies defines the read operations behind the chart routes.
type FootprintDependencies interface {
	CategoryPie(ctx context.Context) ([]types.CategorySlice, error)
	WeeklyTotals(ctx context.Context) ([]types.DayTotal, error)
	DailyBreakdown(ctx context.Context) (types.DailyBreakdown, error)
	TotalCO2(ctx context.Context) (types.TotalCO2, error)
}

// FootprintHandler handles the footprint chart routes.
type FootprintHandler struct {
	deps   FootprintDependencies
	logger logger.Logger
}

// NewFootprintHandler creates a new footprint handler.
func NewFootprintHandler(deps FootprintDependencies, l logger.Logger) *FootprintHandler {
	return &FootprintHandler{deps: deps, logger: l}
}

// HandleCategoryPie handles GET /api/category/pie requests.
func (h *FootprintHandler) HandleCategoryPie(w http.ResponseWriter, r *http.Request) {
	serveRead(h, w, r, "api.category_pie", h.deps.CategoryPie)
}

// HandleWeeklyTotal handles GET /api/weekly/total requests.
func (h *FootprintHandler) HandleWeeklyTotal(w http.ResponseWriter, r *http.Request) {
	serveRead(h, w, r, "api.weekly_total", h.deps.WeeklyTotals)
}

// HandleDailyBreakdown handles GET /api/daily_breakdown requests.
func (h *FootprintHandler) HandleDailyBreakdown(w http.ResponseWriter, r *http.Request) {
	serveRead(h, w, r, "api.daily_breakdown", h.deps.DailyBreakdown)
}

// HandleTotalCO2 handles GET /api/total_co2 requests.
func (h *FootprintHandler) HandleTotalCO2(w http.ResponseWriter, r *http.Request) {
	serveRead(h, w, r, "api.total_co2", h.deps.TotalCO2)
}

func serveRead[T any](h *FootprintHandler, w http.ResponseWriter, r *http.Request, op string, read func(context.Context) (T, error)) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	v, err := read(r.Context())
	if err != nil {
		fail(r.Context(), h.logger, w, http.StatusInternalServerError, WrapKind(op, ErrUpstream, err))
		return
	}
	writeJSON(w, http.StatusOK, v)
}
