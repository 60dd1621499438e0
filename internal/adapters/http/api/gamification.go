package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/okian/ecotrack/internal/domain/dedupe"
	"github.com/okian/ecotrack/internal/domain/gamification"
	"github.com/okian/ecotrack/internal/domain/model"
	"github.com/okian/ecotrack/internal/domain/types"
	"github.com/okian/ecotrack/pkg/logger"
	"github.com/okian/ecotrack/pkg/metrics"
)

const maxUpdateBodyBytes = 1 << 20

// Idempotency headers for POST /api/gamification/update.
const (
	HeaderIdempotencyKey     = "Idempotency-Key"
	HeaderIdempotentReplayed = "Idempotent-Replayed"
)

// GamificationDependencies defines the score and journal operations used by
// the gamification routes.
type GamificationDependencies interface {
	Status(ctx context.Context) gamification.Status
	ApplyAdjustment(ctx context.Context, typ model.AdjustmentType, points float64, description string) (gamification.Status, error)
	History(ctx context.Context, n int) ([]types.HistoryEntry, error)
}

// GamificationHandler handles the score, update and history routes.
type GamificationHandler struct {
	deps            GamificationDependencies
	deduper         dedupe.Deduper
	logger          logger.Logger
	maxHistoryLimit int
}

// NewGamificationHandler creates a new gamification handler. A nil deduper
// disables Idempotency-Key handling.
func NewGamificationHandler(deps GamificationDependencies, deduper dedupe.Deduper, l logger.Logger, maxHistoryLimit int) *GamificationHandler {
	if maxHistoryLimit < 1 {
		maxHistoryLimit = defaultMaxHistoryLimit
	}
	return &GamificationHandler{deps: deps, deduper: deduper, logger: l, maxHistoryLimit: maxHistoryLimit}
}

// updateRequest mirrors the OpenAPI schema for POST /api/gamification/update.
// Fields stay raw so a mistyped field is reported by name.
type updateRequest struct {
	Type        json.RawMessage `json:"type"`
	Points      json.RawMessage `json:"points"`
	Description json.RawMessage `json:"description"`
}

// updateCommand is a validated update request.
type updateCommand struct {
	typ         model.AdjustmentType
	points      float64
	description string
}

// validate checks the type before the points so an unknown or mistyped type
// is always reported as such.
func (u updateRequest) validate() (updateCommand, error) {
	var (
		cmd  updateCommand
		name string
	)
	if err := json.Unmarshal(u.Type, &name); err != nil || !model.AdjustmentType(name).Valid() {
		return updateCommand{}, ErrInvalidType
	}
	cmd.typ = model.AdjustmentType(name)

	var points *float64
	if err := json.Unmarshal(u.Points, &points); err != nil || points == nil {
		return updateCommand{}, ErrInvalidPoint
	}
	cmd.points = *points

	if len(u.Description) > 0 {
		if err := json.Unmarshal(u.Description, &cmd.description); err != nil {
			return updateCommand{}, ErrInvalidBody
		}
	}
	return cmd, nil
}

// HandleGetStatus handles GET /api/gamification requests.
func (h *GamificationHandler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	st := h.deps.Status(r.Context())
	writeJSON(w, http.StatusOK, types.GamificationStatus{Score: st.Score, Level: st.Level.String()})
}

// HandleUpdate handles POST /api/gamification/update requests. A request
// repeated with the same Idempotency-Key and body is answered with the first
// result and not applied again.
func (h *GamificationHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_gamification"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUpdateBodyBytes))
	if err != nil {
		fail(ctx, h.logger, w, http.StatusBadRequest, WrapKind(op, ErrInvalidBody, err))
		return
	}
	var req updateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		fail(ctx, h.logger, w, http.StatusBadRequest, WrapKind(op, ErrInvalidBody, err))
		return
	}
	cmd, err := req.validate()
	if err != nil {
		fail(ctx, h.logger, w, http.StatusBadRequest, WrapKind(op, ErrBadRequest, err))
		return
	}

	key := h.idempotencyKey(r, body)
	if key != "" && h.deduper.SeenAndRecord(ctx, key) {
		if res, ok := h.deduper.Result(ctx, key); ok {
			metrics.RecordIdempotentReplay()
			w.Header().Set(HeaderIdempotentReplayed, "true")
			writeJSON(w, http.StatusOK, res)
			return
		}
		fail(ctx, h.logger, w, http.StatusConflict, NewKind(op, ErrInFlight))
		return
	}

	st, err := h.deps.ApplyAdjustment(ctx, cmd.typ, cmd.points, cmd.description)
	if err != nil {
		if key != "" {
			h.deduper.Unrecord(ctx, key)
		}
		fail(ctx, h.logger, w, http.StatusServiceUnavailable, WrapKind(op, ErrUnavailable, err))
		return
	}

	res := types.UpdateResult{
		Success:  true,
		NewScore: st.Score,
		NewLevel: st.Level.String(),
	}
	if key != "" {
		h.deduper.Complete(ctx, key, res)
	}
	writeJSON(w, http.StatusOK, res)
}

// idempotencyKey scopes the client's Idempotency-Key to its address and the
// request body. Empty when the header is absent or deduplication is off.
func (h *GamificationHandler) idempotencyKey(r *http.Request, body []byte) string {
	if h.deduper == nil {
		return ""
	}
	k := r.Header.Get(HeaderIdempotencyKey)
	if k == "" {
		return ""
	}
	sum := sha256.New()
	sum.Write([]byte(clientKey(r)))
	sum.Write([]byte{0})
	sum.Write([]byte(k))
	sum.Write([]byte{0})
	sum.Write(body)
	return hex.EncodeToString(sum.Sum(nil))
}

// HandleHistory handles GET /api/gamification/history?limit=N requests.
func (h *GamificationHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.gamification_history"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			fail(r.Context(), h.logger, w, http.StatusBadRequest, WrapKind(op, ErrInvalidLimit, err))
			return
		}
		limit = n
	}
	if limit > h.maxHistoryLimit {
		limit = h.maxHistoryLimit
	}

	entries, err := h.deps.History(r.Context(), limit)
	if err != nil {
		fail(r.Context(), h.logger, w, http.StatusInternalServerError, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
