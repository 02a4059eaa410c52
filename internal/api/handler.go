// Package api serves the study's HTTP endpoints.
package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/perceptio/backend/internal/catalog"
	"github.com/perceptio/backend/internal/domain/participant"
	"github.com/perceptio/backend/internal/domain/resolution"
	"github.com/perceptio/backend/internal/service"
	"github.com/perceptio/backend/internal/stats"
	"github.com/perceptio/backend/internal/store"
)

const maxBodyBytes = 1 << 20

// Browser is the read-only database view used by the /api/db endpoints.
type Browser interface {
	Summary(ctx context.Context) (*store.Summary, error)
	Sessions(ctx context.Context, q store.SessionQuery) (*store.Page[store.StoredSession], error)
	Users(ctx context.Context, q store.UserQuery) (*store.Page[participant.Aggregate], error)
	Resolutions(ctx context.Context) ([]string, error)
	SessionByID(ctx context.Context, id int64) (*store.StoredSession, error)
}

var _ Browser = (*store.SQLiteStore)(nil)

// Options tune handler behavior that comes from configuration.
type Options struct {
	PseudoCookieTTL time.Duration
	IncludeLicensed bool // default for /api/get-videos when the query omits it
}

// Handler holds all dependencies needed by HTTP handlers.
type Handler struct {
	submissions *service.SubmissionService
	stats       *service.StatsService
	catalog     *catalog.Catalog
	browser     Browser // nil when no SQLite database is configured
	ladder      *resolution.Ladder
	opts        Options
	logger      *slog.Logger

	mu         sync.RWMutex
	lastPseudo string
}

// NewHandler creates a Handler with the given dependencies. browser may be
// nil; the database endpoints then answer 503.
func NewHandler(submissions *service.SubmissionService, statsSvc *service.StatsService,
	cat *catalog.Catalog, browser Browser, opts Options, logger *slog.Logger) *Handler {
	if opts.PseudoCookieTTL <= 0 {
		opts.PseudoCookieTTL = 10 * time.Minute
	}
	return &Handler{
		submissions: submissions,
		stats:       statsSvc,
		catalog:     cat,
		browser:     browser,
		ladder:      statsSvc.Engine().Ladder(),
		opts:        opts,
		logger:      logger,
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, messageResponse{Message: msg})
}

// handleStoreError checks for common store errors and writes the appropriate
// HTTP response. Returns true if an error was handled (caller should return).
func (h *Handler) handleStoreError(w http.ResponseWriter, err error, entity string) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, entity+" not found")
	case errors.Is(err, service.ErrInvalidSubmission),
		errors.Is(err, stats.ErrFilterMissing),
		errors.Is(err, stats.ErrUnknownKind):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("store error", "error", err, "entity", entity)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
	return true
}

type validatable interface {
	Validate() error
}

// decodeAndValidate reads a JSON body into req and validates it. On failure
// it writes a 400 and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req validatable) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "cannot read request body")
		return false
	}
	if err := json.Unmarshal(body, req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}
