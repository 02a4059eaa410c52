package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/perceptio/backend/internal/domain/participant"
	"github.com/perceptio/backend/internal/store"
)

type SessionsResponse struct {
	Query      string                `json:"query"`
	Limit      int                   `json:"limit"`
	Offset     int                   `json:"offset"`
	StartDate  string                `json:"startDate"`
	EndDate    string                `json:"endDate"`
	Resolution string                `json:"resolution"`
	SortBy     string                `json:"sortBy"`
	SortDir    string                `json:"sortDir"`
	Total      int                   `json:"total"`
	Rows       []store.StoredSession `json:"rows"`
}

type UsersResponse struct {
	Query  string                  `json:"query"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
	Total  int                     `json:"total"`
	Rows   []participant.Aggregate `json:"rows"`
}

// requireBrowser answers 503 when no database is configured.
func (h *Handler) requireBrowser(w http.ResponseWriter) bool {
	if h.browser == nil {
		respondError(w, http.StatusServiceUnavailable, "database browser is not configured")
		return false
	}
	return true
}

// pageParams parses limit and offset leniently: unparseable values fall back
// to the defaults before clamping.
func pageParams(r *http.Request) (int, int) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	return store.ClampPage(limit, offset)
}

// GET /api/db/summary
func (h *Handler) dbSummary(w http.ResponseWriter, r *http.Request) {
	if !h.requireBrowser(w) {
		return
	}
	s, err := h.browser.Summary(r.Context())
	if h.handleStoreError(w, err, "summary") {
		return
	}
	respondJSON(w, http.StatusOK, s)
}

// GET /api/db/sessions
func (h *Handler) dbSessions(w http.ResponseWriter, r *http.Request) {
	if !h.requireBrowser(w) {
		return
	}
	q := r.URL.Query()
	limit, offset := pageParams(r)
	query := store.SessionQuery{
		Q:          strings.TrimSpace(q.Get("q")),
		Limit:      limit,
		Offset:     offset,
		StartDate:  q.Get("startDate"),
		EndDate:    q.Get("endDate"),
		Resolution: q.Get("resolution"),
		SortBy:     q.Get("sortBy"),
		SortDir:    q.Get("sortDir"),
	}
	page, err := h.browser.Sessions(r.Context(), query)
	if h.handleStoreError(w, err, "sessions") {
		return
	}
	respondJSON(w, http.StatusOK, SessionsResponse{
		Query:      query.Q,
		Limit:      limit,
		Offset:     offset,
		StartDate:  query.StartDate,
		EndDate:    query.EndDate,
		Resolution: query.Resolution,
		SortBy:     query.SortBy,
		SortDir:    query.SortDir,
		Total:      page.Total,
		Rows:       page.Rows,
	})
}

// GET /api/db/users
func (h *Handler) dbUsers(w http.ResponseWriter, r *http.Request) {
	if !h.requireBrowser(w) {
		return
	}
	limit, offset := pageParams(r)
	query := store.UserQuery{Q: strings.TrimSpace(r.URL.Query().Get("q")), Limit: limit, Offset: offset}
	page, err := h.browser.Users(r.Context(), query)
	if h.handleStoreError(w, err, "users") {
		return
	}
	respondJSON(w, http.StatusOK, UsersResponse{
		Query:  query.Q,
		Limit:  limit,
		Offset: offset,
		Total:  page.Total,
		Rows:   page.Rows,
	})
}

// GET /api/db/resolutions lists stored resolutions in ladder order.
func (h *Handler) dbResolutions(w http.ResponseWriter, r *http.Request) {
	if !h.requireBrowser(w) {
		return
	}
	rs, err := h.browser.Resolutions(r.Context())
	if h.handleStoreError(w, err, "resolutions") {
		return
	}
	h.ladder.Sort(rs)
	respondJSON(w, http.StatusOK, map[string][]string{"resolutions": rs})
}

// GET /api/db/session/{id}
func (h *Handler) dbSession(w http.ResponseWriter, r *http.Request) {
	if !h.requireBrowser(w) {
		return
	}
	sid, err := strconv.ParseInt(pathParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	s, err := h.browser.SessionByID(r.Context(), sid)
	if h.handleStoreError(w, err, "session") {
		return
	}
	respondJSON(w, http.StatusOK, s)
}
