package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/perceptio/backend/internal/domain/participant"
	"github.com/perceptio/backend/internal/domain/survey"
	"github.com/perceptio/backend/internal/grader"
	"github.com/perceptio/backend/internal/store"
	"github.com/perceptio/backend/internal/validation"
)

// pseudoCookie remembers the participant between the quiz and results pages.
const pseudoCookie = "userPseudo"

// ── Request / Response types ────────────────────────────────────────────────

// AddUserRequest is one quiz answer set. Other fields the page sends along
// (derived names, categories) are ignored and recomputed from the paths.
type AddUserRequest struct {
	User        string `json:"user" validate:"required"`
	VideoPath1  string `json:"videoPath1"`
	Resolution1 string `json:"resolution1" validate:"required"`
	VideoPath2  string `json:"videoPath2"`
	Resolution2 string `json:"resolution2" validate:"required"`
	QO1         string `json:"QO1" validate:"required"`
	QO2         string `json:"QO2"`
	QO3         string `json:"QO3"`
	QO4         string `json:"QO4"`
	QO5         string `json:"QO5"`
	Comments    string `json:"comments"`
	ScreenType  string `json:"screenType"`
}

func (r *AddUserRequest) Validate() error {
	return validation.Struct(r)
}

func (r *AddUserRequest) submission() survey.Submission {
	return survey.Submission{
		User:        r.User,
		VideoPath1:  r.VideoPath1,
		Resolution1: r.Resolution1,
		VideoPath2:  r.VideoPath2,
		Resolution2: r.Resolution2,
		QO1:         r.QO1,
		QO2:         r.QO2,
		QO3:         r.QO3,
		QO4:         r.QO4,
		QO5:         r.QO5,
		Comments:    r.Comments,
		ScreenType:  r.ScreenType,
	}
}

type AddUserResponse struct {
	Message string                 `json:"message"`
	Grade   grader.Result          `json:"grade"`
	User    *participant.Aggregate `json:"user"`
}

// SaveTimeRequest adds Time seconds to the participant's total.
type SaveTimeRequest struct {
	Pseudo string `json:"pseudo" validate:"required"`
	Time   *int   `json:"time" validate:"required,min=0"`
}

func (r *SaveTimeRequest) Validate() error {
	return validation.Struct(r)
}

type RegisterPseudoRequest struct {
	Pseudo string `json:"pseudo" validate:"required"`
}

func (r *RegisterPseudoRequest) Validate() error {
	return validation.Struct(r)
}

type UserResponse struct {
	*participant.Aggregate
	Level participant.Level `json:"level"`
}

// ── Handlers ────────────────────────────────────────────────────────────────

// POST /addUser
func (h *Handler) addUser(w http.ResponseWriter, r *http.Request) {
	var req AddUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	res, err := h.submissions.Submit(r.Context(), req.submission())
	if h.handleStoreError(w, err, "user") {
		return
	}
	respondJSON(w, http.StatusOK, AddUserResponse{
		Message: "submission stored",
		Grade:   res.Grade,
		User:    res.User,
	})
}

// POST /saveTime
func (h *Handler) saveTime(w http.ResponseWriter, r *http.Request) {
	var req SaveTimeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	u, err := h.submissions.RecordTime(r.Context(), req.Pseudo, *req.Time)
	if h.handleStoreError(w, err, "user") {
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"time": u.TotalTime})
}

// GET /getScore?pseudo=
func (h *Handler) getScore(w http.ResponseWriter, r *http.Request) {
	u, ok := h.lookupUser(w, r, r.URL.Query().Get("pseudo"))
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"score": u.TotalScore})
}

// GET /getTime?pseudo=
func (h *Handler) getTime(w http.ResponseWriter, r *http.Request) {
	u, ok := h.lookupUser(w, r, r.URL.Query().Get("pseudo"))
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"time": u.TotalTime})
}

// lookupUser returns the stored aggregate, or an empty one when the pseudo
// is unknown or blank.
func (h *Handler) lookupUser(w http.ResponseWriter, r *http.Request, pseudo string) (*participant.Aggregate, bool) {
	if strings.TrimSpace(pseudo) == "" {
		return participant.New(""), true
	}
	u, err := h.submissions.UserSummary(r.Context(), pseudo)
	if err == nil {
		return u, true
	}
	if errors.Is(err, store.ErrNotFound) {
		return participant.New(pseudo), true
	}
	h.handleStoreError(w, err, "user")
	return nil, false
}

// GET /users/{pseudo}
func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.submissions.UserSummary(r.Context(), pathParam(r, "pseudo"))
	if h.handleStoreError(w, err, "user") {
		return
	}
	respondJSON(w, http.StatusOK, UserResponse{Aggregate: u, Level: u.Level()})
}

// POST /registerPseudo
func (h *Handler) registerPseudo(w http.ResponseWriter, r *http.Request) {
	var req RegisterPseudoRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	pseudo := strings.TrimSpace(req.Pseudo)

	h.mu.Lock()
	h.lastPseudo = pseudo
	h.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     pseudoCookie,
		Value:    pseudo,
		Path:     "/",
		MaxAge:   int(h.opts.PseudoCookieTTL.Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
	respondJSON(w, http.StatusOK, messageResponse{Message: "pseudo registered"})
}

// GET /lastPseudo answers the cookie value, falling back to the last pseudo
// registered with this process.
func (h *Handler) getLastPseudo(w http.ResponseWriter, r *http.Request) {
	var pseudo *string
	if c, err := r.Cookie(pseudoCookie); err == nil && c.Value != "" {
		pseudo = &c.Value
	} else {
		h.mu.RLock()
		last := h.lastPseudo
		h.mu.RUnlock()
		if last != "" {
			pseudo = &last
		}
	}
	respondJSON(w, http.StatusOK, map[string]*string{"pseudo": pseudo})
}

// pathParam returns a decoded URL parameter.
func pathParam(r *http.Request, name string) string {
	return survey.Unescape(chi.URLParam(r, name))
}
