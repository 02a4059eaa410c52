package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/perceptio/backend/internal/stats"
)

type PrecisionResponse struct {
	Precision string `json:"precision"` // two decimals
}

type RecommendationResponse struct {
	Video          string   `json:"video,omitempty"`
	Device         string   `json:"device"`
	Candidates     []string `json:"candidates"`
	Recommendation *string  `json:"recommendation"` // null when no candidate is on the ladder
}

// computeKind serves one aggregation. param names the URL parameter holding
// the filter; "" serves the unfiltered form.
func (h *Handler) computeKind(kind stats.Kind, param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := ""
		if param != "" {
			filter = pathParam(r, param)
		}
		out, err := h.stats.Compute(r.Context(), kind, filter)
		if h.handleStoreError(w, err, "records") {
			return
		}
		respondJSON(w, http.StatusOK, out)
	}
}

// GET /stats/kind/{kind}?filter= serves any aggregation by name.
func (h *Handler) statsByName(w http.ResponseWriter, r *http.Request) {
	kind, err := stats.ParseKind(pathParam(r, "kind"))
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	out, err := h.stats.Compute(r.Context(), kind, r.URL.Query().Get("filter"))
	if h.handleStoreError(w, err, "records") {
		return
	}
	respondJSON(w, http.StatusOK, out)
}

// GET /precision/{user}
func (h *Handler) precision(w http.ResponseWriter, r *http.Request) {
	p, err := h.stats.Precision(r.Context(), pathParam(r, "user"))
	if h.handleStoreError(w, err, "records") {
		return
	}
	respondJSON(w, http.StatusOK, PrecisionResponse{Precision: fmt.Sprintf("%.2f", p)})
}

// GET /precision_moyenne_globale
func (h *Handler) averagePrecision(w http.ResponseWriter, r *http.Request) {
	out, err := h.stats.AveragePrecision(r.Context())
	if h.handleStoreError(w, err, "users") {
		return
	}
	respondJSON(w, http.StatusOK, out)
}

// GET /global-stats/dashboard
func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.stats.Dashboard(r.Context())
	if h.handleStoreError(w, err, "records") {
		return
	}
	respondJSON(w, http.StatusOK, d)
}

// GET /stats/recommendation/{video}?device=&resolutions=
// Without explicit resolutions the video's catalog resolutions are used.
func (h *Handler) recommendForVideo(w http.ResponseWriter, r *http.Request) {
	video := pathParam(r, "video")
	device := r.URL.Query().Get("device")
	candidates := splitList(r.URL.Query().Get("resolutions"))
	if len(candidates) == 0 && h.catalog != nil {
		candidates, _ = h.catalog.Resolutions(video)
	}

	rec, ok, err := h.stats.RecommendForVideo(r.Context(), video, device, candidates)
	if h.handleStoreError(w, err, "records") {
		return
	}
	respondJSON(w, http.StatusOK, recommendation(video, device, candidates, rec, ok))
}

// GET /stats/recommendation?device=&resolutions=
// Without explicit resolutions the whole ladder is considered.
func (h *Handler) recommendGlobal(w http.ResponseWriter, r *http.Request) {
	device := r.URL.Query().Get("device")
	candidates := splitList(r.URL.Query().Get("resolutions"))
	if len(candidates) == 0 {
		candidates = h.ladder.Order()
	}

	rec, ok, err := h.stats.RecommendGlobal(r.Context(), device, candidates)
	if h.handleStoreError(w, err, "records") {
		return
	}
	respondJSON(w, http.StatusOK, recommendation("", device, candidates, rec, ok))
}

func recommendation(video, device string, candidates []string, rec string, ok bool) RecommendationResponse {
	out := RecommendationResponse{Video: video, Device: device, Candidates: candidates}
	if out.Candidates == nil {
		out.Candidates = []string{}
	}
	if ok {
		out.Recommendation = &rec
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
