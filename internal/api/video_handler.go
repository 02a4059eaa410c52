package api

import (
	"net/http"
	"strconv"

	"github.com/perceptio/backend/internal/catalog"
)

// GET /api/get-videos?mode=&includeLicensed=
func (h *Handler) getVideos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	include := h.opts.IncludeLicensed
	if v := q.Get("includeLicensed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "includeLicensed must be true or false")
			return
		}
		include = b
	}
	mode := q.Get("mode")
	if mode == "" {
		mode = catalog.ModeAdult
	}
	respondJSON(w, http.StatusOK, h.catalog.Videos(mode, include))
}

// GET /videos/resolutions/{video}
func (h *Handler) getVideoResolutions(w http.ResponseWriter, r *http.Request) {
	rs, ok := h.catalog.Resolutions(pathParam(r, "video"))
	if !ok {
		respondError(w, http.StatusNotFound, "video not found")
		return
	}
	respondJSON(w, http.StatusOK, rs)
}
