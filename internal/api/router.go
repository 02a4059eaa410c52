package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/perceptio/backend/internal/stats"
)

// RouterConfig carries the transport settings of the router.
type RouterConfig struct {
	CORSOrigins     []string
	SubmitRateLimit int               // per minute per IP, 0 disables
	StaticRoots     map[string]string // URL prefix -> directory
}

// NewRouter builds the complete HTTP handler: middleware, API routes and
// static video roots.
func NewRouter(h *Handler, cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logging(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(CORS(cfg.CORSOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	RegisterRoutes(r, h, cfg.SubmitRateLimit)

	for prefix, dir := range cfg.StaticRoots {
		mountStatic(r, prefix, dir)
	}
	return r
}

// RegisterRoutes mounts every API endpoint on r.
func RegisterRoutes(r chi.Router, h *Handler, submitRateLimit int) {
	// Videos
	r.Get("/api/get-videos", h.getVideos)
	r.Get("/videos/resolutions/{video}", h.getVideoResolutions)

	// Submissions and participants
	r.Group(func(r chi.Router) {
		r.Use(SubmitRateLimit(submitRateLimit))
		r.Post("/addUser", h.addUser)
		r.Post("/saveTime", h.saveTime)
		r.Post("/registerPseudo", h.registerPseudo)
	})
	r.Get("/getScore", h.getScore)
	r.Get("/getTime", h.getTime)
	r.Get("/users/{pseudo}", h.getUser)
	r.Get("/lastPseudo", h.getLastPseudo)

	// Personal statistics
	r.Get("/precision/{user}", h.precision)
	r.Get("/satisfaction/{user}", h.computeKind(stats.SatisfactionByUser, "user"))
	r.Get("/satisfaction-by-device/{user}", h.computeKind(stats.SatisfactionByDevice, "user"))
	r.Get("/confusions/{user}", h.computeKind(stats.Confusions, "user"))

	// Global statistics
	r.Get("/global-satisfaction", h.computeKind(stats.GlobalSatisfaction, ""))
	r.Get("/global-satisfaction-by-device", h.computeKind(stats.SatisfactionByDevice, ""))
	r.Get("/global-confusions", h.computeKind(stats.Confusions, ""))
	r.Get("/global-paired-satisfaction-distribution", h.computeKind(stats.PairedSatisfaction, ""))
	r.Route("/global-stats", func(r chi.Router) {
		r.Get("/satisfaction-by-category", h.computeKind(stats.SatisfactionByCategory, ""))
		r.Get("/perception-by-category", h.computeKind(stats.PerceptionByCategory, ""))
		r.Get("/satisfaction-detailed", h.computeKind(stats.SatisfactionDetailed, ""))
		r.Get("/dashboard", h.dashboard)
	})
	r.Get("/precision_moyenne_globale", h.averagePrecision)

	// Per-video statistics and recommendations
	r.Route("/stats", func(r chi.Router) {
		r.Get("/video-perception/{video}", h.computeKind(stats.VideoPerception, "video"))
		r.Get("/satisfaction-by-video-device/{video}", h.computeKind(stats.SatisfactionByVideoDevice, "video"))
		r.Get("/recommendation", h.recommendGlobal)
		r.Get("/recommendation/{video}", h.recommendForVideo)
		r.Get("/kind/{kind}", h.statsByName)
	})

	// Database browser
	r.Route("/api/db", func(r chi.Router) {
		r.Get("/summary", h.dbSummary)
		r.Get("/sessions", h.dbSessions)
		r.Get("/users", h.dbUsers)
		r.Get("/resolutions", h.dbResolutions)
		r.Get("/session/{id}", h.dbSession)
	})
}

// mountStatic serves dir under /prefix/.
func mountStatic(r chi.Router, prefix, dir string) {
	prefix = "/" + strings.Trim(prefix, "/")
	fs := http.StripPrefix(prefix+"/", http.FileServer(http.Dir(dir)))
	r.Get(prefix+"/*", fs.ServeHTTP)
}
