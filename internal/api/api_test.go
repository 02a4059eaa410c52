package api_test

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/perceptio/backend/internal/api"
	"github.com/perceptio/backend/internal/catalog"
	"github.com/perceptio/backend/internal/domain/resolution"
	"github.com/perceptio/backend/internal/grader"
	"github.com/perceptio/backend/internal/id"
	"github.com/perceptio/backend/internal/recommend"
	"github.com/perceptio/backend/internal/service"
	"github.com/perceptio/backend/internal/stats"
	"github.com/perceptio/backend/internal/store"
	"github.com/perceptio/backend/internal/worker"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newServer wires a router over a temporary SQLite database and a catalog
// holding one video at 480p and 720p. withBrowser controls whether the
// database browser endpoints are enabled.
func newServer(t *testing.T, withBrowser bool) http.Handler {
	t.Helper()
	dir := t.TempDir()

	db, err := store.NewSQLite(filepath.Join(dir, "database.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	videoRoot := filepath.Join(dir, "Videos_Creative_Common")
	clipDir := filepath.Join(videoRoot, "Nature", "Forest Walk")
	if err := os.MkdirAll(clipDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, f := range []string{"segment_480p.mp4", "segment_720p.mp4"} {
		if err := os.WriteFile(filepath.Join(clipDir, f), []byte("clip "+f), 0o644); err != nil {
			t.Fatalf("write clip: %v", err)
		}
	}

	ladder := resolution.Default()
	cat := catalog.New(catalog.Roots{Base: videoRoot}, ladder)
	if _, err := cat.Scan(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	pool := worker.NewPool[any](2, 4)
	t.Cleanup(pool.Close)

	submissions := service.NewSubmissionService(db, db, grader.New(ladder), quietLogger())
	statsSvc := service.NewStatsService(db, db, stats.NewEngine(ladder), recommend.DefaultPolicy(ladder), pool, quietLogger())

	var browser api.Browser
	if withBrowser {
		browser = db
	}
	h := api.NewHandler(submissions, statsSvc, cat, browser, api.Options{IncludeLicensed: true}, quietLogger())
	return api.NewRouter(h, api.RouterConfig{
		CORSOrigins: []string{"*"},
		StaticRoots: map[string]string{"Videos_Creative_Common": videoRoot},
	}, quietLogger())
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func submit(t *testing.T, h http.Handler, user, res1, res2, guesses, ratings, pref, device string) {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/addUser", map[string]string{
		"user":        user,
		"videoPath1":  "Videos_Creative_Common/Nature/Forest%20Walk/segment_" + res1 + ".mp4",
		"resolution1": res1,
		"videoPath2":  "Videos_Creative_Common/Nature/Forest%20Walk/segment_" + res2 + ".mp4",
		"resolution2": res2,
		"QO1":         guesses,
		"QO2":         ratings,
		"QO3":         pref,
		"screenType":  device,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("addUser status = %d, body %s", rec.Code, rec.Body)
	}
}

func TestHealthAndRequestID(t *testing.T) {
	h := newServer(t, false)

	rec := do(t, h, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decode[map[string]string](t, rec)["status"]; got != "ok" {
		t.Errorf("status field = %q", got)
	}
	if rec.Header().Get(id.Header) == "" {
		t.Error("response has no request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(id.Header, "trace-42")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get(id.Header); got != "trace-42" {
		t.Errorf("request id = %q, want the client's trace-42", got)
	}
}

func TestAddUser(t *testing.T) {
	h := newServer(t, false)

	rec := do(t, h, http.MethodPost, "/addUser", map[string]string{
		"user":        "neo",
		"videoPath1":  "Videos_Creative_Common/Nature/Forest%20Walk/segment_720p.mp4",
		"resolution1": "720p",
		"videoPath2":  "Videos_Creative_Common/Nature/Forest%20Walk/segment_1080p.mp4",
		"resolution2": "1080p",
		"QO1":         "(720p, 1080p)",
		"QO2":         "(correct, verySatisfactory)",
		"QO3":         "second",
		"screenType":  "pc",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	got := decode[api.AddUserResponse](t, rec)
	if got.Grade.Total != 5 || got.User.SessionCount != 1 || got.User.TotalScore != 5 {
		t.Errorf("response = %+v / %+v", got.Grade, got.User)
	}

	rec = do(t, h, http.MethodPost, "/addUser", map[string]string{"user": "neo", "resolution1": "720p"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing fields status = %d", rec.Code)
	}
	if msg := decode[map[string]string](t, rec)["message"]; !strings.Contains(msg, "Resolution2 is required") {
		t.Errorf("message = %q", msg)
	}

	rec = do(t, h, http.MethodPost, "/addUser", map[string]string{
		"user": "neo", "resolution1": "720p", "resolution2": "1080p", "QO1": "   ",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank QO1 status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/addUser", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d", rr.Code)
	}
}

func TestScoreAndTime(t *testing.T) {
	h := newServer(t, false)
	submit(t, h, "neo", "720p", "1080p", "(720p, 1080p)", "(correct, correct)", "second", "pc")

	if got := decode[map[string]int](t, do(t, h, http.MethodGet, "/getScore?pseudo=neo", nil))["score"]; got != 5 {
		t.Errorf("score = %d, want 5", got)
	}
	if got := decode[map[string]int](t, do(t, h, http.MethodGet, "/getScore?pseudo=ghost", nil))["score"]; got != 0 {
		t.Errorf("unknown score = %d, want 0", got)
	}

	for _, secs := range []int{30, 15} {
		rec := do(t, h, http.MethodPost, "/saveTime", map[string]any{"pseudo": "neo", "time": secs})
		if rec.Code != http.StatusOK {
			t.Fatalf("saveTime status = %d, body %s", rec.Code, rec.Body)
		}
	}
	if got := decode[map[string]int](t, do(t, h, http.MethodGet, "/getTime?pseudo=neo", nil))["time"]; got != 45 {
		t.Errorf("time = %d, want 45", got)
	}

	if rec := do(t, h, http.MethodPost, "/saveTime", map[string]any{"pseudo": "neo", "time": -3}); rec.Code != http.StatusBadRequest {
		t.Errorf("negative time status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/saveTime", map[string]any{"pseudo": "neo"}); rec.Code != http.StatusBadRequest {
		t.Errorf("missing time status = %d", rec.Code)
	}
}

func TestGetUser(t *testing.T) {
	h := newServer(t, false)
	submit(t, h, "neo", "720p", "1080p", "(720p, 1080p)", "(correct, correct)", "second", "pc")

	rec := do(t, h, http.MethodGet, "/users/neo", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decode[map[string]any](t, rec)
	if got["pseudo"] != "neo" || got["totalScore"] != float64(5) {
		t.Errorf("user = %v", got)
	}
	level, _ := got["level"].(map[string]any)
	if level["name"] != "beginner" || level["remaining"] != float64(25) {
		t.Errorf("level = %v", level)
	}

	rec = do(t, h, http.MethodGet, "/users/ghost", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown user status = %d", rec.Code)
	}
}

func TestStatisticsEndpoints(t *testing.T) {
	h := newServer(t, false)
	submit(t, h, "neo", "480p", "720p", "(480p, 720p)", "(correct, verySatisfactory)", "second", "pc")
	submit(t, h, "neo", "480p", "720p", "(720p, 720p)", "(correct, correct)", "second", "pc")
	submit(t, h, "trinity", "480p", "720p", "(360p, 720p)", "(bad, correct)", "second", "mobile")

	if got := decode[api.PrecisionResponse](t, do(t, h, http.MethodGet, "/precision/neo", nil)); got.Precision != "75.00" {
		t.Errorf("precision = %q, want 75.00", got.Precision)
	}
	if got := decode[api.PrecisionResponse](t, do(t, h, http.MethodGet, "/precision/nobody", nil)); got.Precision != "0.00" {
		t.Errorf("precision without records = %q, want 0.00", got.Precision)
	}

	conf := decode[[]stats.Confusion](t, do(t, h, http.MethodGet, "/global-confusions", nil))
	want := []stats.Confusion{{Pair: "480p → 360p", Count: 1}, {Pair: "480p → 720p", Count: 1}}
	if len(conf) != len(want) || conf[0] != want[0] || conf[1] != want[1] {
		t.Errorf("confusions = %v, want %v", conf, want)
	}

	byUser := decode[stats.SlotCounts](t, do(t, h, http.MethodGet, "/satisfaction/NEO", nil))
	if byUser[stats.SlotVideo1]["480p"]["correct"] != 2 {
		t.Errorf("satisfaction/NEO = %v", byUser)
	}

	perception := decode[map[string]stats.PerceptionTally](t, do(t, h, http.MethodGet, "/stats/video-perception/Forest%20Walk", nil))
	if p := perception["480p"]; p.Total != 3 || p.Correct != 1 || p.Overestimation != 1 || p.Underestimation != 1 {
		t.Errorf("perception 480p = %+v", p)
	}

	avg := decode[service.GlobalPrecision](t, do(t, h, http.MethodGet, "/precision_moyenne_globale", nil))
	if avg.Users != 2 {
		t.Errorf("average precision = %+v", avg)
	}

	rec := do(t, h, http.MethodGet, "/global-stats/dashboard", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d", rec.Code)
	}
	if d := decode[stats.Dashboard](t, rec); d.Records != 3 || d.PairedSatisfaction["480p-720p"] == nil {
		t.Errorf("dashboard = %+v", d)
	}

	if rec := do(t, h, http.MethodGet, "/stats/kind/global-satisfaction", nil); rec.Code != http.StatusOK {
		t.Errorf("stats by name status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/stats/kind/precision", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("missing filter status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/stats/kind/nonsense", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown kind status = %d", rec.Code)
	}
}

func TestRecommendationEndpoints(t *testing.T) {
	h := newServer(t, false)
	submit(t, h, "neo", "480p", "720p", "(480p, 720p)", "(correct, verySatisfactory)", "second", "pc")
	submit(t, h, "trinity", "480p", "720p", "(480p, 720p)", "(bad, correct)", "second", "mobile")

	got := decode[api.RecommendationResponse](t, do(t, h, http.MethodGet, "/stats/recommendation/Forest%20Walk?device=pc", nil))
	if got.Recommendation == nil || *got.Recommendation != "480p" {
		t.Errorf("pc recommendation = %+v", got)
	}
	if strings.Join(got.Candidates, ",") != "480p,720p" {
		t.Errorf("candidates from catalog = %v", got.Candidates)
	}

	got = decode[api.RecommendationResponse](t, do(t, h, http.MethodGet, "/stats/recommendation?device=mobile&resolutions=480p,720p", nil))
	if got.Recommendation == nil || *got.Recommendation != "720p" {
		t.Errorf("mobile recommendation = %+v", got)
	}

	rec := do(t, h, http.MethodGet, "/stats/recommendation?device=pc&resolutions=8k", nil)
	if !strings.Contains(rec.Body.String(), `"recommendation":null`) {
		t.Errorf("off-ladder body = %s, want null recommendation", rec.Body)
	}
}

func TestPseudoCookie(t *testing.T) {
	h := newServer(t, false)

	if got := decode[map[string]*string](t, do(t, h, http.MethodGet, "/lastPseudo", nil))["pseudo"]; got != nil {
		t.Errorf("pseudo before registration = %q", *got)
	}

	rec := do(t, h, http.MethodPost, "/registerPseudo", map[string]string{"pseudo": "neo"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != "neo" || cookies[0].MaxAge != 600 || cookies[0].SameSite != http.SameSiteLaxMode {
		t.Fatalf("cookies = %+v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/lastPseudo", nil)
	req.AddCookie(&http.Cookie{Name: "userPseudo", Value: "trinity"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := decode[map[string]*string](t, rr)["pseudo"]; got == nil || *got != "trinity" {
		t.Errorf("cookie pseudo = %v, want trinity", got)
	}

	if got := decode[map[string]*string](t, do(t, h, http.MethodGet, "/lastPseudo", nil))["pseudo"]; got == nil || *got != "neo" {
		t.Errorf("fallback pseudo = %v, want neo", got)
	}
}

func TestVideoEndpoints(t *testing.T) {
	h := newServer(t, false)

	videos := decode[[]catalog.Video](t, do(t, h, http.MethodGet, "/api/get-videos?mode=adult&includeLicensed=false", nil))
	if len(videos) != 1 || videos[0].Name != "Forest Walk" {
		t.Fatalf("videos = %+v", videos)
	}
	if rec := do(t, h, http.MethodGet, "/api/get-videos?includeLicensed=maybe", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad includeLicensed status = %d", rec.Code)
	}

	rs := decode[[]string](t, do(t, h, http.MethodGet, "/videos/resolutions/Forest%20Walk", nil))
	if strings.Join(rs, ",") != "480p,720p" {
		t.Errorf("resolutions = %v", rs)
	}
	if rec := do(t, h, http.MethodGet, "/videos/resolutions/Nope", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown video status = %d", rec.Code)
	}

	rec := do(t, h, http.MethodGet, "/Videos_Creative_Common/Nature/Forest%20Walk/segment_480p.mp4", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "clip segment_480p.mp4" {
		t.Errorf("static file = %d %q", rec.Code, rec.Body)
	}
}

func TestDatabaseBrowser(t *testing.T) {
	h := newServer(t, true)
	submit(t, h, "neo", "480p", "720p", "(480p, 720p)", "(correct, correct)", "second", "pc")
	submit(t, h, "trinity", "144p", "4k", "(144p, 4k)", "(bad, correct)", "second", "mobile")

	summary := decode[store.Summary](t, do(t, h, http.MethodGet, "/api/db/summary", nil))
	if summary.Counts["sessions"] != 2 || summary.Counts["users"] != 2 {
		t.Errorf("summary counts = %v", summary.Counts)
	}

	sessions := decode[api.SessionsResponse](t, do(t, h, http.MethodGet, "/api/db/sessions?q=trin&limit=999", nil))
	if sessions.Limit != store.MaxPageSize || sessions.Total != 1 || sessions.Rows[0].User != "trinity" {
		t.Errorf("sessions = %+v", sessions)
	}

	users := decode[api.UsersResponse](t, do(t, h, http.MethodGet, "/api/db/users?limit=abc", nil))
	if users.Limit != store.DefaultPageSize || users.Total != 2 {
		t.Errorf("users = %+v", users)
	}

	res := decode[map[string][]string](t, do(t, h, http.MethodGet, "/api/db/resolutions", nil))
	if got := strings.Join(res["resolutions"], ","); got != "144p,480p,720p,4k" {
		t.Errorf("resolutions = %s", got)
	}

	if rec := do(t, h, http.MethodGet, "/api/db/session/1", nil); rec.Code != http.StatusOK {
		t.Errorf("session 1 status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/db/session/abc", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/db/session/999", nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing session status = %d", rec.Code)
	}
}

func TestDatabaseBrowserDisabled(t *testing.T) {
	h := newServer(t, false)
	if rec := do(t, h, http.MethodGet, "/api/db/summary", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
