// Package app wires the backend's components from configuration.
package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/perceptio/backend/internal/api"
	"github.com/perceptio/backend/internal/catalog"
	"github.com/perceptio/backend/internal/domain/resolution"
	"github.com/perceptio/backend/internal/grader"
	"github.com/perceptio/backend/internal/infrastructure/config"
	"github.com/perceptio/backend/internal/infrastructure/logging"
	"github.com/perceptio/backend/internal/metrics"
	"github.com/perceptio/backend/internal/recommend"
	"github.com/perceptio/backend/internal/service"
	"github.com/perceptio/backend/internal/stats"
	"github.com/perceptio/backend/internal/store"
	"github.com/perceptio/backend/internal/supervisor"
	"github.com/perceptio/backend/internal/worker"
)

// App holds every long-lived component. Close releases them.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Ladder  *resolution.Ladder
	Records store.RecordStore
	Users   store.UserStore
	SQLite  *store.SQLiteStore // nil unless configured or present on disk
	Catalog *catalog.Catalog

	Submissions *service.SubmissionService
	Stats       *service.StatsService

	pool    *worker.Pool[any]
	closers []io.Closer
}

// New opens the configured stores and builds the services. Logs go to out.
func New(cfg *config.Config, out io.Writer) (*App, error) {
	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: out,
	})
	ladder, err := cfg.Ladder()
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger, Ladder: ladder}
	if err := a.openStores(); err != nil {
		a.Close()
		return nil, err
	}

	a.Catalog = catalog.New(catalog.Roots{
		Base:     cfg.Videos.BaseRoot,
		Licensed: cfg.Videos.LicensedRoot,
		Children: cfg.Videos.ChildrenRoot,
	}, ladder)

	a.pool = worker.NewPool[any](cfg.Workers.Count, cfg.Workers.Buffer)
	policy := recommend.Policy{Ladder: ladder, Threshold: cfg.Study.Threshold, SafeCeiling: cfg.Study.SafeCeiling}
	a.Submissions = service.NewSubmissionService(a.Records, a.Users, grader.New(ladder), logger)
	a.Stats = service.NewStatsService(a.Records, a.Users, stats.NewEngine(ladder), policy, a.pool, logger)
	return a, nil
}

func (a *App) openStores() error {
	st := a.Config.Storage

	needSQLite := st.Records == "sqlite" || st.Users == "sqlite"
	if !needSQLite {
		// The browser still works on a database left by an earlier migration.
		if _, err := os.Stat(st.SQLitePath); err == nil {
			needSQLite = true
		}
	}
	if needSQLite {
		if err := ensureDir(st.SQLitePath); err != nil {
			return err
		}
		db, err := store.NewSQLite(st.SQLitePath)
		if err != nil {
			return fmt.Errorf("open sqlite %s: %w", st.SQLitePath, err)
		}
		a.SQLite = db
		a.closers = append(a.closers, db)
	}

	switch st.Records {
	case "sqlite":
		a.Records = a.SQLite
	default:
		if err := ensureDir(st.CSVPath); err != nil {
			return err
		}
		csv, err := store.NewCSVRecordStore(st.CSVPath)
		if err != nil {
			return err
		}
		a.Records = csv
	}

	switch st.Users {
	case "sqlite":
		a.Users = a.SQLite
	case "badger":
		db, err := store.OpenBadger(st.BadgerDir)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, badgerCloser{db})
		a.Users = store.NewBadgerUserStore(db)
	default:
		if err := ensureDir(st.JSONPath); err != nil {
			return err
		}
		users, err := store.NewJSONUserStore(st.JSONPath)
		if err != nil {
			return err
		}
		a.Users = users
	}

	a.Logger.Info("stores opened",
		"records", st.Records,
		"users", st.Users,
		"browser", a.SQLite != nil,
	)
	return nil
}

type badgerCloser struct{ db *badger.DB }

func (b badgerCloser) Close() error { return b.db.Close() }

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}

// ScanCatalog rescans the video roots and publishes the counts.
func (a *App) ScanCatalog() (catalog.Counts, error) {
	counts, err := a.Catalog.Scan()
	if err != nil {
		return counts, err
	}
	publishCounts(counts)
	return counts, nil
}

func publishCounts(c catalog.Counts) {
	metrics.SetCatalogVideos(c.Base, c.Licensed, c.Children)
}

// Router builds the HTTP handler.
func (a *App) Router() http.Handler {
	var browser api.Browser
	if a.SQLite != nil {
		browser = a.SQLite
	}
	cfg := a.Config
	h := api.NewHandler(a.Submissions, a.Stats, a.Catalog, browser, api.Options{
		PseudoCookieTTL: cfg.Server.PseudoCookieTTL,
		IncludeLicensed: cfg.Videos.IncludeLicensed,
	}, a.Logger)

	roots := map[string]string{}
	for _, dir := range []string{cfg.Videos.BaseRoot, cfg.Videos.LicensedRoot, cfg.Videos.ChildrenRoot} {
		if dir != "" {
			roots[filepath.Base(dir)] = dir
		}
	}
	return api.NewRouter(h, api.RouterConfig{
		CORSOrigins:     cfg.Server.CORSOrigins,
		SubmitRateLimit: cfg.Server.SubmitRateLimit,
		StaticRoots:     roots,
	}, a.Logger)
}

// Tree builds the supervision tree for serving: the HTTP server and the
// periodic catalog rescan.
func (a *App) Tree() *supervisor.Tree {
	cfg := a.Config.Server
	tree := supervisor.NewTree(a.Logger, supervisor.TreeConfig{ShutdownTimeout: cfg.ShutdownTimeout})

	server := &http.Server{
		Addr:              cfg.Address,
		Handler:           a.Router(),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	tree.AddAPIService(supervisor.NewHTTPServerService(server, cfg.ShutdownTimeout))
	if a.Config.Videos.RescanInterval > 0 {
		tree.AddBackgroundService(catalog.NewRescanService(a.Catalog, a.Config.Videos.RescanInterval, a.Logger, publishCounts))
	}
	return tree
}

// Close stops the worker pool and closes the stores.
func (a *App) Close() error {
	if a.pool != nil {
		a.pool.Close()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}
