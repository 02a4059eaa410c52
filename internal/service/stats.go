package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/perceptio/backend/internal/domain/survey"
	"github.com/perceptio/backend/internal/metrics"
	"github.com/perceptio/backend/internal/recommend"
	"github.com/perceptio/backend/internal/stats"
	"github.com/perceptio/backend/internal/store"
	"github.com/perceptio/backend/internal/worker"
)

// GlobalPrecision is the mean of every stored user precision.
type GlobalPrecision struct {
	Mean  float64 `json:"moyenne"`
	Users int     `json:"utilisateurs"`
}

// StatsService answers statistics queries from a fresh read of the record
// store. Reads never block one another and no result is cached.
type StatsService struct {
	records store.RecordStore
	users   store.UserStore
	engine  *stats.Engine
	policy  recommend.Policy
	pool    *worker.Pool[any]
	logger  *slog.Logger
}

// NewStatsService wires the service. pool may be nil, in which case
// dashboards are computed sequentially.
func NewStatsService(records store.RecordStore, users store.UserStore, engine *stats.Engine,
	policy recommend.Policy, pool *worker.Pool[any], logger *slog.Logger) *StatsService {
	return &StatsService{
		records: records,
		users:   users,
		engine:  engine,
		policy:  policy,
		pool:    pool,
		logger:  logger,
	}
}

// Engine returns the aggregation engine.
func (s *StatsService) Engine() *stats.Engine {
	return s.engine
}

func (s *StatsService) snapshot(ctx context.Context) ([]survey.SessionRecord, error) {
	recs, err := s.records.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	return recs, nil
}

// Compute reads all records and runs one aggregation over them.
func (s *StatsService) Compute(ctx context.Context, kind stats.Kind, filter string) (any, error) {
	start := time.Now()
	recs, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out, err := s.engine.Compute(kind, filter, recs)
	if err != nil {
		return nil, err
	}
	metrics.RecordStats(kind.String(), time.Since(start))
	return out, nil
}

// Precision returns a user's guess accuracy over all their records.
func (s *StatsService) Precision(ctx context.Context, user string) (float64, error) {
	out, err := s.Compute(ctx, stats.Precision, user)
	if err != nil {
		return 0, err
	}
	return out.(float64), nil
}

// Dashboard computes every unfiltered aggregation over a single snapshot,
// fanned out over the worker pool.
func (s *StatsService) Dashboard(ctx context.Context) (*stats.Dashboard, error) {
	start := time.Now()
	recs, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if s.pool == nil {
		return s.engine.Dashboard(recs)
	}

	jobs := make(map[string]worker.Job[any], len(stats.DashboardKinds()))
	for _, kind := range stats.DashboardKinds() {
		jobs[kind.String()] = func(context.Context) (any, error) {
			return s.engine.Compute(kind, "", recs)
		}
	}
	outputs, err := s.pool.Run(ctx, jobs)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}

	results := make(map[stats.Kind]any, len(outputs))
	for name, v := range outputs {
		kind, err := stats.ParseKind(name)
		if err != nil {
			return nil, err
		}
		results[kind] = v
	}
	d, err := stats.NewDashboard(len(recs), results)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("dashboard computed", "records", len(recs), "duration", time.Since(start))
	return d, nil
}

// AveragePrecision averages the stored running precision of every user.
func (s *StatsService) AveragePrecision(ctx context.Context) (GlobalPrecision, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return GlobalPrecision{}, fmt.Errorf("list users: %w", err)
	}
	var sum float64
	for _, u := range users {
		sum += u.Precision
	}
	out := GlobalPrecision{Users: len(users)}
	if len(users) > 0 {
		out.Mean = sum / float64(len(users))
	}
	return out, nil
}

// RecommendForVideo picks a resolution for one video from the ratings that
// video received on device.
func (s *StatsService) RecommendForVideo(ctx context.Context, video, device string, candidates []string) (string, bool, error) {
	out, err := s.Compute(ctx, stats.SatisfactionByVideoDevice, video)
	if err != nil {
		return "", false, err
	}
	r, ok := s.policy.Recommend(out.(stats.DeviceCounts), device, candidates)
	metrics.RecordRecommendation(ok)
	return r, ok, nil
}

// RecommendGlobal picks a resolution from the ratings of every video on
// device.
func (s *StatsService) RecommendGlobal(ctx context.Context, device string, candidates []string) (string, bool, error) {
	out, err := s.Compute(ctx, stats.SatisfactionByDevice, "")
	if err != nil {
		return "", false, err
	}
	r, ok := s.policy.Recommend(out.(stats.DeviceCounts), device, candidates)
	metrics.RecordRecommendation(ok)
	return r, ok, nil
}
