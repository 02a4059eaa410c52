package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/perceptio/backend/internal/domain/participant"
	"github.com/perceptio/backend/internal/domain/survey"
	"github.com/perceptio/backend/internal/grader"
	"github.com/perceptio/backend/internal/metrics"
	"github.com/perceptio/backend/internal/store"
)

// ErrInvalidSubmission is returned when a submission lacks a required field.
var ErrInvalidSubmission = errors.New("invalid submission")

// SubmissionResult is what a stored submission produced.
type SubmissionResult struct {
	Record survey.SessionRecord   `json:"record"`
	Grade  grader.Result          `json:"grade"`
	User   *participant.Aggregate `json:"user"`
}

// SubmissionService stores quiz answers and keeps per-user aggregates in
// step with them.
type SubmissionService struct {
	records store.RecordStore
	users   store.UserStore
	grader  grader.Grader
	logger  *slog.Logger
	now     func() time.Time
}

func NewSubmissionService(records store.RecordStore, users store.UserStore, g grader.Grader, logger *slog.Logger) *SubmissionService {
	return &SubmissionService{
		records: records,
		users:   users,
		grader:  g,
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock replaces the time source used to stamp records.
func (s *SubmissionService) SetClock(now func() time.Time) {
	s.now = now
}

// Submit appends the submission as a record, grades it and folds the grade
// into the user's aggregate. The record is kept even if the aggregate update
// fails; the error is still returned.
func (s *SubmissionService) Submit(ctx context.Context, sub survey.Submission) (*SubmissionResult, error) {
	if err := checkSubmission(sub); err != nil {
		metrics.RecordSubmission("invalid", 0)
		return nil, err
	}

	rec := sub.Record(s.now())
	if err := s.records.AppendRecord(ctx, rec); err != nil {
		metrics.RecordSubmission("error", 0)
		return nil, fmt.Errorf("append record: %w", err)
	}

	grade := s.grader.Grade(rec)
	user, err := s.users.UpdateUser(ctx, rec.User, func(a *participant.Aggregate) error {
		a.RecordSession(grade.Total, grade.Precision)
		return nil
	})
	if err != nil {
		metrics.RecordSubmission("error", 0)
		return nil, fmt.Errorf("update user %s: %w", rec.User, err)
	}

	metrics.RecordSubmission("stored", grade.Total)
	s.logger.Info("submission stored",
		"user", rec.User,
		"score", grade.Total,
		"precision", grade.Precision,
		"sessions", user.SessionCount,
	)
	return &SubmissionResult{Record: rec, Grade: grade, User: user}, nil
}

func checkSubmission(sub survey.Submission) error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"user", sub.User},
		{"resolution1", sub.Resolution1},
		{"resolution2", sub.Resolution2},
		{"QO1", sub.QO1},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidSubmission, strings.Join(missing, ", "))
	}
	return nil
}

// RecordTime adds seconds to the user's total time, creating the user when
// needed.
func (s *SubmissionService) RecordTime(ctx context.Context, pseudo string, seconds int) (*participant.Aggregate, error) {
	pseudo = strings.TrimSpace(pseudo)
	if pseudo == "" {
		return nil, fmt.Errorf("%w: missing pseudo", ErrInvalidSubmission)
	}
	if seconds < 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSubmission, participant.ErrNegativeTime)
	}
	return s.users.UpdateUser(ctx, pseudo, func(a *participant.Aggregate) error {
		return a.AddTime(seconds)
	})
}

// UserSummary returns the stored aggregate for pseudo, or store.ErrNotFound.
func (s *SubmissionService) UserSummary(ctx context.Context, pseudo string) (*participant.Aggregate, error) {
	return s.users.GetUser(ctx, strings.TrimSpace(pseudo))
}
