// Package store persists session records and participant aggregates.
package store

import (
	"context"
	"errors"

	"github.com/perceptio/backend/internal/domain/participant"
	"github.com/perceptio/backend/internal/domain/survey"
)

var (
	ErrNotFound = errors.New("not found")
)

// RecordStore is the append-only log of quiz sessions.
type RecordStore interface {
	AppendRecord(ctx context.Context, rec survey.SessionRecord) error
	// ListRecords returns every record in insertion order.
	ListRecords(ctx context.Context) ([]survey.SessionRecord, error)
}

// UpdateFunc mutates an aggregate in place. Returning an error aborts the
// update and leaves the stored aggregate untouched.
type UpdateFunc func(a *participant.Aggregate) error

// UserStore keeps one aggregate per pseudo.
type UserStore interface {
	// GetUser returns ErrNotFound for an unknown pseudo.
	GetUser(ctx context.Context, pseudo string) (*participant.Aggregate, error)
	// UpdateUser runs fn on the current aggregate (a fresh one on first use)
	// and persists the result. Updates of one store never interleave.
	UpdateUser(ctx context.Context, pseudo string, fn UpdateFunc) (*participant.Aggregate, error)
	ListUsers(ctx context.Context) ([]*participant.Aggregate, error)
}
