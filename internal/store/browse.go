package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/perceptio/backend/internal/domain/participant"
	"github.com/perceptio/backend/internal/domain/survey"
)

// Paging bounds for browser queries.
const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// StoredSession is a session record with its database id.
type StoredSession struct {
	ID int64 `json:"id"`
	survey.SessionRecord
}

// Summary describes the database contents.
type Summary struct {
	Database      string         `json:"database"`
	Tables        []string       `json:"tables"`
	Counts        map[string]int `json:"counts"`
	LatestSession *string        `json:"latestSession"`
}

// Page is one window of a browser listing.
type Page[T any] struct {
	Total int `json:"total"`
	Rows  []T `json:"rows"`
}

// SessionQuery filters and orders the session listing.
type SessionQuery struct {
	Q          string
	Limit      int
	Offset     int
	StartDate  string // YYYY-MM-DD, inclusive
	EndDate    string // YYYY-MM-DD, inclusive
	Resolution string
	SortBy     string
	SortDir    string
}

// UserQuery filters the user listing by pseudo substring.
type UserQuery struct {
	Q      string
	Limit  int
	Offset int
}

var sortableColumns = map[string]bool{
	"id": true, "user": true,
	"category1": true, "videoName1": true, "resolution1": true,
	"category2": true, "videoName2": true, "resolution2": true,
	"screenType": true, "timestamp": true,
}

// ClampPage bounds limit to [1, MaxPageSize] and offset to >= 0. A
// non-positive limit selects DefaultPageSize.
func ClampPage(limit, offset int) (int, int) {
	switch {
	case limit <= 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// orderBy only ever emits whitelisted column names.
func (q SessionQuery) orderBy() string {
	dir := "ASC"
	if strings.EqualFold(strings.TrimSpace(q.SortDir), "desc") {
		dir = "DESC"
	}
	if sortableColumns[q.SortBy] {
		return "ORDER BY " + q.SortBy + " " + dir + ", id ASC"
	}
	return "ORDER BY datetime(timestamp) " + dir + ", id ASC"
}

func (q SessionQuery) where() (string, []any) {
	var clauses []string
	var args []any

	if q.Q != "" {
		like := "%" + q.Q + "%"
		clauses = append(clauses, `(user LIKE ? OR category1 LIKE ? OR videoName1 LIKE ? OR videoName2 LIKE ?
            OR resolution1 LIKE ? OR resolution2 LIKE ? OR screenType LIKE ?)`)
		for range 7 {
			args = append(args, like)
		}
	}
	if q.StartDate != "" {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, q.StartDate+"T00:00:00.000Z")
	}
	if q.EndDate != "" {
		clauses = append(clauses, "timestamp <= ?")
		args = append(args, q.EndDate+"T23:59:59.999Z")
	}
	if q.Resolution != "" {
		clauses = append(clauses, "(resolution1 = ? OR resolution2 = ?)")
		args = append(args, q.Resolution, q.Resolution)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

func (s *SQLiteStore) Summary(ctx context.Context) (*Summary, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	sum := &Summary{
		Database: filepath.Base(s.path),
		Tables:   []string{},
		Counts:   map[string]int{"sessions": 0, "users": 0},
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		sum.Tables = append(sum.Tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, table := range []string{"sessions", "users"} {
		var n int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		sum.Counts[table] = n
	}

	var latest string
	err = s.db.QueryRowContext(ctx, "SELECT timestamp FROM sessions ORDER BY timestamp DESC LIMIT 1").Scan(&latest)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("latest session: %w", err)
	default:
		sum.LatestSession = &latest
	}
	return sum, nil
}

func (s *SQLiteStore) Sessions(ctx context.Context, q SessionQuery) (*Page[StoredSession], error) {
	q.Limit, q.Offset = ClampPage(q.Limit, q.Offset)
	where, args := q.where()

	page := &Page[StoredSession]{Rows: []StoredSession{}}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions "+where, args...).Scan(&page.Total); err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}

	query := selectSessions + " " + where + " " + q.orderBy() + " LIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, query, append(args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		stored, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		page.Rows = append(page.Rows, *stored)
	}
	return page, rows.Err()
}

func (s *SQLiteStore) Users(ctx context.Context, q UserQuery) (*Page[participant.Aggregate], error) {
	q.Limit, q.Offset = ClampPage(q.Limit, q.Offset)

	var where string
	var args []any
	if q.Q != "" {
		where = "WHERE pseudo LIKE ?"
		args = append(args, "%"+q.Q+"%")
	}

	page := &Page[participant.Aggregate]{Rows: []participant.Aggregate{}}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users "+where, args...).Scan(&page.Total); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	query := selectUser + " " + where + " ORDER BY pseudo COLLATE NOCASE ASC LIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, query, append(args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a participant.Aggregate
		if err := rows.Scan(&a.Pseudo, &a.TotalScore, &a.TotalTime, &a.SessionCount, &a.Precision); err != nil {
			return nil, err
		}
		page.Rows = append(page.Rows, a)
	}
	return page, rows.Err()
}

// Resolutions lists the distinct non-empty resolutions shown in any slot.
func (s *SQLiteStore) Resolutions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT resolution1 AS res FROM sessions WHERE resolution1 IS NOT NULL AND resolution1 <> ''
UNION
SELECT resolution2 AS res FROM sessions WHERE resolution2 IS NOT NULL AND resolution2 <> ''`)
	if err != nil {
		return nil, fmt.Errorf("list resolutions: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SessionByID(ctx context.Context, id int64) (*StoredSession, error) {
	stored, err := scanSession(s.db.QueryRowContext(ctx, selectSessions+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return stored, nil
}
