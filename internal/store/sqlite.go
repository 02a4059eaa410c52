package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/perceptio/backend/internal/domain/participant"
	"github.com/perceptio/backend/internal/domain/survey"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user TEXT NOT NULL,
    category1 TEXT,
    videoName1 TEXT,
    videoPath1 TEXT,
    resolution1 TEXT,
    category2 TEXT,
    videoName2 TEXT,
    videoPath2 TEXT,
    resolution2 TEXT,
    QO1 TEXT,
    QO2 TEXT,
    QO3 TEXT,
    QO4 TEXT,
    QO5 TEXT,
    comments TEXT,
    screenType TEXT,
    timestamp TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user);
CREATE INDEX IF NOT EXISTS idx_sessions_timestamp ON sessions(timestamp);

CREATE TABLE IF NOT EXISTS users (
    pseudo TEXT PRIMARY KEY,
    totalScore INTEGER DEFAULT 0,
    totalTime INTEGER DEFAULT 0,
    sessionCount INTEGER DEFAULT 0,
    precision REAL DEFAULT 0
);
`

// SQLiteStore holds sessions and user aggregates in one SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
	mu   sync.Mutex // serializes user read-modify-write
}

var (
	_ RecordStore = (*SQLiteStore)(nil)
	_ UserStore   = (*SQLiteStore)(nil)
)

func NewSQLite(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db, path: dbPath}, nil
}

// sqliteDSN enables WAL and a busy timeout on every pooled connection.
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Sessions
// ============================================================================

var insertSession = `INSERT INTO sessions (` + strings.Join(columns, ", ") + `)
VALUES (` + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + `)`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteStore) AppendRecord(ctx context.Context, rec survey.SessionRecord) error {
	_, err := appendRecord(ctx, s.db, rec)
	return err
}

func appendRecord(ctx context.Context, db execer, rec survey.SessionRecord) (int64, error) {
	fields := recordFields(rec)
	args := make([]any, len(fields))
	for i, f := range fields {
		args[i] = f
	}
	res, err := db.ExecContext(ctx, insertSession, args...)
	if err != nil {
		return 0, fmt.Errorf("insert session: %w", err)
	}
	return res.LastInsertId()
}

var selectSessions = `SELECT id, ` + strings.Join(columns, ", ") + ` FROM sessions`

func (s *SQLiteStore) ListRecords(ctx context.Context) ([]survey.SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectSessions+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	recs := []survey.SessionRecord{}
	for rows.Next() {
		stored, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, stored.SessionRecord)
	}
	return recs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*StoredSession, error) {
	var id int64
	values := make([]sql.NullString, len(columns))
	dest := make([]any, 0, len(columns)+1)
	dest = append(dest, &id)
	for i := range values {
		dest = append(dest, &values[i])
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}
	rec := recordFrom(func(column string) string {
		return values[index[column]].String
	})
	return &StoredSession{ID: id, SessionRecord: rec}, nil
}

// ============================================================================
// Users
// ============================================================================

const selectUser = `SELECT pseudo, totalScore, totalTime, sessionCount, precision FROM users`

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getUser(ctx context.Context, db queryRower, pseudo string) (*participant.Aggregate, error) {
	var a participant.Aggregate
	err := db.QueryRowContext(ctx, selectUser+" WHERE pseudo = ?", pseudo).
		Scan(&a.Pseudo, &a.TotalScore, &a.TotalTime, &a.SessionCount, &a.Precision)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &a, nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, pseudo string) (*participant.Aggregate, error) {
	return getUser(ctx, s.db, pseudo)
}

func (s *SQLiteStore) UpdateUser(ctx context.Context, pseudo string, fn UpdateFunc) (*participant.Aggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	a, err := getUser(ctx, tx, pseudo)
	if errors.Is(err, ErrNotFound) {
		a = participant.New(pseudo)
		a.Pseudo = pseudo
	} else if err != nil {
		return nil, err
	}

	if err := fn(a); err != nil {
		return nil, err
	}
	if err := upsertUser(ctx, tx, a); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit user update: %w", err)
	}
	return a, nil
}

const upsertUserSQL = `
INSERT INTO users (pseudo, totalScore, totalTime, sessionCount, precision)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(pseudo) DO UPDATE SET
    totalScore = excluded.totalScore,
    totalTime = excluded.totalTime,
    sessionCount = excluded.sessionCount,
    precision = excluded.precision`

func upsertUser(ctx context.Context, db execer, a *participant.Aggregate) error {
	_, err := db.ExecContext(ctx, upsertUserSQL, a.Pseudo, a.TotalScore, a.TotalTime, a.SessionCount, a.Precision)
	if err != nil {
		return fmt.Errorf("upsert user %q: %w", a.Pseudo, err)
	}
	return nil
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*participant.Aggregate, error) {
	rows, err := s.db.QueryContext(ctx, selectUser+" ORDER BY pseudo")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []*participant.Aggregate{}
	for rows.Next() {
		var a participant.Aggregate
		if err := rows.Scan(&a.Pseudo, &a.TotalScore, &a.TotalTime, &a.SessionCount, &a.Precision); err != nil {
			return nil, err
		}
		users = append(users, &a)
	}
	return users, rows.Err()
}
