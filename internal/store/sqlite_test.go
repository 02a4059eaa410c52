package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/perceptio/backend/internal/store"
)

func newSQLite(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLite(tempPath(t, "database.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_Records(t *testing.T) {
	checkRecordStore(t, newSQLite(t))
}

func TestSQLiteStore_Users(t *testing.T) {
	checkUserStore(t, newSQLite(t))
}

func TestSQLiteStore_ConcurrentUpdates(t *testing.T) {
	checkConcurrentUpdates(t, newSQLite(t))
}

func seedSessions(t *testing.T, s *store.SQLiteStore) {
	t.Helper()
	ctx := context.Background()

	for _, u := range []string{"neo", "trinity", "morpheus"} {
		if err := s.AppendRecord(ctx, sampleRecord(u)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	rec := sampleRecord("oracle")
	rec.Resolution1 = "144p"
	rec.Resolution2 = "4k"
	rec.Timestamp = testTime.AddDate(0, 0, 2)
	if err := s.AppendRecord(ctx, rec); err != nil {
		t.Fatalf("append: %v", err)
	}
}

func TestSQLiteStore_Summary(t *testing.T) {
	s := newSQLite(t)
	ctx := context.Background()

	sum, err := s.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Database != "database.db" || sum.LatestSession != nil {
		t.Errorf("unexpected empty summary %+v", sum)
	}

	seedSessions(t, s)
	sum, err = s.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Counts["sessions"] != 4 || sum.Counts["users"] != 0 {
		t.Errorf("unexpected counts %v", sum.Counts)
	}
	if sum.LatestSession == nil || *sum.LatestSession != "2025-03-16T09:30:00.123Z" {
		t.Errorf("unexpected latest session %v", sum.LatestSession)
	}
}

func TestSQLiteStore_Sessions(t *testing.T) {
	s := newSQLite(t)
	seedSessions(t, s)
	ctx := context.Background()

	tests := []struct {
		name      string
		query     store.SessionQuery
		wantTotal int
		wantRows  int
		wantFirst string
	}{
		{"all", store.SessionQuery{}, 4, 4, "neo"},
		{"search", store.SessionQuery{Q: "rin"}, 1, 1, "trinity"},
		{"resolution", store.SessionQuery{Resolution: "4k"}, 1, 1, "oracle"},
		{"date range", store.SessionQuery{StartDate: "2025-03-15"}, 1, 1, "oracle"},
		{"end date", store.SessionQuery{EndDate: "2025-03-14"}, 3, 3, "neo"},
		{"sorted desc", store.SessionQuery{SortBy: "user", SortDir: "desc"}, 4, 4, "trinity"},
		{"paged", store.SessionQuery{Limit: 2, Offset: 3}, 4, 1, "oracle"},
		{"unknown sort column", store.SessionQuery{SortBy: "id; DROP TABLE sessions"}, 4, 4, "neo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := s.Sessions(ctx, tt.query)
			if err != nil {
				t.Fatalf("sessions: %v", err)
			}
			if page.Total != tt.wantTotal || len(page.Rows) != tt.wantRows {
				t.Fatalf("expected %d/%d, got %d/%d", tt.wantTotal, tt.wantRows, page.Total, len(page.Rows))
			}
			if page.Rows[0].User != tt.wantFirst {
				t.Errorf("expected first row %q, got %q", tt.wantFirst, page.Rows[0].User)
			}
		})
	}
}

func TestSQLiteStore_UsersPage(t *testing.T) {
	s := newSQLite(t)
	checkUserStore(t, s)

	page, err := s.Users(context.Background(), store.UserQuery{Q: "NEO"})
	if err != nil {
		t.Fatalf("users: %v", err)
	}
	if page.Total != 1 || page.Rows[0].Pseudo != "neo" {
		t.Errorf("unexpected page %+v", page)
	}
}

func TestSQLiteStore_Resolutions(t *testing.T) {
	s := newSQLite(t)
	seedSessions(t, s)

	got, err := s.Resolutions(context.Background())
	if err != nil {
		t.Fatalf("resolutions: %v", err)
	}
	seen := map[string]bool{}
	for _, r := range got {
		seen[r] = true
	}
	for _, want := range []string{"144p", "720p", "1080p", "4k"} {
		if !seen[want] {
			t.Errorf("expected %s in %v", want, got)
		}
	}
	if len(got) != 4 {
		t.Errorf("expected 4 distinct resolutions, got %v", got)
	}
}

func TestSQLiteStore_SessionByID(t *testing.T) {
	s := newSQLite(t)
	seedSessions(t, s)
	ctx := context.Background()

	got, err := s.SessionByID(ctx, 2)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if got.ID != 2 || got.User != "trinity" {
		t.Errorf("unexpected session %+v", got)
	}

	if _, err := s.SessionByID(ctx, 99); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClampPage(t *testing.T) {
	tests := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{0, 0, store.DefaultPageSize, 0},
		{-3, -1, store.DefaultPageSize, 0},
		{1, 5, 1, 5},
		{500, 0, store.MaxPageSize, 0},
	}
	for _, tt := range tests {
		l, o := store.ClampPage(tt.limit, tt.offset)
		if l != tt.wantLimit || o != tt.wantOffset {
			t.Errorf("ClampPage(%d, %d) = %d, %d", tt.limit, tt.offset, l, o)
		}
	}
}
