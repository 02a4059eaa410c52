package store_test

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/perceptio/backend/internal/domain/participant"
	"github.com/perceptio/backend/internal/domain/survey"
	"github.com/perceptio/backend/internal/store"
)

var testTime = time.Date(2025, 3, 14, 9, 30, 0, 123e6, time.UTC)

func sampleRecord(user string) survey.SessionRecord {
	return survey.Submission{
		User:        user,
		VideoPath1:  "Videos_Creative_Common/Nature/Forest%20Walk/segment_720p.mp4",
		Resolution1: "720p",
		VideoPath2:  "Videos_Creative_Common/Nature/Forest%20Walk/segment_1080p.mp4",
		Resolution2: "1080p",
		QO1:         "(720p, 1080p)",
		QO2:         "(correct, verySatisfactory)",
		QO3:         "second",
		Comments:    `sharp, "crisp" image`,
		ScreenType:  "pc",
	}.Record(testTime)
}

func checkRecordStore(t *testing.T, s store.RecordStore) {
	t.Helper()
	ctx := context.Background()

	recs, err := s.ListRecords(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recs == nil || len(recs) != 0 {
		t.Fatalf("expected empty non-nil list, got %v", recs)
	}

	want := sampleRecord("neo")
	if err := s.AppendRecord(ctx, want); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.AppendRecord(ctx, sampleRecord("trinity")); err != nil {
		t.Fatalf("append: %v", err)
	}

	recs, err = s.ListRecords(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	got := recs[0]
	if got.User != "neo" || recs[1].User != "trinity" {
		t.Errorf("expected insertion order, got %q, %q", got.User, recs[1].User)
	}
	if got.Guesses != want.Guesses || got.Ratings != want.Ratings {
		t.Errorf("answer pairs changed: %+v %+v", got.Guesses, got.Ratings)
	}
	if got.Category1 != "Nature" || got.VideoName2 != "Forest Walk" {
		t.Errorf("unexpected derived fields %q / %q", got.Category1, got.VideoName2)
	}
	if got.Comments != want.Comments {
		t.Errorf("expected comments %q, got %q", want.Comments, got.Comments)
	}
	if !got.Timestamp.Equal(testTime) {
		t.Errorf("expected timestamp %v, got %v", testTime, got.Timestamp)
	}
}

func checkUserStore(t *testing.T, s store.UserStore) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.GetUser(ctx, "neo"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	a, err := s.UpdateUser(ctx, "neo", func(a *participant.Aggregate) error {
		a.RecordSession(3, 100)
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if a.Pseudo != "neo" || a.SessionCount != 1 || a.TotalScore != 3 {
		t.Errorf("unexpected aggregate %+v", a)
	}

	boom := errors.New("boom")
	if _, err := s.UpdateUser(ctx, "neo", func(a *participant.Aggregate) error {
		a.TotalScore = 1000
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}

	got, err := s.GetUser(ctx, "neo")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TotalScore != 3 {
		t.Errorf("failed update must not persist, got score %d", got.TotalScore)
	}

	if _, err := s.UpdateUser(ctx, "trinity", func(a *participant.Aggregate) error {
		return a.AddTime(42)
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 2 || users[0].Pseudo != "neo" || users[1].Pseudo != "trinity" {
		t.Errorf("unexpected users %+v", users)
	}
}

func checkConcurrentUpdates(t *testing.T, s store.UserStore) {
	t.Helper()
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.UpdateUser(ctx, "morpheus", func(a *participant.Aggregate) error {
				a.RecordSession(1, float64(i%2)*100)
				return nil
			})
			if err != nil {
				t.Errorf("update: %v", err)
			}
		}(i)
	}
	wg.Wait()

	a, err := s.GetUser(ctx, "morpheus")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if a.SessionCount != n || a.TotalScore != n {
		t.Errorf("expected %d sessions and points, got %+v", n, a)
	}
	if math.Abs(a.Precision-50) > 1e-9 {
		t.Errorf("expected mean precision 50, got %f", a.Precision)
	}
}

func tempPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}
