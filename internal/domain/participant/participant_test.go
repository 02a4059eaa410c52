package participant_test

import (
	"errors"
	"math"
	"testing"

	"github.com/perceptio/backend/internal/domain/participant"
)

func TestNew(t *testing.T) {
	a := participant.New("  neo ")
	if a.Pseudo != "neo" {
		t.Errorf("expected pseudo %q, got %q", "neo", a.Pseudo)
	}
	if a.SessionCount != 0 || a.TotalScore != 0 || a.Precision != 0 {
		t.Errorf("expected zero aggregate, got %+v", a)
	}
}

func TestRecordSession_RunningMean(t *testing.T) {
	a := participant.New("neo")

	a.RecordSession(3, 100)
	a.RecordSession(1, 50)
	a.RecordSession(0, 0)

	if a.SessionCount != 3 {
		t.Errorf("expected 3 sessions, got %d", a.SessionCount)
	}
	if a.TotalScore != 4 {
		t.Errorf("expected total score 4, got %d", a.TotalScore)
	}
	if math.Abs(a.Precision-50) > 1e-9 {
		t.Errorf("expected precision mean 50, got %f", a.Precision)
	}
}

func TestRecordSession_MatchesBatchMean(t *testing.T) {
	values := []float64{12.5, 80, 33.3, 100, 0, 66.6}
	a := participant.New("trinity")

	sum := 0.0
	for _, v := range values {
		a.RecordSession(0, v)
		sum += v
	}

	want := sum / float64(len(values))
	if math.Abs(a.Precision-want) > 1e-9 {
		t.Errorf("expected %f, got %f", want, a.Precision)
	}
}

func TestAddTime(t *testing.T) {
	a := participant.New("neo")

	if err := a.AddTime(90); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.AddTime(-5); !errors.Is(err, participant.ErrNegativeTime) {
		t.Errorf("expected ErrNegativeTime, got %v", err)
	}
	if a.TotalTime != 90 {
		t.Errorf("expected 90 seconds, got %d", a.TotalTime)
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		score     int
		name      string
		next      string
		remaining int
	}{
		{0, "beginner", "amateur", 30},
		{29, "beginner", "amateur", 1},
		{30, "amateur", "pro", 30},
		{119, "pro", "legend", 1},
		{120, "legend", "elite", 80},
		{200, "legend", "elite", 0},
		{201, "elite", "", 0},
	}

	for _, tt := range tests {
		got := participant.LevelFor(tt.score)
		if got.Name != tt.name || got.Next != tt.next || got.Remaining != tt.remaining {
			t.Errorf("LevelFor(%d) = %+v, want {%s %s %d}", tt.score, got, tt.name, tt.next, tt.remaining)
		}
	}
}
