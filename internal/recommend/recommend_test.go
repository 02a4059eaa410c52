package recommend_test

import (
	"testing"

	"github.com/perceptio/backend/internal/domain/resolution"
	"github.com/perceptio/backend/internal/recommend"
	"github.com/perceptio/backend/internal/stats"
)

func policy() recommend.Policy {
	return recommend.DefaultPolicy(resolution.Default())
}

func TestRecommend_LowestQualifyingResolutionWins(t *testing.T) {
	counts := stats.DeviceCounts{
		"480p": {"pc": {"correct": 5, "verysatisfactory": 3, "bad": 2}},
		"720p": {"pc": {"verysatisfactory": 10}},
	}

	got, ok := policy().Recommend(counts, "pc", []string{"1080p", "720p", "480p"})
	if !ok || got != "480p" {
		t.Errorf("expected 480p, got %q (ok=%v)", got, ok)
	}
}

func TestRecommend_ThresholdIsInclusive(t *testing.T) {
	counts := stats.DeviceCounts{
		"360p": {"mobile": {"correct": 7, "bad": 3}},
	}

	got, _ := policy().Recommend(counts, "mobile", []string{"360p", "720p"})
	if got != "360p" {
		t.Errorf("expected 360p at exactly 70%%, got %q", got)
	}
}

func TestRecommend_IgnoresOtherDevices(t *testing.T) {
	counts := stats.DeviceCounts{
		"480p": {"pc": {"correct": 10}, "mobile": {"bad": 10}},
	}

	got, _ := policy().Recommend(counts, "mobile", []string{"480p", "4k"})
	if got != "480p" {
		t.Errorf("expected fallback to 480p under the ceiling, got %q", got)
	}
}

func TestRecommend_FallsBackToHighestUnderCeiling(t *testing.T) {
	got, ok := policy().Recommend(stats.DeviceCounts{}, "pc", []string{"480p", "1080p", "4k"})
	if !ok || got != "1080p" {
		t.Errorf("expected 1080p, got %q (ok=%v)", got, ok)
	}
}

func TestRecommend_FallsBackToLowestAboveCeiling(t *testing.T) {
	p := policy()
	p.SafeCeiling = "240p"

	got, _ := p.Recommend(nil, "pc", []string{"4k", "720p"})
	if got != "720p" {
		t.Errorf("expected 720p, got %q", got)
	}
}

func TestRecommend_NoCandidates(t *testing.T) {
	for _, candidates := range [][]string{nil, {}, {"2160p", "8k"}} {
		if got, ok := policy().Recommend(nil, "pc", candidates); ok {
			t.Errorf("expected no recommendation for %v, got %q", candidates, got)
		}
	}
}

func TestRecommend_MatchesStoredSpelling(t *testing.T) {
	counts := stats.DeviceCounts{
		"4K": {"tablet": {"verysatisfactory": 4}},
	}

	got, _ := policy().Recommend(counts, "Tablet", []string{"720p", "4k"})
	if got != "4k" {
		t.Errorf("expected 4k, got %q", got)
	}
}

func TestPositiveShare(t *testing.T) {
	share, total := recommend.PositiveShare(stats.Counts{"correct": 1, "verysatisfactory": 2, "bad": 1})
	if total != 4 || share != 0.75 {
		t.Errorf("expected 0.75 of 4, got %f of %d", share, total)
	}
	if share, total := recommend.PositiveShare(nil); share != 0 || total != 0 {
		t.Errorf("expected zero share for nil counts, got %f of %d", share, total)
	}
}
