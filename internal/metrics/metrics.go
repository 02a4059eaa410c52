// Package metrics exposes Prometheus collectors for the study backend.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "perceptio_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perceptio_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	// Submissions
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perceptio_submissions_total",
			Help: "Total number of quiz submissions",
		},
		[]string{"result"}, // "stored", "invalid", "error"
	)

	SubmissionScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "perceptio_submission_score",
			Help:    "Points awarded per graded submission",
			Buckets: []float64{0, 1, 2, 3, 4, 5},
		},
	)

	// Aggregations
	StatsComputations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perceptio_stats_computations_total",
			Help: "Total number of statistics aggregations computed",
		},
		[]string{"kind"},
	)

	StatsDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "perceptio_stats_duration_seconds",
			Help:    "Duration of statistics aggregations, including the record read",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	Recommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perceptio_recommendations_total",
			Help: "Total number of resolution recommendations by outcome",
		},
		[]string{"outcome"}, // "found", "none"
	)

	// Catalog
	CatalogVideos = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "perceptio_catalog_videos",
			Help: "Number of videos found in each catalog root at the last scan",
		},
		[]string{"root"},
	)
)

// RecordAPIRequest records one served HTTP request.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	APIRequestDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
	APIRequestsTotal.WithLabelValues(method, route, code).Inc()
}

// RecordSubmission records the outcome of a quiz submission and, when it was
// stored, the score it earned.
func RecordSubmission(result string, score int) {
	SubmissionsTotal.WithLabelValues(result).Inc()
	if result == "stored" {
		SubmissionScore.Observe(float64(score))
	}
}

func RecordStats(kind string, duration time.Duration) {
	StatsComputations.WithLabelValues(kind).Inc()
	StatsDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func RecordRecommendation(found bool) {
	outcome := "none"
	if found {
		outcome = "found"
	}
	Recommendations.WithLabelValues(outcome).Inc()
}

// SetCatalogVideos publishes video counts per catalog root.
func SetCatalogVideos(base, licensed, children int) {
	CatalogVideos.WithLabelValues("base").Set(float64(base))
	CatalogVideos.WithLabelValues("licensed").Set(float64(licensed))
	CatalogVideos.WithLabelValues("children").Set(float64(children))
}
