package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	TermsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "serp_terms_total",
			Help: "Total number of classified search terms.",
		},
		[]string{"bucket"}, // first_page, second_page, not_found
	)

	TermErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "serp_term_errors_total",
			Help: "Total number of search terms downgraded to not_found by an error.",
		},
		[]string{"error_type"},
	)

	TermDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "serp_term_duration_seconds",
			Help:    "Duration of a single term's search/scan/click sequence.",
			Buckets: []float64{1, 5, 10, 15, 30, 60, 120},
		},
	)

	CaptchaChallengesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "serp_captcha_challenges_total",
			Help: "Total number of detected anti-automation challenges.",
		},
		[]string{"source"},
	)

	BrowserRecyclesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "serp_browser_recycles_total",
			Help: "Total number of browser sessions torn down and relaunched after the tab threshold.",
		},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "serp_runs_total",
			Help: "Total number of runs by terminal phase.",
		},
		[]string{"phase"},
	)

	RunActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "serp_run_active",
			Help: "1 while a run is in progress.",
		},
	)
)
