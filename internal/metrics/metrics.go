package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedeemDuration tracks claim-code redemption latency by outcome.
	RedeemDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stamp_redeem_duration_seconds",
			Help:    "Duration of claim-code redemptions in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		},
		[]string{"outcome"}, // success, rejected, error
	)

	// IssueDuration tracks coupon issuance latency by outcome.
	IssueDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coupon_issue_duration_seconds",
			Help:    "Duration of coupon issuance in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		},
		[]string{"outcome"},
	)
)

// RecordRedeem records one redemption attempt.
func RecordRedeem(outcome string, seconds float64) {
	RedeemDuration.WithLabelValues(outcome).Observe(seconds)
}

// RecordIssue records one issuance attempt.
func RecordIssue(outcome string, seconds float64) {
	IssueDuration.WithLabelValues(outcome).Observe(seconds)
}
