package anticheat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VelocityScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mau_anticheat_velocity_score",
		Help:    "Distribution of player revision-velocity scores",
		Buckets: []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	})

	PlayersFlagged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mau_anticheat_players_flagged_total",
		Help: "Total number of flagged velocity results passed to RecordResult",
	})

	SamplesRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mau_anticheat_samples_recorded_total",
		Help: "Total number of velocity results passed to RecordResult",
	})
)

// RecordResult updates the anticheat metrics for one scored Result,
// mirroring the teacher's RecordBotDetection helper in
// internal/fraud/metrics.go.
func RecordResult(r Result) {
	SamplesRecorded.Inc()
	if r.SampleCount == 0 {
		return
	}
	VelocityScore.Observe(r.Score)
	if r.Flagged {
		PlayersFlagged.Inc()
	}
}
