package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics
var (
	submissionsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_submissions_accepted_total",
		Help: "Total number of score submissions accepted into the ledger",
	})

	submissionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_submissions_rejected_total",
		Help: "Total number of score submissions rejected by the admission gate",
	}, []string{"reason"})

	highScores = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_high_scores_total",
		Help: "Total number of new per-mode best scores recorded",
	})

	snapshotsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_snapshots_created_total",
		Help: "Total number of leaderboard snapshots created",
	})

	journalFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_journal_failures_total",
		Help: "Total number of failed journal writes (state stays authoritative in memory)",
	})
)

const (
	reasonNotAuthorized = "not_authorized"
	reasonInvalidMode   = "invalid_game_mode"
	reasonScoreTooHigh  = "score_too_high"
	reasonTooFrequent   = "too_frequent"
	reasonLengthSkew    = "array_length_mismatch"
)
