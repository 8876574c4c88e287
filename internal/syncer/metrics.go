package syncer

import "github.com/prometheus/client_golang/prometheus"

var (
	pushCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitsync",
		Subsystem: "sync",
		Name:      "push_total",
		Help:      "Push attempts, labeled by result (succeeded, failed, skipped).",
	}, []string{"result"})

	pullCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitsync",
		Subsystem: "sync",
		Name:      "pull_total",
		Help:      "Pull attempts, labeled by result.",
	}, []string{"result"})

	changesPushedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fitsync",
		Subsystem: "sync",
		Name:      "changes_pushed_total",
		Help:      "Change-log entries acknowledged by the remote.",
	})

	pushDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fitsync",
		Subsystem: "sync",
		Name:      "push_duration_seconds",
		Help:      "Time spent reading, sending and marking a push, retries included.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	pendingGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fitsync",
		Subsystem: "sync",
		Name:      "pending_changes",
		Help:      "Unpushed change-log entries of the signed-in user at the last check.",
	})
)

func init() {
	prometheus.MustRegister(pushCounter, pullCounter, changesPushedCounter, pushDuration, pendingGauge)
}
