// SPDX-License-Identifier: MIT

// Package metrics provides Prometheus metrics for the crawl and playback pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Crawl metrics
	pageFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amgplay_page_fetch_total",
		Help: "Page fetch attempts by kind and outcome",
	}, []string{"kind", "outcome"}) // kind=listing|review|embed, outcome=success|retry|failure|cache_hit

	pageFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "amgplay_page_fetch_duration_seconds",
		Help:    "Duration of single page fetch attempts",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	reviewsCrawled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "amgplay_reviews_crawled_total",
		Help: "Reviews parsed from listing pages",
	})

	tracksExtracted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amgplay_tracks_extracted_total",
		Help: "Tracks extracted from review pages by primary provider",
	}, []string{"provider"})

	// Sequencer metrics
	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amgplay_decisions_total",
		Help: "Playback decisions emitted by the sequencer",
	}, []string{"mode", "action"})

	sequencerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "amgplay_sequencer_state",
		Help: "Current sequencer state (1 for the active state)",
	}, []string{"state"})

	// Orchestrator metrics
	tracksCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amgplay_tracks_completed_total",
		Help: "Tracks completed by outcome",
	}, []string{"outcome"}) // outcome=played|downloaded

	trackFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amgplay_track_failures_total",
		Help: "Per-track failures by stage",
	}, []string{"stage"}) // stage=resolve|mux|play|download

	resolveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amgplay_resolve_total",
		Help: "Source resolution attempts by provider and outcome",
	}, []string{"provider", "outcome"})

	procStarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amgplay_process_starts_total",
		Help: "External process starts by tool",
	}, []string{"tool"})

	procExits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amgplay_process_exits_total",
		Help: "External process exits by tool and outcome",
	}, []string{"tool", "outcome"}) // outcome=ok|error|killed

	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "amgplay_circuit_breaker_state",
		Help: "Circuit breaker state (1 for the active state)",
	}, []string{"name", "state"})

	breakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amgplay_circuit_breaker_trips_total",
		Help: "Circuit breaker trips by reason",
	}, []string{"name", "reason"})

	historyEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "amgplay_history_entries_appended",
		Help: "History entries appended during this run",
	})
)

// States tracked by the sequencer gauge.
var sequencerStates = []string{"idle", "streaming", "paused", "draining"}

// ObservePageFetch records one page fetch attempt.
func ObservePageFetch(kind, outcome string, d time.Duration) {
	pageFetchTotal.WithLabelValues(kind, outcome).Inc()
	if d > 0 {
		pageFetchDuration.WithLabelValues(kind).Observe(d.Seconds())
	}
}

// AddReviewsCrawled counts reviews parsed from a listing page.
func AddReviewsCrawled(n int) {
	reviewsCrawled.Add(float64(n))
}

// IncTracksExtracted counts one extracted track.
func IncTracksExtracted(provider string) {
	tracksExtracted.WithLabelValues(provider).Inc()
}

// IncDecision counts one sequencer decision.
func IncDecision(mode, action string) {
	decisionsTotal.WithLabelValues(mode, action).Inc()
}

// SetSequencerState marks state as the active sequencer state.
func SetSequencerState(state string) {
	for _, s := range sequencerStates {
		v := 0.0
		if s == state {
			v = 1
		}
		sequencerState.WithLabelValues(s).Set(v)
	}
}

// IncTrackCompleted counts a completed track.
func IncTrackCompleted(outcome string) {
	tracksCompleted.WithLabelValues(outcome).Inc()
	historyEntries.Inc()
}

// IncTrackFailure counts a non-fatal per-track failure.
func IncTrackFailure(stage string) {
	trackFailures.WithLabelValues(stage).Inc()
}

// IncResolve counts a resolution attempt.
func IncResolve(provider, outcome string) {
	resolveTotal.WithLabelValues(provider, outcome).Inc()
}

// SetBreakerState marks state as the active state of breaker name.
func SetBreakerState(name, state string) {
	for _, s := range []string{"closed", "open", "half-open"} {
		v := 0.0
		if s == state {
			v = 1
		}
		breakerState.WithLabelValues(name, s).Set(v)
	}
}

func IncBreakerTrip(name, reason string) {
	breakerTrips.WithLabelValues(name, reason).Inc()
}

// IncProcStart counts a subprocess start.
func IncProcStart(tool string) {
	procStarts.WithLabelValues(tool).Inc()
}

// IncProcExit counts a subprocess exit.
func IncProcExit(tool, outcome string) {
	procExits.WithLabelValues(tool, outcome).Inc()
}
