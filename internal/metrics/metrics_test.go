// SPDX-License-Identifier: MIT

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPromhttpExposure(t *testing.T) {
	ObservePageFetch("listing", "success", 20*time.Millisecond)

	srv := httptest.NewServer(promhttp.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(decisionsTotal.WithLabelValues("discover", "play-auto"))
	IncDecision("discover", "play-auto")
	IncDecision("discover", "play-auto")
	if got := testutil.ToFloat64(decisionsTotal.WithLabelValues("discover", "play-auto")); got != before+2 {
		t.Fatalf("decisions = %v, want %v", got, before+2)
	}

	beforeEntries := testutil.ToFloat64(historyEntries)
	IncTrackCompleted("played")
	if got := testutil.ToFloat64(historyEntries); got != beforeEntries+1 {
		t.Fatalf("history entries = %v, want %v", got, beforeEntries+1)
	}
}

func TestSetSequencerState_OneHot(t *testing.T) {
	SetSequencerState("streaming")
	for _, s := range sequencerStates {
		want := 0.0
		if s == "streaming" {
			want = 1
		}
		if got := testutil.ToFloat64(sequencerState.WithLabelValues(s)); got != want {
			t.Errorf("state %s = %v, want %v", s, got, want)
		}
	}
}

func TestProcCounters(t *testing.T) {
	IncProcStart("mpv")
	IncProcExit("mpv", "ok")
	if n := testutil.CollectAndCount(procStarts, "amgplay_process_starts_total"); n < 1 {
		t.Fatalf("expected at least one series, got %d", n)
	}
	if got := testutil.ToFloat64(procExits.WithLabelValues("mpv", "ok")); got < 1 {
		t.Fatalf("exits = %v", got)
	}
}
