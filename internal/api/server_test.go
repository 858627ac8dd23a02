package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ManuGH/amgplay/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decision(id string, action model.Action) model.Decision {
	return model.Decision{
		Action: action,
		Track: model.Track{
			ID:     model.TrackID(id),
			Review: &model.Review{URL: "https://site.test/r/", Artist: "Band", Album: "Album"},
		},
	}
}

func TestTracker_ProgressFlow(t *testing.T) {
	tr := NewTracker("run-1", "discover")
	tr.SetStateFunc(func() string { return "streaming" })

	tr.Observe(decision("youtube:a", model.ActionSkipAlreadyPlayed))
	tr.Observe(decision("youtube:b", model.ActionPlayAuto))

	s := tr.Snapshot()
	assert.Equal(t, "streaming", s.State)
	assert.Equal(t, 2, s.Decisions)
	assert.Equal(t, 1, s.Skipped)
	require.NotNil(t, s.Current)
	assert.Equal(t, model.TrackID("youtube:b"), s.Current.ID)
	assert.Equal(t, "Band - Album", s.Current.Name)

	tr.Completed(model.HistoryEntry{TrackID: "youtube:b", Outcome: model.OutcomePlayed, Title: "Band - Album"})
	s = tr.Snapshot()
	assert.Nil(t, s.Current)
	require.NotNil(t, s.Last)
	assert.Equal(t, "played", s.Last.Outcome)
	assert.Equal(t, 1, s.Completed)
}

type sliceSource []model.Decision

func (s *sliceSource) Next(context.Context) (model.Decision, error) {
	if len(*s) == 0 {
		return model.Decision{}, io.EOF
	}
	d := (*s)[0]
	*s = (*s)[1:]
	return d, nil
}

type flakyWriter struct{ fail bool }

func (f flakyWriter) Append(context.Context, model.HistoryEntry) error {
	if f.fail {
		return errors.New("disk full")
	}
	return nil
}

func TestTaps(t *testing.T) {
	tr := NewTracker("run-1", "radio")
	src := sliceSource{decision("youtube:a", model.ActionPlayAuto)}
	tapped := TapDecisions(&src, tr)

	_, err := tapped.Next(context.Background())
	require.NoError(t, err)
	_, err = tapped.Next(context.Background())
	require.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 1, tr.Snapshot().Decisions)

	require.Error(t, TapHistory(flakyWriter{fail: true}, tr).Append(context.Background(), model.HistoryEntry{TrackID: "youtube:a"}))
	assert.Zero(t, tr.Snapshot().Completed, "failed appends are not counted")
	require.NoError(t, TapHistory(flakyWriter{}, tr).Append(context.Background(), model.HistoryEntry{TrackID: "youtube:a"}))
	assert.Equal(t, 1, tr.Snapshot().Completed)
}

func TestHandler_Routes(t *testing.T) {
	tr := NewTracker("run-42", "interactive")
	h := New(Config{}, tr).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "run-42", snap.RunID)
	assert.Equal(t, "interactive", snap.Mode)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandler_RateLimitsStatus(t *testing.T) {
	h := New(Config{RequestLimit: 2}, NewTracker("r", "radio")).Handler()
	codes := make([]int, 0, 3)
	for range 3 {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestServer_RunStopsWithContext(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	s := New(Config{ListenAddr: addr}, NewTracker("r", "radio"))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
