// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/ManuGH/amgplay/internal/api"
	"github.com/ManuGH/amgplay/internal/cache"
	"github.com/ManuGH/amgplay/internal/config"
	"github.com/ManuGH/amgplay/internal/crawler"
	"github.com/ManuGH/amgplay/internal/extract"
	"github.com/ManuGH/amgplay/internal/history"
	"github.com/ManuGH/amgplay/internal/infra/ffmpeg"
	"github.com/ManuGH/amgplay/internal/log"
	"github.com/ManuGH/amgplay/internal/media/fetch"
	"github.com/ManuGH/amgplay/internal/media/player"
	"github.com/ManuGH/amgplay/internal/media/resolve"
	"github.com/ManuGH/amgplay/internal/pipeline/prefetch"
	"github.com/ManuGH/amgplay/internal/pipeline/sequencer"
	"github.com/ManuGH/amgplay/internal/pipeline/worker"
	"github.com/ManuGH/amgplay/internal/platform/httpx"
	"github.com/ManuGH/amgplay/internal/prompt"
	"github.com/ManuGH/amgplay/internal/telemetry"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

func runPlay(ctx context.Context, cfg config.AppConfig, in io.Reader, out io.Writer) error {
	runID := uuid.NewString()
	ctx = log.ContextWithRunID(ctx, runID)
	logger := log.WithContext(ctx, log.WithComponent("run"))

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Version,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("telemetry unavailable, continuing without tracing")
	}
	defer func() { _ = tp.Shutdown(context.WithoutCancel(ctx)) }()

	pageCache, err := cache.New(cache.Config{
		Backend:   cfg.Cache.Backend,
		RedisAddr: cfg.Cache.RedisAddr,
		RedisDB:   cfg.Cache.RedisDB,
	}, log.WithComponent("cache"))
	if err != nil {
		return fmt.Errorf("page cache: %w", err)
	}
	defer func() { _ = pageCache.Close() }()

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return fmt.Errorf("data dir: %w", err)
	}
	store, err := history.NewStore(cfg.History.Backend, cfg.DataDir)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	fetcher := crawler.NewFetcher(httpx.NewClient(cfg.Site.Timeout), pageCache, crawler.FetcherConfig{
		UserAgent:    cfg.Site.UserAgent,
		RequestDelay: cfg.Site.RequestDelay,
		Attempts:     cfg.Site.Retries,
		Backoff:      cfg.Site.Backoff,
		MaxBackoff:   cfg.Site.MaxBackoff,
		CacheTTL:     cfg.Cache.TTL,

		BreakerThreshold: cfg.Site.BreakerThreshold,
		BreakerCooldown:  cfg.Site.BreakerCooldown,
	})
	listing, err := crawler.New(cfg.Site.BaseURL, fetcher)
	if err != nil {
		return err
	}
	extractor := extract.New(fetcher, extract.WithMatcher(extract.NewMatcher(cfg.Match.Strategy)))

	pf := prefetch.Start(ctx, prefetch.Config{
		Pages:             listing,
		Extractor:         extractor,
		MaxReviews:        cfg.Count,
		AbortOnFetchError: cfg.Site.FetchPolicy == config.FetchPolicyAbort,
	})
	defer pf.Stop()

	policy, err := newPolicy(cfg.Mode, prompt.New(in, out, store), store)
	if err != nil {
		return err
	}
	seq, err := sequencer.New(policy, pf)
	if err != nil {
		return err
	}

	tracker := api.NewTracker(runID, cfg.Mode)
	tracker.SetStateFunc(func() string { return string(seq.State()) })

	mediaClient := httpx.NewStreamingClient()
	playOpts, downloadOpts := resolverOptions(cfg, fetcher, mediaClient)

	orch := worker.New(worker.Config{
		Download:      cfg.Download,
		DownloadDir:   cfg.DownloadDir,
		RequireVideo:  cfg.Player.RequireVideo,
		AudioFallback: cfg.Player.AudioFallback,
	}, worker.Deps{
		Resolver:         resolve.Default(playOpts),
		DownloadResolver: resolve.Default(downloadOpts),
		Player:           player.NewMPV(cfg.Player.Bin, cfg.Player.Args, cfg.Player.TermGrace),
		Fetcher:          fetch.NewHTTP(mediaClient, cfg.Site.UserAgent),
		Synthesizer:      ffmpeg.NewMuxer(cfg.FFmpeg.Bin),
		Prober:           ffmpeg.NewProber(ffmpeg.ProbeBin(cfg.FFmpeg.Bin)),
		History:          api.TapHistory(store, tracker),
	})

	logger.Info().
		Str(log.FieldEvent, "run.start").
		Str(log.FieldMode, cfg.Mode).
		Int("count", cfg.Count).
		Bool("download", cfg.Download).
		Str(log.FieldURL, cfg.Site.BaseURL).
		Msg("starting run")

	g, gctx := errgroup.WithContext(ctx)
	serveCtx, stopServing := context.WithCancel(gctx)
	defer stopServing()
	if cfg.Status.ListenAddr != "" {
		srv := api.New(api.Config{ListenAddr: cfg.Status.ListenAddr}, tracker)
		g.Go(func() error { return srv.Run(serveCtx) })
	}

	var sum worker.Summary
	g.Go(func() error {
		defer stopServing()
		defer seq.Quit()
		var runErr error
		sum, runErr = orch.Run(gctx, api.TapDecisions(seq, tracker))
		return runErr
	})
	err = g.Wait()

	logger.Info().
		Str(log.FieldEvent, "run.done").
		Int("decisions", sum.Decisions).
		Int("skipped", sum.Skipped).
		Int("played", sum.Played).
		Int("downloaded", sum.Downloaded).
		Int("failed", sum.Failed).
		AnErr("error", err).
		Msg("run finished")
	return err
}

// resolverOptions returns the resolver setup for playback and for
// downloads. Downloads drop the video stream when cfg.DownloadAudio is set.
func resolverOptions(cfg config.AppConfig, pages resolve.PageGetter, client *http.Client) (play, download resolve.Options) {
	play = resolve.Options{
		Getter:     pages,
		HTTPClient: client,
		YtdlpBin:   cfg.Resolver.YtdlpBin,
		Timeout:    cfg.Resolver.Timeout,
	}
	download = play
	download.AudioOnly = cfg.DownloadAudio
	return play, download
}

func newPolicy(mode string, offerer sequencer.Offerer, played sequencer.PlayedChecker) (sequencer.Policy, error) {
	switch mode {
	case config.ModeInteractive:
		return sequencer.NewInteractive(offerer), nil
	case config.ModeRadio:
		return sequencer.NewRadio(offerer), nil
	case config.ModeDiscover:
		return sequencer.NewDiscover(played), nil
	}
	return nil, fmt.Errorf("unknown mode %q", mode)
}
