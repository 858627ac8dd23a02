// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"
	"time"
)

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setPtr[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, field, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q: %w", field, v, err)
	}
	*dst = d
	return nil
}

// mergeFileConfig overlays values present in the YAML file onto cfg.
func mergeFileConfig(cfg *AppConfig, f *FileConfig) error {
	setString(&cfg.Mode, f.Mode)
	setPtr(&cfg.Count, f.Count)
	setPtr(&cfg.Download, f.Download)
	setString(&cfg.DataDir, f.DataDir)
	setString(&cfg.DownloadDir, f.DownloadDir)
	setPtr(&cfg.DownloadAudio, f.DownloadAudio)
	setString(&cfg.LogLevel, f.LogLevel)
	setString(&cfg.LogFormat, f.LogFormat)

	setString(&cfg.Site.BaseURL, f.Site.BaseURL)
	setString(&cfg.Site.UserAgent, f.Site.UserAgent)
	setPtr(&cfg.Site.Retries, f.Site.Retries)
	setPtr(&cfg.Site.BreakerThreshold, f.Site.BreakerThreshold)
	setString(&cfg.Site.FetchPolicy, f.Site.FetchPolicy)

	setString(&cfg.Player.Bin, f.Player.Bin)
	if f.Player.Args != nil {
		cfg.Player.Args = append([]string(nil), f.Player.Args...)
	}
	setPtr(&cfg.Player.RequireVideo, f.Player.RequireVideo)
	setPtr(&cfg.Player.AudioFallback, f.Player.AudioFallback)

	setString(&cfg.FFmpeg.Bin, f.FFmpeg.Bin)
	setString(&cfg.Resolver.YtdlpBin, f.Resolver.YtdlpBin)
	setString(&cfg.History.Backend, f.History.Backend)

	setString(&cfg.Cache.Backend, f.Cache.Backend)
	setString(&cfg.Cache.RedisAddr, f.Cache.RedisAddr)
	setPtr(&cfg.Cache.RedisDB, f.Cache.RedisDB)

	setString(&cfg.Match.Strategy, f.Match.Strategy)
	setString(&cfg.Status.ListenAddr, f.Status.ListenAddr)

	setPtr(&cfg.Telemetry.Enabled, f.Telemetry.Enabled)
	setString(&cfg.Telemetry.ServiceName, f.Telemetry.ServiceName)
	setString(&cfg.Telemetry.Exporter, f.Telemetry.Exporter)
	setString(&cfg.Telemetry.Endpoint, f.Telemetry.Endpoint)
	setPtr(&cfg.Telemetry.SamplingRate, f.Telemetry.SamplingRate)

	durations := []struct {
		dst   *time.Duration
		field string
		raw   string
	}{
		{&cfg.Site.RequestDelay, "site.requestDelay", f.Site.RequestDelay},
		{&cfg.Site.Timeout, "site.timeout", f.Site.Timeout},
		{&cfg.Site.Backoff, "site.backoff", f.Site.Backoff},
		{&cfg.Site.MaxBackoff, "site.maxBackoff", f.Site.MaxBackoff},
		{&cfg.Site.BreakerCooldown, "site.breakerCooldown", f.Site.BreakerCooldown},
		{&cfg.Player.TermGrace, "player.termGrace", f.Player.TermGrace},
		{&cfg.Resolver.Timeout, "resolver.timeout", f.Resolver.Timeout},
		{&cfg.Cache.TTL, "cache.ttl", f.Cache.TTL},
	}
	for _, d := range durations {
		if err := setDuration(d.dst, d.field, d.raw); err != nil {
			return err
		}
	}
	return nil
}

// mergeEnvConfig merges AMG_* environment variables into cfg.
// ENV variables have the highest precedence below CLI flags.
func mergeEnvConfig(cfg *AppConfig) {
	cfg.Mode = ParseString("AMG_MODE", cfg.Mode)
	cfg.Count = ParseInt("AMG_COUNT", cfg.Count)
	cfg.Download = ParseBool("AMG_DOWNLOAD", cfg.Download)
	cfg.DataDir = ParseString("AMG_DATA_DIR", cfg.DataDir)
	cfg.DownloadDir = ParseString("AMG_DOWNLOAD_DIR", cfg.DownloadDir)
	cfg.DownloadAudio = ParseBool("AMG_DOWNLOAD_AUDIO", cfg.DownloadAudio)
	cfg.LogLevel = ParseString("AMG_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = ParseString("AMG_LOG_FORMAT", cfg.LogFormat)

	cfg.Site.BaseURL = ParseString("AMG_SITE_BASE_URL", cfg.Site.BaseURL)
	cfg.Site.UserAgent = ParseString("AMG_SITE_USER_AGENT", cfg.Site.UserAgent)
	cfg.Site.RequestDelay = ParseDuration("AMG_SITE_REQUEST_DELAY", cfg.Site.RequestDelay)
	cfg.Site.Timeout = ParseDuration("AMG_SITE_TIMEOUT", cfg.Site.Timeout)
	cfg.Site.Retries = ParseInt("AMG_SITE_RETRIES", cfg.Site.Retries)
	cfg.Site.Backoff = ParseDuration("AMG_SITE_BACKOFF", cfg.Site.Backoff)
	cfg.Site.MaxBackoff = ParseDuration("AMG_SITE_MAX_BACKOFF", cfg.Site.MaxBackoff)
	cfg.Site.FetchPolicy = ParseString("AMG_SITE_FETCH_POLICY", cfg.Site.FetchPolicy)
	cfg.Site.BreakerThreshold = ParseInt("AMG_SITE_BREAKER_THRESHOLD", cfg.Site.BreakerThreshold)
	cfg.Site.BreakerCooldown = ParseDuration("AMG_SITE_BREAKER_COOLDOWN", cfg.Site.BreakerCooldown)

	cfg.Player.Bin = ParseString("AMG_PLAYER_BIN", cfg.Player.Bin)
	cfg.Player.Args = ParseList("AMG_PLAYER_ARGS", cfg.Player.Args)
	cfg.Player.RequireVideo = ParseBool("AMG_PLAYER_REQUIRE_VIDEO", cfg.Player.RequireVideo)
	cfg.Player.AudioFallback = ParseBool("AMG_PLAYER_AUDIO_FALLBACK", cfg.Player.AudioFallback)
	cfg.Player.TermGrace = ParseDuration("AMG_PLAYER_TERM_GRACE", cfg.Player.TermGrace)

	cfg.FFmpeg.Bin = ParseString("AMG_FFMPEG_BIN", cfg.FFmpeg.Bin)
	cfg.Resolver.YtdlpBin = ParseString("AMG_YTDLP_BIN", cfg.Resolver.YtdlpBin)
	cfg.Resolver.Timeout = ParseDuration("AMG_RESOLVER_TIMEOUT", cfg.Resolver.Timeout)
	cfg.History.Backend = ParseString("AMG_HISTORY_BACKEND", cfg.History.Backend)

	cfg.Cache.Backend = ParseString("AMG_CACHE_BACKEND", cfg.Cache.Backend)
	cfg.Cache.TTL = ParseDuration("AMG_CACHE_TTL", cfg.Cache.TTL)
	cfg.Cache.RedisAddr = ParseString("AMG_CACHE_REDIS_ADDR", cfg.Cache.RedisAddr)
	cfg.Cache.RedisDB = ParseInt("AMG_CACHE_REDIS_DB", cfg.Cache.RedisDB)

	cfg.Match.Strategy = ParseString("AMG_MATCH_STRATEGY", cfg.Match.Strategy)
	cfg.Status.ListenAddr = ParseString("AMG_STATUS_LISTEN", cfg.Status.ListenAddr)

	cfg.Telemetry.Enabled = ParseBool("AMG_TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = ParseString("AMG_TELEMETRY_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = ParseString("AMG_TELEMETRY_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = ParseFloat("AMG_TELEMETRY_SAMPLING_RATE", cfg.Telemetry.SamplingRate)
}
