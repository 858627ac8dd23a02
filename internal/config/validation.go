// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"strings"
	"time"

	"github.com/ManuGH/amgplay/internal/validate"
)

// Validate validates an AppConfig using the centralized validation package
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.OneOf("Mode", cfg.Mode, []string{ModeInteractive, ModeRadio, ModeDiscover})
	v.Range("Count", cfg.Count, 1, 1000)
	v.OneOf("LogLevel", strings.ToLower(cfg.LogLevel),
		[]string{"trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"})
	v.OneOf("LogFormat", cfg.LogFormat, []string{"json", "console"})
	v.Directory("DataDir", cfg.DataDir, false)
	if cfg.Download {
		v.Directory("DownloadDir", cfg.DownloadDir, false)
	}

	v.URL("Site.BaseURL", cfg.Site.BaseURL, []string{"http", "https"})
	v.NotEmpty("Site.UserAgent", cfg.Site.UserAgent)
	v.DurationRange("Site.RequestDelay", cfg.Site.RequestDelay, 0, time.Minute)
	v.DurationRange("Site.Timeout", cfg.Site.Timeout, time.Second, 5*time.Minute)
	v.Range("Site.Retries", cfg.Site.Retries, 1, 10)
	v.Range("Site.BreakerThreshold", cfg.Site.BreakerThreshold, 1, 100)
	v.DurationRange("Site.Backoff", cfg.Site.Backoff, 0, time.Minute)
	if cfg.Site.MaxBackoff < cfg.Site.Backoff {
		v.AddError("Site.MaxBackoff", "must not be smaller than Site.Backoff", cfg.Site.MaxBackoff)
	}
	v.OneOf("Site.FetchPolicy", cfg.Site.FetchPolicy, []string{FetchPolicyBestEffort, FetchPolicyAbort})

	if !cfg.Download {
		v.NotEmpty("Player.Bin", cfg.Player.Bin)
	}
	v.DurationRange("Player.TermGrace", cfg.Player.TermGrace, 0, time.Minute)
	v.NotEmpty("FFmpeg.Bin", cfg.FFmpeg.Bin)
	v.NotEmpty("Resolver.YtdlpBin", cfg.Resolver.YtdlpBin)
	v.DurationRange("Resolver.Timeout", cfg.Resolver.Timeout, time.Second, 10*time.Minute)

	v.OneOf("History.Backend", cfg.History.Backend, []string{"sqlite", "memory"})

	v.OneOf("Cache.Backend", cfg.Cache.Backend, []string{"memory", "redis", "none"})
	if cfg.Cache.Backend == "redis" {
		v.NotEmpty("Cache.RedisAddr", cfg.Cache.RedisAddr)
		v.NonNegative("Cache.RedisDB", cfg.Cache.RedisDB)
	}
	v.OneOf("Match.Strategy", cfg.Match.Strategy, []string{"title", "none"})

	if cfg.Telemetry.Enabled {
		v.OneOf("Telemetry.Exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("Telemetry.Endpoint", cfg.Telemetry.Endpoint)
		if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
			v.AddError("Telemetry.SamplingRate", "must be between 0 and 1", cfg.Telemetry.SamplingRate)
		}
	}

	return v.Err()
}
