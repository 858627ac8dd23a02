// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import "time"

// Run modes.
const (
	ModeInteractive = "interactive"
	ModeRadio       = "radio"
	ModeDiscover    = "discover"
)

// Fetch failure policies for the listing crawl.
const (
	FetchPolicyBestEffort = "best_effort"
	FetchPolicyAbort      = "abort"
)

// AppConfig is the fully resolved runtime configuration.
type AppConfig struct {
	Version string

	Mode        string
	Count       int
	Download    bool
	DataDir     string
	DownloadDir string
	// DownloadAudio saves the audio stream only, also for video tracks.
	DownloadAudio bool
	LogLevel      string
	LogFormat     string

	Site      SiteConfig
	Player    PlayerConfig
	FFmpeg    FFmpegConfig
	Resolver  ResolverConfig
	History   HistoryConfig
	Cache     CacheConfig
	Match     MatchConfig
	Status    StatusConfig
	Telemetry TelemetryConfig
}

// SiteConfig controls how review listings and pages are fetched.
type SiteConfig struct {
	BaseURL      string
	UserAgent    string
	RequestDelay time.Duration
	Timeout      time.Duration
	Retries      int
	Backoff      time.Duration
	MaxBackoff   time.Duration
	FetchPolicy  string
	// BreakerThreshold consecutive failed fetches pause fetching for
	// BreakerCooldown.
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// PlayerConfig describes the external media player.
type PlayerConfig struct {
	Bin           string
	Args          []string
	RequireVideo  bool
	AudioFallback bool
	TermGrace     time.Duration
}

// FFmpegConfig describes the external muxing tool.
type FFmpegConfig struct {
	Bin string
}

// ResolverConfig controls media resolution.
type ResolverConfig struct {
	YtdlpBin string
	Timeout  time.Duration
}

// HistoryConfig selects the history backend.
type HistoryConfig struct {
	Backend string
}

// CacheConfig selects the review page cache.
type CacheConfig struct {
	Backend   string
	TTL       time.Duration
	RedisAddr string
	RedisDB   int
}

// MatchConfig selects the same-song matching strategy.
type MatchConfig struct {
	Strategy string
}

// StatusConfig controls the local status server. Empty ListenAddr disables it.
type StatusConfig struct {
	ListenAddr string
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	Exporter     string
	Endpoint     string
	SamplingRate float64
}

// FileConfig mirrors the YAML file layout. Pointer fields distinguish
// "unset" from an explicit zero value.
type FileConfig struct {
	Mode        string `yaml:"mode,omitempty"`
	Count       *int   `yaml:"count,omitempty"`
	Download    *bool  `yaml:"download,omitempty"`
	DataDir     string `yaml:"dataDir,omitempty"`
	DownloadDir string `yaml:"downloadDir,omitempty"`

	DownloadAudio *bool  `yaml:"downloadAudio,omitempty"`
	LogLevel      string `yaml:"logLevel,omitempty"`
	LogFormat     string `yaml:"logFormat,omitempty"`

	Site      SiteFileConfig      `yaml:"site,omitempty"`
	Player    PlayerFileConfig    `yaml:"player,omitempty"`
	FFmpeg    FFmpegFileConfig    `yaml:"ffmpeg,omitempty"`
	Resolver  ResolverFileConfig  `yaml:"resolver,omitempty"`
	History   HistoryFileConfig   `yaml:"history,omitempty"`
	Cache     CacheFileConfig     `yaml:"cache,omitempty"`
	Match     MatchFileConfig     `yaml:"match,omitempty"`
	Status    StatusFileConfig    `yaml:"status,omitempty"`
	Telemetry TelemetryFileConfig `yaml:"telemetry,omitempty"`
}

type SiteFileConfig struct {
	BaseURL      string `yaml:"baseURL,omitempty"`
	UserAgent    string `yaml:"userAgent,omitempty"`
	RequestDelay string `yaml:"requestDelay,omitempty"`
	Timeout      string `yaml:"timeout,omitempty"`
	Retries      *int   `yaml:"retries,omitempty"`
	Backoff      string `yaml:"backoff,omitempty"`
	MaxBackoff   string `yaml:"maxBackoff,omitempty"`
	FetchPolicy  string `yaml:"fetchPolicy,omitempty"`

	BreakerThreshold *int   `yaml:"breakerThreshold,omitempty"`
	BreakerCooldown  string `yaml:"breakerCooldown,omitempty"`
}

type PlayerFileConfig struct {
	Bin           string   `yaml:"bin,omitempty"`
	Args          []string `yaml:"args,omitempty"`
	RequireVideo  *bool    `yaml:"requireVideo,omitempty"`
	AudioFallback *bool    `yaml:"audioFallback,omitempty"`
	TermGrace     string   `yaml:"termGrace,omitempty"`
}

type FFmpegFileConfig struct {
	Bin string `yaml:"bin,omitempty"`
}

type ResolverFileConfig struct {
	YtdlpBin string `yaml:"ytdlpBin,omitempty"`
	Timeout  string `yaml:"timeout,omitempty"`
}

type HistoryFileConfig struct {
	Backend string `yaml:"backend,omitempty"`
}

type CacheFileConfig struct {
	Backend   string `yaml:"backend,omitempty"`
	TTL       string `yaml:"ttl,omitempty"`
	RedisAddr string `yaml:"redisAddr,omitempty"`
	RedisDB   *int   `yaml:"redisDB,omitempty"`
}

type MatchFileConfig struct {
	Strategy string `yaml:"strategy,omitempty"`
}

type StatusFileConfig struct {
	ListenAddr string `yaml:"listenAddr,omitempty"`
}

type TelemetryFileConfig struct {
	Enabled      *bool    `yaml:"enabled,omitempty"`
	ServiceName  string   `yaml:"serviceName,omitempty"`
	Exporter     string   `yaml:"exporter,omitempty"`
	Endpoint     string   `yaml:"endpoint,omitempty"`
	SamplingRate *float64 `yaml:"samplingRate,omitempty"`
}
