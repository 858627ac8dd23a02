// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultBaseURL is the review site crawled when no override is configured.
const DefaultBaseURL = "https://www.angrymetalguy.com/"

// ErrUnknownConfigField marks a config file carrying keys amgplay does not know.
var ErrUnknownConfigField = errors.New("unknown config field")

// Loader handles configuration loading with precedence
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// Load loads configuration with precedence: ENV > File > Defaults.
// Order is strict: parse file, apply env, validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	mergeEnvConfig(&cfg)
	cfg.Version = l.version

	if err := Finalize(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Finalize normalizes paths and validates cfg. It is called again by the
// CLI after flag overrides are applied.
func Finalize(cfg *AppConfig) error {
	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	if abs, err := filepath.Abs(cfg.DownloadDir); err == nil {
		cfg.DownloadDir = abs
	}
	if !strings.HasSuffix(cfg.Site.BaseURL, "/") {
		cfg.Site.BaseURL += "/"
	}
	if err := Validate(*cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		Mode:        ModeInteractive,
		Count:       20,
		DataDir:     defaultDataDir(),
		DownloadDir: ".",

		DownloadAudio: true,
		LogLevel:      "info",
		LogFormat:     "console",
		Site: SiteConfig{
			BaseURL:      DefaultBaseURL,
			UserAgent:    "amgplay/1.0 (+https://github.com/ManuGH/amgplay)",
			RequestDelay: time.Second,
			Timeout:      15 * time.Second,
			Retries:      3,
			Backoff:      500 * time.Millisecond,
			MaxBackoff:   8 * time.Second,
			FetchPolicy:  FetchPolicyBestEffort,

			BreakerThreshold: 5,
			BreakerCooldown:  time.Minute,
		},
		Player: PlayerConfig{
			Bin:           "mpv",
			Args:          []string{"--force-seekable=yes"},
			RequireVideo:  true,
			AudioFallback: true,
			TermGrace:     5 * time.Second,
		},
		FFmpeg:   FFmpegConfig{Bin: "ffmpeg"},
		Resolver: ResolverConfig{YtdlpBin: "yt-dlp", Timeout: 30 * time.Second},
		History:  HistoryConfig{Backend: "sqlite"},
		Cache:    CacheConfig{Backend: "memory", TTL: 24 * time.Hour},
		Match:    MatchConfig{Strategy: "title"},
		Telemetry: TelemetryConfig{
			ServiceName:  "amgplay",
			Exporter:     "grpc",
			SamplingRate: 1.0,
		},
	}
}

func defaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "amg-player")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "amg-player")
	}
	return filepath.Join(os.TempDir(), "amg-player")
}

// loadFile loads configuration from a YAML file with STRICT parsing.
// Unknown fields will cause a fatal error to prevent misconfiguration.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}

	return &fileCfg, nil
}
