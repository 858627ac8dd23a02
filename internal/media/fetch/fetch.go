// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package fetch downloads resolved media and cover art to local files.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ManuGH/amgplay/internal/domain/model"
	"github.com/ManuGH/amgplay/internal/fsutil"
	"github.com/ManuGH/amgplay/internal/log"
	"github.com/ManuGH/amgplay/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Fetcher streams a remote resource into a file.
type Fetcher interface {
	Fetch(ctx context.Context, desc model.MediaDescriptor, dest string) (string, error)
}

// HTTP is a Fetcher backed by an http.Client without an overall timeout;
// cancellation comes from ctx.
type HTTP struct {
	client    *http.Client
	userAgent string
}

func NewHTTP(client *http.Client, userAgent string) *HTTP {
	return &HTTP{client: client, userAgent: userAgent}
}

// Fetch writes desc.URL to dest atomically and returns dest. A local
// descriptor (Path set) is returned as is.
func (h *HTTP) Fetch(ctx context.Context, desc model.MediaDescriptor, dest string) (string, error) {
	if desc.Path != "" {
		return desc.Path, nil
	}
	ctx, span := telemetry.Tracer("amgplay.media").Start(ctx, "amgplay.media.fetch")
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.TrackIDKey, string(desc.Source.ID())))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, desc.URL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}
	for k, v := range desc.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("fetch media: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	span.SetAttributes(attribute.Int(telemetry.HTTPStatusCodeKey, resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("fetch media: unexpected status %d", resp.StatusCode)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	var n int64
	err = fsutil.WriteAtomic(dest, func(w io.Writer) error {
		var cerr error
		n, cerr = io.Copy(w, resp.Body)
		return cerr
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("write %s: %w", dest, err)
	}

	logger := log.WithComponent("fetch")
	logger.Debug().
		Str(log.FieldTrackID, string(desc.Source.ID())).
		Str(log.FieldPath, dest).
		Int64("bytes", n).
		Dur("took", time.Since(start)).
		Msg("media saved")
	return dest, nil
}
