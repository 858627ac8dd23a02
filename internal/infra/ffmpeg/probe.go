package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/amgplay/internal/infra/proc"
	"github.com/ManuGH/amgplay/internal/log"
)

// StreamInfo summarises what ffprobe found in a media file.
type StreamInfo struct {
	Container  string
	Duration   time.Duration
	VideoCodec string
	AudioCodec string
}

func (s StreamInfo) HasVideo() bool { return s.VideoCodec != "" }
func (s StreamInfo) HasAudio() bool { return s.AudioCodec != "" }

// Prober runs ffprobe.
type Prober struct {
	Bin string
}

func NewProber(bin string) *Prober {
	if bin == "" {
		bin = "ffprobe"
	}
	return &Prober{Bin: bin}
}

// Probe inspects path. ffprobe sometimes exits non-zero on truncated files
// while still printing usable JSON; such output is accepted.
func (p *Prober) Probe(ctx context.Context, path string) (*StreamInfo, error) {
	res, runErr := proc.Run(ctx, proc.Spec{Tool: "ffprobe", Bin: p.Bin, Args: probeArgs(path)})
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if errors.Is(runErr, proc.ErrNotFound) {
		return nil, runErr
	}

	var data probeData
	jsonErr := json.Unmarshal(res.Stdout, &data)
	info, parseErr := data.info()

	switch {
	case jsonErr == nil && parseErr == nil:
		if runErr != nil {
			logger := log.WithComponent("ffmpeg")
			logger.Warn().Err(runErr).
				Str(log.FieldPath, path).
				Msg("ffprobe non-zero exit but JSON accepted")
		}
		return info, nil
	case runErr != nil:
		return nil, fmt.Errorf("ffprobe failed: %w", runErr)
	case jsonErr != nil:
		return nil, fmt.Errorf("json decode: %w", jsonErr)
	default:
		return nil, parseErr
	}
}

type probeData struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Duration  string `json:"duration,omitempty"`
	} `json:"streams"`
	Format struct {
		Duration   string `json:"duration"`
		FormatName string `json:"format_name"`
	} `json:"format"`
}

func (d probeData) info() (*StreamInfo, error) {
	info := &StreamInfo{}
	var streamDur float64
	for _, s := range d.Streams {
		if s.CodecName == "" {
			continue
		}
		switch s.CodecType {
		case "video":
			if info.VideoCodec == "" {
				info.VideoCodec = s.CodecName
			}
		case "audio":
			if info.AudioCodec == "" {
				info.AudioCodec = s.CodecName
				streamDur, _ = strconv.ParseFloat(s.Duration, 64)
			}
		}
	}
	if !info.HasVideo() && !info.HasAudio() {
		return nil, errors.New("ffprobe returned no playable streams")
	}

	dur := streamDur
	if f, err := strconv.ParseFloat(d.Format.Duration, 64); err == nil && f > 0 {
		dur = f
	}
	info.Duration = time.Duration(dur * float64(time.Second))

	for _, part := range strings.Split(d.Format.FormatName, ",") {
		if t := strings.TrimSpace(part); t != "" {
			info.Container = t
			break
		}
	}
	if info.Container == "" {
		return nil, errors.New("ffprobe returned empty format_name")
	}
	return info, nil
}
