package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/amgplay/internal/domain/model"
	"github.com/ManuGH/amgplay/internal/infra/proc"
)

// Ytdlp resolves any page yt-dlp understands by asking it for JSON
// metadata of the selected format.
type Ytdlp struct {
	Bin     string
	Timeout time.Duration
	// AudioOnly requests "bestaudio" instead of the best single file.
	AudioOnly bool
}

func NewYtdlp(bin string, timeout time.Duration, audioOnly bool) *Ytdlp {
	if bin == "" {
		bin = "yt-dlp"
	}
	return &Ytdlp{Bin: bin, Timeout: timeout, AudioOnly: audioOnly}
}

func (y *Ytdlp) Resolve(ctx context.Context, ref model.SourceRef) (model.MediaDescriptor, error) {
	pageURL, err := PageURL(ref)
	if err != nil {
		return model.MediaDescriptor{}, err
	}
	return y.ResolveURL(ctx, ref, pageURL)
}

// ResolveURL runs yt-dlp against pageURL and reports the result for ref.
func (y *Ytdlp) ResolveURL(ctx context.Context, ref model.SourceRef, pageURL string) (model.MediaDescriptor, error) {
	if y.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, y.Timeout)
		defer cancel()
	}

	format := "best"
	if y.AudioOnly {
		format = "bestaudio/best"
	}
	res, err := proc.Run(ctx, proc.Spec{
		Tool: "yt-dlp",
		Bin:  y.Bin,
		Args: []string{"--no-playlist", "--no-warnings", "-j", "-f", format, pageURL},
	})
	if err != nil {
		return model.MediaDescriptor{}, err
	}
	return parseYtdlpInfo(ref, res.Stdout)
}

type ytdlpInfo struct {
	URL         string            `json:"url"`
	Ext         string            `json:"ext"`
	Title       string            `json:"title"`
	VCodec      string            `json:"vcodec"`
	ACodec      string            `json:"acodec"`
	HTTPHeaders map[string]string `json:"http_headers"`
}

func parseYtdlpInfo(ref model.SourceRef, out []byte) (model.MediaDescriptor, error) {
	var info ytdlpInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return model.MediaDescriptor{}, fmt.Errorf("yt-dlp: decode info: %w", err)
	}
	if info.URL == "" {
		return model.MediaDescriptor{}, errors.New("yt-dlp: no direct url in info")
	}
	if info.Ext == "" {
		info.Ext = extFromURL(info.URL)
	}
	return model.MediaDescriptor{
		Source:  ref,
		URL:     info.URL,
		Video:   info.VCodec != "" && info.VCodec != "none",
		Ext:     info.Ext,
		Title:   info.Title,
		Headers: info.HTTPHeaders,
	}, nil
}
