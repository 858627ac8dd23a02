package resolve

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ManuGH/amgplay/internal/domain/model"
	"github.com/kkdai/youtube/v2"
)

// YouTube resolves video ids through the innertube API.
type YouTube struct {
	client *youtube.Client
	// AudioOnly selects the best audio-only format instead of a progressive
	// audio+video one.
	AudioOnly bool
}

func NewYouTube(httpClient *http.Client, audioOnly bool) *YouTube {
	return &YouTube{
		client:    &youtube.Client{HTTPClient: httpClient},
		AudioOnly: audioOnly,
	}
}

func (y *YouTube) Resolve(ctx context.Context, ref model.SourceRef) (model.MediaDescriptor, error) {
	if ref.Provider != model.ProviderYouTube {
		return model.MediaDescriptor{}, fmt.Errorf("%w: %s", ErrUnsupported, ref.Provider)
	}
	video, err := y.client.GetVideoContext(ctx, ref.NativeID)
	if err != nil {
		return model.MediaDescriptor{}, fmt.Errorf("youtube metadata: %w", err)
	}
	format, err := pickFormat(video.Formats, y.AudioOnly)
	if err != nil {
		return model.MediaDescriptor{}, err
	}
	streamURL, err := y.client.GetStreamURLContext(ctx, video, format)
	if err != nil {
		return model.MediaDescriptor{}, fmt.Errorf("youtube stream url: %w", err)
	}
	return model.MediaDescriptor{
		Source: ref,
		URL:    streamURL,
		Video:  !y.AudioOnly,
		Ext:    extFromMime(format.MimeType),
		Title:  video.Title,
	}, nil
}

// pickFormat returns the highest progressive format, or the highest
// bitrate audio-only format when audioOnly is set.
func pickFormat(formats youtube.FormatList, audioOnly bool) (*youtube.Format, error) {
	var best *youtube.Format
	for i := range formats {
		f := &formats[i]
		if f.AudioChannels == 0 {
			continue
		}
		isVideo := f.Width != 0 || f.Height != 0
		if audioOnly == isVideo {
			continue
		}
		if best == nil || better(f, best, audioOnly) {
			best = f
		}
	}
	if best == nil {
		if audioOnly {
			return nil, errors.New("no audio-only formats available")
		}
		return nil, errors.New("no progressive (audio+video) formats available")
	}
	return best, nil
}

func better(a, b *youtube.Format, audioOnly bool) bool {
	if !audioOnly && a.Height != b.Height {
		return a.Height > b.Height
	}
	return bitrate(a) > bitrate(b)
}

func bitrate(f *youtube.Format) int {
	if f.AverageBitrate > 0 {
		return f.AverageBitrate
	}
	return f.Bitrate
}
