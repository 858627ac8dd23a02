package worker

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ManuGH/amgplay/internal/domain/model"
	"github.com/ManuGH/amgplay/internal/fsutil"
	"github.com/ManuGH/amgplay/internal/log"
	"github.com/ManuGH/amgplay/internal/media/tag"
)

const coverFileName = "cover.jpg"

// download saves the track under <dir>/<Artist> - <Album>/<NN - Title>.<ext>
// with the album cover next to it. Cover and tag failures are logged only.
func (o *Orchestrator) download(ctx context.Context, t model.Track) error {
	desc, err := o.resolveAny(ctx, o.deps.DownloadResolver, t)
	if err != nil {
		return err
	}

	review := model.Review{}
	if t.Review != nil {
		review = *t.Review
	}
	album := review.Album
	if album == "" {
		album = review.Title
	}
	dir, err := fsutil.AlbumDir(o.cfg.DownloadDir, review.Artist, album)
	if err != nil {
		return model.PlaybackError("download.layout", t.ID, err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return model.PlaybackError("download.layout", t.ID, err)
	}

	o.trackNo[review.URL]++
	n := o.trackNo[review.URL]

	title := desc.Title
	if title == "" {
		title = t.Title
	}
	if title == "" {
		title = t.DisplayName()
	}
	ext := desc.Ext
	if ext == "" {
		ext = "bin"
	}

	path, err := o.deps.Fetcher.Fetch(ctx, desc, fsutil.TrackFile(dir, n, title, ext))
	if err != nil {
		return model.PlaybackError("download", t.ID, err)
	}

	cover := filepath.Join(dir, coverFileName)
	if fsutil.IsRegularFile(cover) != nil {
		if _, err := o.fetchCover(ctx, t, cover); err != nil && ctx.Err() == nil {
			o.logger.Warn().Err(err).Str(log.FieldTrackID, string(t.ID)).Msg("cover not saved")
		}
	}

	if tag.Supported(ext) {
		o.tag(ctx, t, review, path, cover, n, title)
	}
	o.logger.Info().
		Str(log.FieldEvent, "track.downloaded").
		Str(log.FieldTrackID, string(t.ID)).
		Str(log.FieldPath, path).
		Msg(title)
	return nil
}

func (o *Orchestrator) tag(ctx context.Context, t model.Track, r model.Review, path, cover string, n int, title string) {
	info := tag.Info{
		Artist: r.Artist,
		Album:  r.Album,
		Title:  title,
		Track:  n,
	}
	if !r.Published.IsZero() {
		info.Year = strconv.Itoa(r.Published.Year())
	}
	if len(r.Tags) > 0 {
		info.Genre = r.Tags[0]
	}
	if b, err := os.ReadFile(cover); err == nil {
		info.Cover = b
	}
	if o.deps.Prober != nil {
		if si, err := o.deps.Prober.Probe(ctx, path); err == nil {
			info.Duration = si.Duration
		} else {
			o.logger.Debug().Err(err).Str(log.FieldPath, path).Msg("probe failed")
		}
	}
	if err := tag.WriteMP3(path, info); err != nil {
		o.logger.Warn().Err(err).Str(log.FieldTrackID, string(t.ID)).Msg("tagging failed")
	}
}
