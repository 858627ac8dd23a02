// Package tag writes ID3v2 metadata into downloaded MP3 files.
package tag

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bogem/id3v2"
)

// Info is the metadata stamped into a file.
type Info struct {
	Artist   string
	Album    string
	Title    string
	Track    int
	Year     string
	Genre    string
	Duration time.Duration
	// Cover is raw image data for the front-cover frame.
	Cover []byte
}

// Supported reports whether ext names a format this package can tag.
func Supported(ext string) bool {
	return strings.EqualFold(strings.TrimPrefix(ext, "."), "mp3")
}

// WriteMP3 replaces the tag of the MP3 at path with info. Empty fields
// are left out.
func WriteMP3(path string, info Info) error {
	t, err := id3v2.Open(path, id3v2.Options{Parse: false})
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = t.Close() }()

	t.SetVersion(4)
	t.SetDefaultEncoding(id3v2.EncodingUTF8)
	enc := t.DefaultEncoding()

	if info.Artist != "" {
		t.SetArtist(info.Artist)
	}
	if info.Album != "" {
		t.SetAlbum(info.Album)
	}
	if info.Title != "" {
		t.SetTitle(info.Title)
	}
	if info.Year != "" {
		t.SetYear(info.Year)
	}
	if info.Genre != "" {
		t.SetGenre(info.Genre)
	}
	if info.Track > 0 {
		t.AddTextFrame(t.CommonID("Track number/Position in set"), enc, strconv.Itoa(info.Track))
	}
	if info.Duration > 0 {
		t.AddTextFrame("TLEN", enc, strconv.FormatInt(info.Duration.Milliseconds(), 10))
	}
	if len(info.Cover) > 0 {
		t.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    enc,
			MimeType:    http.DetectContentType(info.Cover),
			PictureType: id3v2.PTFrontCover,
			Description: "Front cover",
			Picture:     info.Cover,
		})
	}

	if err := t.Save(); err != nil {
		return fmt.Errorf("save tag: %w", err)
	}
	return nil
}

// ReadMP3 returns the text metadata of the MP3 at path and whether a
// front cover is attached.
func ReadMP3(path string) (Info, bool, error) {
	t, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return Info{}, false, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = t.Close() }()

	info := Info{
		Artist: t.Artist(),
		Album:  t.Album(),
		Title:  t.Title(),
		Year:   t.Year(),
		Genre:  t.Genre(),
	}
	if tf := t.GetTextFrame(t.CommonID("Track number/Position in set")); tf.Text != "" {
		n, _, _ := strings.Cut(tf.Text, "/")
		info.Track, _ = strconv.Atoi(n)
	}
	if tf := t.GetTextFrame("TLEN"); tf.Text != "" {
		if ms, err := strconv.ParseInt(tf.Text, 10, 64); err == nil {
			info.Duration = time.Duration(ms) * time.Millisecond
		}
	}
	hasCover := len(t.GetFrames(t.CommonID("Attached picture"))) > 0
	return info, hasCover, nil
}
