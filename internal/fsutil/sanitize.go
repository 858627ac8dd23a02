// SPDX-License-Identifier: MIT

// Package fsutil builds safe on-disk names for downloads.
package fsutil

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const maxNameBytes = 120

var reserved = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", " -",
	"*", "",
	"?", "",
	"\"", "'",
	"<", "(",
	">", ")",
	"|", "-",
)

// SafeName turns display text into a single path element. Accents are kept
// (NFC), separators and characters rejected by common filesystems are
// replaced, and the result is capped in length. Empty input yields fallback.
func SafeName(s, fallback string) string {
	s = norm.NFC.String(s)
	s = reserved.Replace(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Trim(s, ". ")

	if len(s) > maxNameBytes {
		cut := maxNameBytes
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = strings.TrimRight(s[:cut], ". ")
	}
	if s == "" {
		return fallback
	}
	return s
}

// AlbumDir is "<Artist> - <Album>" under root.
func AlbumDir(root, artist, album string) (string, error) {
	name := SafeName(album, "Unknown Album")
	if a := SafeName(artist, ""); a != "" {
		name = a + " - " + name
	}
	return Confine(root, name)
}

// TrackFile is "<NN - Title>.<ext>" inside dir. index is 1-based.
func TrackFile(dir string, index int, title, ext string) string {
	name := SafeName(title, "Track")
	if index > 0 {
		name = fmt.Sprintf("%02d - %s", index, name)
	}
	if ext = strings.TrimPrefix(ext, "."); ext != "" {
		name += "." + SafeName(ext, "bin")
	}
	return filepath.Join(dir, name)
}
