// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package extract

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/ManuGH/amgplay/internal/domain/model"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Matcher decides whether two embeds of one review carry the same song.
// Matching is best effort.
type Matcher interface {
	Same(a, b model.EmbedRef) bool
}

// NewMatcher returns the matcher for a configured strategy name.
func NewMatcher(strategy string) Matcher {
	if strategy == "none" {
		return NoMatcher{}
	}
	return TitleMatcher{}
}

// NoMatcher never collapses embeds.
type NoMatcher struct{}

func (NoMatcher) Same(model.EmbedRef, model.EmbedRef) bool { return false }

// TitleMatcher compares normalized display text. Embeds from the same
// provider and embeds without text never match.
type TitleMatcher struct{}

const minContainedLen = 6

func (TitleMatcher) Same(a, b model.EmbedRef) bool {
	if a.Source.Provider == b.Source.Provider {
		return false
	}
	na, nb := NormalizeTitle(a.Text), NormalizeTitle(b.Text)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	short, long := na, nb
	if len(short) > len(long) {
		short, long = long, short
	}
	return len(short) >= minContainedLen && strings.Contains(long, short)
}

var (
	bracketedRe = regexp.MustCompile(`[\(\[][^\)\]]*[\)\]]`)
	noiseWords  = []string{"official music video", "official video", "official audio", "lyric video", "music video", "full album stream"}
)

// NormalizeTitle folds case and accents, drops bracketed annotations and
// common video suffixes, and collapses punctuation to single spaces.
func NormalizeTitle(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(bracketedRe.ReplaceAllString(folded, " "))
	for _, w := range noiseWords {
		folded = strings.ReplaceAll(folded, w, " ")
	}
	var b strings.Builder
	space := false
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteRune(r)
			space = false
			continue
		}
		space = true
	}
	return b.String()
}
