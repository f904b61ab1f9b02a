package markdown

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Slugify converts heading text into a GFM-compatible anchor:
// lowercase, NFKD-normalised, letters and digits kept, whitespace and ASCII
// punctuation turned into '-', everything else dropped. Dashes are neither
// collapsed nor trimmed, so "Intro - description" becomes "intro---description".
func Slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(norm.NFKD.String(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || isGFMPunct(r):
			b.WriteByte('-')
		}
	}
	return b.String()
}

func isGFMPunct(r rune) bool {
	return r < unicode.MaxASCII && strings.ContainsRune("!\"#$%&()*+,./:;<=>@[\\]^_`{|}~-", r)
}

// slugger hands out unique slugs within one document, suffixing repeats
// with -1, -2 and so on.
type slugger struct {
	used map[string]struct{}
}

func newSlugger() *slugger {
	return &slugger{used: make(map[string]struct{})}
}

func (s *slugger) reserve(slug string) {
	s.used[slug] = struct{}{}
}

func (s *slugger) next(text string) string {
	base := Slugify(text)
	if base == "" {
		return ""
	}
	slug := base
	for n := 1; ; n++ {
		if _, taken := s.used[slug]; !taken {
			break
		}
		slug = base + "-" + strconv.Itoa(n)
	}
	s.used[slug] = struct{}{}
	return slug
}
