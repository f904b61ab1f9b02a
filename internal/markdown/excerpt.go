package markdown

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// DefaultExcerptLength is the rune budget used by Excerpt when max <= 0.
const DefaultExcerptLength = 280

// Excerpt returns the text of the first non-empty paragraph of rendered HTML,
// cut at a word boundary so it fits in max runes.
func Excerpt(rendered string, max int) string {
	if max <= 0 {
		max = DefaultExcerptLength
	}
	z := html.NewTokenizer(strings.NewReader(rendered))
	depth := 0
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return truncate(b.String(), max)
		case html.StartTagToken:
			if name, _ := z.TagName(); string(name) == "p" {
				depth++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == "p" && depth > 0 {
				depth--
				if text := strings.TrimSpace(b.String()); text != "" {
					return truncate(text, max)
				}
				b.Reset()
			}
		case html.TextToken:
			if depth > 0 {
				b.Write(z.Text())
			}
		}
	}
}

func truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)[:max]
	cut := string(runes)
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:.") + "…"
}
