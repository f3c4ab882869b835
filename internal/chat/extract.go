package chat

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	capWord = `[A-Z0-9][A-Za-z0-9'&:.-]*`
	joiner  = `(?:of|the|and|a|an|in|on|to|for|at)`
)

var (
	quotedSpan = regexp.MustCompile(`["“]([^"”]+)["”]`)
	// A run of capitalized words (allowing lower-case joiners inside)
	// directly followed by "movie"/"film" or by a parenthesized year.
	titleBeforeCue = regexp.MustCompile(`\b(` + capWord + `(?:\s+(?:` + joiner + `\s+)*` + capWord + `)*)(?:\s+(?:movie|film)\b|\s*\(\d{4}\))`)
	capitalizedRun = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+)+)\b`)
	filmToken      = regexp.MustCompile(`(?i)\b(movie|film)\b`)
)

// ExtractTitle finds the most likely movie title in text. The first
// strategy that succeeds wins: a quoted span, a capitalized phrase before
// "movie"/"film"/"(YYYY)", then any multi-word capitalized phrase when the
// text mentions a movie or film.
func ExtractTitle(text string) (string, bool) {
	var title string
	switch {
	case quotedSpan.MatchString(text):
		title = quotedSpan.FindStringSubmatch(text)[1]
	case titleBeforeCue.MatchString(text):
		title = titleBeforeCue.FindStringSubmatch(text)[1]
	case filmToken.MatchString(text) && capitalizedRun.MatchString(text):
		title = capitalizedRun.FindStringSubmatch(text)[1]
	default:
		return "", false
	}

	title = cleanTitle(title)
	return title, title != ""
}

func cleanTitle(t string) string {
	t = strings.TrimSpace(t)
	// one trailing mark; closing brackets keep "Heat (1995)" whole
	if r, size := utf8.DecodeLastRuneInString(t); size > 0 && unicode.IsPunct(r) && !unicode.Is(unicode.Pe, r) {
		t = strings.TrimSpace(t[:len(t)-size])
	}
	lower := strings.ToLower(t)
	for _, suffix := range []string{" movie", " film", " about"} {
		if strings.HasSuffix(lower, suffix) {
			t = strings.TrimSpace(t[:len(t)-len(suffix)])
			break
		}
	}
	return t
}
