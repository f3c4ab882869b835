// Package format turns raw model text into the HTML fragment the chat UI
// renders. Every entry point is total: malformed input degrades to plain
// escaped text, never to an error or an unclosed list.
package format

import (
	"fmt"
	"regexp"
	"strings"

	"filmsage-backend/internal/logging"
)

var (
	orderedItem   = regexp.MustCompile(`^\d+\.\s+(.*)$`)
	unorderedItem = regexp.MustCompile(`^(?:\*|-)\s+(.*)$`)
	headingLine   = regexp.MustCompile(`^(#{1,3})\s+(.*)$`)
	trailerLine   = regexp.MustCompile(`^\[SHOW_TRAILER:\d+\]$`)

	strayUnordered = regexp.MustCompile(`(?m)^(?:\*|-)\s+`)
	strayOrdered   = regexp.MustCompile(`(?m)^\d+\.\s+`)

	apostropheS  = regexp.MustCompile(`(?i)\b(let|it|that|he|she|who|what|where|when|there|here)[ \t]+s\b`)
	apostropheT  = regexp.MustCompile(`(?i)\b(don|won|can|didn|couldn|wouldn|shouldn|isn|aren|wasn|doesn)[ \t]+t\b`)
	apostropheRe = regexp.MustCompile(`(?i)\b(they|we|you)[ \t]+re\b`)

	greetingWord = regexp.MustCompile(`\b(hello|hi|hey)\b`)

	htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
)

const (
	recommendationHeading = "<h3>🍿 Movie Recommendations</h3>"
	directorEmoji         = "🎥"
	thinkingEmoji         = "🤔"
)

type listMode int

const (
	listNone listMode = iota
	listOrdered
	listUnordered
)

func (m listMode) open() string {
	if m == listOrdered {
		return "<ol>"
	}
	return "<ul>"
}

func (m listMode) close() string {
	if m == listOrdered {
		return "</ol>"
	}
	return "</ul>"
}

// Formatter is safe for concurrent use; all per-call state lives on the stack.
type Formatter struct {
	t *Tables
}

// New returns a formatter over t, or over DefaultTables when t is nil.
func New(t *Tables) *Formatter {
	if t == nil {
		t = DefaultTables()
	}
	return &Formatter{t: t}
}

// Format converts a raw model reply into display markup.
func (f *Formatter) Format(raw string) (out string) {
	if strings.TrimSpace(raw) == "" {
		return raw
	}
	defer func() {
		if r := recover(); r != nil {
			logging.Error().Str("panic", fmt.Sprint(r)).Msg("formatter failed, returning escaped text")
			out = escape(raw)
		}
	}()

	text := normalize(raw)
	text = escape(text)
	text = f.repair(text)

	lower := strings.ToLower(text)
	if f.isQuickReply(lower) {
		return formatSimple(text)
	}
	if isDisambiguation(lower) {
		return formatDisambiguation(text)
	}

	text = f.t.Corrections.Apply(text)
	text = structure(text)

	if isRecommendation(strings.ToLower(text)) && !strings.HasPrefix(text, "<h") {
		text = recommendationHeading + "\n" + text
	}

	text = f.highlightDirectors(text)
	text = emphasize(text)
	return cleanup(text)
}

// FormatSimple renders a short canned reply: inline emphasis plus one
// contextual emoji.
func (f *Formatter) FormatSimple(text string) string {
	return formatSimple(escape(strings.TrimSpace(text)))
}

// FormatDisambiguation wraps a clarification question in its container.
func (f *Formatter) FormatDisambiguation(text string) string {
	return formatDisambiguation(escape(strings.TrimSpace(text)))
}

// FormatListing renders generated catalog listings. It skips the text
// repair, correction and highlighting passes meant for model output.
func (f *Formatter) FormatListing(text string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = escape(text)
		}
	}()
	return cleanup(emphasize(structure(escape(normalize(text)))))
}

func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimSpace(s)
}

func escape(s string) string {
	return htmlEscaper.Replace(s)
}

// repair fixes tokenization glitches: emoji glued onto words and
// contractions split by a space.
func (f *Formatter) repair(s string) string {
	if f.t.gluedBefore != nil {
		s = f.t.gluedBefore.ReplaceAllString(s, "$1 $2")
		s = f.t.gluedAfter.ReplaceAllString(s, "$1 $2")
	}
	s = apostropheS.ReplaceAllString(s, "${1}'s")
	s = apostropheT.ReplaceAllString(s, "${1}'t")
	s = apostropheRe.ReplaceAllString(s, "${1}'re")
	return s
}

func (f *Formatter) isQuickReply(lower string) bool {
	for _, sig := range f.t.QuickReplySignatures {
		if strings.HasPrefix(lower, sig) {
			return true
		}
	}
	return false
}

func isDisambiguation(lower string) bool {
	asks := strings.Contains(lower, "could you clarify") ||
		strings.Contains(lower, "are you referring to") ||
		strings.Contains(lower, "did you mean") ||
		(strings.Contains(lower, "which") &&
			(strings.Contains(lower, "are you talking about") ||
				strings.Contains(lower, "do you mean") ||
				strings.Contains(lower, "would you like")))
	return asks && (strings.Contains(lower, "?") || strings.Contains(lower, "please specify"))
}

func isRecommendation(lower string) bool {
	for _, p := range []string{"recommend", "suggest", "might enjoy", "might like", "check out", "you could watch", "similar to"} {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return strings.Contains(lower, "fan of") && strings.Contains(lower, "enjoy")
}

func formatSimple(text string) string {
	text = emphasize(text)
	if e := simpleEmoji(strings.ToLower(text)); e != "" {
		return e + " " + text
	}
	return text
}

func simpleEmoji(lower string) string {
	switch {
	case greetingWord.MatchString(lower):
		return "👋"
	case strings.Contains(lower, "thank") || strings.Contains(lower, "welcome"):
		return "😊"
	case strings.Contains(lower, "sorry") || strings.Contains(lower, "apologize"):
		return "😔"
	case strings.Contains(lower, "clarify"):
		return "❓"
	case strings.Contains(lower, "recommend") || strings.Contains(lower, "suggest"):
		return "🍿"
	case strings.Contains(lower, "great") || strings.Contains(lower, "excellent"):
		return "🤩"
	case strings.Contains(lower, "watch") || strings.Contains(lower, "movie") || strings.Contains(lower, "film"):
		return "🎬"
	}
	return ""
}

func formatDisambiguation(text string) string {
	return "<div class='disambiguation-request'>\n" + thinkingEmoji + " " + text + "\n</div>"
}

// structure is the line state machine: lists, headings and paragraphs.
// It always returns with every list closed.
func structure(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines)+4)
	mode := listNone

	closeList := func() {
		if mode != listNone {
			out = append(out, mode.close())
			mode = listNone
		}
	}
	enter := func(m listMode) {
		if mode == m {
			return
		}
		closeList()
		out = append(out, m.open())
		mode = m
	}

	for _, raw := range lines {
		line := strings.TrimSpace(raw)

		if m := orderedItem.FindStringSubmatch(line); m != nil {
			enter(listOrdered)
			out = append(out, "  <li>"+strings.TrimSpace(m[1])+"</li>")
			continue
		}
		if m := unorderedItem.FindStringSubmatch(line); m != nil {
			enter(listUnordered)
			out = append(out, "  <li>"+strings.TrimSpace(m[1])+"</li>")
			continue
		}

		// Indented text under an item continues that item.
		indented := strings.HasPrefix(raw, " ") || strings.HasPrefix(raw, "\t")
		if mode != listNone && line != "" && indented && strings.HasSuffix(out[len(out)-1], "</li>") {
			prev := strings.TrimSuffix(out[len(out)-1], "</li>")
			out[len(out)-1] = prev + "<br>" + line + "</li>"
			continue
		}

		closeList()
		switch {
		case line == "":
			out = append(out, "")
		case trailerLine.MatchString(line):
			out = append(out, line)
		default:
			if h := headingLine.FindStringSubmatch(line); h != nil {
				level := len(h[1]) + 1
				out = append(out, fmt.Sprintf("<h%d>%s</h%d>", level, strings.TrimSpace(h[2]), level))
			} else {
				out = append(out, "<p>"+line+"</p>")
			}
		}
	}
	closeList()

	return strings.Join(out, "\n")
}

// highlightDirectors decorates known director names in text segments
// outside tags and outside spans it has already produced.
func (f *Formatter) highlightDirectors(text string) string {
	if f.t.directorRe == nil {
		return text
	}

	const spanOpen = "<span class='director-mention'>"
	var b strings.Builder
	inSpan := false
	for len(text) > 0 {
		lt := strings.IndexByte(text, '<')
		if lt < 0 {
			b.WriteString(f.decorate(text, inSpan))
			break
		}
		b.WriteString(f.decorate(text[:lt], inSpan))

		gt := strings.IndexByte(text[lt:], '>')
		if gt < 0 {
			b.WriteString(text[lt:])
			break
		}
		tag := text[lt : lt+gt+1]
		switch {
		case tag == spanOpen:
			inSpan = true
		case inSpan && tag == "</span>":
			inSpan = false
		}
		b.WriteString(tag)
		text = text[lt+gt+1:]
	}
	return b.String()
}

func (f *Formatter) decorate(segment string, inSpan bool) string {
	if inSpan || segment == "" {
		return segment
	}
	return f.t.directorRe.ReplaceAllStringFunc(segment, func(m string) string {
		name := f.t.canonical[strings.ToLower(m)]
		if name == "" {
			name = m
		}
		return directorEmoji + " <span class='director-mention'>" + name + "</span>"
	})
}

func cleanup(text string) string {
	text = strayUnordered.ReplaceAllString(text, "")
	text = strayOrdered.ReplaceAllString(text, "")

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}
