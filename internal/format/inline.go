package format

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type delimiter struct {
	ch byte
	n  int
	// tags open in order and close in reverse.
	tags []string
	// wordBound requires the run to sit outside a word, so identifiers
	// like SHOW_TRAILER or snake_case survive.
	wordBound bool
}

// Italics run before bold. Runs only pair with runs of the same length, so
// the italic pass never consumes half of a "**" or "***".
var emphasisPasses = []delimiter{
	{ch: '*', n: 3, tags: []string{"strong", "em"}},
	{ch: '_', n: 3, tags: []string{"strong", "em"}, wordBound: true},
	{ch: '*', n: 1, tags: []string{"em"}},
	{ch: '_', n: 1, tags: []string{"em"}, wordBound: true},
	{ch: '*', n: 2, tags: []string{"strong"}},
	{ch: '_', n: 2, tags: []string{"strong"}, wordBound: true},
}

func (d delimiter) open() string {
	var b strings.Builder
	for _, t := range d.tags {
		b.WriteString("<" + t + ">")
	}
	return b.String()
}

func (d delimiter) close() string {
	var b strings.Builder
	for i := len(d.tags) - 1; i >= 0; i-- {
		b.WriteString("</" + d.tags[i] + ">")
	}
	return b.String()
}

// emphasize converts markdown emphasis line by line.
func emphasize(text string) string {
	if !strings.ContainsAny(text, "*_") {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		for _, d := range emphasisPasses {
			line = applyDelimiter(line, d)
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

type span struct{ start, end int }

func applyDelimiter(s string, d delimiter) string {
	if strings.IndexByte(s, d.ch) < 0 {
		return s
	}

	var runs []span
	for i := 0; i < len(s); {
		if s[i] != d.ch {
			i++
			continue
		}
		j := i
		for j < len(s) && s[j] == d.ch {
			j++
		}
		if j-i == d.n {
			runs = append(runs, span{i, j})
		}
		i = j
	}
	if len(runs) < 2 {
		return s
	}

	var b strings.Builder
	last := 0
	for k := 0; k < len(runs); k++ {
		open := runs[k]
		if !canOpen(s, open, d) {
			continue
		}
		closer := -1
		for m := k + 1; m < len(runs); m++ {
			if canClose(s, runs[m], d) {
				closer = m
				break
			}
		}
		if closer < 0 {
			break
		}
		cl := runs[closer]
		b.WriteString(s[last:open.start])
		b.WriteString(d.open())
		b.WriteString(s[open.end:cl.start])
		b.WriteString(d.close())
		last = cl.end
		k = closer
	}
	if last == 0 {
		return s
	}
	b.WriteString(s[last:])
	return b.String()
}

// A run between two digits, as in 2*3*4, is arithmetic and never pairs.
func canOpen(s string, r span, d delimiter) bool {
	next, ok := runeAfter(s, r.end)
	if !ok || unicode.IsSpace(next) {
		return false
	}
	if prev, ok := runeBefore(s, r.start); ok && unicode.IsDigit(prev) && unicode.IsDigit(next) {
		return false
	}
	if d.wordBound {
		if prev, ok := runeBefore(s, r.start); ok && isWordRune(prev) {
			return false
		}
	}
	return true
}

func canClose(s string, r span, d delimiter) bool {
	prev, ok := runeBefore(s, r.start)
	if !ok || unicode.IsSpace(prev) {
		return false
	}
	if next, ok := runeAfter(s, r.end); ok && unicode.IsDigit(prev) && unicode.IsDigit(next) {
		return false
	}
	if d.wordBound {
		if next, ok := runeAfter(s, r.end); ok && isWordRune(next) {
			return false
		}
	}
	return true
}

func runeBefore(s string, i int) (rune, bool) {
	if i <= 0 {
		return 0, false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return r, true
}

func runeAfter(s string, i int) (rune, bool) {
	if i >= len(s) {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return r, true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
