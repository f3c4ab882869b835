package format

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed corrections.yaml
var defaultCorrectionsYAML []byte

// Correction is one literal find/replace rule for a known factual error.
type Correction struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
	Replace string `yaml:"replace"`

	re *regexp.Regexp
}

// Corrections is a versioned table of corrections.
type Corrections struct {
	Version int          `yaml:"version"`
	Rules   []Correction `yaml:"corrections"`
}

// Apply runs every rule over text in table order.
func (c *Corrections) Apply(text string) string {
	if c == nil {
		return text
	}
	for _, r := range c.Rules {
		text = r.re.ReplaceAllLiteralString(text, r.Replace)
	}
	return text
}

// ParseCorrections decodes and compiles a YAML correction table.
func ParseCorrections(data []byte) (*Corrections, error) {
	var c Corrections
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode corrections: %w", err)
	}
	if c.Version <= 0 {
		return nil, fmt.Errorf("corrections table has no version")
	}
	for i := range c.Rules {
		re, err := regexp.Compile(c.Rules[i].Pattern)
		if err != nil {
			return nil, fmt.Errorf("correction %q: %w", c.Rules[i].Name, err)
		}
		c.Rules[i].re = re
	}
	return &c, nil
}

// LoadCorrections reads a correction table from disk.
func LoadCorrections(path string) (*Corrections, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corrections: %w", err)
	}
	return ParseCorrections(data)
}

// Tables holds the static lookup data the formatter works from. Build it
// once at startup and share the pointer; it is never mutated afterwards.
type Tables struct {
	// Emoji are glyphs that get spaced away from adjacent letters.
	Emoji []string
	// Directors are canonical spellings of highlighted director names.
	Directors []string
	// QuickReplySignatures are lower-case prefixes of canned replies.
	QuickReplySignatures []string
	Corrections          *Corrections

	gluedBefore *regexp.Regexp
	gluedAfter  *regexp.Regexp
	directorRe  *regexp.Regexp
	canonical   map[string]string
}

// DefaultTables returns the built-in tables with the embedded correction table.
func DefaultTables() *Tables {
	corr, err := ParseCorrections(defaultCorrectionsYAML)
	if err != nil {
		panic(err)
	}
	return NewTables(
		[]string{"🎬", "🍿", "⭐", "📺", "🎟️", "🎥", "❓", "🤔", "👋", "😊", "😔", "🤩"},
		[]string{
			"Christopher Nolan",
			"Steven Spielberg",
			"Quentin Tarantino",
			"Martin Scorsese",
			"Ridley Scott",
			"Tim Burton",
		},
		[]string{
			"hello! i'm filmsage",
			"i'm filmsage, your",
			"you're welcome!",
			"goodbye! enjoy your movies!",
			"i'm doing well",
			"i don't have access to",
		},
		corr,
	)
}

// NewTables compiles the matchers derived from the raw tables.
func NewTables(emoji, directors, signatures []string, corr *Corrections) *Tables {
	t := &Tables{
		Emoji:                emoji,
		Directors:            directors,
		QuickReplySignatures: signatures,
		Corrections:          corr,
		canonical:            make(map[string]string, len(directors)),
	}

	if len(emoji) > 0 {
		quoted := make([]string, len(emoji))
		for i, e := range emoji {
			quoted[i] = regexp.QuoteMeta(e)
		}
		glyphs := "(" + strings.Join(quoted, "|") + ")"
		t.gluedBefore = regexp.MustCompile(`([\p{L}\p{N}])` + glyphs)
		t.gluedAfter = regexp.MustCompile(glyphs + `([\p{L}\p{N}])`)
	}

	if len(directors) > 0 {
		names := make([]string, len(directors))
		for i, d := range directors {
			names[i] = regexp.QuoteMeta(d)
			t.canonical[strings.ToLower(d)] = d
		}
		t.directorRe = regexp.MustCompile(`(?i)\b(` + strings.Join(names, "|") + `)\b`)
	}
	return t
}
