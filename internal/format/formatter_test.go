package format

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFormatter = New(nil)

func TestFormat_InlineEmphasis(t *testing.T) {
	out := testFormatter.Format("**Bold** and *italic*")
	assert.Contains(t, out, "<strong>Bold</strong>")
	assert.Contains(t, out, "<em>italic</em>")
}

func TestFormat_OrderedListThenParagraph(t *testing.T) {
	out := testFormatter.Format("1. First\n2. Second\n\nSome text")
	assert.Equal(t, "<ol>\n<li>First</li>\n<li>Second</li>\n</ol>\n<p>Some text</p>", out)
}

func TestFormat_SwitchingListTypes(t *testing.T) {
	out := testFormatter.Format("1. One\n- Dash\n- Dash again\n2. Two")
	assert.Equal(t, "<ol>\n<li>One</li>\n</ol>\n<ul>\n<li>Dash</li>\n<li>Dash again</li>\n</ul>\n<ol>\n<li>Two</li>\n</ol>", out)
}

func TestFormat_Headings(t *testing.T) {
	out := testFormatter.Format("# Title\n## Section\n### Sub\n#### Too deep")
	assert.Contains(t, out, "<h2>Title</h2>")
	assert.Contains(t, out, "<h3>Section</h3>")
	assert.Contains(t, out, "<h4>Sub</h4>")
	assert.Contains(t, out, "<p>#### Too deep</p>")
}

func TestFormat_IsTotal(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"***",
		"**unclosed",
		"_",
		"1.",
		"- ",
		"#",
		"<script>alert(1)</script>",
		"<ul><li>already html",
		strings.Repeat("* ", 500),
		strings.Repeat("1. a\n- b\n", 200),
		"\r\n\r\n- item\r\n",
	}
	for _, in := range inputs {
		var out string
		require.NotPanics(t, func() { out = testFormatter.Format(in) }, "input %q", in)
		assert.Equal(t, strings.Count(out, "<ul>"), strings.Count(out, "</ul>"), "input %q", in)
		assert.Equal(t, strings.Count(out, "<ol>"), strings.Count(out, "</ol>"), "input %q", in)
	}
}

func TestFormat_EscapesMarkup(t *testing.T) {
	out := testFormatter.Format("<b>Fast</b> & Furious <script>x</script>")
	assert.Contains(t, out, "&lt;b&gt;Fast&lt;/b&gt; &amp; Furious")
	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "<b>")
}

func TestFormat_ContractionRepair(t *testing.T) {
	out := testFormatter.Format("It s a film they re sure you don t know")
	assert.Equal(t, "<p>It's a film they're sure you don't know</p>", out)

	// Words that merely end in s or t are left alone.
	out = testFormatter.Format("The film lost its charm but cant be ignored")
	assert.Contains(t, out, "its charm")
	assert.Contains(t, out, "cant be")
}

func TestFormat_EmojiSpacing(t *testing.T) {
	out := testFormatter.Format("Great pick🎬Enjoy the show")
	assert.Contains(t, out, "pick 🎬 Enjoy")
}

func TestFormat_QuickReplySignature(t *testing.T) {
	out := testFormatter.Format("Hello! I'm FilmSage, your movie assistant. How can I help you today?")
	assert.True(t, strings.HasPrefix(out, "👋 Hello! I'm FilmSage"), out)
	assert.NotContains(t, out, "<p>")
}

func TestFormat_Disambiguation(t *testing.T) {
	out := testFormatter.Format("Did you mean Tom Hanks or Tom Cruise?")
	assert.Equal(t, "<div class='disambiguation-request'>\n🤔 Did you mean Tom Hanks or Tom Cruise?\n</div>", out)

	// Clarification phrasing without a question is formatted normally.
	out = testFormatter.Format("Which one would you like. Let me know")
	assert.True(t, strings.HasPrefix(out, "<p>"), out)
}

func TestFormat_Corrections(t *testing.T) {
	out := testFormatter.Format("Watch Wayne🎬s World tonight")
	assert.Contains(t, out, "Wayne's World")

	out = testFormatter.Format("The Siege (1998) starring Harrison Ford, Milla Jovovich is tense.")
	assert.Contains(t, out, "The Siege (1998): (Denzel Washington, Bruce Willis)")

	out = testFormatter.Format("Face/🎬Off (1997) with John Travolta and Kiefer Sutherland")
	assert.Contains(t, out, "Face/Off (1997): John Travolta and Nicolas Cage")
}

func TestFormat_RecommendationHeading(t *testing.T) {
	out := testFormatter.Format("I recommend these:\n- Inception\n- Memento")
	assert.True(t, strings.HasPrefix(out, "<h3>🍿 Movie Recommendations</h3>\n"), out)
	assert.Contains(t, out, "<ul>\n<li>Inception</li>\n<li>Memento</li>\n</ul>")

	out = testFormatter.Format("## Picks\nI recommend Inception")
	assert.True(t, strings.HasPrefix(out, "<h3>Picks</h3>"), out)
	assert.NotContains(t, out, "Movie Recommendations")

	out = testFormatter.Format("If you're a fan of heists you will enjoy Heat")
	assert.Contains(t, out, "Movie Recommendations")
}

func TestFormat_DirectorHighlight(t *testing.T) {
	out := testFormatter.Format("Christopher Nolan made Memento. Later christopher nolan made Tenet.")
	assert.Equal(t, 2, strings.Count(out, "<span class='director-mention'>Christopher Nolan</span>"))
	assert.Contains(t, out, "🎥 <span class='director-mention'>")

	// Names inside an existing director span are not wrapped again.
	already := "<p>🎥 <span class='director-mention'>Tim Burton</span> and Tim Burton</p>"
	got := testFormatter.highlightDirectors(already)
	assert.Equal(t, 2, strings.Count(got, "director-mention"))

	// Partial words do not match.
	got = testFormatter.highlightDirectors("<p>Tim Burtonesque</p>")
	assert.NotContains(t, got, "director-mention")
}

func TestFormat_TrailerMarkerPassesThrough(t *testing.T) {
	assert.Equal(t, "[SHOW_TRAILER:27205]", testFormatter.Format("[SHOW_TRAILER:27205]"))

	out := testFormatter.Format("You might enjoy **Inception**! [SHOW_TRAILER:27205]")
	assert.Contains(t, out, "[SHOW_TRAILER:27205]")
	assert.Contains(t, out, "<strong>Inception</strong>")
}

func TestEmphasize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bold and italic", "**Dune** is *great*", "<strong>Dune</strong> is <em>great</em>"},
		{"underscores", "__under__ and _it_", "<strong>under</strong> and <em>it</em>"},
		{"nested", "*italic with **bold** inside*", "<em>italic with <strong>bold</strong> inside</em>"},
		{"arithmetic", "2 * 3 * 4", "2 * 3 * 4"},
		{"tight arithmetic", "2*3*4", "2*3*4"},
		{"bold italic", "***Heat*** is a classic", "<strong><em>Heat</em></strong> is a classic"},
		{"bold italic underscores", "___Heat___", "<strong><em>Heat</em></strong>"},
		{"intraword italic", "un*believ*able", "un<em>believ</em>able"},
		{"identifier", "snake_case_name", "snake_case_name"},
		{"marker", "[SHOW_TRAILER:42] and [SHOW_TRAILER:43]", "[SHOW_TRAILER:42] and [SHOW_TRAILER:43]"},
		{"unclosed", "**open only", "**open only"},
		{"per line", "*a\nb*", "*a\nb*"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, emphasize(tc.in))
		})
	}
}

func TestFormatSimple_EmojiPriority(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello there", "👋 Hello there"},
		{"You're welcome! Let me know.", "😊 You're welcome! Let me know."},
		{"Sorry, I missed that", "😔 Sorry, I missed that"},
		{"Could you clarify?", "❓ Could you clarify?"},
		{"I suggest a comedy", "🍿 I suggest a comedy"},
		{"That was excellent", "🤩 That was excellent"},
		{"Goodbye! Enjoy your movies!", "🎬 Goodbye! Enjoy your movies!"},
		{"this is fine", "this is fine"},
		{"*Stay* curious", "<em>Stay</em> curious"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, testFormatter.FormatSimple(tc.in), tc.in)
	}
}

func TestFormatDisambiguation(t *testing.T) {
	out := testFormatter.FormatDisambiguation("Which Chris do you mean?")
	assert.Equal(t, "<div class='disambiguation-request'>\n🤔 Which Chris do you mean?\n</div>", out)
}

func TestFormatListing(t *testing.T) {
	listing := "* **The Matrix** (1999) - Rating: 8.7/10\n" +
		"  A hacker learns the truth.\n" +
		"* **Fast & Furious** (2009) - Rating: 6.7/10\n" +
		"\n*...and 2 more results*\n\n" +
		"Would you like more details about any of these films?"

	out := testFormatter.FormatListing(listing)
	assert.Contains(t, out, "<li><strong>The Matrix</strong> (1999) - Rating: 8.7/10<br>A hacker learns the truth.</li>")
	assert.Contains(t, out, "<strong>Fast &amp; Furious</strong>")
	assert.Contains(t, out, "<p><em>...and 2 more results</em></p>")
	assert.Equal(t, 1, strings.Count(out, "<ul>"))
	assert.Equal(t, 1, strings.Count(out, "</ul>"))
}

func TestParseCorrections(t *testing.T) {
	c, err := ParseCorrections([]byte("version: 2\ncorrections:\n  - name: x\n    pattern: 'Foo\\s+Bar'\n    replace: 'Baz'\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Version)
	assert.Equal(t, "a Baz b", c.Apply("a Foo   Bar b"))

	_, err = ParseCorrections([]byte("corrections: []\n"))
	assert.Error(t, err)

	_, err = ParseCorrections([]byte("version: 1\ncorrections:\n  - name: bad\n    pattern: '('\n"))
	assert.Error(t, err)

	_, err = ParseCorrections([]byte("version: [\n"))
	assert.Error(t, err)
}

func TestLoadCorrections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrections.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 7\ncorrections:\n  - name: t\n    pattern: 'Jaws 19'\n    replace: 'Jaws'\n"), 0o600))

	c, err := LoadCorrections(path)
	require.NoError(t, err)
	assert.Equal(t, 7, c.Version)

	f := New(NewTables(nil, nil, nil, c))
	assert.Equal(t, "<p>Jaws is great</p>", f.Format("Jaws 19 is great"))

	_, err = LoadCorrections(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultTables_EmbeddedCorrectionsCompile(t *testing.T) {
	tables := DefaultTables()
	require.NotNil(t, tables.Corrections)
	assert.Equal(t, 1, tables.Corrections.Version)
	assert.Len(t, tables.Corrections.Rules, 5)
}
