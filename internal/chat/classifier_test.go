package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testClassifier = NewClassifier(DefaultRules())

func TestClassify_QuickReplies(t *testing.T) {
	tests := []struct {
		in       string
		contains string
	}{
		{"hi", "Hello! I'm FilmSage"},
		{"Hello there", "Hello! I'm FilmSage"},
		{"Thank you!", "You're welcome!"},
		{"thx", "You're welcome!"},
		{"bye", "Goodbye! Enjoy your movies!"},
		{"Goodbye!", "Goodbye! Enjoy your movies!"},
		{"how are you doing", "I'm doing well"},
		{"what time is it", "local time"},
		{"is the weather nice today", "weather information"},
		{"what is the date today", "current date"},
		{"what is your name", "friendly movie recommendation assistant"},
		{"who are you", "friendly movie recommendation assistant"},
		{"how do i fix my bike", "answer your cinema-related questions"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got := testClassifier.Classify(tc.in)
			assert.Equal(t, QuickReply, got.Kind)
			assert.Contains(t, got.Text, tc.contains)
		})
	}
}

func TestClassify_JokeIsDeterministic(t *testing.T) {
	first := testClassifier.Classify("tell me a joke")
	assert.Equal(t, QuickReply, first.Kind)
	assert.Contains(t, movieJokes, first.Text)

	for i := 0; i < 5; i++ {
		assert.Equal(t, first, testClassifier.Classify("tell me a joke"))
	}
}

func TestClassify_MovieTopicsSkipDeflections(t *testing.T) {
	for _, in := range []string{
		"what time travel movies are good",
		"funny movies from the 90s",
		"who directed inception",
		"movies where the weather is a character",
		"hitchcock thrillers",
	} {
		assert.Equal(t, LLMQuery, testClassifier.Classify(in).Kind, in)
	}
}

func TestClassify_DirectSearch(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"search for comedies about time travel movies", "comedies about time travel"},
		{"Search for Matrix Movies", "matrix"},
		{"find movies", "popular"},
		{"show me films", "popular"},
		{"lookup heist film", "heist"},
		{"find finding nemo movie", "finding nemo"},
		{"search for filmography movies", "filmography"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got := testClassifier.Classify(tc.in)
			assert.Equal(t, DirectSearch, got.Kind)
			assert.Equal(t, tc.want, got.Text)
		})
	}
}

func TestClassify_DirectSearchNeedsDomainWord(t *testing.T) {
	assert.NotEqual(t, DirectSearch, testClassifier.Classify("find my keys").Kind)
	assert.NotEqual(t, DirectSearch, testClassifier.Classify("i want to search for movies").Kind)
}

func TestClassify_Ambiguity(t *testing.T) {
	got := testClassifier.Classify("is chris in a new movie")
	assert.Equal(t, Disambiguation, got.Kind)
	assert.Contains(t, got.Text, "Chris Evans")
	assert.Contains(t, got.Text, "Chris Pratt")
	assert.Contains(t, got.Text, "?")

	got = testClassifier.Classify("tom is my favorite actor")
	assert.Equal(t, Disambiguation, got.Kind)
	assert.Contains(t, got.Text, "Tom Hanks")

	got = testClassifier.Classify("best Jennifer films")
	assert.Equal(t, Disambiguation, got.Kind)
	assert.Contains(t, got.Text, "Jennifer Lawrence")
}

func TestClassify_NotAmbiguous(t *testing.T) {
	for _, in := range []string{
		"is christopher nolan making a new movie",
		"chris evans movies",
		"tom hanks films",
		"did chris nolan direct a film this year",
		"tomato soup in movies",
		"jennifer is nice",
	} {
		assert.NotEqual(t, Disambiguation, testClassifier.Classify(in).Kind, in)
	}
}

func TestClassify_OverrideWinsOverBareName(t *testing.T) {
	got := testClassifier.Classify("does chris like christopher nolan films")
	assert.NotEqual(t, Disambiguation, got.Kind)
}

func TestClassify_EmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\t"} {
		got := testClassifier.Classify(in)
		assert.Equal(t, LLMQuery, got.Kind)
		assert.Equal(t, "", got.Text)
	}
}

func TestClassify_LLMQueryKeepsOriginalCase(t *testing.T) {
	got := testClassifier.Classify("  Tell me about Inception movie ")
	assert.Equal(t, LLMQuery, got.Kind)
	assert.Equal(t, "Tell me about Inception movie", got.Text)
}

func TestNewClassifier_CompilesCustomRules(t *testing.T) {
	rules := DefaultRules()
	rules.Ambiguous = []AmbiguousName{{
		Name:       "emma",
		Candidates: []string{"Emma Stone", "Emma Watson"},
		Qualifiers: []string{"stone", "watson"},
	}}
	c := NewClassifier(rules)

	got := c.Classify("which movie has emma in it")
	assert.Equal(t, Disambiguation, got.Kind)
	assert.Contains(t, got.Text, "Emma Stone, Emma Watson")
	assert.NotEqual(t, Disambiguation, c.Classify("emma stone movie").Kind)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "quick_reply", QuickReply.String())
	assert.Equal(t, "direct_search", DirectSearch.String())
	assert.Equal(t, "disambiguation", Disambiguation.String())
	assert.Equal(t, "llm", LLMQuery.String())
}
