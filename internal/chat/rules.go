package chat

import (
	"regexp"
	"strings"
)

// QuickReplyRule answers an utterance without touching the catalog or the
// model. Rules are evaluated in slice order; the first match wins.
type QuickReplyRule struct {
	Name    string
	Pattern *regexp.Regexp
	// OffTopicOnly rules are skipped when the utterance mentions movies,
	// so "what time travel movies..." still reaches the catalog.
	OffTopicOnly bool
	MinLength    int
	// Replies holds one canned text, or several picked deterministically.
	Replies []string
}

// AmbiguousName describes a first name shared by several well-known people.
type AmbiguousName struct {
	Name       string
	Candidates []string
	// Qualifiers are surnames that make a mention specific.
	Qualifiers []string

	word      *regexp.Regexp
	qualifier *regexp.Regexp
}

func (a *AmbiguousName) compile() {
	a.word = wordPattern(a.Name)
	if len(a.Qualifiers) > 0 {
		quoted := make([]string, len(a.Qualifiers))
		for i, q := range a.Qualifiers {
			quoted[i] = regexp.QuoteMeta(q)
		}
		a.qualifier = regexp.MustCompile(`\b(` + strings.Join(quoted, "|") + `)\b`)
	}
}

// mentionedBare reports a whole-word mention of the name with no
// qualifying surname anywhere in norm.
func (a *AmbiguousName) mentionedBare(norm string) bool {
	if !a.word.MatchString(norm) {
		return false
	}
	return a.qualifier == nil || !a.qualifier.MatchString(norm)
}

// Prompt is the clarification question for this name.
func (a AmbiguousName) Prompt() string {
	label := strings.ToUpper(a.Name[:1]) + a.Name[1:]
	return "I notice you mentioned " + label + ". Could you clarify which " + label +
		" you're referring to? For example, " + strings.Join(a.Candidates, ", ") + ", or someone else?"
}

// Rules is the full classifier rule set. Build it once and share it.
type Rules struct {
	QuickReplies []QuickReplyRule

	SearchDirectives []string
	SearchDomain     []string
	DomainWords      []string
	DefaultSearch    string

	// Overrides are full names that are never ambiguous.
	Overrides []string
	Ambiguous []AmbiguousName
	// EntitySignals mark an utterance as asking about a person on screen.
	EntitySignals []string
	// MovieSignals mark an utterance as being about movies at all.
	MovieSignals []string
}

var movieJokes = []string{
	"Why don't scientists trust atoms? Because they make up everything... just like Hollywood!",
	"What's a movie director's favorite food? Action rolls!",
	"Why did the actor fall through the floorboards? They were going for a dramatic breakthrough!",
	"What do you call a film about a procrastinating student? A cliff-hanger!",
	"Why was the movie star cool in the summer? Because they had all the fans!",
}

// DefaultRules returns the built-in rule set.
func DefaultRules() *Rules {
	r := &Rules{
		QuickReplies: []QuickReplyRule{
			{
				Name:    "greeting",
				Pattern: regexp.MustCompile(`^(hi|hello|hey)\b`),
				Replies: []string{"Hello! I'm FilmSage, your movie assistant. You can ask me about movies, directors, or get personalized recommendations. How can I help you today?"},
			},
			{
				Name:    "thanks",
				Pattern: regexp.MustCompile(`^(thanks|thank you|thx)\b`),
				Replies: []string{"You're welcome! Let me know if you need anything else."},
			},
			{
				Name:    "farewell",
				Pattern: regexp.MustCompile(`^(bye|goodbye)[\s!.]*$`),
				Replies: []string{"Goodbye! Enjoy your movies!"},
			},
			{
				Name:    "status",
				Pattern: regexp.MustCompile(`^(how are you|how's it going|how is it going)\b`),
				Replies: []string{"I'm doing well, thanks for asking! Ready to talk about movies anytime."},
			},
			{
				Name:         "time",
				Pattern:      regexp.MustCompile(`^time\b|\bwhat\b.*\btime\b|\btime\b.*\bwhat\b`),
				OffTopicOnly: true,
				Replies:      []string{"I don't have access to your local time. As a movie assistant, I focus on helping you find great films to watch!"},
			},
			{
				Name:         "weather",
				Pattern:      regexp.MustCompile(`\b(weather|forecast)\b`),
				OffTopicOnly: true,
				Replies:      []string{"I don't have access to weather information. I'm specialized in movies and can help you find something great to watch instead!"},
			},
			{
				Name:         "date",
				Pattern:      regexp.MustCompile(`\bwhat\b.*\bdate\b|\bdate\b.*\bwhat\b`),
				OffTopicOnly: true,
				Replies:      []string{"I don't have access to the current date. However, I can definitely help you find a great movie to watch today!"},
			},
			{
				Name:         "identity",
				Pattern:      regexp.MustCompile(`\bwho are you\b|\bwhat\b.*\b(your name|about you|about yourself)\b`),
				OffTopicOnly: true,
				Replies:      []string{"I'm FilmSage, your friendly movie recommendation assistant. I can help you discover new films, learn about actors, or find something great to watch tonight!"},
			},
			{
				Name:         "joke",
				Pattern:      regexp.MustCompile(`\b(joke|jokes|funny)\b`),
				OffTopicOnly: true,
				Replies:      movieJokes,
			},
			{
				Name:         "out_of_domain",
				Pattern:      regexp.MustCompile(`\b(what|how|why|when|where|who)\b|\bcan you\b|\bcould you\b`),
				OffTopicOnly: true,
				MinLength:    6,
				Replies:      []string{"I'm FilmSage, your movie assistant! I can help you find movie recommendations, get details about films, actors, and directors, and answer your cinema-related questions."},
			},
		},

		SearchDirectives: []string{"search for ", "find ", "lookup ", "show me "},
		SearchDomain:     []string{" movie", " film", " movies", " films"},
		DomainWords:      []string{"movies", "movie", "films", "film"},
		DefaultSearch:    "popular",

		Overrides: []string{"christopher nolan"},
		Ambiguous: []AmbiguousName{
			{
				Name:       "chris",
				Candidates: []string{"Chris Evans", "Chris Hemsworth", "Chris Pine", "Chris Pratt"},
				Qualifiers: []string{"evans", "hemsworth", "pine", "pratt", "nolan", "columbus", "rock"},
			},
			{
				Name:       "tom",
				Candidates: []string{"Tom Hanks", "Tom Cruise", "Tom Hardy", "Tom Holland"},
				Qualifiers: []string{"hanks", "cruise", "hardy", "holland", "hiddleston"},
			},
			{
				Name:       "jennifer",
				Candidates: []string{"Jennifer Lawrence", "Jennifer Aniston", "Jennifer Lopez"},
				Qualifiers: []string{"lawrence", "aniston", "lopez", "connelly", "garner"},
			},
		},
		EntitySignals: []string{"movie", "film", "actor", "star", "play"},
		MovieSignals: []string{
			"movie", "film", "watch", "actor", "actress", "direct", "starring", "show", "series",
			"cinema", "seen", "trailer", "sequel", "plot", "genre", "oscar", "hollywood",
			"netflix", "imdb", "tmdb", "recommend", "suggest", "similar to", "like",
		},
	}

	for i := range r.Ambiguous {
		r.Ambiguous[i].compile()
	}
	return r
}

func wordPattern(w string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `\b`)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
