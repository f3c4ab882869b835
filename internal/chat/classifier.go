package chat

import (
	"hash/fnv"
	"strings"
)

// Kind is the handling path chosen for an utterance.
type Kind int

const (
	LLMQuery Kind = iota
	QuickReply
	DirectSearch
	Disambiguation
)

func (k Kind) String() string {
	switch k {
	case QuickReply:
		return "quick_reply"
	case DirectSearch:
		return "direct_search"
	case Disambiguation:
		return "disambiguation"
	default:
		return "llm"
	}
}

// Classification is the classifier's verdict. Text carries the canned
// reply, the search term or the clarification prompt; for LLMQuery it is
// the trimmed utterance.
type Classification struct {
	Kind Kind
	Text string
}

// Classifier routes utterances using static rules only; it does no I/O.
type Classifier struct {
	rules *Rules
}

func NewClassifier(rules *Rules) *Classifier {
	if rules == nil {
		rules = DefaultRules()
	}
	for i := range rules.Ambiguous {
		if rules.Ambiguous[i].word == nil {
			rules.Ambiguous[i].compile()
		}
	}
	return &Classifier{rules: rules}
}

// Classify is total: every input, including "", yields a classification.
func (c *Classifier) Classify(utterance string) Classification {
	trimmed := strings.TrimSpace(utterance)
	norm := strings.ToLower(trimmed)

	if reply, ok := c.quickReply(norm); ok {
		return Classification{Kind: QuickReply, Text: reply}
	}
	if term, ok := c.directSearch(norm); ok {
		return Classification{Kind: DirectSearch, Text: term}
	}
	if prompt, ok := c.ambiguity(norm); ok {
		return Classification{Kind: Disambiguation, Text: prompt}
	}
	return Classification{Kind: LLMQuery, Text: trimmed}
}

func (c *Classifier) quickReply(norm string) (string, bool) {
	if norm == "" {
		return "", false
	}
	onTopic := c.mentionsMovies(norm)
	for _, r := range c.rules.QuickReplies {
		if r.OffTopicOnly && onTopic {
			continue
		}
		if len(norm) < r.MinLength || !r.Pattern.MatchString(norm) {
			continue
		}
		return pick(r.Replies, norm), true
	}
	return "", false
}

func (c *Classifier) mentionsMovies(norm string) bool {
	return containsAny(norm, c.rules.MovieSignals)
}

// pick chooses a reply from a hash of the utterance, so the same question
// always gets the same answer.
func pick(replies []string, norm string) string {
	if len(replies) == 1 {
		return replies[0]
	}
	h := fnv.New32a()
	h.Write([]byte(norm))
	return replies[h.Sum32()%uint32(len(replies))]
}

func (c *Classifier) directSearch(norm string) (string, bool) {
	var directive string
	for _, d := range c.rules.SearchDirectives {
		if strings.HasPrefix(norm, d) {
			directive = d
			break
		}
	}
	if directive == "" || !containsAny(norm, c.rules.SearchDomain) {
		return "", false
	}
	return c.searchTerm(strings.TrimPrefix(norm, directive)), true
}

// searchTerm drops domain words as whole words, so titles containing
// "film" as a substring keep their spelling.
func (c *Classifier) searchTerm(rest string) string {
	fields := strings.Fields(rest)
	kept := fields[:0]
	for _, f := range fields {
		drop := false
		for _, w := range c.rules.DomainWords {
			if f == w {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, f)
		}
	}
	if len(kept) == 0 {
		return c.rules.DefaultSearch
	}
	return strings.Join(kept, " ")
}

func (c *Classifier) ambiguity(norm string) (string, bool) {
	for _, o := range c.rules.Overrides {
		if strings.Contains(norm, o) {
			return "", false
		}
	}
	if !containsAny(norm, c.rules.EntitySignals) {
		return "", false
	}
	for i := range c.rules.Ambiguous {
		if a := &c.rules.Ambiguous[i]; a.mentionedBare(norm) {
			return a.Prompt(), true
		}
	}
	return "", false
}
