package chat

import (
	"context"
	"fmt"
	"strings"

	"filmsage-backend/internal/logging"
	"filmsage-backend/internal/models"
)

// Catalog is the movie database as seen by the chat pipeline. Callers treat
// any error as "no data".
type Catalog interface {
	Search(ctx context.Context, query string) ([]models.MovieSummary, error)
	SearchByPerson(ctx context.Context, name string) ([]models.MovieSummary, error)
	Details(ctx context.Context, id int64) (*models.MovieDetails, error)
	Trending(ctx context.Context) ([]models.MovieSummary, error)
	Popular(ctx context.Context) ([]models.MovieSummary, error)
}

const (
	minEnhanceLength = 10
	overviewInPrompt = 150
)

var (
	fillerUtterances = map[string]bool{"thanks": true, "thank you": true, "hello": true, "hi": true, "ok": true}
	enhanceKeywords  = []string{"movie", "watch", "film", "recommend", "trending", "popular", "actor", "director", "similar", "like"}
	recommendPhrases = []string{"recommend", "suggest", "similar to", "like"}
)

// Enhancement is the prompt to send for the user turn, plus the catalog ID
// of the movie it was grounded on, if any.
type Enhancement struct {
	Prompt  string
	MovieID *int64
}

// ContextEnhancer grounds a user turn with catalog facts about the movie it
// names.
type ContextEnhancer struct {
	catalog Catalog
}

func NewContextEnhancer(catalog Catalog) *ContextEnhancer {
	return &ContextEnhancer{catalog: catalog}
}

// Enhance never fails: any problem leaves the text unchanged.
func (e *ContextEnhancer) Enhance(ctx context.Context, text string) (res Enhancement) {
	res = Enhancement{Prompt: text}
	defer func() {
		if r := recover(); r != nil {
			logging.Ctx(ctx).Error().Str("panic", fmt.Sprint(r)).Msg("context enhancement failed")
			res = Enhancement{Prompt: text}
		}
	}()

	lower := strings.ToLower(strings.TrimSpace(text))
	if len(lower) < minEnhanceLength || fillerUtterances[lower] {
		return res
	}
	if !containsAny(lower, enhanceKeywords) && !containsAny(lower, recommendPhrases) {
		return res
	}

	title, ok := ExtractTitle(text)
	if !ok {
		return res
	}

	hits, err := e.catalog.Search(ctx, title)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("title", title).Msg("catalog search failed, skipping context")
		return res
	}
	if len(hits) == 0 {
		logging.Ctx(ctx).Info().Str("title", title).Msg("no catalog match, skipping context")
		return res
	}

	top := hits[0]
	id := top.ID
	res.MovieID = &id

	details, err := e.catalog.Details(ctx, top.ID)
	if err != nil || details == nil {
		logging.Ctx(ctx).Warn().Err(err).Int64("movie_id", top.ID).Msg("movie details unavailable, using basic context")
		res.Prompt = fmt.Sprintf("Context: %s (%s). User asked: %s", top.Title, orNA(top.Year()), text)
		return res
	}

	res.Prompt = movieContext(details, top, text)
	logging.Ctx(ctx).Debug().Int64("movie_id", top.ID).Str("title", top.Title).Msg("prompt grounded with movie context")
	return res
}

func movieContext(d *models.MovieDetails, top models.MovieSummary, text string) string {
	title := d.Title
	if title == "" {
		title = top.Title
	}
	year := d.Year()
	if year == "" {
		year = top.Year()
	}
	director, ok := d.Director()
	if !ok {
		director = "N/A"
	}
	genres := strings.Join(d.GenreNames(), ", ")

	return fmt.Sprintf("Context: %s (%s), directed by %s. Genres: %s. Overview: %s. User asked: %s",
		title, orNA(year), director, orNA(genres), truncate(d.Overview, overviewInPrompt), text)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// truncate cuts s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
