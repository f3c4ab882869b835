package chat

import (
	"context"
	"fmt"
	"strings"

	"filmsage-backend/internal/logging"
	"filmsage-backend/internal/models"
)

const (
	listingSize     = 5
	listingOverview = 200
	listingClosing  = "Would you like more details about any of these films?"
)

// searchListing answers a direct search from the catalog alone. It returns
// markdown-ish text for the listing formatter.
func (o *Orchestrator) searchListing(ctx context.Context, term string) string {
	movies, err := o.catalog.Search(ctx, term)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("term", term).Msg("catalog search failed, falling back to popular movies")
		popular, perr := o.catalog.Popular(ctx)
		if perr != nil || len(popular) == 0 {
			return noResults(term)
		}
		header := fmt.Sprintf("I couldn't search the movie catalog for '%s' right now, but here are some popular movies:", term)
		return renderListing(header, popular)
	}

	if len(movies) == 0 {
		people, perr := o.catalog.SearchByPerson(ctx, term)
		if perr != nil {
			logging.Ctx(ctx).Warn().Err(perr).Str("term", term).Msg("person search failed")
		}
		movies = people
	}
	if len(movies) == 0 {
		return noResults(term)
	}

	return renderListing(fmt.Sprintf("Here are some movies matching '%s':", term), movies)
}

func noResults(term string) string {
	return fmt.Sprintf("I couldn't find any movies matching '%s'. Would you like me to suggest something similar?", term)
}

func renderListing(header string, movies []models.MovieSummary) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")

	for i, m := range movies {
		if i == listingSize {
			break
		}
		year := m.Year()
		if year == "" {
			year = "N/A"
		}
		fmt.Fprintf(&b, "* **%s** (%s)", m.Title, year)
		if m.Rating > 0 {
			fmt.Fprintf(&b, " - Rating: %.1f/10", m.Rating)
		}
		b.WriteString("\n")
		if ov := strings.Join(strings.Fields(m.Overview), " "); ov != "" {
			b.WriteString("  " + truncate(ov, listingOverview) + "\n")
		}
	}

	if extra := len(movies) - listingSize; extra > 0 {
		fmt.Fprintf(&b, "\n*...and %d more results*\n", extra)
	}
	b.WriteString("\n" + listingClosing)
	return b.String()
}
