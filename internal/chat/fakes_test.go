package chat

import (
	"context"
	"sync"

	"filmsage-backend/internal/models"
	"filmsage-backend/internal/services"
)

type fakeCatalog struct {
	mu sync.Mutex

	searchResults []models.MovieSummary
	searchErr     error
	searchPanics  bool
	personResults []models.MovieSummary
	personErr     error
	details       *models.MovieDetails
	detailsErr    error
	trending      []models.MovieSummary
	trendingErr   error
	popular       []models.MovieSummary
	popularErr    error

	searches []string
	calls    int
}

func (f *fakeCatalog) record(query string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if query != "" {
		f.searches = append(f.searches, query)
	}
}

func (f *fakeCatalog) Search(_ context.Context, query string) ([]models.MovieSummary, error) {
	f.record(query)
	if f.searchPanics {
		panic("catalog exploded")
	}
	return f.searchResults, f.searchErr
}

func (f *fakeCatalog) SearchByPerson(_ context.Context, name string) ([]models.MovieSummary, error) {
	f.record("")
	return f.personResults, f.personErr
}

func (f *fakeCatalog) Details(_ context.Context, _ int64) (*models.MovieDetails, error) {
	f.record("")
	return f.details, f.detailsErr
}

func (f *fakeCatalog) Trending(_ context.Context) ([]models.MovieSummary, error) {
	f.record("")
	return f.trending, f.trendingErr
}

func (f *fakeCatalog) Popular(_ context.Context) ([]models.MovieSummary, error) {
	f.record("")
	return f.popular, f.popularErr
}

type fakeLLM struct {
	reply  string
	err    error
	panics bool

	calls   int
	history []models.ChatTurn
	params  services.GenerationParams
}

func (f *fakeLLM) SendChat(_ context.Context, history []models.ChatTurn, params services.GenerationParams) (string, error) {
	f.calls++
	f.history = history
	f.params = params
	if f.panics {
		panic("llm exploded")
	}
	return f.reply, f.err
}

func inception() (models.MovieSummary, *models.MovieDetails) {
	summary := models.MovieSummary{ID: 27205, Title: "Inception", ReleaseDate: "2010-07-15", Rating: 8.4}
	details := &models.MovieDetails{
		ID:          27205,
		Title:       "Inception",
		ReleaseDate: "2010-07-15",
		Overview:    "Cobb, a skilled thief who commits corporate espionage by infiltrating the subconscious of his targets is offered a chance to regain his old life as payment for a task considered to be impossible.",
		Genres:      []models.Genre{{ID: 28, Name: "Action"}, {ID: 878, Name: "Science Fiction"}},
		Credits: models.Credits{Crew: []models.CrewMember{
			{Name: "Emma Thomas", Job: "Producer"},
			{Name: "Christopher Nolan", Job: "Director"},
		}},
	}
	return summary, details
}
