package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"filmsage-backend/internal/cache"
	"filmsage-backend/internal/logging"
	"filmsage-backend/internal/metrics"
	"filmsage-backend/internal/models"
)

var (
	ErrMovieNotFound = errors.New("movie not found")
	ErrNoTrailer     = errors.New("no trailer available")
)

// listLimit caps trending and popular listings.
const listLimit = 10

// TMDBClient is the movie catalog. Every upstream call goes through one
// circuit breaker; results are cached for the configured TTL.
type TMDBClient struct {
	baseURL    string
	apiKey     string
	region     string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker[[]byte]

	lists     *cache.Cache[[]models.MovieSummary]
	details   *cache.Cache[*models.MovieDetails]
	trailers  *cache.Cache[string]
	providers *cache.Cache[models.WatchProviders]
}

type TMDBConfig struct {
	BaseURL  string
	APIKey   string
	Region   string
	Timeout  time.Duration
	CacheTTL time.Duration
	Breaker  BreakerSettings
}

type statusError struct {
	endpoint string
	code     int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("tmdb %s returned status %d", e.endpoint, e.code)
}

func NewTMDBClient(cfg TMDBConfig) *TMDBClient {
	if cfg.Region == "" {
		cfg.Region = "US"
	}
	if cfg.Breaker.Ignore == nil {
		cfg.Breaker.Ignore = func(err error) bool {
			var se *statusError
			return errors.Is(err, context.Canceled) || (errors.As(err, &se) && se.code == http.StatusNotFound)
		}
	}
	return &TMDBClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		region:     strings.ToUpper(cfg.Region),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cb:         newBreaker[[]byte]("tmdb-api", cfg.Breaker),
		lists:      cache.New[[]models.MovieSummary]("movie_lists", cfg.CacheTTL),
		details:    cache.New[*models.MovieDetails]("movie_details", cfg.CacheTTL),
		trailers:   cache.New[string]("trailer_keys", cfg.CacheTTL),
		providers:  cache.New[models.WatchProviders]("watch_providers", cfg.CacheTTL),
	}
}

// get fetches path and decodes the JSON body into out. endpoint labels
// metrics and errors.
func (c *TMDBClient) get(ctx context.Context, endpoint, path string, query url.Values, out any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)
	target := c.baseURL + path + "?" + query.Encode()

	body, err := c.cb.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
			return nil, &statusError{endpoint: endpoint, code: resp.StatusCode}
		}
		return io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	})
	if err != nil {
		metrics.CatalogRequests.WithLabelValues(endpoint, "error").Inc()
		if rejected(err) {
			return fmt.Errorf("tmdb %s: %w", endpoint, err)
		}
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return ErrMovieNotFound
		}
		return fmt.Errorf("tmdb %s request failed: %w", endpoint, err)
	}
	metrics.CatalogRequests.WithLabelValues(endpoint, "ok").Inc()

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode tmdb %s response: %w", endpoint, err)
	}
	return nil
}

// Search finds movies by title.
func (c *TMDBClient) Search(ctx context.Context, query string) ([]models.MovieSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	key := "search:" + strings.ToLower(query)
	if e, ok := c.lists.Get(key); ok {
		return e.Value, nil
	}

	var list models.MovieList
	q := url.Values{"query": {query}, "include_adult": {"false"}}
	if err := c.get(ctx, "search", "/search/movie", q, &list); err != nil {
		return nil, err
	}
	c.lists.Put(key, list.Results)
	return list.Results, nil
}

// SearchByPerson finds the best matching person and lists their movies by
// popularity: directed titles for directors, acting credits otherwise.
func (c *TMDBClient) SearchByPerson(ctx context.Context, name string) ([]models.MovieSummary, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	key := "person:" + strings.ToLower(name)
	if e, ok := c.lists.Get(key); ok {
		return e.Value, nil
	}

	var people struct {
		Results []models.Person `json:"results"`
	}
	if err := c.get(ctx, "search_person", "/search/person", url.Values{"query": {name}}, &people); err != nil {
		return nil, err
	}
	if len(people.Results) == 0 {
		logging.Ctx(ctx).Info().Str("query", name).Msg("no person found")
		c.lists.Put(key, nil)
		return nil, nil
	}

	person := people.Results[0]
	credit := "with_cast"
	if person.IsDirector() {
		credit = "with_crew"
	}
	var list models.MovieList
	q := url.Values{credit: {strconv.FormatInt(person.ID, 10)}, "sort_by": {"popularity.desc"}}
	if err := c.get(ctx, "discover", "/discover/movie", q, &list); err != nil {
		return nil, err
	}
	logging.Ctx(ctx).Debug().Int64("person_id", person.ID).Int("movies", len(list.Results)).Bool("director", person.IsDirector()).Msg("movies discovered by person")
	c.lists.Put(key, list.Results)
	return list.Results, nil
}

// Details returns the full record with credits, videos and similar titles.
func (c *TMDBClient) Details(ctx context.Context, id int64) (*models.MovieDetails, error) {
	key := strconv.FormatInt(id, 10)
	if e, ok := c.details.Get(key); ok {
		return e.Value, nil
	}

	var d models.MovieDetails
	q := url.Values{"append_to_response": {"credits,videos,similar"}}
	if err := c.get(ctx, "details", "/movie/"+key, q, &d); err != nil {
		return nil, err
	}
	c.details.Put(key, &d)
	return &d, nil
}

// Trending lists this week's trending movies, falling back to Popular.
func (c *TMDBClient) Trending(ctx context.Context) ([]models.MovieSummary, error) {
	if e, ok := c.lists.Get("trending"); ok {
		return e.Value, nil
	}

	var list models.MovieList
	err := c.get(ctx, "trending", "/trending/movie/week", nil, &list)
	if err != nil || len(list.Results) == 0 {
		logging.Ctx(ctx).Warn().Err(err).Msg("no trending movies, using popular movies instead")
		return c.Popular(ctx)
	}

	movies := capList(list.Results)
	c.lists.Put("trending", movies)
	return movies, nil
}

// Popular lists popular movies. When the catalog cannot answer it returns
// a small built-in sample so listings are never empty.
func (c *TMDBClient) Popular(ctx context.Context) ([]models.MovieSummary, error) {
	if e, ok := c.lists.Get("popular"); ok {
		return e.Value, nil
	}

	var list models.MovieList
	err := c.get(ctx, "popular", "/movie/popular", nil, &list)
	if err != nil || len(list.Results) == 0 {
		logging.Ctx(ctx).Warn().Err(err).Msg("no popular movies, using sample movies")
		return SampleMovies(), nil
	}

	movies := capList(list.Results)
	c.lists.Put("popular", movies)
	return movies, nil
}

// TrailerKey returns the YouTube key of the movie's trailer, preferring an
// official one. Misses are cached too.
func (c *TMDBClient) TrailerKey(ctx context.Context, id int64) (string, error) {
	key := strconv.FormatInt(id, 10)
	if e, ok := c.trailers.Get(key); ok {
		if e.Value == "" {
			return "", ErrNoTrailer
		}
		return e.Value, nil
	}

	var videos models.VideoList
	if err := c.get(ctx, "videos", "/movie/"+key+"/videos", nil, &videos); err != nil {
		return "", err
	}

	v, ok := pickTrailer(videos.Results)
	if !ok {
		logging.Ctx(ctx).Info().Int64("movie_id", id).Msg("no suitable trailer found")
		c.trailers.Put(key, "")
		return "", ErrNoTrailer
	}
	c.trailers.Put(key, v.Key)
	return v.Key, nil
}

func pickTrailer(videos []models.Video) (models.Video, bool) {
	isTrailer := func(v models.Video) bool {
		return strings.EqualFold(v.Type, "Trailer") && strings.EqualFold(v.Site, "YouTube") && v.Key != ""
	}
	for _, v := range videos {
		if v.Official && isTrailer(v) {
			return v, true
		}
	}
	for _, v := range videos {
		if isTrailer(v) {
			return v, true
		}
	}
	return models.Video{}, false
}

// WatchProviders lists streaming, rental and purchase options in the
// configured region. A region with no data yields an empty result.
func (c *TMDBClient) WatchProviders(ctx context.Context, id int64) (models.WatchProviders, error) {
	key := strconv.FormatInt(id, 10)
	if e, ok := c.providers.Get(key); ok {
		return e.Value, nil
	}

	var resp struct {
		Results map[string]struct {
			Link     string            `json:"link"`
			Flatrate []models.Provider `json:"flatrate"`
			Rent     []models.Provider `json:"rent"`
			Buy      []models.Provider `json:"buy"`
		} `json:"results"`
	}
	if err := c.get(ctx, "providers", "/movie/"+key+"/watch/providers", nil, &resp); err != nil {
		return models.WatchProviders{}, err
	}

	out := models.WatchProviders{Region: c.region}
	if r, ok := resp.Results[c.region]; ok {
		out.Link = r.Link
		out.Flatrate = r.Flatrate
		out.Rent = r.Rent
		out.Buy = r.Buy
	}
	c.providers.Put(key, out)
	return out, nil
}

func capList(movies []models.MovieSummary) []models.MovieSummary {
	if len(movies) > listLimit {
		return movies[:listLimit]
	}
	return movies
}

// SampleMovies is the last-resort listing.
func SampleMovies() []models.MovieSummary {
	return []models.MovieSummary{
		{ID: 603, Title: "The Matrix", ReleaseDate: "1999-03-31", Rating: 8.7,
			Overview: "A computer hacker learns from mysterious rebels about the true nature of his reality and his role in the war against its controllers."},
		{ID: 27205, Title: "Inception", ReleaseDate: "2010-07-16", Rating: 8.3,
			Overview: "A thief who steals corporate secrets through the use of dream-sharing technology is given the inverse task of planting an idea into the mind of a C.E.O."},
		{ID: 278, Title: "The Shawshank Redemption", ReleaseDate: "1994-09-23", Rating: 9.3,
			Overview: "Two imprisoned men bond over a number of years, finding solace and eventual redemption through acts of common decency."},
		{ID: 680, Title: "Pulp Fiction", ReleaseDate: "1994-10-14", Rating: 8.9,
			Overview: "The lives of two mob hitmen, a boxer, a gangster and his wife, and a pair of diner bandits intertwine in four tales of violence and redemption."},
		{ID: 155, Title: "The Dark Knight", ReleaseDate: "2008-07-18", Rating: 9.0,
			Overview: "When the menace known as the Joker wreaks havoc and chaos on the people of Gotham, Batman must accept one of the greatest psychological and physical tests of his ability to fight injustice."},
	}
}
