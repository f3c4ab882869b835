package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tmdbStub struct {
	hits   map[string]*int32
	routes map[string]string
	status map[string]int

	mu      sync.Mutex
	queries map[string]url.Values
}

func newTMDBStub(t *testing.T, routes map[string]string) (*TMDBClient, *tmdbStub) {
	t.Helper()
	stub := &tmdbStub{hits: map[string]*int32{}, routes: routes, status: map[string]int{}, queries: map[string]url.Values{}}
	for p := range routes {
		stub.hits[p] = new(int32)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		stub.mu.Lock()
		stub.queries[r.URL.Path] = r.URL.Query()
		stub.mu.Unlock()
		if code, ok := stub.status[r.URL.Path]; ok {
			w.WriteHeader(code)
			return
		}
		body, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		atomic.AddInt32(stub.hits[r.URL.Path], 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	settings := DefaultBreakerSettings()
	settings.MinRequests = 1000
	c := NewTMDBClient(TMDBConfig{
		BaseURL:  srv.URL,
		APIKey:   "test-key",
		Region:   "us",
		Timeout:  2 * time.Second,
		CacheTTL: time.Minute,
		Breaker:  settings,
	})
	return c, stub
}

func (s *tmdbStub) count(path string) int32 {
	return atomic.LoadInt32(s.hits[path])
}

func (s *tmdbStub) query(path string) url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries[path]
}

func TestTMDBSearch_CachesResults(t *testing.T) {
	c, stub := newTMDBStub(t, map[string]string{
		"/search/movie": `{"results":[{"id":603,"title":"The Matrix","release_date":"1999-03-30","vote_average":8.7}]}`,
	})

	for i := 0; i < 3; i++ {
		movies, err := c.Search(context.Background(), "Matrix")
		require.NoError(t, err)
		require.Len(t, movies, 1)
		assert.Equal(t, "The Matrix", movies[0].Title)
		assert.Equal(t, "1999", movies[0].Year())
		assert.Equal(t, 8.7, movies[0].Rating)
	}
	assert.Equal(t, int32(1), stub.count("/search/movie"))

	movies, err := c.Search(context.Background(), "   ")
	assert.NoError(t, err)
	assert.Empty(t, movies)
}

func TestTMDBSearchByPerson(t *testing.T) {
	c, stub := newTMDBStub(t, map[string]string{
		"/search/person":  `{"results":[{"id":488,"name":"Steven Spielberg","known_for_department":"Directing"}]}`,
		"/discover/movie": `{"results":[{"id":329,"title":"Jurassic Park","release_date":"1993-06-11"}]}`,
	})

	movies, err := c.SearchByPerson(context.Background(), "spielberg")
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, "Jurassic Park", movies[0].Title)

	q := stub.query("/discover/movie")
	assert.Equal(t, "488", q.Get("with_crew"))
	assert.Empty(t, q.Get("with_cast"))
}

func TestTMDBSearchByPerson_ActorUsesCast(t *testing.T) {
	c, stub := newTMDBStub(t, map[string]string{
		"/search/person":  `{"results":[{"id":6193,"name":"Leonardo DiCaprio","known_for_department":"Acting"}]}`,
		"/discover/movie": `{"results":[{"id":27205,"title":"Inception"}]}`,
	})

	_, err := c.SearchByPerson(context.Background(), "dicaprio")
	require.NoError(t, err)

	q := stub.query("/discover/movie")
	assert.Equal(t, "6193", q.Get("with_cast"))
	assert.Empty(t, q.Get("with_crew"))
}

func TestTMDBSearchByPerson_NoPerson(t *testing.T) {
	c, stub := newTMDBStub(t, map[string]string{
		"/search/person":  `{"results":[]}`,
		"/discover/movie": `{"results":[]}`,
	})

	movies, err := c.SearchByPerson(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, movies)
	assert.Zero(t, stub.count("/discover/movie"))
}

func TestTMDBDetails(t *testing.T) {
	c, _ := newTMDBStub(t, map[string]string{
		"/movie/27205": `{"id":27205,"title":"Inception","release_date":"2010-07-15","runtime":148,
			"genres":[{"id":28,"name":"Action"}],
			"credits":{"cast":[{"id":6193,"name":"Leonardo DiCaprio","character":"Cobb"}],"crew":[{"id":525,"name":"Christopher Nolan","job":"Director"}]},
			"videos":{"results":[{"key":"YoHD9XEInc0","site":"YouTube","type":"Trailer","official":true}]},
			"similar":{"results":[{"id":157336,"title":"Interstellar"}]}}`,
	})

	d, err := c.Details(context.Background(), 27205)
	require.NoError(t, err)
	assert.Equal(t, "Inception", d.Title)
	director, ok := d.Director()
	assert.True(t, ok)
	assert.Equal(t, "Christopher Nolan", director)
	assert.Equal(t, []string{"Leonardo DiCaprio"}, d.TopCast(3))
	assert.Equal(t, "Interstellar", d.Similar.Results[0].Title)

	_, err = c.Details(context.Background(), 1)
	assert.ErrorIs(t, err, ErrMovieNotFound)
}

func TestTMDBTrending_FallsBackToPopularThenSamples(t *testing.T) {
	c, _ := newTMDBStub(t, map[string]string{
		"/trending/movie/week": `{"results":[]}`,
		"/movie/popular":       `{"results":[{"id":1,"title":"Dune"}]}`,
	})

	movies, err := c.Trending(context.Background())
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, "Dune", movies[0].Title)

	c, _ = newTMDBStub(t, map[string]string{})
	movies, err = c.Trending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SampleMovies(), movies)
}

func TestTMDBTrending_CapsList(t *testing.T) {
	body := `{"results":[`
	for i := 0; i < 15; i++ {
		if i > 0 {
			body += ","
		}
		body += `{"id":1,"title":"Movie"}`
	}
	body += `]}`
	c, _ := newTMDBStub(t, map[string]string{"/trending/movie/week": body})

	movies, err := c.Trending(context.Background())
	require.NoError(t, err)
	assert.Len(t, movies, listLimit)
}

func TestTMDBTrailerKey(t *testing.T) {
	c, stub := newTMDBStub(t, map[string]string{
		"/movie/603/videos": `{"results":[
			{"key":"teaser1","site":"YouTube","type":"Teaser","official":true},
			{"key":"fan1","site":"YouTube","type":"Trailer","official":false},
			{"key":"official1","site":"YouTube","type":"Trailer","official":true}]}`,
		"/movie/604/videos": `{"results":[{"key":"vimeo1","site":"Vimeo","type":"Trailer","official":true}]}`,
	})

	key, err := c.TrailerKey(context.Background(), 603)
	require.NoError(t, err)
	assert.Equal(t, "official1", key)

	_, err = c.TrailerKey(context.Background(), 604)
	assert.ErrorIs(t, err, ErrNoTrailer)
	_, err = c.TrailerKey(context.Background(), 604)
	assert.ErrorIs(t, err, ErrNoTrailer)
	assert.Equal(t, int32(1), stub.count("/movie/604/videos"))
}

func TestPickTrailer_FallsBackToAnyYouTubeTrailer(t *testing.T) {
	c, _ := newTMDBStub(t, map[string]string{
		"/movie/5/videos": `{"results":[{"key":"fan1","site":"youtube","type":"trailer","official":false}]}`,
	})
	key, err := c.TrailerKey(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "fan1", key)
}

func TestTMDBWatchProviders(t *testing.T) {
	c, _ := newTMDBStub(t, map[string]string{
		"/movie/603/watch/providers": `{"results":{
			"US":{"link":"https://www.themoviedb.org/movie/603/watch?locale=US",
				"flatrate":[{"provider_id":8,"provider_name":"Netflix","logo_path":"/n.png"}],
				"rent":[{"provider_id":2,"provider_name":"Apple TV","logo_path":"/a.png"}]},
			"DE":{"flatrate":[{"provider_id":9,"provider_name":"Prime Video"}]}}}`,
		"/movie/604/watch/providers": `{"results":{"DE":{"flatrate":[{"provider_id":9,"provider_name":"Prime Video"}]}}}`,
	})

	wp, err := c.WatchProviders(context.Background(), 603)
	require.NoError(t, err)
	assert.Equal(t, "US", wp.Region)
	assert.Contains(t, wp.Link, "locale=US")
	require.Len(t, wp.Flatrate, 1)
	assert.Equal(t, "Netflix", wp.Flatrate[0].Name)
	assert.Len(t, wp.Rent, 1)
	assert.Empty(t, wp.Buy)

	wp, err = c.WatchProviders(context.Background(), 604)
	require.NoError(t, err)
	assert.True(t, wp.Empty())
}

func TestTMDB_BreakerOpensAfterFailures(t *testing.T) {
	c, stub := newTMDBStub(t, map[string]string{"/search/movie": `{"results":[]}`})
	stub.status["/search/movie"] = http.StatusInternalServerError

	settings := DefaultBreakerSettings()
	settings.MinRequests = 2
	c.cb = newBreaker[[]byte]("tmdb-test", settings)

	for i := 0; i < 2; i++ {
		_, err := c.Search(context.Background(), "q"+string(rune('a'+i)))
		require.Error(t, err)
	}
	_, err := c.Search(context.Background(), "qz")
	require.Error(t, err)
	assert.True(t, rejected(err))
}
