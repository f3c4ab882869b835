package models

import "strings"

// MovieSummary is one catalog search or listing hit.
type MovieSummary struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	ReleaseDate string  `json:"release_date"`
	Overview    string  `json:"overview"`
	Rating      float64 `json:"vote_average"`
	PosterPath  string  `json:"poster_path"`
}

// Year is the first four characters of the release date, or "" when the
// date is missing or malformed.
func (m MovieSummary) Year() string {
	return yearOf(m.ReleaseDate)
}

func yearOf(date string) string {
	if len(date) < 4 {
		return ""
	}
	return date[:4]
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type CastMember struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Character string `json:"character"`
	Order     int    `json:"order"`
}

type CrewMember struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Job  string `json:"job"`
}

type Credits struct {
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

type Video struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Site     string `json:"site"`
	Type     string `json:"type"`
	Official bool   `json:"official"`
}

type VideoList struct {
	Results []Video `json:"results"`
}

type MovieList struct {
	Results []MovieSummary `json:"results"`
}

// MovieDetails is the typed view of a catalog details document, including
// the appended credits, videos and similar titles.
type MovieDetails struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Tagline     string    `json:"tagline"`
	Overview    string    `json:"overview"`
	ReleaseDate string    `json:"release_date"`
	Runtime     int       `json:"runtime"`
	Rating      float64   `json:"vote_average"`
	PosterPath  string    `json:"poster_path"`
	Genres      []Genre   `json:"genres"`
	Credits     Credits   `json:"credits"`
	Videos      VideoList `json:"videos"`
	Similar     MovieList `json:"similar"`
}

func (d MovieDetails) Year() string {
	return yearOf(d.ReleaseDate)
}

// Director returns the first crew member credited as Director.
func (d MovieDetails) Director() (string, bool) {
	for _, c := range d.Credits.Crew {
		if c.Job == "Director" {
			return c.Name, true
		}
	}
	return "", false
}

func (d MovieDetails) GenreNames() []string {
	names := make([]string, 0, len(d.Genres))
	for _, g := range d.Genres {
		names = append(names, g.Name)
	}
	return names
}

// TopCast returns up to n billed cast names.
func (d MovieDetails) TopCast(n int) []string {
	var names []string
	for _, c := range d.Credits.Cast {
		if len(names) == n {
			break
		}
		names = append(names, c.Name)
	}
	return names
}

type Provider struct {
	ID       int    `json:"provider_id"`
	Name     string `json:"provider_name"`
	LogoPath string `json:"logo_path"`
}

// WatchProviders lists where a movie can be watched in one region.
type WatchProviders struct {
	Region   string     `json:"region"`
	Link     string     `json:"link,omitempty"`
	Flatrate []Provider `json:"flatrate"`
	Rent     []Provider `json:"rent"`
	Buy      []Provider `json:"buy"`
}

// Empty reports whether no provider of any kind is listed.
func (w WatchProviders) Empty() bool {
	return len(w.Flatrate) == 0 && len(w.Rent) == 0 && len(w.Buy) == 0
}

// Trailer is a playable YouTube trailer for a movie.
type Trailer struct {
	MovieID  int64  `json:"movie_id"`
	Key      string `json:"key"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Verified bool   `json:"verified"`
}

// Person is a catalog person search hit.
type Person struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	KnownForDepartment string `json:"known_for_department"`
}

// IsDirector reports whether the person is primarily known for directing.
func (p Person) IsDirector() bool {
	return strings.EqualFold(p.KnownForDepartment, "Directing")
}
