package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"filmsage-backend/internal/logging"
	"filmsage-backend/internal/models"
	"filmsage-backend/internal/services"
)

type movieCatalog interface {
	Search(ctx context.Context, query string) ([]models.MovieSummary, error)
	Details(ctx context.Context, id int64) (*models.MovieDetails, error)
	Trending(ctx context.Context) ([]models.MovieSummary, error)
	WatchProviders(ctx context.Context, id int64) (models.WatchProviders, error)
}

const starringCount = 5

type movieDetailsResponse struct {
	*models.MovieDetails
	Director string   `json:"director,omitempty"`
	Starring []string `json:"starring"`
}

type providersResponse struct {
	models.WatchProviders
	Available bool   `json:"available"`
	Message   string `json:"message,omitempty"`
}

type trailerFinder interface {
	Trailer(ctx context.Context, movieID int64) (models.Trailer, error)
}

// MovieHandler serves the catalog lookups behind the chat UI, including the
// trailer player opened by [SHOW_TRAILER:<id>] markers.
type MovieHandler struct {
	catalog  movieCatalog
	trailers trailerFinder
}

func NewMovieHandler(catalog movieCatalog, trailers trailerFinder) *MovieHandler {
	return &MovieHandler{catalog: catalog, trailers: trailers}
}

func (h *MovieHandler) Trending(w http.ResponseWriter, r *http.Request) {
	movies, err := h.catalog.Trending(r.Context())
	if err != nil {
		h.upstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": nonNil(movies)})
}

func (h *MovieHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"q": "q is required"}, r))
		return
	}

	movies, err := h.catalog.Search(r.Context(), q)
	if err != nil {
		h.upstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"query": q, "results": nonNil(movies)})
}

func (h *MovieHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := movieID(w, r)
	if !ok {
		return
	}

	details, err := h.catalog.Details(r.Context(), id)
	if err != nil {
		h.upstreamError(w, r, err)
		return
	}

	resp := movieDetailsResponse{MovieDetails: details, Starring: details.TopCast(starringCount)}
	resp.Director, _ = details.Director()
	writeJSON(w, http.StatusOK, resp)
}

func (h *MovieHandler) Trailer(w http.ResponseWriter, r *http.Request) {
	id, ok := movieID(w, r)
	if !ok {
		return
	}

	trailer, err := h.trailers.Trailer(r.Context(), id)
	if err != nil {
		h.upstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trailer)
}

func (h *MovieHandler) Providers(w http.ResponseWriter, r *http.Request) {
	id, ok := movieID(w, r)
	if !ok {
		return
	}

	providers, err := h.catalog.WatchProviders(r.Context(), id)
	if err != nil {
		h.upstreamError(w, r, err)
		return
	}

	resp := providersResponse{WatchProviders: providers, Available: !providers.Empty()}
	if !resp.Available {
		resp.Message = "No streaming, rental or purchase options found in " + providers.Region
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *MovieHandler) upstreamError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrMovieNotFound):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Movie not found", r))
	case errors.Is(err, services.ErrNoTrailer):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "No trailer available", r))
	case errors.Is(err, context.Canceled):
		// client went away
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("movie catalog request failed")
		writeJSON(w, http.StatusBadGateway, errorResp("UPSTREAM_ERROR", "Movie catalog is unavailable", r))
	}
}

func movieID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid movie ID", r))
		return 0, false
	}
	return id, true
}

func nonNil(movies []models.MovieSummary) []models.MovieSummary {
	if movies == nil {
		return []models.MovieSummary{}
	}
	return movies
}
