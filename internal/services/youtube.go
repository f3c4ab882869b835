package services

import (
	"context"
	"fmt"

	yt "github.com/kkdai/youtube/v2"

	"filmsage-backend/internal/logging"
	"filmsage-backend/internal/models"
)

type trailerSource interface {
	TrailerKey(ctx context.Context, id int64) (string, error)
}

type videoLookup interface {
	GetVideoContext(ctx context.Context, id string) (*yt.Video, error)
}

// TrailerService resolves a movie's trailer and, when verification is on,
// confirms the YouTube video still exists before handing it to the UI.
type TrailerService struct {
	catalog  trailerSource
	ytClient videoLookup
	verify   bool
}

func NewTrailerService(catalog trailerSource, verify bool) *TrailerService {
	return &TrailerService{
		catalog:  catalog,
		ytClient: &yt.Client{},
		verify:   verify,
	}
}

// Trailer returns the embeddable trailer for a movie or ErrNoTrailer.
func (s *TrailerService) Trailer(ctx context.Context, movieID int64) (models.Trailer, error) {
	key, err := s.catalog.TrailerKey(ctx, movieID)
	if err != nil {
		return models.Trailer{}, err
	}

	t := models.Trailer{
		MovieID: movieID,
		Key:     key,
		URL:     fmt.Sprintf("https://www.youtube.com/embed/%s", key),
	}
	if !s.verify {
		return t, nil
	}

	video, err := s.ytClient.GetVideoContext(ctx, key)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("could not verify trailer on YouTube")
		return t, nil
	}
	t.Name = video.Title
	t.Verified = true
	return t, nil
}
