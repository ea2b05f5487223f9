package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/w2w-movies/w2w/internal/domain"
	"github.com/w2w-movies/w2w/internal/ports"
)

type DetailService struct {
	catalogue ports.Catalogue
}

func NewDetailService(catalogue ports.Catalogue) *DetailService {
	return &DetailService{catalogue: catalogue}
}

// Get charge la fiche d'un film. Un titre ("Người Phán Xử") est converti en slug.
func (s *DetailService) Get(ctx context.Context, slugOrTitle string) (domain.MovieDetail, error) {
	slug := strings.TrimSpace(slugOrTitle)
	if slug == "" {
		return domain.MovieDetail{}, invalidParams("slug is required")
	}
	if slug != Slugify(slug) {
		slug = Slugify(slug)
	}
	if slug == "" {
		return domain.MovieDetail{}, invalidParams(fmt.Sprintf("invalid slug %q", slugOrTitle))
	}
	d, err := s.catalogue.FetchDetail(ctx, slug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.MovieDetail{}, &CodedError{Code: CodeNotFound, Message: "movie " + slug, Err: err}
		}
		return domain.MovieDetail{}, err
	}
	return d, nil
}

func (s *DetailService) Categories(ctx context.Context) ([]domain.Category, error) {
	return s.catalogue.Categories(ctx)
}

func (s *DetailService) Countries(ctx context.Context) ([]domain.Country, error) {
	return s.catalogue.Countries(ctx)
}
