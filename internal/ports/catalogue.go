package ports

import (
	"context"

	"github.com/w2w-movies/w2w/internal/domain"
)

// Catalogue est la source distante des films (PhimAPI).
type Catalogue interface {
	FetchPage(ctx context.Context, q domain.PageQuery) (domain.Page, error)
	FetchDetail(ctx context.Context, slug string) (domain.MovieDetail, error)
	Search(ctx context.Context, keyword string, page, limit int) (domain.Page, error)
	Categories(ctx context.Context) ([]domain.Category, error)
	Countries(ctx context.Context) ([]domain.Country, error)
}
