package domain

import (
	"errors"
	"fmt"
	"strings"
)

// FeedKind identifie une liste paginée côté PhimAPI (type_list).
type FeedKind string

const (
	FeedNew        FeedKind = "new"
	FeedMovies     FeedKind = "phim-le"
	FeedSeries     FeedKind = "phim-bo"
	FeedTVShows    FeedKind = "tv-shows"
	FeedAnimation  FeedKind = "hoat-hinh"
	FeedVietsub    FeedKind = "phim-vietsub"
	FeedThuyetMinh FeedKind = "phim-thuyet-minh"
	FeedLongTieng  FeedKind = "phim-long-tieng"
)

const (
	DefaultPageSize = 15
	MaxPageSize     = 64
)

var ErrInvalidQuery = errors.New("invalid query")

var feedAliases = map[string]FeedKind{
	"new":              FeedNew,
	"latest":           FeedNew,
	"phim-moi":         FeedNew,
	"movies":           FeedMovies,
	"single":           FeedMovies,
	"phim-le":          FeedMovies,
	"series":           FeedSeries,
	"phim-bo":          FeedSeries,
	"tvshows":          FeedTVShows,
	"tv-shows":         FeedTVShows,
	"animation":        FeedAnimation,
	"hoat-hinh":        FeedAnimation,
	"vietsub":          FeedVietsub,
	"phim-vietsub":     FeedVietsub,
	"thuyet-minh":      FeedThuyetMinh,
	"phim-thuyet-minh": FeedThuyetMinh,
	"long-tieng":       FeedLongTieng,
	"phim-long-tieng":  FeedLongTieng,
}

// ParseFeedKind accepte le slug PhimAPI ou un alias anglais.
func ParseFeedKind(s string) (FeedKind, error) {
	k, ok := feedAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: unknown feed %q", ErrInvalidQuery, s)
	}
	return k, nil
}

func (k FeedKind) String() string { return string(k) }

type SortField string

const (
	SortModified SortField = "modified.time"
	SortID       SortField = "_id"
	SortYear     SortField = "year"
)

type SortOrder string

const (
	SortDesc SortOrder = "desc"
	SortAsc  SortOrder = "asc"
)

type SortSpec struct {
	Field SortField `json:"field"`
	Order SortOrder `json:"order"`
}

func DefaultSort() SortSpec {
	return SortSpec{Field: SortModified, Order: SortDesc}
}

// ParseSort lit "field:order" (ex: "year:asc"). Vide => tri par défaut.
func ParseSort(s string) (SortSpec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultSort(), nil
	}
	field, order, _ := strings.Cut(s, ":")
	spec := SortSpec{Field: SortField(strings.TrimSpace(field)), Order: SortOrder(strings.ToLower(strings.TrimSpace(order)))}
	if spec.Order == "" {
		spec.Order = SortDesc
	}
	return spec, spec.Validate()
}

func (s SortSpec) Validate() error {
	switch s.Field {
	case SortModified, SortID, SortYear:
	default:
		return fmt.Errorf("%w: sort field %q", ErrInvalidQuery, s.Field)
	}
	switch s.Order {
	case SortDesc, SortAsc:
	default:
		return fmt.Errorf("%w: sort order %q", ErrInvalidQuery, s.Order)
	}
	return nil
}

func (s SortSpec) OrDefault() SortSpec {
	if s.Field == "" && s.Order == "" {
		return DefaultSort()
	}
	if s.Field == "" {
		s.Field = SortModified
	}
	if s.Order == "" {
		s.Order = SortDesc
	}
	return s
}

// ListFilter restreint une liste (langue, genre, pays, année).
type ListFilter struct {
	Lang     string `json:"lang,omitempty"`
	Category string `json:"category,omitempty"`
	Country  string `json:"country,omitempty"`
	Year     int    `json:"year,omitempty"`
}

var validLangs = map[string]struct{}{"vietsub": {}, "thuyet-minh": {}, "long-tieng": {}}

func (f ListFilter) Validate() error {
	if f.Lang != "" {
		if _, ok := validLangs[f.Lang]; !ok {
			return fmt.Errorf("%w: sort_lang %q", ErrInvalidQuery, f.Lang)
		}
	}
	if f.Year < 0 {
		return fmt.Errorf("%w: year %d", ErrInvalidQuery, f.Year)
	}
	return nil
}

// PageQuery décrit une requête de page vers le catalogue.
type PageQuery struct {
	Kind   FeedKind
	Page   int
	Limit  int
	Sort   SortSpec
	Filter ListFilter
}

func (q PageQuery) Validate() error {
	if q.Kind == "" {
		return fmt.Errorf("%w: missing feed kind", ErrInvalidQuery)
	}
	if q.Page < 1 {
		return fmt.Errorf("%w: page must be >= 1", ErrInvalidQuery)
	}
	if q.Limit < 1 || q.Limit > MaxPageSize {
		return fmt.Errorf("%w: limit must be in [1,%d]", ErrInvalidQuery, MaxPageSize)
	}
	if err := q.Sort.Validate(); err != nil {
		return err
	}
	return q.Filter.Validate()
}
