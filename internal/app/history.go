package app

import (
	"context"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/w2w-movies/w2w/internal/domain"
	"github.com/w2w-movies/w2w/internal/ports"
)

const defaultHistoryLimit = 50

type HistoryService struct {
	repo ports.HistoryRepository
	now  func() time.Time
}

func NewHistoryService(repo ports.HistoryRepository) *HistoryService {
	return &HistoryService{repo: repo, now: time.Now}
}

// Record mémorise le dernier épisode lancé d'un film (une entrée par slug).
func (s *HistoryService) Record(ctx context.Context, e domain.HistoryEntry) (domain.HistoryEntry, error) {
	if strings.TrimSpace(e.Slug) == "" {
		return domain.HistoryEntry{}, invalidParams("slug is required")
	}
	if e.ID == "" {
		e.ID = xid.New().String()
	}
	if e.WatchedAt.IsZero() {
		e.WatchedAt = s.now().UTC()
	}
	return s.repo.Upsert(ctx, e)
}

// List renvoie l'historique, le plus récent d'abord. query filtre sur le titre
// sans tenir compte des accents ("nguoi" trouve "Người").
func (s *HistoryService) List(ctx context.Context, limit int, query string) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	q := FoldDiacritics(strings.TrimSpace(query))
	if q == "" {
		return s.repo.List(ctx, limit)
	}
	all, err := s.repo.List(ctx, 0)
	if err != nil {
		return nil, err
	}
	out := make([]domain.HistoryEntry, 0, limit)
	for _, e := range all {
		if strings.Contains(FoldDiacritics(e.Name), q) || strings.Contains(FoldDiacritics(e.OriginName), q) {
			out = append(out, e)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// ContinueWatching renvoie les n derniers films regardés (rail "continuer" de l'accueil).
func (s *HistoryService) ContinueWatching(ctx context.Context, n int) ([]domain.HistoryEntry, error) {
	if n <= 0 {
		n = 10
	}
	return s.repo.List(ctx, n)
}

func (s *HistoryService) Get(ctx context.Context, slug string) (domain.HistoryEntry, error) {
	return s.repo.Get(ctx, slug)
}

func (s *HistoryService) Delete(ctx context.Context, slug string) error {
	return s.repo.Delete(ctx, slug)
}
