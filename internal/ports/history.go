package ports

import (
	"context"

	"github.com/w2w-movies/w2w/internal/domain"
)

// HistoryRepository garde une entrée par film (slug); Upsert remplace la précédente.
// List trie du plus récent au plus ancien; limit <= 0 renvoie tout.
type HistoryRepository interface {
	Upsert(ctx context.Context, entry domain.HistoryEntry) (domain.HistoryEntry, error)
	Get(ctx context.Context, slug string) (domain.HistoryEntry, error)
	List(ctx context.Context, limit int) ([]domain.HistoryEntry, error)
	Delete(ctx context.Context, slug string) error
}
