package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/w2w-movies/w2w/internal/domain"
	"github.com/w2w-movies/w2w/internal/ports"
)

type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

const historyColumns = `id, slug, name, origin_name, poster_url, server_index, server_name, episode_index, episode_name, stream_url, watched_at`

// Upsert remplace l'entrée du film; l'id de la première entrée est conservé.
func (r *HistoryRepository) Upsert(ctx context.Context, e domain.HistoryEntry) (domain.HistoryEntry, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO watch_history(`+historyColumns+`)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			name = excluded.name,
			origin_name = excluded.origin_name,
			poster_url = excluded.poster_url,
			server_index = excluded.server_index,
			server_name = excluded.server_name,
			episode_index = excluded.episode_index,
			episode_name = excluded.episode_name,
			stream_url = excluded.stream_url,
			watched_at = excluded.watched_at
	`, e.ID, e.Slug, e.Name, e.OriginName, e.PosterURL, e.ServerIndex, e.ServerName, e.EpisodeIndex, e.EpisodeName, e.StreamURL,
		e.WatchedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return domain.HistoryEntry{}, err
	}
	return r.Get(ctx, e.Slug)
}

func (r *HistoryRepository) Get(ctx context.Context, slug string) (domain.HistoryEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+historyColumns+` FROM watch_history WHERE slug = ?`, slug)
	e, err := scanHistory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.HistoryEntry{}, ports.ErrNotFound
		}
		return domain.HistoryEntry{}, err
	}
	return e, nil
}

func (r *HistoryRepository) List(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+historyColumns+` FROM watch_history ORDER BY watched_at DESC, slug ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.HistoryEntry{}
	for rows.Next() {
		e, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *HistoryRepository) Delete(ctx context.Context, slug string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM watch_history WHERE slug = ?`, slug)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHistory(s rowScanner) (domain.HistoryEntry, error) {
	var (
		e         domain.HistoryEntry
		watchedAt string
	)
	if err := s.Scan(&e.ID, &e.Slug, &e.Name, &e.OriginName, &e.PosterURL, &e.ServerIndex, &e.ServerName, &e.EpisodeIndex, &e.EpisodeName, &e.StreamURL, &watchedAt); err != nil {
		return domain.HistoryEntry{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, watchedAt)
	if err != nil {
		return domain.HistoryEntry{}, err
	}
	e.WatchedAt = t
	return e, nil
}
