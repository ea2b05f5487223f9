package app

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/w2w-movies/w2w/internal/domain"
	"github.com/w2w-movies/w2w/internal/ports"
)

type detailCatalogue struct {
	ports.Catalogue
	details map[string]domain.MovieDetail
}

func (c *detailCatalogue) FetchDetail(_ context.Context, slug string) (domain.MovieDetail, error) {
	d, ok := c.details[slug]
	if !ok {
		return domain.MovieDetail{}, ports.ErrNotFound
	}
	return d, nil
}

type memHistoryRepo struct {
	mu      sync.Mutex
	entries map[string]domain.HistoryEntry
}

func newMemHistoryRepo() *memHistoryRepo {
	return &memHistoryRepo{entries: map[string]domain.HistoryEntry{}}
}

func (m *memHistoryRepo) Upsert(_ context.Context, e domain.HistoryEntry) (domain.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.entries[e.Slug]; ok {
		e.ID = prev.ID
	}
	m.entries[e.Slug] = e
	return e, nil
}

func (m *memHistoryRepo) Get(_ context.Context, slug string) (domain.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[slug]
	if !ok {
		return domain.HistoryEntry{}, ports.ErrNotFound
	}
	return e, nil
}

func (m *memHistoryRepo) List(_ context.Context, limit int) ([]domain.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.HistoryEntry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WatchedAt.After(out[j].WatchedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memHistoryRepo) Delete(_ context.Context, slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[slug]; !ok {
		return ports.ErrNotFound
	}
	delete(m.entries, slug)
	return nil
}

type playerCall struct {
	op  string
	url string
}

type fakePlayer struct {
	calls []playerCall
}

func (p *fakePlayer) Play(_ context.Context, url, _ string) error {
	p.calls = append(p.calls, playerCall{op: "play", url: url})
	return nil
}

func (p *fakePlayer) Replace(_ context.Context, url, _ string) error {
	p.calls = append(p.calls, playerCall{op: "replace", url: url})
	return nil
}

func (p *fakePlayer) Stop() error { return nil }

func sampleDetail() domain.MovieDetail {
	return domain.MovieDetail{
		Movie: domain.Movie{Slug: "nguoi-phan-xu", Name: "Người Phán Xử", OriginName: "The Arbitrator"},
		Servers: []domain.Server{
			{Name: "Vietsub #1", Episodes: []domain.EpisodeData{
				{Name: "Tập 1", LinkM3U8: "https://cdn/1.m3u8", LinkEmbed: "https://player/1"},
				{Name: "Tập 2", LinkEmbed: "https://player/2"},
				{Name: "Tập 3"},
			}},
			{Name: "Thuyết Minh #1", Episodes: []domain.EpisodeData{
				{Name: "Tập 1", LinkM3U8: "https://cdn/tm1.m3u8"},
			}},
			{Name: "Empty"},
		},
	}
}

func newTestWatch(d domain.MovieDetail) (*WatchService, *HistoryService) {
	cat := &detailCatalogue{details: map[string]domain.MovieDetail{d.Movie.Slug: d}}
	history := NewHistoryService(newMemHistoryRepo())
	settings := NewSettingsService(&memSettingsRepo{})
	return NewWatchService(zerolog.Nop(), NewDetailService(cat), history, settings, nil, nil), history
}

func TestWatchSession_ServerChangeResetsEpisodeAndReplaces(t *testing.T) {
	svc, history := newTestWatch(sampleDetail())
	player := &fakePlayer{}
	ctx := context.Background()

	sess, err := svc.Open(ctx, "Người Phán Xử", player)
	require.NoError(t, err)

	v, err := sess.Start(ctx, 0, 0)
	require.NoError(t, err)
	require.Equal(t, "https://cdn/1.m3u8", v.StreamURL)
	require.Equal(t, domain.StreamM3U8, v.StreamKind)

	v, err = sess.SelectEpisode(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "https://player/2", v.StreamURL)
	require.Equal(t, domain.StreamEmbed, v.StreamKind)

	v, err = sess.SelectServer(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 0, v.EpisodeIndex)
	require.Equal(t, "https://cdn/tm1.m3u8", v.StreamURL)

	require.Equal(t, []playerCall{
		{op: "play", url: "https://cdn/1.m3u8"},
		{op: "replace", url: "https://player/2"},
		{op: "replace", url: "https://cdn/tm1.m3u8"},
	}, player.calls)

	e, err := history.Get(ctx, "nguoi-phan-xu")
	require.NoError(t, err)
	require.Equal(t, "Thuyết Minh #1", e.ServerName)
	require.Equal(t, 0, e.EpisodeIndex)
}

func TestWatchSession_Messages(t *testing.T) {
	svc, _ := newTestWatch(sampleDetail())
	player := &fakePlayer{}
	ctx := context.Background()
	sess, err := svc.Open(ctx, "nguoi-phan-xu", player)
	require.NoError(t, err)

	v, err := sess.Start(ctx, 0, 2)
	require.NoError(t, err)
	require.Equal(t, MsgNoVideo, v.Message)
	require.False(t, v.Playable())

	v, err = sess.SelectServer(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, MsgServerNoEpisodes, v.Message)
	require.Empty(t, player.calls)

	_, err = sess.SelectEpisode(ctx, 4)
	require.Equal(t, CodeInvalidParams, ErrorCode(err))
	_, err = sess.SelectServer(ctx, 9)
	require.Equal(t, CodeInvalidParams, ErrorCode(err))
}

func TestWatchService_ResolveWithoutServers(t *testing.T) {
	d := domain.MovieDetail{Movie: domain.Movie{Slug: "trailer-only", Name: "Trailer"}}
	svc, _ := newTestWatch(d)

	v, err := svc.Resolve(context.Background(), "trailer-only", 0, 0, false)
	require.NoError(t, err)
	require.Equal(t, MsgNoEpisodes, v.Message)

	_, err = svc.Resolve(context.Background(), "missing", 0, 0, false)
	require.Equal(t, CodeNotFound, ErrorCode(err))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestHistoryService_FilterIgnoresDiacritics(t *testing.T) {
	history := NewHistoryService(newMemHistoryRepo())
	ctx := context.Background()

	_, err := history.Record(ctx, domain.HistoryEntry{Slug: "nguoi-phan-xu", Name: "Người Phán Xử"})
	require.NoError(t, err)
	_, err = history.Record(ctx, domain.HistoryEntry{Slug: "dao-hai-tac", Name: "Đảo Hải Tặc", OriginName: "One Piece"})
	require.NoError(t, err)

	got, err := history.List(ctx, 0, "nguoi")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "nguoi-phan-xu", got[0].Slug)

	got, err = history.List(ctx, 0, "piece")
	require.NoError(t, err)
	require.Len(t, got, 1)

	_, err = history.Record(ctx, domain.HistoryEntry{})
	require.Equal(t, CodeInvalidParams, ErrorCode(err))

	require.NoError(t, history.Delete(ctx, "dao-hai-tac"))
	cont, err := history.ContinueWatching(ctx, 5)
	require.NoError(t, err)
	require.Len(t, cont, 1)
}
