package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/w2w-movies/w2w/internal/domain"
	"github.com/w2w-movies/w2w/internal/ports"
)

const (
	MsgNoEpisodes       = "no episodes"
	MsgServerNoEpisodes = "server has no episodes"
	MsgNoVideo          = "no video available"
)

type ServerView struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Episodes int    `json:"episodes"`
}

// WatchView décrit la sélection courante de l'écran de lecture.
type WatchView struct {
	Slug         string              `json:"slug"`
	Title        string              `json:"title"`
	Servers      []ServerView        `json:"servers"`
	ServerIndex  int                 `json:"server"`
	EpisodeIndex int                 `json:"episode"`
	Episode      *domain.EpisodeData `json:"current,omitempty"`
	StreamURL    string              `json:"streamUrl,omitempty"`
	StreamKind   domain.StreamKind   `json:"streamKind,omitempty"`
	Message      string              `json:"message,omitempty"`
}

func (v WatchView) Playable() bool { return v.StreamURL != "" }

// WatchService prépare les sessions de lecture et l'historique associé.
type WatchService struct {
	logger   zerolog.Logger
	details  *DetailService
	history  *HistoryService
	settings *SettingsService
	resolver *StreamResolver
	bus      ports.EventBus
}

func NewWatchService(logger zerolog.Logger, details *DetailService, history *HistoryService, settings *SettingsService, resolver *StreamResolver, bus ports.EventBus) *WatchService {
	return &WatchService{logger: logger, details: details, history: history, settings: settings, resolver: resolver, bus: bus}
}

func (s *WatchService) preferred(ctx context.Context) domain.StreamKind {
	if s.settings == nil {
		return domain.StreamM3U8
	}
	return s.settings.Current(ctx).PreferredStream
}

// Open charge le film et prépare une session; rien n'est joué avant Start.
func (s *WatchService) Open(ctx context.Context, slug string, player ports.Player) (*WatchSession, error) {
	d, err := s.details.Get(ctx, slug)
	if err != nil {
		return nil, err
	}
	return &WatchSession{svc: s, detail: d, player: player, preferred: s.preferred(ctx)}, nil
}

// Resolve calcule la sélection (server, episode) sans lecteur et l'inscrit dans
// l'historique. Avec direct, un lien embarqué est résolu en lien vidéo.
func (s *WatchService) Resolve(ctx context.Context, slug string, server, episode int, direct bool) (WatchView, error) {
	sess, err := s.Open(ctx, slug, nil)
	if err != nil {
		return WatchView{}, err
	}
	sess.resolveDirect = direct
	return sess.Start(ctx, server, episode)
}

// WatchSession suit le serveur et l'épisode choisis. Changer de serveur repart
// du premier épisode; chaque changement relance le lecteur (Play puis Replace).
type WatchSession struct {
	svc           *WatchService
	detail        domain.MovieDetail
	player        ports.Player
	preferred     domain.StreamKind
	resolveDirect bool

	mu      sync.Mutex
	server  int
	episode int
	started bool
}

func (ws *WatchSession) Detail() domain.MovieDetail { return ws.detail }

// ResolveDirect active la résolution des liens embarqués avant lecture.
func (ws *WatchSession) ResolveDirect(on bool) { ws.resolveDirect = on }

func (ws *WatchSession) Start(ctx context.Context, server, episode int) (WatchView, error) {
	ws.mu.Lock()
	if err := ws.checkLocked(server, episode); err != nil {
		ws.mu.Unlock()
		return WatchView{}, err
	}
	ws.server, ws.episode = server, episode
	ws.mu.Unlock()
	return ws.apply(ctx)
}

func (ws *WatchSession) SelectServer(ctx context.Context, server int) (WatchView, error) {
	ws.mu.Lock()
	if err := ws.checkLocked(server, 0); err != nil {
		ws.mu.Unlock()
		return WatchView{}, err
	}
	ws.server, ws.episode = server, 0
	ws.mu.Unlock()
	return ws.apply(ctx)
}

func (ws *WatchSession) SelectEpisode(ctx context.Context, episode int) (WatchView, error) {
	ws.mu.Lock()
	if err := ws.checkLocked(ws.server, episode); err != nil {
		ws.mu.Unlock()
		return WatchView{}, err
	}
	ws.episode = episode
	ws.mu.Unlock()
	return ws.apply(ctx)
}

func (ws *WatchSession) checkLocked(server, episode int) error {
	servers := ws.detail.Servers
	if len(servers) == 0 {
		if server == 0 && episode == 0 {
			return nil
		}
		return invalidParams(MsgNoEpisodes)
	}
	if server < 0 || server >= len(servers) {
		return invalidParams(fmt.Sprintf("server %d out of range [0,%d)", server, len(servers)))
	}
	eps := servers[server].Episodes
	if len(eps) == 0 && episode == 0 {
		return nil
	}
	if episode < 0 || episode >= len(eps) {
		return invalidParams(fmt.Sprintf("episode %d out of range [0,%d)", episode, len(eps)))
	}
	return nil
}

func (ws *WatchSession) Current() WatchView {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.viewLocked()
}

func (ws *WatchSession) viewLocked() WatchView {
	m := ws.detail.Movie
	v := WatchView{
		Slug:         m.Slug,
		Title:        m.Name,
		Servers:      make([]ServerView, 0, len(ws.detail.Servers)),
		ServerIndex:  ws.server,
		EpisodeIndex: ws.episode,
	}
	for i, srv := range ws.detail.Servers {
		v.Servers = append(v.Servers, ServerView{Index: i, Name: srv.Name, Episodes: len(srv.Episodes)})
	}
	if len(ws.detail.Servers) == 0 {
		v.Message = MsgNoEpisodes
		return v
	}
	eps := ws.detail.Servers[ws.server].Episodes
	if len(eps) == 0 {
		v.Message = MsgServerNoEpisodes
		return v
	}
	ep := eps[ws.episode]
	v.Episode = &ep
	v.StreamURL = domain.StreamURL(ep, ws.preferred)
	switch {
	case v.StreamURL == "":
		v.Message = MsgNoVideo
	case v.StreamURL == ep.LinkM3U8:
		v.StreamKind = domain.StreamM3U8
	default:
		v.StreamKind = domain.StreamEmbed
	}
	return v
}

func (ws *WatchSession) apply(ctx context.Context) (WatchView, error) {
	ws.mu.Lock()
	v := ws.viewLocked()
	ws.mu.Unlock()

	if !v.Playable() {
		return v, nil
	}
	if v.StreamKind == domain.StreamEmbed && ws.resolveDirect && ws.svc.resolver != nil {
		if direct, err := ws.svc.resolver.Resolve(ctx, v.StreamURL); err == nil && IsDirectStream(direct) {
			v.StreamURL = direct
			v.StreamKind = domain.StreamM3U8
		}
	}

	if ws.player != nil {
		title := v.Title
		if v.Episode != nil && v.Episode.Name != "" {
			title += " - " + v.Episode.Name
		}
		ws.mu.Lock()
		replace := ws.started
		ws.started = true
		ws.mu.Unlock()

		var err error
		if replace {
			err = ws.player.Replace(ctx, v.StreamURL, title)
		} else {
			err = ws.player.Play(ctx, v.StreamURL, title)
		}
		if err != nil {
			return v, fmt.Errorf("player: %w", err)
		}
	}

	ws.record(ctx, v)
	return v, nil
}

func (ws *WatchSession) record(ctx context.Context, v WatchView) {
	s := ws.svc
	if s.history == nil {
		return
	}
	m := ws.detail.Movie
	e := domain.HistoryEntry{
		Slug:         m.Slug,
		Name:         m.Name,
		OriginName:   m.OriginName,
		PosterURL:    m.PosterURL,
		ServerIndex:  v.ServerIndex,
		EpisodeIndex: v.EpisodeIndex,
		StreamURL:    v.StreamURL,
	}
	if v.ServerIndex < len(v.Servers) {
		e.ServerName = v.Servers[v.ServerIndex].Name
	}
	if v.Episode != nil {
		e.EpisodeName = v.Episode.Name
	}
	if _, err := s.history.Record(ctx, e); err != nil {
		s.logger.Warn().Err(err).Str("slug", m.Slug).Msg("history record failed")
		return
	}
	if s.bus != nil {
		if b, err := json.Marshal(map[string]any{"slug": m.Slug, "server": v.ServerIndex, "episode": v.EpisodeIndex}); err == nil {
			s.bus.Publish("watch.started", b)
		}
	}
}
