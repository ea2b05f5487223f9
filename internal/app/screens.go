package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/w2w-movies/w2w/internal/domain"
	"github.com/w2w-movies/w2w/internal/ports"
)

type ScreenLayout string

const (
	LayoutHome     ScreenLayout = "home"
	LayoutMovies   ScreenLayout = "movies"
	LayoutTVShows  ScreenLayout = "tvshows"
	LayoutCategory ScreenLayout = "category"
)

// ScreenSpec décrit l'écran à monter. Kind/Category/Country/Lang/Year ne servent
// qu'au layout "category".
type ScreenSpec struct {
	Layout   ScreenLayout    `json:"layout"`
	Kind     domain.FeedKind `json:"kind,omitempty"`
	Category string          `json:"category,omitempty"`
	Country  string          `json:"country,omitempty"`
	Lang     string          `json:"lang,omitempty"`
	Year     int             `json:"year,omitempty"`
	Sort     domain.SortSpec `json:"sort,omitempty"`
}

type feedSlot struct {
	name string
	cfg  FeedConfig
}

func (spec ScreenSpec) feeds(st domain.Settings) ([]feedSlot, error) {
	sortSpec := spec.Sort.OrDefault()
	if err := sortSpec.Validate(); err != nil {
		return nil, invalidParams(err.Error())
	}
	page := st.PageSize
	switch spec.Layout {
	case LayoutHome, "":
		return []feedSlot{
			{name: "featured", cfg: FeedConfig{Kind: domain.FeedNew, PageSize: st.FeaturedLimit, Sort: sortSpec}},
			{name: "movies", cfg: FeedConfig{Kind: domain.FeedMovies, PageSize: page, Sort: sortSpec}},
			{name: "series", cfg: FeedConfig{Kind: domain.FeedSeries, PageSize: page, Sort: sortSpec}},
			{name: "animation", cfg: FeedConfig{Kind: domain.FeedAnimation, PageSize: page, Sort: sortSpec}},
		}, nil
	case LayoutMovies:
		return []feedSlot{{name: "movies", cfg: FeedConfig{Kind: domain.FeedMovies, PageSize: page, Sort: sortSpec}}}, nil
	case LayoutTVShows:
		return []feedSlot{{name: "tvshows", cfg: FeedConfig{Kind: domain.FeedSeries, PageSize: page, Sort: sortSpec}}}, nil
	case LayoutCategory:
		kind := spec.Kind
		if kind == "" {
			kind = domain.FeedMovies
		}
		filter := domain.ListFilter{Category: spec.Category, Country: spec.Country, Lang: spec.Lang, Year: spec.Year}
		if filter.Category == "" && filter.Country == "" {
			return nil, invalidParams("category layout needs a category or a country")
		}
		if err := filter.Validate(); err != nil {
			return nil, invalidParams(err.Error())
		}
		return []feedSlot{{name: "category", cfg: FeedConfig{Kind: kind, PageSize: page, Sort: sortSpec, Filter: filter}}}, nil
	default:
		return nil, invalidParams(fmt.Sprintf("unknown layout %q", spec.Layout))
	}
}

// Screen regroupe les flux d'un écran monté côté client.
type Screen struct {
	ID        string
	Spec      ScreenSpec
	CreatedAt time.Time

	names []string
	feeds map[string]*Accumulator[domain.Movie]

	mu       sync.Mutex
	lastUsed time.Time
}

func (s *Screen) Feed(name string) (*Accumulator[domain.Movie], bool) {
	acc, ok := s.feeds[name]
	return acc, ok
}

func (s *Screen) FeedNames() []string { return append([]string(nil), s.names...) }

func (s *Screen) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func (s *Screen) touch(now time.Time) {
	s.mu.Lock()
	s.lastUsed = now
	s.mu.Unlock()
}

func (s *Screen) close() {
	for _, name := range s.names {
		s.feeds[name].Close()
	}
}

// WaitSettled attend que tous les flux de l'écran n'aient plus de requête en vol.
func (s *Screen) WaitSettled(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, name := range s.names {
		acc := s.feeds[name]
		g.Go(func() error { return acc.WaitSettled(ctx) })
	}
	return g.Wait()
}

// FeedView est la forme rendue d'un flux: liste accumulée et indicateurs.
type FeedView struct {
	Name        string          `json:"name"`
	Kind        domain.FeedKind `json:"kind"`
	Items       []domain.Movie  `json:"items"`
	Page        int             `json:"page"`
	TotalPages  int             `json:"totalPages,omitempty"`
	IsFetching  bool            `json:"isFetching"`
	HasError    bool            `json:"hasError"`
	Error       string          `json:"error,omitempty"`
	State       FeedState       `json:"state"`
	CanLoadMore bool            `json:"canLoadMore"`
	Epoch       uint64          `json:"epoch"`
}

func ToFeedView(s FeedSnapshot[domain.Movie]) FeedView {
	v := FeedView{
		Name:        s.Name,
		Kind:        s.Kind,
		Items:       s.Items,
		Page:        s.Page,
		TotalPages:  s.TotalPages,
		IsFetching:  s.Fetching,
		HasError:    s.HasError(),
		State:       s.State,
		CanLoadMore: s.CanLoadMore(),
		Epoch:       s.Epoch,
	}
	if v.Items == nil {
		v.Items = []domain.Movie{}
	}
	if s.HasError() && s.Err != nil {
		v.Error = s.Err.Error()
	}
	return v
}

type ScreenView struct {
	ID        string       `json:"id"`
	Layout    ScreenLayout `json:"layout"`
	Spec      ScreenSpec   `json:"spec"`
	CreatedAt time.Time    `json:"createdAt"`
	Feeds     []FeedView   `json:"feeds"`
}

func (s *Screen) View() ScreenView {
	v := ScreenView{ID: s.ID, Layout: s.Spec.Layout, Spec: s.Spec, CreatedAt: s.CreatedAt, Feeds: make([]FeedView, 0, len(s.names))}
	for _, name := range s.names {
		v.Feeds = append(v.Feeds, ToFeedView(s.feeds[name].Snapshot()))
	}
	return v
}

// ScreenService tient les écrans ouverts et leurs accumulateurs.
type ScreenService struct {
	logger   zerolog.Logger
	fetch    PageFetcher[domain.Movie]
	settings *SettingsService
	bus      ports.EventBus
	runner   func(func())
	now      func() time.Time

	mu      sync.Mutex
	screens map[string]*Screen
}

func NewScreenService(logger zerolog.Logger, catalogue ports.Catalogue, settings *SettingsService, bus ports.EventBus) *ScreenService {
	return &ScreenService{
		logger:   logger,
		fetch:    CatalogueFetcher(catalogue),
		settings: settings,
		bus:      bus,
		now:      time.Now,
		screens:  map[string]*Screen{},
	}
}

// WithRunner remplace l'exécution des fetchs (tests).
func (s *ScreenService) WithRunner(run func(func())) *ScreenService {
	s.runner = run
	return s
}

func (s *ScreenService) current(ctx context.Context) domain.Settings {
	if s.settings == nil {
		return domain.DefaultSettings()
	}
	return s.settings.Current(ctx)
}

// Open monte un écran et lance le premier chargement de chaque flux.
// Avec wait, attend que ces chargements soient terminés (succès ou échec).
func (s *ScreenService) Open(ctx context.Context, spec ScreenSpec, wait bool) (*Screen, error) {
	if spec.Layout == "" {
		spec.Layout = LayoutHome
	}
	slots, err := spec.feeds(s.current(ctx))
	if err != nil {
		return nil, err
	}

	now := s.now()
	scr := &Screen{
		ID:        xid.New().String(),
		Spec:      spec,
		CreatedAt: now,
		feeds:     make(map[string]*Accumulator[domain.Movie], len(slots)),
		lastUsed:  now,
	}
	for _, slot := range slots {
		acc := NewAccumulator(s.fetch, AccumulatorOptions{
			Name:   slot.name,
			Screen: scr.ID,
			Logger: s.logger.With().Str("screen", scr.ID).Logger(),
			Bus:    s.bus,
			Runner: s.runner,
		})
		scr.names = append(scr.names, slot.name)
		scr.feeds[slot.name] = acc
	}

	s.mu.Lock()
	s.screens[scr.ID] = scr
	s.mu.Unlock()

	for _, slot := range slots {
		if err := scr.feeds[slot.name].Initialize(slot.cfg); err != nil {
			return nil, err
		}
	}
	s.publish("screen.opened", scr)
	s.logger.Debug().Str("screen", scr.ID).Str("layout", string(spec.Layout)).Msg("screen opened")

	if wait {
		if err := scr.WaitSettled(ctx); err != nil {
			return scr, err
		}
	}
	return scr, nil
}

func (s *ScreenService) Get(id string) (*Screen, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	scr, ok := s.screens[id]
	if !ok {
		return nil, ErrNotFound
	}
	scr.touch(s.now())
	return scr, nil
}

func (s *ScreenService) List() []*Screen {
	s.mu.Lock()
	out := make([]*Screen, 0, len(s.screens))
	for _, scr := range s.screens {
		out = append(out, scr)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *ScreenService) feed(id, name string) (*Screen, *Accumulator[domain.Movie], error) {
	scr, err := s.Get(id)
	if err != nil {
		return nil, nil, err
	}
	acc, ok := scr.Feed(name)
	if !ok {
		return nil, nil, fmt.Errorf("feed %q: %w", name, ErrNotFound)
	}
	return scr, acc, nil
}

func settle(ctx context.Context, acc *Accumulator[domain.Movie], wait bool) (FeedView, error) {
	if wait {
		if err := acc.WaitSettled(ctx); err != nil {
			return FeedView{}, err
		}
	}
	return ToFeedView(acc.Snapshot()), nil
}

func (s *ScreenService) Feed(id, name string) (FeedView, error) {
	_, acc, err := s.feed(id, name)
	if err != nil {
		return FeedView{}, err
	}
	return ToFeedView(acc.Snapshot()), nil
}

// More demande la page suivante (défilement proche de la fin).
// accepted=false quand la demande est ignorée (requête en vol ou fin de liste).
func (s *ScreenService) More(ctx context.Context, id, name string, wait bool) (FeedView, bool, error) {
	_, acc, err := s.feed(id, name)
	if err != nil {
		return FeedView{}, false, err
	}
	accepted := acc.RequestNextPage()
	view, err := settle(ctx, acc, wait && accepted)
	return view, accepted, err
}

func (s *ScreenService) Retry(ctx context.Context, id, name string, wait bool) (FeedView, bool, error) {
	_, acc, err := s.feed(id, name)
	if err != nil {
		return FeedView{}, false, err
	}
	retried, err := acc.Retry()
	if err != nil {
		return FeedView{}, false, err
	}
	view, err := settle(ctx, acc, wait && retried)
	return view, retried, err
}

// RefreshFeed vide le flux et recharge la page 1 (pull-to-refresh).
func (s *ScreenService) RefreshFeed(ctx context.Context, id, name string, wait bool) (FeedView, error) {
	_, acc, err := s.feed(id, name)
	if err != nil {
		return FeedView{}, err
	}
	if err := acc.Reset(); err != nil {
		return FeedView{}, err
	}
	return settle(ctx, acc, wait)
}

func (s *ScreenService) Refresh(ctx context.Context, id string, wait bool) (ScreenView, error) {
	scr, err := s.Get(id)
	if err != nil {
		return ScreenView{}, err
	}
	for _, name := range scr.names {
		if err := scr.feeds[name].Reset(); err != nil {
			return ScreenView{}, err
		}
	}
	if wait {
		if err := scr.WaitSettled(ctx); err != nil {
			return ScreenView{}, err
		}
	}
	return scr.View(), nil
}

func (s *ScreenService) Close(id string) error {
	s.mu.Lock()
	scr, ok := s.screens[id]
	delete(s.screens, id)
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	scr.close()
	s.publish("screen.closed", scr)
	return nil
}

// CloseIdle ferme les écrans inutilisés depuis plus de ttl (démontage côté client perdu).
func (s *ScreenService) CloseIdle(ttl time.Duration, now time.Time) int {
	s.mu.Lock()
	var idle []*Screen
	for id, scr := range s.screens {
		if now.Sub(scr.LastUsed()) > ttl {
			idle = append(idle, scr)
			delete(s.screens, id)
		}
	}
	s.mu.Unlock()
	for _, scr := range idle {
		scr.close()
		s.publish("screen.closed", scr)
	}
	return len(idle)
}

func (s *ScreenService) CloseAll() {
	s.mu.Lock()
	all := s.screens
	s.screens = map[string]*Screen{}
	s.mu.Unlock()
	for _, scr := range all {
		scr.close()
	}
}

func (s *ScreenService) publish(topic string, scr *Screen) {
	if s.bus == nil {
		return
	}
	b, err := json.Marshal(map[string]any{"screen": scr.ID, "layout": scr.Spec.Layout, "feeds": scr.names})
	if err != nil {
		return
	}
	s.bus.Publish(topic, b)
}
