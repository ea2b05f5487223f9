package app

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/w2w-movies/w2w/internal/domain"
	"github.com/w2w-movies/w2w/internal/ports"
)

type FeedState string

const (
	FeedIdle         FeedState = "idle"
	FeedLoadingFirst FeedState = "loading_first"
	FeedReady        FeedState = "ready"
	FeedLoadingMore  FeedState = "loading_more"
	FeedError        FeedState = "error"
	FeedClosed       FeedState = "closed"
)

// FeedConfig paramètre une instance d'Accumulator (un flux = une config).
type FeedConfig struct {
	Kind     domain.FeedKind
	PageSize int
	Sort     domain.SortSpec
	Filter   domain.ListFilter
}

func (c FeedConfig) normalized() FeedConfig {
	if c.PageSize <= 0 {
		c.PageSize = domain.DefaultPageSize
	}
	if c.PageSize > domain.MaxPageSize {
		c.PageSize = domain.MaxPageSize
	}
	c.Sort = c.Sort.OrDefault()
	return c
}

// Batch est une page reçue: ses éléments et le nombre total de pages annoncé.
type Batch[T any] struct {
	Items      []T
	TotalPages int
}

type PageFetcher[T any] func(ctx context.Context, page int, cfg FeedConfig) (Batch[T], error)

// FetchTicket identifie une requête émise: le résultat n'est appliqué que si
// l'epoch et la page correspondent encore à l'état courant.
type FetchTicket struct {
	Epoch uint64
	Page  int
}

type FeedSnapshot[T any] struct {
	Name       string
	Kind       domain.FeedKind
	Items      []T
	Page       int
	TotalPages int // 0 tant qu'aucune page n'a été reçue
	Fetching   bool
	State      FeedState
	Err        error
	Epoch      uint64
	Halted     bool
}

func (s FeedSnapshot[T]) HasError() bool { return s.State == FeedError }

func (s FeedSnapshot[T]) CanLoadMore() bool {
	return s.State == FeedReady && !s.Fetching && !s.Halted && s.TotalPages > 0 && s.Page < s.TotalPages
}

type AccumulatorOptions struct {
	Name string
	// Screen qualifie les événements publiés quand le flux appartient à un écran.
	Screen string
	Logger zerolog.Logger
	Bus    ports.EventBus
	// Runner exécute les fetchs; par défaut une goroutine par requête.
	Runner func(func())
	// OnChange est appelé après chaque changement d'état, hors verrou.
	OnChange func()
}

// Accumulator concatène les pages successives d'un flux en une seule liste.
// Une seule requête est en vol à la fois; les pages sont demandées dans l'ordre.
type Accumulator[T any] struct {
	name     string
	screen   string
	fetch    PageFetcher[T]
	logger   zerolog.Logger
	bus      ports.EventBus
	run      func(func())
	onChange func()

	mu         sync.Mutex
	cfg        FeedConfig
	state      FeedState
	items      []T
	page       int
	totalPages int
	fetching   bool
	settling   int // réponses appliquées dont les notifications sont en cours
	halted     bool
	lastErr    error
	epoch      uint64
	epochCtx   context.Context
	cancel     context.CancelFunc
	changed    chan struct{}
}

func NewAccumulator[T any](fetch PageFetcher[T], opts AccumulatorOptions) *Accumulator[T] {
	run := opts.Runner
	if run == nil {
		run = func(f func()) { go f() }
	}
	return &Accumulator[T]{
		name:     opts.Name,
		screen:   opts.Screen,
		fetch:    fetch,
		logger:   opts.Logger,
		bus:      opts.Bus,
		run:      run,
		onChange: opts.OnChange,
		state:    FeedIdle,
		page:     1,
		changed:  make(chan struct{}),
	}
}

func (a *Accumulator[T]) Name() string { return a.name }

func (a *Accumulator[T]) Config() FeedConfig {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

// Initialize repart de la page 1 avec une liste vide et lance le premier fetch.
// Un second appel avant la réponse invalide la requête précédente.
func (a *Accumulator[T]) Initialize(cfg FeedConfig) error {
	a.mu.Lock()
	if a.state == FeedClosed {
		a.mu.Unlock()
		return ErrClosed
	}
	a.cfg = cfg.normalized()
	ticket, ctx := a.restartLocked()
	a.mu.Unlock()

	a.publish("feed.loading", ticket, 0, nil)
	a.changedHook()
	a.issue(ctx, ticket)
	return nil
}

// Reset rejoue Initialize avec la configuration courante (pull-to-refresh).
func (a *Accumulator[T]) Reset() error {
	a.mu.Lock()
	if a.state == FeedClosed {
		a.mu.Unlock()
		return ErrClosed
	}
	if a.cfg.Kind == "" {
		a.mu.Unlock()
		return invalidParams("feed not initialized")
	}
	ticket, ctx := a.restartLocked()
	a.mu.Unlock()

	a.publish("feed.reset", ticket, 0, nil)
	a.changedHook()
	a.issue(ctx, ticket)
	return nil
}

// Retry relance le premier chargement après un échec; false si rien à relancer.
// Un "load more" échoué ne se relance que par Reset.
func (a *Accumulator[T]) Retry() (bool, error) {
	a.mu.Lock()
	state := a.state
	a.mu.Unlock()
	if state != FeedError {
		return false, nil
	}
	return true, a.Reset()
}

func (a *Accumulator[T]) restartLocked() (FetchTicket, context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
	a.epochCtx, a.cancel = context.WithCancel(context.Background())
	a.epoch++
	a.page = 1
	a.items = nil
	a.totalPages = 0
	a.halted = false
	a.lastErr = nil
	a.fetching = true
	a.state = FeedLoadingFirst
	a.signalLocked()
	return FetchTicket{Epoch: a.epoch, Page: 1}, a.epochCtx
}

// RequestNextPage demande la page suivante. Sans effet (false) si une requête est
// en vol, si le nombre de pages est inconnu, ou si la dernière page est atteinte.
func (a *Accumulator[T]) RequestNextPage() bool {
	a.mu.Lock()
	if a.state != FeedReady || a.fetching || a.halted || a.totalPages <= 0 || a.page >= a.totalPages {
		a.mu.Unlock()
		return false
	}
	a.page++
	a.fetching = true
	a.state = FeedLoadingMore
	a.signalLocked()
	ticket := FetchTicket{Epoch: a.epoch, Page: a.page}
	ctx := a.epochCtx
	a.mu.Unlock()

	a.changedHook()
	a.issue(ctx, ticket)
	return true
}

func (a *Accumulator[T]) issue(ctx context.Context, ticket FetchTicket) {
	a.mu.Lock()
	cfg := a.cfg
	a.mu.Unlock()

	a.run(func() {
		batch, err := a.fetch(ctx, ticket.Page, cfg)
		if err != nil {
			a.OnFetchFailed(ticket, err)
			return
		}
		a.OnFetchSucceeded(ticket, batch)
	})
}

func (a *Accumulator[T]) staleLocked(t FetchTicket) bool {
	return a.state == FeedClosed || !a.fetching || t.Epoch != a.epoch || t.Page != a.page
}

// OnFetchSucceeded applique une page: la page 1 remplace la liste, les suivantes
// s'ajoutent à la fin. Renvoie false si le ticket est périmé.
func (a *Accumulator[T]) OnFetchSucceeded(t FetchTicket, batch Batch[T]) bool {
	a.mu.Lock()
	if a.staleLocked(t) {
		a.mu.Unlock()
		a.dropStale(t)
		return false
	}
	if t.Page == 1 {
		a.items = append([]T(nil), batch.Items...)
	} else {
		a.items = append(a.items, batch.Items...)
	}
	a.totalPages = max(batch.TotalPages, 0)
	a.fetching = false
	a.lastErr = nil
	a.state = FeedReady
	a.settling++
	a.mu.Unlock()

	topic := "feed.appended"
	if t.Page == 1 {
		topic = "feed.loaded"
	}
	a.publish(topic, t, len(batch.Items), nil)
	a.changedHook()
	a.settled()
	return true
}

// OnFetchFailed ne touche pas à la liste. Un échec de la première page passe le
// flux en erreur; un échec de page suivante arrête la croissance sans erreur
// visible (événement feed.more_failed + log).
func (a *Accumulator[T]) OnFetchFailed(t FetchTicket, err error) bool {
	a.mu.Lock()
	if a.staleLocked(t) {
		a.mu.Unlock()
		a.dropStale(t)
		return false
	}
	a.fetching = false
	first := t.Page == 1
	if first {
		a.state = FeedError
		a.lastErr = err
	} else {
		a.state = FeedReady
		a.halted = true
		a.page = t.Page - 1
	}
	a.settling++
	a.mu.Unlock()

	if first {
		a.logger.Error().Err(err).Str("feed", a.name).Msg("feed first page failed")
		a.publish("feed.failed", t, 0, err)
	} else {
		a.logger.Warn().Err(err).Str("feed", a.name).Int("page", t.Page).Msg("feed load more failed")
		a.publish("feed.more_failed", t, 0, err)
	}
	a.changedHook()
	a.settled()
	return true
}

// settled réveille WaitSettled une fois le log, l'événement et OnChange passés.
func (a *Accumulator[T]) settled() {
	a.mu.Lock()
	a.settling--
	a.signalLocked()
	a.mu.Unlock()
}

func (a *Accumulator[T]) dropStale(t FetchTicket) {
	a.logger.Debug().Str("feed", a.name).Uint64("epoch", t.Epoch).Int("page", t.Page).Msg("stale feed response dropped")
	a.publish("feed.stale_dropped", t, 0, nil)
}

// Close invalide toute requête en vol; l'instance ne peut plus être utilisée.
func (a *Accumulator[T]) Close() {
	a.mu.Lock()
	if a.state == FeedClosed {
		a.mu.Unlock()
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.epoch++
	a.fetching = false
	a.state = FeedClosed
	a.signalLocked()
	ticket := FetchTicket{Epoch: a.epoch, Page: a.page}
	a.mu.Unlock()

	a.publish("feed.closed", ticket, 0, nil)
	a.changedHook()
}

func (a *Accumulator[T]) Snapshot() FeedSnapshot[T] {
	a.mu.Lock()
	defer a.mu.Unlock()
	return FeedSnapshot[T]{
		Name:       a.name,
		Kind:       a.cfg.Kind,
		Items:      append([]T(nil), a.items...),
		Page:       a.page,
		TotalPages: a.totalPages,
		Fetching:   a.fetching,
		State:      a.state,
		Err:        a.lastErr,
		Epoch:      a.epoch,
		Halted:     a.halted,
	}
}

// WaitSettled attend qu'aucune requête ne soit en vol et que les notifications
// de la dernière réponse (log, bus, OnChange) soient faites.
func (a *Accumulator[T]) WaitSettled(ctx context.Context) error {
	for {
		a.mu.Lock()
		if !a.fetching && a.settling == 0 {
			a.mu.Unlock()
			return nil
		}
		ch := a.changed
		a.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

func (a *Accumulator[T]) signalLocked() {
	close(a.changed)
	a.changed = make(chan struct{})
}

func (a *Accumulator[T]) changedHook() {
	if a.onChange != nil {
		a.onChange()
	}
}

type feedEvent struct {
	Screen string          `json:"screen,omitempty"`
	Feed   string          `json:"feed"`
	Kind   domain.FeedKind `json:"kind"`
	Epoch  uint64          `json:"epoch"`
	Page   int             `json:"page"`
	Count  int             `json:"count,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func (a *Accumulator[T]) publish(topic string, t FetchTicket, count int, err error) {
	if a.bus == nil {
		return
	}
	a.mu.Lock()
	kind := a.cfg.Kind
	a.mu.Unlock()
	ev := feedEvent{Screen: a.screen, Feed: a.name, Kind: kind, Epoch: t.Epoch, Page: t.Page, Count: count}
	if err != nil {
		ev.Error = err.Error()
	}
	b, mErr := json.Marshal(ev)
	if mErr != nil {
		return
	}
	a.bus.Publish(topic, b)
}

// CatalogueFetcher adapte ports.Catalogue à un PageFetcher de films.
func CatalogueFetcher(cat ports.Catalogue) PageFetcher[domain.Movie] {
	return func(ctx context.Context, page int, cfg FeedConfig) (Batch[domain.Movie], error) {
		res, err := cat.FetchPage(ctx, domain.PageQuery{
			Kind:   cfg.Kind,
			Page:   page,
			Limit:  cfg.PageSize,
			Sort:   cfg.Sort,
			Filter: cfg.Filter,
		})
		if err != nil {
			return Batch[domain.Movie]{}, err
		}
		return Batch[domain.Movie]{Items: res.Items, TotalPages: res.Pagination.TotalPages}, nil
	}
}
