package app

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/w2w-movies/w2w/internal/domain"
	"github.com/w2w-movies/w2w/internal/ports"
)

const defaultSearchQuiet = 500 * time.Millisecond

// SearchService sert la recherche directe et les sessions de saisie (debounce).
type SearchService struct {
	logger    zerolog.Logger
	catalogue ports.Catalogue
	settings  *SettingsService
	bus       ports.EventBus

	afterFunc AfterFunc
	run       func(func())
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*SearchSession
}

func NewSearchService(logger zerolog.Logger, catalogue ports.Catalogue, settings *SettingsService, bus ports.EventBus) *SearchService {
	return &SearchService{
		logger:    logger,
		catalogue: catalogue,
		settings:  settings,
		bus:       bus,
		afterFunc: realAfterFunc,
		run:       func(f func()) { go f() },
		now:       time.Now,
		sessions:  map[string]*SearchSession{},
	}
}

// WithScheduling remplace les timers et l'exécution des recherches (tests).
func (s *SearchService) WithScheduling(afterFunc AfterFunc, run func(func())) *SearchService {
	if afterFunc != nil {
		s.afterFunc = afterFunc
	}
	if run != nil {
		s.run = run
	}
	return s
}

func (s *SearchService) current(ctx context.Context) domain.Settings {
	if s.settings == nil {
		return domain.DefaultSettings()
	}
	return s.settings.Current(ctx)
}

// Search interroge directement le catalogue. Un mot-clé vide est refusé.
func (s *SearchService) Search(ctx context.Context, keyword string, page, limit int) (domain.Page, error) {
	kw := NormalizeKeyword(keyword)
	if kw == "" {
		return domain.Page{}, invalidParams("keyword is required")
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = s.current(ctx).SearchLimit
	}
	if limit > domain.MaxPageSize {
		limit = domain.MaxPageSize
	}
	return s.catalogue.Search(ctx, kw, page, limit)
}

func (s *SearchService) Open(ctx context.Context) *SearchSession {
	st := s.current(ctx)
	quiet := time.Duration(st.SearchDebounceMs) * time.Millisecond
	if quiet <= 0 {
		quiet = defaultSearchQuiet
	}

	sess := &SearchSession{
		id:       xid.New().String(),
		svc:      s,
		limit:    st.SearchLimit,
		lastUsed: s.now(),
		changed:  make(chan struct{}),
	}
	sess.debouncer = NewDebouncer(quiet, sess.onSettled).WithAfterFunc(s.afterFunc)

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	return sess
}

func (s *SearchService) Get(id string) (*SearchSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	sess.touch(s.now())
	return sess, nil
}

func (s *SearchService) Sessions() []*SearchSession {
	s.mu.Lock()
	out := make([]*SearchSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (s *SearchService) CloseSession(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	sess.close()
	return nil
}

// CloseIdle ferme les sessions inutilisées depuis plus de ttl.
func (s *SearchService) CloseIdle(ttl time.Duration, now time.Time) int {
	s.mu.Lock()
	var idle []*SearchSession
	for id, sess := range s.sessions {
		if now.Sub(sess.LastUsed()) > ttl {
			idle = append(idle, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()
	for _, sess := range idle {
		sess.close()
	}
	return len(idle)
}

func (s *SearchService) CloseAll() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = map[string]*SearchSession{}
	s.mu.Unlock()
	for _, sess := range all {
		sess.close()
	}
}

func (s *SearchService) publish(topic string, v any) {
	if s.bus == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.bus.Publish(topic, b)
}

type SearchSnapshot struct {
	ID         string         `json:"id"`
	Text       string         `json:"text"`
	Keyword    string         `json:"keyword"`
	Items      []domain.Movie `json:"items"`
	TotalItems int            `json:"totalItems"`
	Pending    bool           `json:"pending"`
	Searching  bool           `json:"isSearching"`
	Error      string         `json:"error,omitempty"`
	Generation uint64         `json:"generation"`
}

// SearchSession transforme une saisie libre en au plus une recherche par période calme.
type SearchSession struct {
	id        string
	svc       *SearchService
	limit     int
	debouncer *Debouncer[string]

	mu        sync.Mutex
	text      string
	keyword   string
	items     []domain.Movie
	total     int
	pending   bool
	searching bool
	settling  int
	lastErr   error
	gen       uint64
	cancel    context.CancelFunc
	closed    bool
	lastUsed  time.Time
	changed   chan struct{}
}

func (ss *SearchSession) ID() string { return ss.id }

func (ss *SearchSession) LastUsed() time.Time {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.lastUsed
}

func (ss *SearchSession) touch(now time.Time) {
	ss.mu.Lock()
	ss.lastUsed = now
	ss.mu.Unlock()
}

// Input enregistre une frappe; la recherche part après la période calme.
func (ss *SearchSession) Input(text string) error {
	ss.mu.Lock()
	if ss.closed {
		ss.mu.Unlock()
		return ErrClosed
	}
	ss.text = text
	ss.pending = true
	ss.lastUsed = ss.svc.now()
	ss.signalLocked()
	ss.mu.Unlock()

	ss.debouncer.Push(text)
	return nil
}

// Flush déclenche immédiatement la saisie en attente (touche "entrée").
func (ss *SearchSession) Flush() bool {
	return ss.debouncer.Flush()
}

func (ss *SearchSession) onSettled(text string) {
	kw := NormalizeKeyword(text)

	ss.mu.Lock()
	if ss.closed {
		ss.mu.Unlock()
		return
	}
	if ss.cancel != nil {
		ss.cancel()
		ss.cancel = nil
	}
	ss.gen++
	gen := ss.gen
	ss.pending = false
	ss.keyword = kw
	ss.lastErr = nil
	if kw == "" {
		ss.items = nil
		ss.total = 0
		ss.searching = false
		ss.signalLocked()
		ss.mu.Unlock()
		ss.svc.publish("search.cleared", map[string]any{"session": ss.id, "generation": gen})
		return
	}
	ss.searching = true
	ctx, cancel := context.WithCancel(context.Background())
	ss.cancel = cancel
	ss.signalLocked()
	ss.mu.Unlock()

	ss.svc.run(func() {
		page, err := ss.svc.catalogue.Search(ctx, kw, 1, ss.limit)
		ss.apply(gen, page, err)
	})
}

func (ss *SearchSession) apply(gen uint64, page domain.Page, err error) {
	ss.mu.Lock()
	if ss.closed || gen != ss.gen {
		ss.mu.Unlock()
		ss.svc.logger.Debug().Str("session", ss.id).Uint64("generation", gen).Msg("stale search result dropped")
		return
	}
	ss.searching = false
	if err != nil {
		ss.lastErr = err
	} else {
		ss.items = page.Items
		ss.total = page.Pagination.TotalItems
	}
	kw := ss.keyword
	ss.settling++
	ss.mu.Unlock()

	if err != nil {
		ss.svc.logger.Warn().Err(err).Str("session", ss.id).Str("keyword", kw).Msg("search failed")
		ss.svc.publish("search.failed", map[string]any{"session": ss.id, "keyword": kw, "error": err.Error()})
	} else {
		ss.svc.publish("search.results", map[string]any{"session": ss.id, "keyword": kw, "count": len(page.Items)})
	}

	ss.mu.Lock()
	ss.settling--
	ss.signalLocked()
	ss.mu.Unlock()
}

func (ss *SearchSession) Snapshot() SearchSnapshot {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	snap := SearchSnapshot{
		ID:         ss.id,
		Text:       ss.text,
		Keyword:    ss.keyword,
		Items:      append([]domain.Movie(nil), ss.items...),
		TotalItems: ss.total,
		Pending:    ss.pending,
		Searching:  ss.searching,
		Generation: ss.gen,
	}
	if ss.lastErr != nil {
		snap.Error = ss.lastErr.Error()
	}
	return snap
}

// WaitSettled attend la fin du debounce et de la recherche en cours.
func (ss *SearchSession) WaitSettled(ctx context.Context) error {
	for {
		ss.mu.Lock()
		if ss.closed || (!ss.pending && !ss.searching && ss.settling == 0) {
			ss.mu.Unlock()
			return nil
		}
		ch := ss.changed
		ss.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

func (ss *SearchSession) close() {
	ss.debouncer.Stop()
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.closed {
		return
	}
	ss.closed = true
	ss.gen++
	if ss.cancel != nil {
		ss.cancel()
		ss.cancel = nil
	}
	ss.signalLocked()
}

func (ss *SearchSession) signalLocked() {
	close(ss.changed)
	ss.changed = make(chan struct{})
}
