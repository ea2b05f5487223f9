package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/w2w-movies/w2w/internal/adapters/memorybus"
	"github.com/w2w-movies/w2w/internal/adapters/sqlite"
	"github.com/w2w-movies/w2w/internal/app"
	"github.com/w2w-movies/w2w/internal/domain"
	"github.com/w2w-movies/w2w/internal/ports"
)

// fakeCatalogue: deux pages par liste, un seul film connu en détail.
type fakeCatalogue struct {
	mu      sync.Mutex
	queries []domain.PageQuery
}

func (c *fakeCatalogue) FetchPage(_ context.Context, q domain.PageQuery) (domain.Page, error) {
	c.mu.Lock()
	c.queries = append(c.queries, q)
	c.mu.Unlock()
	items := make([]domain.Movie, q.Limit)
	for i := range items {
		items[i] = domain.Movie{Slug: fmt.Sprintf("%s-%d-%d", q.Kind, q.Page, i), Name: "Movie"}
	}
	return domain.Page{Items: items, Pagination: domain.Pagination{CurrentPage: q.Page, TotalPages: 2}}, nil
}

func (c *fakeCatalogue) FetchDetail(_ context.Context, slug string) (domain.MovieDetail, error) {
	if slug != "ngoi-nha" {
		return domain.MovieDetail{}, ports.ErrNotFound
	}
	return domain.MovieDetail{
		Movie: domain.Movie{Slug: slug, Name: "Ngôi Nhà"},
		Servers: []domain.Server{{Name: "Vietsub #1", Episodes: []domain.EpisodeData{
			{Name: "Tập 1", LinkM3U8: "https://cdn.example/1.m3u8"},
			{Name: "Tập 2", LinkM3U8: "https://cdn.example/2.m3u8"},
		}}},
	}, nil
}

func (c *fakeCatalogue) Search(_ context.Context, keyword string, page, limit int) (domain.Page, error) {
	return domain.Page{Items: []domain.Movie{{Slug: "found", Name: keyword}}, Pagination: domain.Pagination{TotalItems: 1, CurrentPage: page, TotalPages: 1}}, nil
}

func (c *fakeCatalogue) Categories(context.Context) ([]domain.Category, error) {
	return []domain.Category{{Name: "Hành Động", Slug: "hanh-dong"}}, nil
}

func (c *fakeCatalogue) Countries(context.Context) ([]domain.Country, error) {
	return []domain.Country{{Name: "Hàn Quốc", Slug: "han-quoc"}}, nil
}

type testEnv struct {
	handler  http.Handler
	settings *app.SettingsService
	limiter  *app.DynamicLimiter
	bus      *memorybus.Bus
	screens  *app.ScreenService
	search   *app.SearchService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logger := zerolog.Nop()
	cat := &fakeCatalogue{}
	bus := memorybus.New()
	settings := app.NewSettingsService(sqlite.NewSettingsRepository(db.SQL))
	limiter := app.NewDynamicLimiter(domain.DefaultSettings().MaxConcurrentRequests)
	settings.OnChange(func(s domain.Settings) { limiter.SetLimit(s.MaxConcurrentRequests) })

	details := app.NewDetailService(cat)
	history := app.NewHistoryService(sqlite.NewHistoryRepository(db.SQL))
	screens := app.NewScreenService(logger, cat, settings, bus)
	search := app.NewSearchService(logger, cat, settings, bus)
	t.Cleanup(screens.CloseAll)
	t.Cleanup(search.CloseAll)

	srv := NewServer(logger, Services{
		Settings: settings,
		Screens:  screens,
		Search:   search,
		Details:  details,
		Watch:    app.NewWatchService(logger, details, history, settings, nil, bus),
		History:  history,
		Bus:      bus,
		Limiter:  limiter,
	})
	return &testEnv{handler: srv.Router(), settings: settings, limiter: limiter, bus: bus, screens: screens, search: search}
}

func (e *testEnv) do(t *testing.T, method, path, body string, out any) int {
	t.Helper()
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	if out != nil && rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, rr.Body.String(), err)
		}
	}
	return rr.Code
}

func TestSettingsHandler_PutUpdatesRequestLimiter(t *testing.T) {
	env := newTestEnv(t)

	var got domain.Settings
	code := env.do(t, http.MethodPut, "/api/v1/settings", `{"pageSize":20,"maxConcurrentRequests":2,"preferredStream":"embed"}`, &got)
	if code != http.StatusOK {
		t.Fatalf("status: want %d, got %d", http.StatusOK, code)
	}
	if got.PageSize != 20 || got.PreferredStream != domain.StreamEmbed {
		t.Fatalf("unexpected settings: %+v", got)
	}
	if got.SearchDebounceMs != domain.DefaultSettings().SearchDebounceMs {
		t.Fatalf("searchDebounceMs default not applied: %d", got.SearchDebounceMs)
	}
	if env.limiter.Limit() != 2 {
		t.Fatalf("limiter limit: want %d, got %d", 2, env.limiter.Limit())
	}

	var apiErr struct{ Error, Code string }
	if code := env.do(t, http.MethodPut, "/api/v1/settings", `{"pageSize":100}`, &apiErr); code != http.StatusBadRequest {
		t.Fatalf("status: want %d, got %d", http.StatusBadRequest, code)
	}
	if apiErr.Code != app.CodeInvalidParams {
		t.Fatalf("code: want %q, got %q", app.CodeInvalidParams, apiErr.Code)
	}
}

func TestSettingsHandler_PatchMergesAndRejectsUnknownFields(t *testing.T) {
	env := newTestEnv(t)

	var got domain.Settings
	if code := env.do(t, http.MethodPut, "/api/v1/settings", `{"pageSize":20,"preferredStream":"embed"}`, &got); code != http.StatusOK {
		t.Fatalf("put status: want %d, got %d", http.StatusOK, code)
	}
	got = domain.Settings{}
	if code := env.do(t, http.MethodPatch, "/api/v1/settings", `{"maxConcurrentRequests":3}`, &got); code != http.StatusOK {
		t.Fatalf("patch status: want %d, got %d", http.StatusOK, code)
	}
	if got.PageSize != 20 || got.PreferredStream != domain.StreamEmbed || got.MaxConcurrentRequests != 3 {
		t.Fatalf("patch must keep untouched fields: %+v", got)
	}
	if env.limiter.Limit() != 3 {
		t.Fatalf("limiter limit: want %d, got %d", 3, env.limiter.Limit())
	}

	var apiErr struct{ Error, Code string }
	if code := env.do(t, http.MethodPatch, "/api/v1/settings", `{"pageSise":10}`, &apiErr); code != http.StatusBadRequest {
		t.Fatalf("unknown field: want %d, got %d", http.StatusBadRequest, code)
	}
	if apiErr.Code != app.CodeInvalidParams {
		t.Fatalf("code: want %q, got %q", app.CodeInvalidParams, apiErr.Code)
	}
}

func TestHealth_ReportsRequestLimiter(t *testing.T) {
	env := newTestEnv(t)

	var got struct {
		Status   string
		Requests app.LimiterStats
	}
	if code := env.do(t, http.MethodGet, "/api/v1/health", "", &got); code != http.StatusOK {
		t.Fatalf("status: want %d, got %d", http.StatusOK, code)
	}
	if got.Status != "ok" || got.Requests.Limit != domain.DefaultSettings().MaxConcurrentRequests || got.Requests.InFlight != 0 {
		t.Fatalf("unexpected health %+v", got)
	}
}

func TestScreensHandler_LoadMoreUntilEnd(t *testing.T) {
	env := newTestEnv(t)

	var scr app.ScreenView
	if code := env.do(t, http.MethodPost, "/api/v1/screens", `{"layout":"movies"}`, &scr); code != http.StatusCreated {
		t.Fatalf("status: want %d, got %d", http.StatusCreated, code)
	}
	if len(scr.Feeds) != 1 {
		t.Fatalf("feeds: want 1, got %d", len(scr.Feeds))
	}
	first := scr.Feeds[0]
	if first.Page != 1 || len(first.Items) != domain.DefaultPageSize || !first.CanLoadMore {
		t.Fatalf("unexpected first page: page=%d items=%d more=%v", first.Page, len(first.Items), first.CanLoadMore)
	}

	var act feedAction
	if first.Name != "movies" {
		t.Fatalf("feed name: want %q, got %q", "movies", first.Name)
	}
	path := "/api/v1/screens/" + scr.ID + "/feeds/" + first.Name + "/more"
	if code := env.do(t, http.MethodPost, path, "", &act); code != http.StatusOK {
		t.Fatalf("status: want %d, got %d", http.StatusOK, code)
	}
	if !act.Accepted || act.Feed.Page != 2 || len(act.Feed.Items) != 2*domain.DefaultPageSize {
		t.Fatalf("unexpected more: %+v", act)
	}
	if act.Feed.CanLoadMore {
		t.Fatalf("expected end of list")
	}

	act = feedAction{}
	env.do(t, http.MethodPost, path, "", &act)
	if act.Accepted {
		t.Fatalf("request past the last page must be ignored")
	}

	if code := env.do(t, http.MethodGet, "/api/v1/screens/"+scr.ID+"/feeds/nope", "", nil); code != http.StatusNotFound {
		t.Fatalf("unknown feed: want %d, got %d", http.StatusNotFound, code)
	}
	if code := env.do(t, http.MethodDelete, "/api/v1/screens/"+scr.ID, "", nil); code != http.StatusNoContent {
		t.Fatalf("close: want %d, got %d", http.StatusNoContent, code)
	}
	if code := env.do(t, http.MethodGet, "/api/v1/screens/"+scr.ID, "", nil); code != http.StatusNotFound {
		t.Fatalf("closed screen: want %d, got %d", http.StatusNotFound, code)
	}
}

func TestScreensHandler_InvalidLayout(t *testing.T) {
	env := newTestEnv(t)
	if code := env.do(t, http.MethodPost, "/api/v1/screens", `{"layout":"category"}`, nil); code != http.StatusBadRequest {
		t.Fatalf("status: want %d, got %d", http.StatusBadRequest, code)
	}
}

func TestMoviesHandler_WatchRecordsHistory(t *testing.T) {
	env := newTestEnv(t)

	var view app.WatchView
	if code := env.do(t, http.MethodGet, "/api/v1/movies/ngoi-nha/watch?server=0&episode=1", "", &view); code != http.StatusOK {
		t.Fatalf("status: want %d, got %d", http.StatusOK, code)
	}
	if view.StreamURL != "https://cdn.example/2.m3u8" {
		t.Fatalf("streamUrl: got %q", view.StreamURL)
	}

	var hist []domain.HistoryEntry
	env.do(t, http.MethodGet, "/api/v1/history?q=ngoi", "", &hist)
	if len(hist) != 1 || hist[0].EpisodeIndex != 1 || hist[0].EpisodeName != "Tập 2" {
		t.Fatalf("unexpected history: %+v", hist)
	}

	if code := env.do(t, http.MethodGet, "/api/v1/movies/ngoi-nha/watch?episode=9", "", nil); code != http.StatusBadRequest {
		t.Fatalf("out of range: want %d, got %d", http.StatusBadRequest, code)
	}
	if code := env.do(t, http.MethodDelete, "/api/v1/history/ngoi-nha", "", nil); code != http.StatusNoContent {
		t.Fatalf("delete: want %d, got %d", http.StatusNoContent, code)
	}
}

func TestMoviesHandler_NotFound(t *testing.T) {
	env := newTestEnv(t)

	var apiErr struct{ Error, Code string }
	if code := env.do(t, http.MethodGet, "/api/v1/movies/absent", "", &apiErr); code != http.StatusNotFound {
		t.Fatalf("status: want %d, got %d", http.StatusNotFound, code)
	}
	if apiErr.Code != app.CodeNotFound {
		t.Fatalf("code: want %q, got %q", app.CodeNotFound, apiErr.Code)
	}

	var cats []domain.Category
	env.do(t, http.MethodGet, "/api/v1/categories", "", &cats)
	if len(cats) != 1 || cats[0].Slug != "hanh-dong" {
		t.Fatalf("unexpected categories: %+v", cats)
	}
}

func TestSearchHandler_SessionSubmit(t *testing.T) {
	env := newTestEnv(t)

	if code := env.do(t, http.MethodGet, "/api/v1/search?keyword=", "", nil); code != http.StatusBadRequest {
		t.Fatalf("empty keyword: want %d, got %d", http.StatusBadRequest, code)
	}

	var snap app.SearchSnapshot
	if code := env.do(t, http.MethodPost, "/api/v1/search-sessions", `{"text":"  ma trận ","submit":true}`, &snap); code != http.StatusCreated {
		t.Fatalf("status: want %d, got %d", http.StatusCreated, code)
	}
	env.do(t, http.MethodGet, "/api/v1/search-sessions/"+snap.ID+"?wait=true", "", &snap)
	if snap.Keyword != "ma trận" || len(snap.Items) != 1 || snap.Searching {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	if code := env.do(t, http.MethodDelete, "/api/v1/search-sessions/"+snap.ID, "", nil); code != http.StatusNoContent {
		t.Fatalf("close: want %d, got %d", http.StatusNoContent, code)
	}
	if code := env.do(t, http.MethodPut, "/api/v1/search-sessions/"+snap.ID, `{"text":"x"}`, nil); code != http.StatusNotFound {
		t.Fatalf("closed session: want %d, got %d", http.StatusNotFound, code)
	}
}

func TestEvents_RelaysBusTopics(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/v1/events?topics=feed.", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	defer resp.Body.Close()

	rd := bufio.NewReader(resp.Body)
	readEvent := func() string {
		for {
			line, err := rd.ReadString('\n')
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if strings.HasPrefix(line, "event: ") {
				return strings.TrimSpace(strings.TrimPrefix(line, "event: "))
			}
		}
	}
	if got := readEvent(); got != "hello" {
		t.Fatalf("first event: want hello, got %q", got)
	}

	env.bus.Publish("search.results", []byte(`{}`))
	env.bus.Publish("feed.loaded", []byte(`{"feed":"x"}`))
	if got := readEvent(); got != "feed.loaded" {
		t.Fatalf("event: want feed.loaded, got %q", got)
	}
}
