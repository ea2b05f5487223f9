package phimapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/w2w-movies/w2w/internal/app"
	"github.com/w2w-movies/w2w/internal/buildinfo"
	"github.com/w2w-movies/w2w/internal/domain"
	"github.com/w2w-movies/w2w/internal/ports"
)

const (
	DefaultBaseURL   = "https://phimapi.com"
	defaultCacheSize = 256
	defaultCacheTTL  = 5 * time.Minute
	maxBodyBytes     = 8 << 20

	defaultSharedTimeout = 30 * time.Second
)

// Gate borne les requêtes simultanées (app.DynamicLimiter).
type Gate interface {
	Acquire(ctx context.Context) error
	Release()
}

type Options struct {
	BaseURL      string
	ImageBaseURL string

	// HTTPClient remplace le client construit à partir de Timeout/RetryMax.
	HTTPClient   *http.Client
	Timeout      time.Duration
	RetryMax     int
	RetryBackoff time.Duration

	// RatePerSecond <= 0 désactive la limitation de débit.
	RatePerSecond float64
	Burst         int

	CacheSize int
	CacheTTL  time.Duration

	Gate   Gate
	Logger zerolog.Logger
}

// Client implémente ports.Catalogue sur PhimAPI.
type Client struct {
	baseURL   string
	imageBase string
	http      *http.Client
	limiter   *rate.Limiter
	gate      Gate
	logger    zerolog.Logger

	details *expirable.LRU[string, domain.MovieDetail]
	bodies  *expirable.LRU[string, []byte]
	group   singleflight.Group
}

var _ ports.Catalogue = (*Client)(nil)

func New(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	img := strings.TrimSpace(opts.ImageBaseURL)
	if img == "" {
		img = domain.DefaultImageBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = NewHTTPClient(opts.Timeout, max(opts.RetryMax, 0), opts.RetryBackoff)
	}
	limit := rate.Inf
	burst := opts.Burst
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	size := opts.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	return &Client{
		baseURL:   base,
		imageBase: img,
		http:      hc,
		limiter:   rate.NewLimiter(limit, burst),
		gate:      opts.Gate,
		logger:    opts.Logger,
		details:   expirable.NewLRU[string, domain.MovieDetail](size, nil, ttl),
		bodies:    expirable.NewLRU[string, []byte](32, nil, ttl),
	}
}

func (c *Client) FetchPage(ctx context.Context, q domain.PageQuery) (domain.Page, error) {
	q.Sort = q.Sort.OrDefault()
	if err := q.Validate(); err != nil {
		return domain.Page{}, &app.CodedError{Code: app.CodeInvalidParams, Message: "page query", Err: err}
	}

	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("limit", strconv.Itoa(q.Limit))

	path := "/danh-sach/phim-moi-cap-nhat-v3"
	if q.Kind != domain.FeedNew {
		path = "/v1/api/danh-sach/" + url.PathEscape(string(q.Kind))
		v.Set("sort_field", string(q.Sort.Field))
		v.Set("sort_type", string(q.Sort.Order))
		if q.Filter.Lang != "" {
			v.Set("sort_lang", q.Filter.Lang)
		}
		if q.Filter.Category != "" {
			v.Set("category", q.Filter.Category)
		}
		if q.Filter.Country != "" {
			v.Set("country", q.Filter.Country)
		}
		if q.Filter.Year > 0 {
			v.Set("year", strconv.Itoa(q.Filter.Year))
		}
	}

	var env listEnvelope
	if err := c.getJSON(ctx, path, v, &env); err != nil {
		return domain.Page{}, err
	}
	if !env.Status.ok() {
		return domain.Page{}, upstreamError(path, env.Msg)
	}
	return env.page(c.imageBase), nil
}

func (c *Client) Search(ctx context.Context, keyword string, page, limit int) (domain.Page, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return domain.Page{}, &app.CodedError{Code: app.CodeInvalidParams, Message: "keyword is required"}
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	v := url.Values{}
	v.Set("keyword", keyword)
	v.Set("page", strconv.Itoa(page))
	v.Set("limit", strconv.Itoa(limit))

	const path = "/v1/api/tim-kiem"
	var env listEnvelope
	if err := c.getJSON(ctx, path, v, &env); err != nil {
		return domain.Page{}, err
	}
	if !env.Status.ok() {
		return domain.Page{}, upstreamError(path, env.Msg)
	}
	return env.page(c.imageBase), nil
}

// FetchDetail passe par le cache LRU; les chargements concurrents d'un même slug
// sont fusionnés.
func (c *Client) FetchDetail(ctx context.Context, slug string) (domain.MovieDetail, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return domain.MovieDetail{}, &app.CodedError{Code: app.CodeInvalidParams, Message: "slug is required"}
	}
	if d, ok := c.details.Get(slug); ok {
		return d, nil
	}

	v, err := c.shared(ctx, "detail:"+slug, func(ctx context.Context) (any, error) {
		path := "/phim/" + url.PathEscape(slug)
		var env detailEnvelope
		if err := c.getJSON(ctx, path, nil, &env); err != nil {
			return domain.MovieDetail{}, err
		}
		if !env.Status.ok() || env.Movie.Slug == "" {
			msg := env.Msg
			if msg == "" {
				msg = "movie not found"
			}
			return domain.MovieDetail{}, &app.CodedError{Code: app.CodeNotFound, Message: slug + ": " + msg, Err: ports.ErrNotFound}
		}
		resolveImages(&env.Movie, c.imageBase)
		d := domain.MovieDetail{Movie: env.Movie, Servers: env.Episodes}
		c.details.Add(slug, d)
		return d, nil
	})
	if err != nil {
		return domain.MovieDetail{}, err
	}
	return v.(domain.MovieDetail), nil
}

// shared fusionne les chargements concurrents d'une même clé. Le chargement ne
// dépend pas du contexte de l'appelant qui l'a lancé: une annulation ne fait
// échouer que l'appelant concerné.
func (c *Client) shared(ctx context.Context, key string, load func(context.Context) (any, error)) (any, error) {
	ch := c.group.DoChan(key, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.sharedTimeout())
		defer cancel()
		return load(lctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

func (c *Client) sharedTimeout() time.Duration {
	if c.http.Timeout > 0 {
		return c.http.Timeout
	}
	return defaultSharedTimeout
}

func (c *Client) Categories(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	if err := c.cachedJSON(ctx, "/the-loai", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Countries(ctx context.Context) ([]domain.Country, error) {
	var out []domain.Country
	if err := c.cachedJSON(ctx, "/quoc-gia", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// cachedJSON garde le body brut des listes quasi statiques (genres, pays).
func (c *Client) cachedJSON(ctx context.Context, path string, out any) error {
	body, ok := c.bodies.Get(path)
	if !ok {
		v, err := c.shared(ctx, "body:"+path, func(ctx context.Context) (any, error) {
			b, err := c.get(ctx, path, nil)
			if err != nil {
				return nil, err
			}
			c.bodies.Add(path, b)
			return b, nil
		})
		if err != nil {
			return err
		}
		body = v.([]byte)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &app.CodedError{Code: app.CodeDecode, Message: "decode " + path, Err: err}
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	body, err := c.get(ctx, path, q)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &app.CodedError{Code: app.CodeDecode, Message: "decode " + path, Err: err}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if c.gate != nil {
		if err := c.gate.Acquire(ctx); err != nil {
			return nil, err
		}
		defer c.gate.Release()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &app.CodedError{Code: app.CodeInvalidParams, Message: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", buildinfo.UserAgent())

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Warn().Err(err).Str("path", path).Msg("phimapi request failed")
		return nil, &app.CodedError{Code: app.CodeNetwork, Message: "GET " + path, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug().Str("path", path).Int("status", resp.StatusCode).Dur("duration", time.Since(start)).Msg("phimapi")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &app.CodedError{Code: app.CodeHTTPStatus, Message: "GET " + path, Err: &HTTPStatusError{URL: u, StatusCode: resp.StatusCode}}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &app.CodedError{Code: app.CodeNetwork, Message: "read " + path, Err: err}
	}
	return body, nil
}

func upstreamError(path, msg string) error {
	if msg == "" {
		msg = "status not ok"
	}
	return &app.CodedError{Code: app.CodeUpstream, Message: fmt.Sprintf("GET %s: %s", path, msg)}
}
