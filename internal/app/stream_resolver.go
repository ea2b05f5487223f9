package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var (
	reStreamAbs  = regexp.MustCompile(`(?i)(https?:)?//[^\s"'<>]+\.(m3u8|mp4)(\?[^\s"'<>]*)?`)
	reStreamRel  = regexp.MustCompile(`(?i)/[^\s"'<>]+\.(m3u8|mp4)(\?[^\s"'<>]*)?`)
	reRefreshURL = regexp.MustCompile(`(?i)url\s*=\s*['"]?([^'">\s]+)`)

	embedURLParams = []string{"url", "link", "src", "file"}
)

// StreamResolver transforme un lien de lecteur embarqué en lien vidéo direct
// (.m3u8 de préférence, sinon .mp4). En cas d'échec le lien d'origine est rendu.
type StreamResolver struct {
	client   *http.Client
	MaxDepth int
}

func NewStreamResolver(client *http.Client) *StreamResolver {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &StreamResolver{client: client, MaxDepth: 2}
}

func IsDirectStream(u string) bool {
	lu := strings.ToLower(strings.TrimSpace(u))
	if i := strings.IndexAny(lu, "?#"); i >= 0 {
		lu = lu[:i]
	}
	return strings.HasSuffix(lu, ".m3u8") || strings.HasSuffix(lu, ".mp4")
}

func (r *StreamResolver) Resolve(ctx context.Context, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("empty url")
	}
	return r.resolve(ctx, raw, r.MaxDepth), nil
}

func (r *StreamResolver) resolve(ctx context.Context, raw string, depth int) string {
	if IsDirectStream(raw) {
		return raw
	}
	base, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	// Les lecteurs PhimAPI portent souvent la playlist en paramètre (?url=...m3u8).
	for _, key := range embedURLParams {
		if v := base.Query().Get(key); v != "" && IsDirectStream(v) {
			if ref, ok := resolveRef(base, v); ok {
				return ref
			}
		}
	}
	if depth <= 0 {
		return raw
	}

	page, ok := r.fetchPage(ctx, raw)
	if !ok {
		return raw
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err == nil {
		var found string
		doc.Find("video[src], source[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			src, _ := s.Attr("src")
			if ref, ok := resolveRef(base, src); ok && IsDirectStream(ref) {
				found = ref
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}

	if u, ok := pickStreamCandidate(base, page); ok {
		return u
	}

	if doc != nil {
		var next []string
		doc.Find(`meta[http-equiv]`).Each(func(_ int, s *goquery.Selection) {
			if !strings.EqualFold(s.AttrOr("http-equiv", ""), "refresh") {
				return
			}
			if m := reRefreshURL.FindStringSubmatch(s.AttrOr("content", "")); len(m) == 2 {
				next = append(next, m[1])
			}
		})
		doc.Find("iframe[src]").Each(func(_ int, s *goquery.Selection) {
			next = append(next, s.AttrOr("src", ""))
		})
		for _, ref := range next {
			abs, ok := resolveRef(base, ref)
			if !ok || abs == raw {
				continue
			}
			if res := r.resolve(ctx, abs, depth-1); res != abs {
				return res
			}
		}
	}
	return raw
}

func (r *StreamResolver) fetchPage(ctx context.Context, raw string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return "", false
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) Gecko/20100101 Firefox/120.0")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", false
	}
	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(ct, "text/html") && !strings.Contains(ct, "application/xhtml") {
		return "", false
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", false
	}
	return string(b), true
}

func unescapeForScan(s string) string {
	s = strings.ReplaceAll(s, `\/`, "/")
	s = strings.ReplaceAll(s, `\u0026`, "&")
	s = strings.ReplaceAll(s, `\u002F`, "/")
	return strings.ReplaceAll(s, "&amp;", "&")
}

func resolveRef(base *url.URL, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || base == nil {
		return "", false
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	return base.ResolveReference(u).String(), true
}

// pickStreamCandidate cherche un lien média dans le texte brut (scripts JS/JSON).
func pickStreamCandidate(base *url.URL, text string) (string, bool) {
	text = unescapeForScan(text)
	matches := reStreamAbs.FindAllString(text, -1)
	if len(matches) == 0 {
		matches = reStreamRel.FindAllString(text, -1)
	}
	if len(matches) == 0 {
		return "", false
	}
	best := ""
	for _, m := range matches {
		abs, ok := resolveRef(base, m)
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(abs), ".m3u8") {
			return abs, true
		}
		if best == "" {
			best = abs
		}
	}
	return best, best != ""
}
