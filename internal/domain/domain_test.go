package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseFeedKind_Aliases(t *testing.T) {
	cases := map[string]FeedKind{
		"movies":     FeedMovies,
		"Phim-Bo":    FeedSeries,
		" animation": FeedAnimation,
		"tvshows":    FeedTVShows,
		"latest":     FeedNew,
	}
	for in, want := range cases {
		got, err := ParseFeedKind(in)
		if err != nil {
			t.Fatalf("ParseFeedKind(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseFeedKind(%q): want %q, got %q", in, want, got)
		}
	}
	if _, err := ParseFeedKind("cartoons"); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestParseSort(t *testing.T) {
	s, err := ParseSort("year:asc")
	if err != nil {
		t.Fatalf("ParseSort: %v", err)
	}
	if s.Field != SortYear || s.Order != SortAsc {
		t.Fatalf("unexpected sort: %+v", s)
	}
	s, err = ParseSort("")
	if err != nil || s != DefaultSort() {
		t.Fatalf("expected default sort, got %+v (%v)", s, err)
	}
	if _, err := ParseSort("rating:desc"); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestPageQuery_Validate(t *testing.T) {
	q := PageQuery{Kind: FeedMovies, Page: 1, Limit: 15, Sort: DefaultSort()}
	if err := q.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	q.Page = 0
	if err := q.Validate(); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery for page 0, got %v", err)
	}
	q.Page = 1
	q.Filter.Lang = "dub"
	if err := q.Validate(); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery for lang, got %v", err)
	}
}

func TestImageURL(t *testing.T) {
	if got := ImageURL("", "upload/vod/a.jpg"); got != "https://phimimg.com/upload/vod/a.jpg" {
		t.Fatalf("relative: got %q", got)
	}
	if got := ImageURL("https://cdn.example/", "/a.jpg"); got != "https://cdn.example/a.jpg" {
		t.Fatalf("custom base: got %q", got)
	}
	abs := "https://img.example/a.jpg"
	if got := ImageURL("", abs); got != abs {
		t.Fatalf("absolute: got %q", got)
	}
}

func TestFormatEpisodeAndTruncate(t *testing.T) {
	if got := FormatEpisode("Full", "1"); got != "Full" {
		t.Fatalf("FormatEpisode: got %q", got)
	}
	if got := FormatEpisode("Tập 3", "12 Tập"); got != "Tập 3/12 Tập" {
		t.Fatalf("FormatEpisode: got %q", got)
	}
	if got := Truncate("Người phán xử", 5); got != "Người..." {
		t.Fatalf("Truncate: got %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("Truncate: got %q", got)
	}
}

func TestStreamURL_PrefersConfiguredKind(t *testing.T) {
	ep := EpisodeData{LinkEmbed: "https://player/e", LinkM3U8: "https://cdn/a.m3u8"}
	if got := StreamURL(ep, StreamM3U8); got != ep.LinkM3U8 {
		t.Fatalf("m3u8: got %q", got)
	}
	if got := StreamURL(ep, StreamEmbed); got != ep.LinkEmbed {
		t.Fatalf("embed: got %q", got)
	}
	if got := StreamURL(EpisodeData{LinkEmbed: "https://player/e"}, StreamM3U8); got != "https://player/e" {
		t.Fatalf("fallback: got %q", got)
	}
}

func TestFlexString_AcceptsNumbersAndNull(t *testing.T) {
	var m struct {
		TMDB TMDB `json:"tmdb"`
		IMDB IMDB `json:"imdb"`
	}
	if err := json.Unmarshal([]byte(`{"tmdb":{"type":"tv","id":12345,"vote_average":7.5},"imdb":{"id":null}}`), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.TMDB.ID != "12345" || m.IMDB.ID != "" {
		t.Fatalf("unexpected ids: %q %q", m.TMDB.ID, m.IMDB.ID)
	}
}
