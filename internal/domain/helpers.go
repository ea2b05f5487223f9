package domain

import (
	"strings"
	"unicode/utf8"
)

const DefaultImageBaseURL = "https://phimimg.com"

// ImageURL garde les URLs absolues et préfixe les chemins relatifs par le CDN.
func ImageURL(base, path string) string {
	path = strings.TrimSpace(path)
	if path == "" || strings.HasPrefix(path, "http") {
		return path
	}
	if strings.TrimSpace(base) == "" {
		base = DefaultImageBaseURL
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// FormatEpisode rend "current/total", ou "Full" pour un film complet.
func FormatEpisode(current, total string) string {
	if total == "Full" || current == "Full" {
		return "Full"
	}
	return current + "/" + total
}

func Truncate(text string, max int) string {
	if max < 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	r := []rune(text)
	return string(r[:max]) + "..."
}

type StreamKind string

const (
	StreamM3U8  StreamKind = "m3u8"
	StreamEmbed StreamKind = "embed"
)

// StreamURL choisit le lien à jouer: le type préféré, sinon l'autre.
func StreamURL(ep EpisodeData, preferred StreamKind) string {
	m3u8 := strings.TrimSpace(ep.LinkM3U8)
	embed := strings.TrimSpace(ep.LinkEmbed)
	if preferred == StreamEmbed {
		if embed != "" {
			return embed
		}
		return m3u8
	}
	if m3u8 != "" {
		return m3u8
	}
	return embed
}
