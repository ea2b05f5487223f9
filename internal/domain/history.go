package domain

import "time"

// HistoryEntry mémorise le dernier épisode regardé d'un film.
type HistoryEntry struct {
	ID           string    `json:"id"`
	Slug         string    `json:"slug"`
	Name         string    `json:"name"`
	OriginName   string    `json:"originName,omitempty"`
	PosterURL    string    `json:"posterUrl,omitempty"`
	ServerIndex  int       `json:"server"`
	ServerName   string    `json:"serverName,omitempty"`
	EpisodeIndex int       `json:"episode"`
	EpisodeName  string    `json:"episodeName,omitempty"`
	StreamURL    string    `json:"streamUrl,omitempty"`
	WatchedAt    time.Time `json:"watchedAt"`
}
