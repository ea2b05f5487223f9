package domain

import (
	"encoding/json"
	"strings"
)

// Movie reflète la forme renvoyée par PhimAPI (listes, recherche et détail).
// Les champs sont exposés tels quels au rendu.
type Movie struct {
	ID             string     `json:"_id"`
	Name           string     `json:"name"`
	Slug           string     `json:"slug"`
	OriginName     string     `json:"origin_name"`
	Content        string     `json:"content,omitempty"`
	Type           string     `json:"type"`
	Status         string     `json:"status,omitempty"`
	PosterURL      string     `json:"poster_url"`
	ThumbURL       string     `json:"thumb_url"`
	IsCopyright    bool       `json:"is_copyright"`
	SubDocQuyen    bool       `json:"sub_docquyen"`
	ChieuRap       bool       `json:"chieurap"`
	TrailerURL     string     `json:"trailer_url,omitempty"`
	Time           string     `json:"time"`
	EpisodeCurrent string     `json:"episode_current"`
	EpisodeTotal   string     `json:"episode_total,omitempty"`
	Quality        string     `json:"quality"`
	Lang           string     `json:"lang"`
	Notify         string     `json:"notify,omitempty"`
	Showtimes      string     `json:"showtimes,omitempty"`
	Year           int        `json:"year"`
	View           int        `json:"view"`
	Actor          []string   `json:"actor,omitempty"`
	Director       []string   `json:"director,omitempty"`
	Category       []Category `json:"category,omitempty"`
	Country        []Country  `json:"country,omitempty"`
	Modified       Modified   `json:"modified"`
	TMDB           *TMDB      `json:"tmdb,omitempty"`
	IMDB           *IMDB      `json:"imdb,omitempty"`
}

type Modified struct {
	Time string `json:"time"`
}

type TMDB struct {
	Type        string     `json:"type"`
	ID          FlexString `json:"id"`
	Season      *int       `json:"season,omitempty"`
	VoteAverage float64    `json:"vote_average"`
	VoteCount   int        `json:"vote_count"`
}

type IMDB struct {
	ID FlexString `json:"id"`
}

type Category struct {
	ID   string `json:"_id,omitempty"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Country struct {
	ID   string `json:"_id,omitempty"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Server regroupe les épisodes d'une source (ex: "Vietsub #1").
type Server struct {
	Name     string        `json:"server_name"`
	Episodes []EpisodeData `json:"server_data"`
}

type EpisodeData struct {
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Filename  string `json:"filename"`
	LinkEmbed string `json:"link_embed"`
	LinkM3U8  string `json:"link_m3u8"`
}

// MovieDetail: PhimAPI renvoie les épisodes au niveau racine, pas dans "movie".
type MovieDetail struct {
	Movie   Movie    `json:"movie"`
	Servers []Server `json:"episodes"`
}

type Pagination struct {
	TotalItems        int `json:"totalItems"`
	TotalItemsPerPage int `json:"totalItemsPerPage"`
	CurrentPage       int `json:"currentPage"`
	TotalPages        int `json:"totalPages"`
}

// Page est un lot de films plus la pagination annoncée par le serveur.
type Page struct {
	Items      []Movie    `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// FlexString accepte une chaîne, un nombre ou null (tmdb.id, imdb.id).
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "" || raw == "null" {
		*s = ""
		return nil
	}
	if raw[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	*s = FlexString(raw)
	return nil
}

func (s FlexString) String() string { return string(s) }
