package phimapi

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/w2w-movies/w2w/internal/domain"
)

// status vaut true/false sur les anciens endpoints et "success"/"error" sur /v1.
type apiStatus json.RawMessage

func (s *apiStatus) UnmarshalJSON(b []byte) error {
	*s = append((*s)[:0], b...)
	return nil
}

func (s apiStatus) ok() bool {
	raw := bytes.TrimSpace([]byte(s))
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return true
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		str = strings.ToLower(strings.TrimSpace(str))
		return str == "success" || str == "true" || str == "ok"
	}
	return false
}

// listEnvelope couvre les deux formes de liste:
//
//	{status, items, pagination}                       (phim-moi-cap-nhat)
//	{status, msg, data: {items, params: {pagination}}} (/v1/api/...)
type listEnvelope struct {
	Status     apiStatus          `json:"status"`
	Msg        string             `json:"msg"`
	Items      []domain.Movie     `json:"items"`
	Pagination *domain.Pagination `json:"pagination"`
	Data       *struct {
		Items  []domain.Movie `json:"items"`
		Params struct {
			Pagination domain.Pagination `json:"pagination"`
		} `json:"params"`
		CDNImage string `json:"APP_DOMAIN_CDN_IMAGE"`
	} `json:"data"`
}

func (e listEnvelope) page(imageBase string) domain.Page {
	var p domain.Page
	cdn := imageBase
	if e.Data != nil {
		p.Items = e.Data.Items
		p.Pagination = e.Data.Params.Pagination
		if strings.TrimSpace(e.Data.CDNImage) != "" {
			cdn = e.Data.CDNImage
		}
	} else {
		p.Items = e.Items
		if e.Pagination != nil {
			p.Pagination = *e.Pagination
		}
	}
	if p.Items == nil {
		p.Items = []domain.Movie{}
	}
	for i := range p.Items {
		resolveImages(&p.Items[i], cdn)
	}
	return p
}

type detailEnvelope struct {
	Status   apiStatus       `json:"status"`
	Msg      string          `json:"msg"`
	Movie    domain.Movie    `json:"movie"`
	Episodes []domain.Server `json:"episodes"`
}

func resolveImages(m *domain.Movie, base string) {
	m.PosterURL = domain.ImageURL(base, m.PosterURL)
	m.ThumbURL = domain.ImageURL(base, m.ThumbURL)
}
