package buildinfo

import "strings"

// Injectées à la compilation:
//
//	go build -ldflags "-X github.com/w2w-movies/w2w/internal/buildinfo.Version=v0.3.0 \
//	  -X github.com/w2w-movies/w2w/internal/buildinfo.Commit=abcdef \
//	  -X github.com/w2w-movies/w2w/internal/buildinfo.Date=2026-10-01"
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
	Date    string `json:"date,omitempty"`
}

func Current() Info {
	return Info{Version: Version, Commit: Commit, Date: Date}
}

// String: "v0.3.0 (abcdef) 2026-10-01", sans les parties absentes.
func (i Info) String() string {
	parts := []string{i.Version}
	if i.Commit != "" {
		parts = append(parts, "("+i.Commit+")")
	}
	if i.Date != "" {
		parts = append(parts, i.Date)
	}
	return strings.Join(parts, " ")
}

// UserAgent est envoyé à PhimAPI.
func UserAgent() string {
	return "w2w/" + Version
}
