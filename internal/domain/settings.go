package domain

type Settings struct {
	// Taille de page des flux (accueil, films, séries).
	PageSize int `json:"pageSize"`
	// Nombre de films "nouveautés" chargés pour l'accueil (trending + continue).
	FeaturedLimit int `json:"featuredLimit"`

	SearchLimit      int `json:"searchLimit"`
	SearchDebounceMs int `json:"searchDebounceMs"`

	// Requêtes simultanées vers PhimAPI.
	MaxConcurrentRequests int `json:"maxConcurrentRequests"`

	PreferredStream StreamKind `json:"preferredStream"`
}

func DefaultSettings() Settings {
	return Settings{
		PageSize:              DefaultPageSize,
		FeaturedLimit:         20,
		SearchLimit:           20,
		SearchDebounceMs:      500,
		MaxConcurrentRequests: 4,
		PreferredStream:       StreamM3U8,
	}
}
