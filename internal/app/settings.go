package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/w2w-movies/w2w/internal/domain"
	"github.com/w2w-movies/w2w/internal/ports"
)

type SettingsService struct {
	repo ports.SettingsRepository

	mu        sync.Mutex
	listeners []func(domain.Settings)
}

func NewSettingsService(repo ports.SettingsRepository) *SettingsService {
	return &SettingsService{repo: repo}
}

// OnChange enregistre un callback appelé après chaque Put réussi
// (ex: appliquer maxConcurrentRequests au limiter).
func (s *SettingsService) OnChange(fn func(domain.Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *SettingsService) Get(ctx context.Context) (domain.Settings, error) {
	return s.repo.Get(ctx)
}

// Current renvoie les réglages, ou les valeurs par défaut si le store échoue.
func (s *SettingsService) Current(ctx context.Context) domain.Settings {
	st, err := s.repo.Get(ctx)
	if err != nil {
		return domain.DefaultSettings()
	}
	return st
}

func (s *SettingsService) Put(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	def := domain.DefaultSettings()
	if settings.PageSize <= 0 {
		settings.PageSize = def.PageSize
	}
	if settings.PageSize > domain.MaxPageSize {
		return domain.Settings{}, invalidParams(fmt.Sprintf("pageSize must be <= %d", domain.MaxPageSize))
	}
	if settings.FeaturedLimit <= 0 {
		settings.FeaturedLimit = def.FeaturedLimit
	}
	if settings.FeaturedLimit > domain.MaxPageSize {
		return domain.Settings{}, invalidParams(fmt.Sprintf("featuredLimit must be <= %d", domain.MaxPageSize))
	}
	if settings.SearchLimit <= 0 {
		settings.SearchLimit = def.SearchLimit
	}
	if settings.SearchLimit > domain.MaxPageSize {
		return domain.Settings{}, invalidParams(fmt.Sprintf("searchLimit must be <= %d", domain.MaxPageSize))
	}
	if settings.SearchDebounceMs <= 0 {
		settings.SearchDebounceMs = def.SearchDebounceMs
	}
	if settings.MaxConcurrentRequests <= 0 {
		settings.MaxConcurrentRequests = def.MaxConcurrentRequests
	}
	switch settings.PreferredStream {
	case "":
		settings.PreferredStream = def.PreferredStream
	case domain.StreamM3U8, domain.StreamEmbed:
	default:
		return domain.Settings{}, invalidParams(fmt.Sprintf("preferredStream must be %q or %q", domain.StreamM3U8, domain.StreamEmbed))
	}

	updated, err := s.repo.Put(ctx, settings)
	if err != nil {
		return domain.Settings{}, err
	}

	s.mu.Lock()
	listeners := append([]func(domain.Settings){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(updated)
	}
	return updated, nil
}
