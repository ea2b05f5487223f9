package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/w2w-movies/w2w/internal/domain"
)

type memSettingsRepo struct {
	s   domain.Settings
	set bool
}

func (m *memSettingsRepo) Get(context.Context) (domain.Settings, error) {
	if !m.set {
		return domain.DefaultSettings(), nil
	}
	return m.s, nil
}

func (m *memSettingsRepo) Put(_ context.Context, s domain.Settings) (domain.Settings, error) {
	m.s, m.set = s, true
	return s, nil
}

func TestSettingsService_PutFillsDefaultsAndNotifies(t *testing.T) {
	svc := NewSettingsService(&memSettingsRepo{})
	limiter := NewDynamicLimiter(4)
	svc.OnChange(func(s domain.Settings) { limiter.SetLimit(s.MaxConcurrentRequests) })

	got, err := svc.Put(context.Background(), domain.Settings{PageSize: 30, MaxConcurrentRequests: 2})
	require.NoError(t, err)
	require.Equal(t, 30, got.PageSize)
	require.Equal(t, 20, got.FeaturedLimit)
	require.Equal(t, 500, got.SearchDebounceMs)
	require.Equal(t, domain.StreamM3U8, got.PreferredStream)
	require.Equal(t, 2, limiter.Limit())
	require.Equal(t, got, svc.Current(context.Background()))
}

func TestSettingsService_PutRejectsInvalidValues(t *testing.T) {
	svc := NewSettingsService(&memSettingsRepo{})

	_, err := svc.Put(context.Background(), domain.Settings{PageSize: 500})
	require.Equal(t, CodeInvalidParams, ErrorCode(err))

	_, err = svc.Put(context.Background(), domain.Settings{PreferredStream: "dash"})
	require.Equal(t, CodeInvalidParams, ErrorCode(err))
}
