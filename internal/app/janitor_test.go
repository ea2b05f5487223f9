package app

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestJanitor_SweepClosesIdleScreensAndSessions(t *testing.T) {
	cat := &feedCatalogue{totalPages: 1}
	screens := newTestScreens(cat)
	search, _, _ := newTestSearch(&searchCatalogue{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := screens.Open(ctx, ScreenSpec{Layout: LayoutMovies}, true)
	require.NoError(t, err)
	search.Open(ctx)

	j := NewJanitor(zerolog.Nop(), map[string]IdleCloser{"screens": screens, "search": search})
	j.IdleTTL = time.Minute
	require.Zero(t, j.Sweep())

	j.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	require.Equal(t, 2, j.Sweep())
	require.Empty(t, screens.List())
	require.Empty(t, search.Sessions())
}

func TestJanitor_RunStopsWithContext(t *testing.T) {
	j := NewJanitor(zerolog.Nop(), nil)
	j.TickInterval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("janitor did not stop")
	}
}
