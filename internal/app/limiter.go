package app

import (
	"context"
	"sync"
)

// LimiterStats est exposé par /health.
type LimiterStats struct {
	Limit    int `json:"limit"`
	InFlight int `json:"inFlight"`
	Waiting  int `json:"waiting"`
}

// DynamicLimiter plafonne les appels PhimAPI simultanés (toutes sources
// confondues: écrans, recherches, détails). Le plafond suit le réglage
// maxConcurrentRequests et se règle à chaud par SetLimit.
type DynamicLimiter struct {
	mu       sync.Mutex
	stats    LimiterStats
	released chan struct{}
}

func NewDynamicLimiter(limit int) *DynamicLimiter {
	return &DynamicLimiter{stats: LimiterStats{Limit: max(limit, 1)}, released: make(chan struct{})}
}

func (l *DynamicLimiter) Limit() int {
	return l.Stats().Limit
}

func (l *DynamicLimiter) InFlight() int {
	return l.Stats().InFlight
}

func (l *DynamicLimiter) Stats() LimiterStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// SetLimit ne coupe pas les appels en cours: un plafond abaissé s'applique aux
// suivants.
func (l *DynamicLimiter) SetLimit(limit int) {
	limit = max(limit, 1)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stats.Limit == limit {
		return
	}
	l.stats.Limit = limit
	l.wakeLocked()
}

// Acquire attend une place libre ou l'annulation du contexte.
func (l *DynamicLimiter) Acquire(ctx context.Context) error {
	queued := false
	defer func() {
		if queued {
			l.mu.Lock()
			l.stats.Waiting--
			l.mu.Unlock()
		}
	}()
	for {
		l.mu.Lock()
		if l.stats.InFlight < l.stats.Limit {
			l.stats.InFlight++
			l.mu.Unlock()
			return nil
		}
		if !queued {
			queued = true
			l.stats.Waiting++
		}
		released := l.released
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-released:
		}
	}
}

func (l *DynamicLimiter) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stats.InFlight > 0 {
		l.stats.InFlight--
	}
	l.wakeLocked()
}

// Do exécute fn en tenant une place.
func (l *DynamicLimiter) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn(ctx)
}

func (l *DynamicLimiter) wakeLocked() {
	close(l.released)
	l.released = make(chan struct{})
}
