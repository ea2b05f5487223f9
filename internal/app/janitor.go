package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// IdleCloser ferme les ressources inutilisées depuis plus de ttl.
type IdleCloser interface {
	CloseIdle(ttl time.Duration, now time.Time) int
}

// Janitor démonte périodiquement les écrans et sessions de recherche abandonnés
// (le client a disparu sans DELETE). Fermer un écran invalide ses requêtes en vol.
type Janitor struct {
	logger  zerolog.Logger
	closers map[string]IdleCloser

	TickInterval time.Duration
	IdleTTL      time.Duration
	now          func() time.Time
}

func NewJanitor(logger zerolog.Logger, closers map[string]IdleCloser) *Janitor {
	return &Janitor{
		logger:       logger,
		closers:      closers,
		TickInterval: time.Minute,
		IdleTTL:      30 * time.Minute,
		now:          time.Now,
	}
}

func (j *Janitor) Run(ctx context.Context) {
	interval := j.TickInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info().Msg("janitor stopped")
			return
		case <-ticker.C:
			j.Sweep()
		}
	}
}

// Sweep exécute un passage et renvoie le nombre de ressources fermées.
func (j *Janitor) Sweep() int {
	ttl := j.IdleTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	now := j.now()
	total := 0
	for name, c := range j.closers {
		if c == nil {
			continue
		}
		n := c.CloseIdle(ttl, now)
		if n > 0 {
			j.logger.Info().Str("kind", name).Int("closed", n).Msg("idle resources closed")
		}
		total += n
	}
	return total
}
