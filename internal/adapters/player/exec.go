package player

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"

	"github.com/rs/zerolog"
)

// ExecPlayer lance un lecteur externe (mpv par défaut), un processus à la fois.
type ExecPlayer struct {
	logger  zerolog.Logger
	command string
	args    []string

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

func New(logger zerolog.Logger, command string, args ...string) *ExecPlayer {
	if command == "" {
		command = "mpv"
	}
	return &ExecPlayer{logger: logger, command: command, args: args}
}

func (p *ExecPlayer) argv(url, title string) []string {
	out := append([]string(nil), p.args...)
	if title != "" && p.command == "mpv" {
		out = append(out, "--force-media-title="+title)
	}
	return append(out, url)
}

// Play démarre la lecture; une lecture déjà en cours est d'abord arrêtée.
func (p *ExecPlayer) Play(ctx context.Context, url, title string) error {
	if url == "" {
		return errors.New("player: empty url")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()

	// Le lecteur survit à la requête: pas de CommandContext sur ctx.
	if err := ctx.Err(); err != nil {
		return err
	}
	cmd := exec.Command(p.command, p.argv(url, title)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", p.command, err)
	}
	done := make(chan struct{})
	p.cmd, p.done = cmd, done
	p.logger.Info().Str("cmd", p.command).Int("pid", cmd.Process.Pid).Str("title", title).Msg("player started")

	go func() {
		err := cmd.Wait()
		close(done)
		if err != nil {
			p.logger.Debug().Err(err).Str("cmd", p.command).Msg("player exited")
		}
	}()
	return nil
}

func (p *ExecPlayer) Replace(ctx context.Context, url, title string) error {
	return p.Play(ctx, url, title)
}

func (p *ExecPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	return nil
}

// Running indique si le processus courant tourne encore.
func (p *ExecPlayer) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *ExecPlayer) stopLocked() {
	if p.cmd == nil {
		return
	}
	select {
	case <-p.done:
	default:
		_ = p.cmd.Process.Kill()
		<-p.done
	}
	p.cmd, p.done = nil, nil
}

// Wait bloque jusqu'à la fin de la lecture courante (ou l'annulation de ctx).
func (p *ExecPlayer) Wait(ctx context.Context) error {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
