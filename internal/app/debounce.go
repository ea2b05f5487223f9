package app

import (
	"sync"
	"time"
)

type Timer interface {
	Stop() bool
}

// AfterFunc planifie f après d; time.AfterFunc par défaut.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Debouncer regroupe une rafale de valeurs: seule la dernière est émise, après
// quiet sans nouvelle valeur.
type Debouncer[T any] struct {
	quiet     time.Duration
	emit      func(T)
	afterFunc AfterFunc

	mu      sync.Mutex
	gen     uint64
	timer   Timer
	pending T
	armed   bool
	stopped bool
}

func NewDebouncer[T any](quiet time.Duration, emit func(T)) *Debouncer[T] {
	return &Debouncer[T]{quiet: quiet, emit: emit, afterFunc: realAfterFunc}
}

func (d *Debouncer[T]) WithAfterFunc(fn AfterFunc) *Debouncer[T] {
	if fn != nil {
		d.afterFunc = fn
	}
	return d
}

// Push annule l'émission en attente et en replanifie une pour v.
func (d *Debouncer[T]) Push(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending = v
	d.armed = true
	d.timer = d.afterFunc(d.quiet, func() { d.fire(gen) })
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || !d.armed || gen != d.gen {
		d.mu.Unlock()
		return
	}
	v := d.pending
	d.armed = false
	d.timer = nil
	d.mu.Unlock()

	d.emit(v)
}

// Flush émet immédiatement la valeur en attente; false s'il n'y en a pas.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if d.stopped || !d.armed {
		d.mu.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	v := d.pending
	d.armed = false
	d.mu.Unlock()

	d.emit(v)
	return true
}

// Stop abandonne l'émission en attente; les Push suivants sont ignorés.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.armed = false
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
