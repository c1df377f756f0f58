// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package handle models collections owned by a native conversion library.
// Unlike Go values they are not reclaimed by the garbage collector: every
// handle must be released exactly once and must not be used afterwards.
// A Ledger records acquisitions and releases so that leaks, double releases
// and uses after release can be detected.
package handle

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	// ErrReleased is returned when a handle is used or released after it
	// was already released.
	ErrReleased = errors.New("handle already released")

	// ErrIndex is returned for an index outside a collection.
	ErrIndex = errors.New("index out of range")
)

// Ledger counts the handles allocated from it. The zero value is not usable;
// call NewLedger. A nil *Ledger is valid and tracks nothing.
type Ledger struct {
	mu         sync.Mutex
	nextID     uint64
	live       map[uint64]string
	acquired   int
	released   int
	violations []error
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{live: make(map[uint64]string)}
}

// Stats is a snapshot of a ledger.
type Stats struct {
	Acquired    int
	Released    int
	Outstanding int
	Violations  int
}

// Stats returns the current counters.
func (l *Ledger) Stats() Stats {
	if l == nil {
		return Stats{}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		Acquired:    l.acquired,
		Released:    l.released,
		Outstanding: len(l.live),
		Violations:  len(l.violations),
	}
}

// Outstanding returns the kinds of all handles not yet released.
func (l *Ledger) Outstanding() []string {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	kinds := make([]string, 0, len(l.live))
	for _, k := range l.live {
		kinds = append(kinds, k)
	}
	return kinds
}

// Violations returns every double release and use after release seen so far.
func (l *Ledger) Violations() []error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]error(nil), l.violations...)
}

func (l *Ledger) acquire(kind string) uint64 {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	l.live[l.nextID] = kind
	l.acquired++
	return l.nextID
}

func (l *Ledger) release(id uint64) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.live, id)
	l.released++
}

func (l *Ledger) violate(err error) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.violations = append(l.violations, err)
}

// ref is the release state shared by all handle kinds.
type ref struct {
	ledger   *Ledger
	id       uint64
	kind     string
	released atomic.Bool
}

func (r *ref) init(l *Ledger, kind string) {
	r.ledger = l
	r.kind = kind
	r.id = l.acquire(kind)
}

// check fails once the handle has been released.
func (r *ref) check(op string) error {
	if r.released.Load() {
		err := fmt.Errorf("%s on %s: %w", op, r.kind, ErrReleased)
		r.ledger.violate(err)
		return err
	}
	return nil
}

// Release frees the handle. A second call reports ErrReleased.
func (r *ref) Release() error {
	if r.released.Swap(true) {
		err := fmt.Errorf("release of %s: %w", r.kind, ErrReleased)
		r.ledger.violate(err)
		return err
	}
	r.ledger.release(r.id)
	return nil
}

// Kind names the collection the handle refers to, e.g. "parameters".
func (r *ref) Kind() string { return r.kind }

// Releaser is implemented by every handle.
type Releaser interface {
	Release() error
}

// ReleaseAll releases each non-nil handle once and joins the errors.
func ReleaseAll(hs ...Releaser) error {
	var errs []error
	for _, h := range hs {
		if h == nil {
			continue
		}
		if n, ok := h.(nilChecker); ok && n.isNil() {
			continue
		}
		if err := h.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// nilChecker detects a nil handle pointer stored in a Releaser, which is how
// an absent optional collection arrives.
type nilChecker interface {
	isNil() bool
}
