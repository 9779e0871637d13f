// Package latch implements the short-held, exclusive-only mutual exclusion
// primitive protecting shared engine state (log buffers, tree nodes, work
// queues). Latches are non-reentrant and grant ownership in strict FIFO
// order among waiters. There is no deadlock detection; callers are
// responsible for a consistent global acquisition order.
package latch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"emberdb/pkg/dberrors"
)

var (
	// ErrAlreadyHeld reports an acquire by the current holder. Latches are
	// deliberately non-nestable to keep critical sections short and lock
	// ordering auditable.
	ErrAlreadyHeld = errors.New("latch: already held by caller")

	// ErrNotHeld reports a release by an owner that does not hold the latch.
	ErrNotHeld = errors.New("latch: not held by caller")
)

// Owner identifies a logical thread of control. Zero means nobody. Owners
// are explicit tokens rather than platform thread identities, so ownership
// checks stay portable to any scheduling model.
type Owner uint64

var ownerSeq atomic.Uint64

// NextOwner allocates a fresh owner token.
func NextOwner() Owner {
	return Owner(ownerSeq.Add(1))
}

type waiter struct {
	owner   Owner
	granted chan struct{}
}

// Latch is an exclusive lock with FIFO grant order. The zero value is not
// usable; call New.
type Latch struct {
	name  string
	table *Table

	mu      sync.Mutex
	holder  Owner
	waiters []*waiter
}

// New creates a named latch. table may be nil; when non-nil every
// acquisition and release is recorded in it for latch-ordering diagnostics.
func New(name string, table *Table) *Latch {
	return &Latch{name: name, table: table}
}

// Name returns the latch's diagnostic name.
func (l *Latch) Name() string {
	return l.name
}

// Acquire blocks owner until it holds the latch. Re-acquiring a latch the
// owner already holds fails with ErrAlreadyHeld. A wait interrupted by ctx
// is unrecoverable for the enclosing engine instance: the latch state
// cannot be safely unwound, so the error wraps
// dberrors.ErrEnvironmentInvalid.
func (l *Latch) Acquire(ctx context.Context, owner Owner) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("latch %q: wait interrupted (%v): %w",
			l.name, err, dberrors.ErrEnvironmentInvalid)
	}
	l.mu.Lock()
	if l.holder == owner {
		l.mu.Unlock()
		return fmt.Errorf("latch %q: %w", l.name, ErrAlreadyHeld)
	}
	if l.holder == 0 {
		l.holder = owner
		l.mu.Unlock()
		l.table.noteHeld(owner, l)
		return nil
	}
	w := &waiter{owner: owner, granted: make(chan struct{})}
	l.waiters = append(l.waiters, w)
	l.mu.Unlock()

	select {
	case <-w.granted:
		l.table.noteHeld(owner, l)
		return nil
	case <-ctx.Done():
		// The grant may have raced with the cancellation. Either way the
		// caller cannot use the latch: pass a racing grant straight on to
		// the next waiter so the latch does not wedge, then escalate.
		l.abandonWait(w)
		return fmt.Errorf("latch %q: wait interrupted (%v): %w",
			l.name, ctx.Err(), dberrors.ErrEnvironmentInvalid)
	}
}

// TryAcquire grants the latch immediately or reports false without
// blocking. Self-reentry still fails with ErrAlreadyHeld.
func (l *Latch) TryAcquire(owner Owner) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.holder == owner {
		return false, fmt.Errorf("latch %q: %w", l.name, ErrAlreadyHeld)
	}
	if l.holder != 0 {
		return false, nil
	}
	l.holder = owner
	l.table.noteHeld(owner, l)
	return true, nil
}

// Release hands the latch to the head of the FIFO wait queue, or marks it
// free when nobody is waiting. Fails with ErrNotHeld when owner is not the
// current holder.
func (l *Latch) Release(owner Owner) error {
	l.mu.Lock()
	if l.holder != owner {
		l.mu.Unlock()
		return fmt.Errorf("latch %q: %w", l.name, ErrNotHeld)
	}
	l.grantNextLocked()
	l.mu.Unlock()
	l.table.noteReleased(owner, l)
	return nil
}

// grantNextLocked transfers ownership to the head waiter, or clears the
// holder. Caller holds l.mu.
func (l *Latch) grantNextLocked() {
	if len(l.waiters) == 0 {
		l.holder = 0
		return
	}
	head := l.waiters[0]
	l.waiters = l.waiters[1:]
	l.holder = head.owner
	close(head.granted)
}

// abandonWait removes w from the queue after an interrupted wait. If the
// grant already happened, ownership is passed on to the next waiter.
func (l *Latch) abandonWait(w *waiter) {
	l.mu.Lock()
	for i, q := range l.waiters {
		if q == w {
			l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
			l.mu.Unlock()
			return
		}
	}
	// Not queued: the grant raced ahead of the cancellation.
	if l.holder == w.owner {
		l.grantNextLocked()
	}
	l.mu.Unlock()
}

// Holder returns the current owner token, zero when free.
func (l *Latch) Holder() Owner {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.holder
}

// Waiters returns the number of queued waiters.
func (l *Latch) Waiters() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.waiters)
}

func (l *Latch) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fmt.Sprintf("latch %q holder=%d waiters=%d", l.name, l.holder, len(l.waiters))
}
