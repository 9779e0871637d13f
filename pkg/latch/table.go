package latch

import (
	"sort"

	"github.com/puzpuzpuz/xsync/v3"
)

// Table records which owners hold which latches. It exists to surface
// latch-ordering bugs in tests; production engines run with a nil or
// disabled table and pay no bookkeeping cost. A Table is owned by one
// engine instance, never process-global.
type Table struct {
	enabled bool
	held    *xsync.MapOf[Owner, *xsync.MapOf[*Latch, struct{}]]
}

// NewTable creates a diagnostics table. With enabled false all recording
// is a no-op, matching release builds.
func NewTable(enabled bool) *Table {
	if !enabled {
		return nil
	}
	return &Table{
		enabled: true,
		held:    xsync.NewMapOf[Owner, *xsync.MapOf[*Latch, struct{}]](),
	}
}

func (t *Table) noteHeld(owner Owner, l *Latch) {
	if t == nil || !t.enabled {
		return
	}
	set, _ := t.held.LoadOrCompute(owner, func() *xsync.MapOf[*Latch, struct{}] {
		return xsync.NewMapOf[*Latch, struct{}]()
	})
	set.Store(l, struct{}{})
}

func (t *Table) noteReleased(owner Owner, l *Latch) {
	if t == nil || !t.enabled {
		return
	}
	if set, ok := t.held.Load(owner); ok {
		set.Delete(l)
	}
}

// HeldBy returns the names of latches currently held by owner, sorted.
func (t *Table) HeldBy(owner Owner) []string {
	if t == nil || !t.enabled {
		return nil
	}
	var names []string
	if set, ok := t.held.Load(owner); ok {
		set.Range(func(l *Latch, _ struct{}) bool {
			names = append(names, l.name)
			return true
		})
	}
	sort.Strings(names)
	return names
}

// HoldsAny reports whether owner currently holds any latch. Useful as a
// test invariant before an owner blocks on another resource.
func (t *Table) HoldsAny(owner Owner) bool {
	if t == nil || !t.enabled {
		return false
	}
	set, ok := t.held.Load(owner)
	if !ok {
		return false
	}
	any := false
	set.Range(func(*Latch, struct{}) bool {
		any = true
		return false
	})
	return any
}
