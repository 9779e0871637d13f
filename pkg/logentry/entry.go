// Package logentry defines the typed, self-describing record payloads of
// the write-ahead log together with their encode/decode contract. An entry
// for writing is built transiently from live engine state just before
// serialization; an entry for reading is built by the registry from the
// persisted type tag, populated by ReadEntry, and then owned by the caller.
// Entries are never shared across threads while being encoded or decoded.
package logentry

import (
	"fmt"
	"strings"
)

// TypeTag selects which entry variant decodes a given record. The value is
// persisted in the record header written by the framing collaborator; this
// package treats it as an opaque dispatch key.
type TypeTag uint8

// Entry is the contract every log record variant satisfies.
type Entry interface {
	// Size returns the exact number of bytes WriteEntry will produce.
	Size() int
	// WriteEntry serializes the entry at w's current write position.
	WriteEntry(w *Writer)
	// ReadEntry reconstructs the entry from r's current read position.
	ReadEntry(r *Reader) error
	// Dump appends a human-readable rendering to sb.
	Dump(sb *strings.Builder, verbose bool)
	// IsTransactional reports whether the entry participates in a
	// transaction; TransactionID is meaningful only when it does.
	IsTransactional() bool
	TransactionID() int64
	// Item returns the wrapped main payload. After a ReadEntry the entry
	// owns the decoded instance and exposes it here by reference.
	Item() Loggable
}

// Factory constructs an empty entry variant ready for ReadEntry.
type Factory func() Entry

// Registry is the closed dispatch table from persisted type tags to entry
// constructors. It is populated once at engine startup; no reflection is
// involved.
type Registry struct {
	factories map[TypeTag]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[TypeTag]Factory)}
}

// Register binds tag to f. Re-registering a tag is a startup wiring bug
// and fails.
func (rg *Registry) Register(tag TypeTag, f Factory) error {
	if _, dup := rg.factories[tag]; dup {
		return fmt.Errorf("logentry: type tag %d registered twice", tag)
	}
	rg.factories[tag] = f
	return nil
}

// NewEntry constructs the empty variant registered for tag. An unknown tag
// is a format error: the bytes cannot be interpreted.
func (rg *Registry) NewEntry(tag TypeTag) (Entry, error) {
	f, ok := rg.factories[tag]
	if !ok {
		return nil, fmt.Errorf("%w: unknown entry type tag %d", ErrFormat, tag)
	}
	e := f()
	if e == nil {
		return nil, fmt.Errorf("%w: factory for type tag %d produced no entry", ErrFormat, tag)
	}
	return e, nil
}

// Tags returns the number of registered variants.
func (rg *Registry) Tags() int {
	return len(rg.factories)
}
