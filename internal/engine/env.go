// Package engine wires the record layer into a running environment: the
// entry registry, the log buffer, the cleaner daemon and the latch
// diagnostics table, with one invalid-state switch governing them all.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"emberdb/internal/cleaner"
	"emberdb/internal/config"
	"emberdb/pkg/dberrors"
	"emberdb/pkg/latch"
	"emberdb/pkg/logbuffer"
	"emberdb/pkg/logentry"
	"emberdb/pkg/lsn"
)

// Reserved entry type tags. The tree and transaction layers register
// their node types against these at startup.
const (
	TagIN logentry.TypeTag = iota + 1
	TagLN
	TagLNTransactional
	TagDeletedDupLN
	TagDeletedDupLNTransactional
	TagSingleItem
)

// Env is one engine instance. After an unrecoverable error (an interrupted
// latch wait) it refuses all further operations until reopened.
type Env struct {
	id    string
	cfg   config.Config
	lg    *slog.Logger
	table *latch.Table

	registry *logentry.Registry
	log      *logbuffer.LogBuffer
	cleaner  *cleaner.Cleaner

	invalid atomic.Bool
	closed  atomic.Bool
}

// Open builds an environment from cfg and starts its daemons. isObsolete
// supplies record liveness to the cleaner; nil keeps every record live.
func Open(ctx context.Context, cfg config.Config, isObsolete cleaner.IsObsolete, lg *slog.Logger) (*Env, error) {
	if lg == nil {
		lg = slog.Default()
	}
	env := &Env{
		id:    uuid.NewString(),
		cfg:   cfg,
		table: latch.NewTable(cfg.Debug.LatchTable),
	}
	env.lg = lg.With("env", env.id)

	env.registry = logentry.NewRegistry()
	if err := registerEntryTypes(env.registry); err != nil {
		return nil, err
	}

	env.log = logbuffer.New(env.registry, cfg.Log.FileSize, env.table)
	env.cleaner = cleaner.New(cleaner.Options{
		Log:          env.log,
		IsObsolete:   isObsolete,
		FileSize:     cfg.Log.FileSize,
		Threshold:    cfg.Cleaner.UtilizationThreshold,
		MaxRetries:   cfg.Cleaner.MaxRetries,
		WakeInterval: cfg.Cleaner.WakeInterval,
		Table:        env.table,
		Logger:       env.lg,
	})
	env.cleaner.RunOrPause(ctx, true)
	env.lg.Info("environment opened", "file_size", cfg.Log.FileSize)
	return env, nil
}

// registerEntryTypes populates the closed dispatch table. Main items are
// opaque node images at this layer; the tree layer swaps in richer
// constructors when it owns the environment.
func registerEntryTypes(rg *logentry.Registry) error {
	newItem := func() logentry.Loggable { return new(logentry.ByteItem) }
	newTxn := func() logentry.Transactional { return new(logentry.TxnDesc) }

	for tag, f := range map[logentry.TypeTag]logentry.Factory{
		TagIN:              logentry.INEntryFactory(newItem),
		TagLN:              logentry.LNEntryFactory(newItem),
		TagLNTransactional: logentry.TransactionalLNEntryFactory(newItem, newTxn),
		TagDeletedDupLN:    logentry.DeletedDupLNEntryFactory(newItem),
		TagDeletedDupLNTransactional: logentry.TransactionalDeletedDupLNEntryFactory(
			newItem, newTxn),
		TagSingleItem: logentry.SingleItemEntryFactory(func() logentry.Transactional {
			return new(logentry.TxnDesc)
		}),
	} {
		if err := rg.Register(tag, f); err != nil {
			return fmt.Errorf("engine: wiring entry registry: %w", err)
		}
	}
	return nil
}

// ID returns the instance identifier carried in this environment's logs.
func (e *Env) ID() string { return e.id }

// Registry exposes the entry dispatch table.
func (e *Env) Registry() *logentry.Registry { return e.registry }

// Cleaner exposes the cleaner daemon (obsolete-byte accounting, stats).
func (e *Env) Cleaner() *cleaner.Cleaner { return e.cleaner }

// Append writes one entry to the log and returns its address.
func (e *Env) Append(ctx context.Context, owner latch.Owner, tag logentry.TypeTag, ent logentry.Entry) (lsn.LSN, error) {
	if err := e.usable(); err != nil {
		return lsn.Null, err
	}
	at, err := e.log.Append(ctx, owner, tag, ent)
	return at, e.escalate(err)
}

// Fetch reads back and decodes the entry at the given address.
func (e *Env) Fetch(ctx context.Context, owner latch.Owner, at lsn.LSN) (logentry.Entry, logentry.TypeTag, error) {
	if err := e.usable(); err != nil {
		return nil, 0, err
	}
	ent, tag, err := e.log.Fetch(ctx, owner, at)
	return ent, tag, e.escalate(err)
}

// usable rejects operations on a closed or invalidated environment.
func (e *Env) usable() error {
	if e.invalid.Load() {
		return dberrors.ErrEnvironmentInvalid
	}
	if e.closed.Load() {
		return dberrors.ErrClosed
	}
	return nil
}

// escalate latches the invalid state when an unrecoverable error surfaces.
func (e *Env) escalate(err error) error {
	if err != nil && errors.Is(err, dberrors.ErrEnvironmentInvalid) {
		if e.invalid.CompareAndSwap(false, true) {
			e.lg.Error("environment invalidated", "error", err)
		}
	}
	return err
}

// Close stops the cleaner and refuses further operations. Idempotent.
func (e *Env) Close(ctx context.Context, owner latch.Owner) error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	e.cleaner.Shutdown()
	err := e.log.Close(ctx, owner)
	e.lg.Info("environment closed")
	return err
}
