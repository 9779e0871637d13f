// Package cleaner implements the log cleaner daemon: it migrates the
// still-live records out of poorly utilized log files and removes the
// emptied files, reclaiming space. Which records are live is decided by an
// externally supplied predicate; this package owns only the mechanism.
package cleaner

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/tidwall/btree"
	"github.com/zhangyunhao116/skipmap"

	"emberdb/pkg/daemon"
	"emberdb/pkg/dberrors"
	"emberdb/pkg/latch"
	"emberdb/pkg/logentry"
	"emberdb/pkg/lsn"
)

// Log is the slice of the log buffer the cleaner works against.
type Log interface {
	LiveFiles(ctx context.Context, owner latch.Owner) ([]uint32, error)
	FirstLSN(ctx context.Context, owner latch.Owner, fn uint32) (lsn.LSN, error)
	NextLSN(ctx context.Context, owner latch.Owner, at lsn.LSN) (lsn.LSN, error)
	Fetch(ctx context.Context, owner latch.Owner, at lsn.LSN) (logentry.Entry, logentry.TypeTag, error)
	Append(ctx context.Context, owner latch.Owner, tag logentry.TypeTag, e logentry.Entry) (lsn.LSN, error)
	FileBytes(ctx context.Context, owner latch.Owner, fn uint32) (int, error)
	EndOfLog(ctx context.Context, owner latch.Owner) (lsn.LSN, error)
	TryRemoveFile(owner latch.Owner, fn uint32) (bool, error)
}

// IsObsolete reports whether the record at the given address is dead. The
// engine's utilization tracking supplies it; the selection policy behind
// it is not the cleaner's business.
type IsObsolete func(at lsn.LSN) bool

// Cleaner is a concrete engine daemon. Candidate file numbers arrive on
// the daemon queue; each wake cycle cleans at most one file.
type Cleaner struct {
	*daemon.Daemon[uint32]

	log        Log
	isObsolete IsObsolete
	fileSize   uint32
	threshold  float64
	maxRetries int
	lg         *slog.Logger

	// obsolete bytes per file, bumped by foreground operations without
	// taking the cleaner's latches.
	obsolete *skipmap.OrderedMap[uint32, *atomic.Int64]

	// ascending live-file index, the cleaner's view for distance
	// estimates; rebuilt from the log at each pass.
	liveIndex *btree.BTreeG[uint32]

	// files whose live records are already migrated and that only await
	// removal. Closed files never grow, so a completed migration stays
	// complete across retried wakes. Touched only by the daemon loop.
	pendingRemoval map[uint32]struct{}

	cleaned atomic.Int64 // files removed, for diagnostics
	backlog atomic.Uint64
}

// Options wires a Cleaner.
type Options struct {
	Log          Log
	IsObsolete   IsObsolete
	FileSize     uint32
	Threshold    float64 // live fraction below which a file is cleaned
	MaxRetries   int
	WakeInterval time.Duration
	Table        *latch.Table
	Logger       *slog.Logger
}

// New creates a stopped cleaner daemon.
func New(opts Options) *Cleaner {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	c := &Cleaner{
		log:            opts.Log,
		isObsolete:     opts.IsObsolete,
		fileSize:       opts.FileSize,
		threshold:      opts.Threshold,
		maxRetries:     opts.MaxRetries,
		lg:             opts.Logger,
		obsolete:       skipmap.New[uint32, *atomic.Int64](),
		liveIndex:      btree.NewBTreeG[uint32](func(a, b uint32) bool { return a < b }),
		pendingRemoval: make(map[uint32]struct{}),
	}
	c.Daemon = daemon.New[uint32](c, opts.WakeInterval, opts.Table, opts.Logger)
	return c
}

func (c *Cleaner) Name() string    { return "cleaner" }
func (c *Cleaner) MaxRetries() int { return c.maxRetries }

// NoteObsolete records n newly dead bytes in file fn. Called by foreground
// operations when they supersede or delete a logged record.
func (c *Cleaner) NoteObsolete(fn uint32, n int64) {
	ctr, _ := c.obsolete.LoadOrStoreLazy(fn, func() *atomic.Int64 {
		return new(atomic.Int64)
	})
	ctr.Add(n)
}

// FilesCleaned returns the number of files removed so far.
func (c *Cleaner) FilesCleaned() int64 {
	return c.cleaned.Load()
}

// Backlog returns the last estimate of bytes between the best candidate's
// first record and the end of the log, per the nominal-file-size
// approximation.
func (c *Cleaner) Backlog() uint64 {
	return c.backlog.Load()
}

// OnWakeup performs one cleaning pass: refresh the live-file index, pick
// the worst-utilized candidate, migrate its live records and drop it.
func (c *Cleaner) OnWakeup(ctx context.Context) (daemon.Outcome, error) {
	owner := latch.NextOwner()

	candidates, err := c.DrainQueue(ctx, owner)
	if err != nil {
		return daemon.Fatal, err
	}

	live, err := c.log.LiveFiles(ctx, owner)
	if err != nil {
		return daemon.Fatal, err
	}
	c.liveIndex.Clear()
	for _, fn := range live {
		c.liveIndex.Set(fn)
	}
	for fn := range c.pendingRemoval {
		if _, stillLive := c.liveIndex.Get(fn); !stillLive {
			delete(c.pendingRemoval, fn)
		}
	}

	fn, ok, err := c.pickFile(ctx, owner, candidates, live)
	if err != nil {
		return daemon.Fatal, err
	}
	if !ok {
		return daemon.OK, nil
	}

	// A file already marked pending had its live records migrated on an
	// earlier attempt of this cycle; migrating again would duplicate them.
	migrated := 0
	if _, done := c.pendingRemoval[fn]; !done {
		if err := c.noteBacklog(ctx, owner, fn, live); err != nil {
			return daemon.Fatal, err
		}
		migrated, err = c.migrateLive(ctx, owner, fn)
		if err != nil {
			if errors.Is(err, dberrors.ErrNotFound) {
				// File raced away underneath us; nothing left to do.
				return daemon.OK, nil
			}
			return daemon.Fatal, err
		}
		c.pendingRemoval[fn] = struct{}{}
	}

	removed, err := c.log.TryRemoveFile(owner, fn)
	if err != nil {
		return daemon.Fatal, err
	}
	if !removed {
		// Foreground traffic holds the log latch; try this file again on
		// the same wake cycle, bounded by MaxRetries. The pending mark
		// keeps the retry from re-migrating.
		if qerr := c.Enqueue(ctx, owner, fn); qerr != nil {
			return daemon.Fatal, qerr
		}
		return daemon.Retry, errors.New("cleaner: log latch busy")
	}

	delete(c.pendingRemoval, fn)
	c.obsolete.Delete(fn)
	c.liveIndex.Delete(fn)
	c.cleaned.Add(1)
	c.lg.Info("cleaned log file", "file", fn, "migrated", migrated)
	return daemon.OK, nil
}

// pickFile chooses the candidate with the lowest live fraction, falling
// back to scanning all live files when the queue gave nothing. The current
// write file (the last live file) is never picked. Unpicked candidates are
// dropped rather than requeued: a requeued candidate that stays above
// threshold would wake the daemon in a tight loop, and the next
// empty-queue wake rescans every live file anyway.
func (c *Cleaner) pickFile(ctx context.Context, owner latch.Owner, candidates, live []uint32) (uint32, bool, error) {
	if len(live) < 2 {
		return 0, false, nil
	}
	current := live[len(live)-1]
	pool := candidates
	if len(pool) == 0 {
		pool = live[:len(live)-1]
	}

	var (
		best     uint32
		bestLive = 1.1
		found    bool
	)
	for _, fn := range pool {
		if fn == current {
			continue
		}
		if _, isLive := c.liveIndex.Get(fn); !isLive {
			continue
		}
		total, err := c.log.FileBytes(ctx, owner, fn)
		if err != nil {
			if errors.Is(err, dberrors.ErrNotFound) {
				continue
			}
			return 0, false, err
		}
		if total == 0 {
			continue
		}
		var dead int64
		if ctr, ok := c.obsolete.Load(fn); ok {
			dead = ctr.Load()
		}
		liveFrac := 1 - float64(dead)/float64(total)
		if liveFrac < bestLive {
			best, bestLive, found = fn, liveFrac, true
		}
	}
	if !found || bestLive > c.threshold {
		return 0, false, nil
	}
	return best, true, nil
}

// noteBacklog records the approximate byte distance from the candidate's
// first record to the end of the log, using the live-file index.
func (c *Cleaner) noteBacklog(ctx context.Context, owner latch.Owner, fn uint32, live []uint32) error {
	first, err := c.log.FirstLSN(ctx, owner, fn)
	if err != nil {
		if errors.Is(err, dberrors.ErrNotFound) {
			return nil
		}
		return err
	}
	end, err := c.log.EndOfLog(ctx, owner)
	if err != nil {
		return err
	}
	d, err := lsn.CleaningDistance(first, end, live, c.fileSize)
	if err != nil {
		return err
	}
	c.backlog.Store(d)
	return nil
}

// migrateLive re-appends every record of file fn the liveness predicate
// does not declare dead.
func (c *Cleaner) migrateLive(ctx context.Context, owner latch.Owner, fn uint32) (int, error) {
	at, err := c.log.FirstLSN(ctx, owner, fn)
	if err != nil {
		return 0, err
	}
	migrated := 0
	for !at.IsNull() && at.FileNumber() == fn {
		if c.isObsolete == nil || !c.isObsolete(at) {
			e, tag, err := c.log.Fetch(ctx, owner, at)
			if err != nil {
				return migrated, err
			}
			if _, err := c.log.Append(ctx, owner, tag, e); err != nil {
				return migrated, err
			}
			migrated++
		}
		if at, err = c.log.NextLSN(ctx, owner, at); err != nil {
			return migrated, err
		}
	}
	return migrated, nil
}
