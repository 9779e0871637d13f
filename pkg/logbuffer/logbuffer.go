// Package logbuffer provides the in-memory log the record layer writes
// into and reads back from. Each record is framed as
//
//	checksum(4) | size(4) | type(1) | payload
//
// with the checksum covering everything after itself. Appends return the
// LSN at which the frame was placed; the durable file manager sits below
// this layer and is out of scope here. Files rotate at a nominal size so
// LSN file numbers advance the way they do on disk.
package logbuffer

import (
	"context"
	"encoding/binary"
	"fmt"
	"sort"

	"emberdb/pkg/checksum"
	"emberdb/pkg/dberrors"
	"emberdb/pkg/latch"
	"emberdb/pkg/logentry"
	"emberdb/pkg/lsn"
)

const headerSize = 4 + 4 + 1

// LogBuffer is an append-only, latch-protected record log. All mutation
// and lookup happens under its latch; callers supply their owner token.
type LogBuffer struct {
	registry *logentry.Registry
	fileSize uint32

	mu *latch.Latch

	files   map[uint32][]byte
	current uint32
	closed  bool
}

// New creates an empty log. fileSize is the nominal rotation size; a frame
// that would cross it starts the next file. table may be nil.
func New(registry *logentry.Registry, fileSize uint32, table *latch.Table) *LogBuffer {
	return &LogBuffer{
		registry: registry,
		fileSize: fileSize,
		mu:       latch.New("logbuffer", table),
		files:    map[uint32][]byte{0: {}},
	}
}

// Append serializes e, frames it and places it in the log, returning the
// LSN of the frame.
func (b *LogBuffer) Append(ctx context.Context, owner latch.Owner, tag logentry.TypeTag, e logentry.Entry) (lsn.LSN, error) {
	w := logentry.NewWriter(headerSize + e.Size())

	// Reserve the checksum slot, then frame the payload behind it.
	w.PutUint32(0)
	w.PutUint32(uint32(e.Size()))
	w.PutByte(byte(tag))
	e.WriteEntry(w)
	frame := w.Bytes()
	if len(frame) != headerSize+e.Size() {
		return lsn.Null, fmt.Errorf("%w: entry wrote %d bytes, declared %d",
			logentry.ErrFormat, len(frame)-headerSize, e.Size())
	}

	ck := checksum.New()
	ck.Update(frame[4:])
	binary.BigEndian.PutUint32(frame[:4], ck.Value())

	if err := b.mu.Acquire(ctx, owner); err != nil {
		return lsn.Null, err
	}
	defer b.release(owner)
	if b.closed {
		return lsn.Null, dberrors.ErrClosed
	}

	cur := b.files[b.current]
	if len(cur) > 0 && uint32(len(cur)+len(frame)) > b.fileSize {
		b.current++
		b.files[b.current] = []byte{}
		cur = b.files[b.current]
	}
	at := lsn.Make(b.current, uint32(len(cur)))
	b.files[b.current] = append(cur, frame...)
	return at, nil
}

// Fetch reads the frame at the given LSN, verifies its checksum and
// reconstructs the entry variant registered for its type tag.
func (b *LogBuffer) Fetch(ctx context.Context, owner latch.Owner, at lsn.LSN) (logentry.Entry, logentry.TypeTag, error) {
	if at.IsNull() {
		return nil, 0, fmt.Errorf("logbuffer: fetch at null LSN: %w", dberrors.ErrInvalidArgument)
	}
	if err := b.mu.Acquire(ctx, owner); err != nil {
		return nil, 0, err
	}
	defer b.release(owner)
	if b.closed {
		return nil, 0, dberrors.ErrClosed
	}

	file, ok := b.files[at.FileNumber()]
	if !ok {
		return nil, 0, fmt.Errorf("logbuffer: file 0x%x gone: %w", at.FileNumber(), dberrors.ErrNotFound)
	}
	off := int(at.FileOffset())
	if off+headerSize > len(file) {
		return nil, 0, fmt.Errorf("%w: frame header past end of file at %s", logentry.ErrFormat, at)
	}
	stored := binary.BigEndian.Uint32(file[off:])
	size := int(binary.BigEndian.Uint32(file[off+4:]))
	tag := logentry.TypeTag(file[off+8])
	if off+headerSize+size > len(file) {
		return nil, 0, fmt.Errorf("%w: frame payload past end of file at %s", logentry.ErrFormat, at)
	}

	ck := checksum.New()
	ck.Update(file[off+4 : off+headerSize+size])
	if ck.Value() != stored {
		return nil, 0, fmt.Errorf("%w: checksum mismatch at %s", logentry.ErrFormat, at)
	}

	e, err := b.registry.NewEntry(tag)
	if err != nil {
		return nil, 0, err
	}
	if err := e.ReadEntry(logentry.NewReader(file[off+headerSize : off+headerSize+size])); err != nil {
		return nil, 0, err
	}
	return e, tag, nil
}

// NextLSN walks from the frame at the given LSN to the one after it,
// returning lsn.Null at the end of the log. Used by sequential passes
// (cleaning, recovery scans).
func (b *LogBuffer) NextLSN(ctx context.Context, owner latch.Owner, at lsn.LSN) (lsn.LSN, error) {
	if err := b.mu.Acquire(ctx, owner); err != nil {
		return lsn.Null, err
	}
	defer b.release(owner)

	file, ok := b.files[at.FileNumber()]
	if !ok {
		return lsn.Null, fmt.Errorf("logbuffer: file 0x%x gone: %w", at.FileNumber(), dberrors.ErrNotFound)
	}
	off := int(at.FileOffset())
	if off+headerSize > len(file) {
		return lsn.Null, fmt.Errorf("%w: frame header past end of file at %s", logentry.ErrFormat, at)
	}
	size := int(binary.BigEndian.Uint32(file[off+4:]))
	next := off + headerSize + size
	if next < len(file) {
		return lsn.Make(at.FileNumber(), uint32(next)), nil
	}
	for fn := at.FileNumber() + 1; fn <= b.current; fn++ {
		if f, ok := b.files[fn]; ok && len(f) > 0 {
			return lsn.Make(fn, 0), nil
		}
	}
	return lsn.Null, nil
}

// FirstLSN returns the address of the first frame in file fn.
func (b *LogBuffer) FirstLSN(ctx context.Context, owner latch.Owner, fn uint32) (lsn.LSN, error) {
	if err := b.mu.Acquire(ctx, owner); err != nil {
		return lsn.Null, err
	}
	defer b.release(owner)
	f, ok := b.files[fn]
	if !ok || len(f) == 0 {
		return lsn.Null, fmt.Errorf("logbuffer: file 0x%x empty or gone: %w", fn, dberrors.ErrNotFound)
	}
	return lsn.Make(fn, 0), nil
}

// EndOfLog returns the address one past the last appended byte.
func (b *LogBuffer) EndOfLog(ctx context.Context, owner latch.Owner) (lsn.LSN, error) {
	if err := b.mu.Acquire(ctx, owner); err != nil {
		return lsn.Null, err
	}
	defer b.release(owner)
	return lsn.Make(b.current, uint32(len(b.files[b.current]))), nil
}

// LiveFiles returns the ascending list of file numbers still present.
func (b *LogBuffer) LiveFiles(ctx context.Context, owner latch.Owner) ([]uint32, error) {
	if err := b.mu.Acquire(ctx, owner); err != nil {
		return nil, err
	}
	defer b.release(owner)
	out := make([]uint32, 0, len(b.files))
	for fn := range b.files {
		out = append(out, fn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// FileBytes returns file fn's current length in bytes.
func (b *LogBuffer) FileBytes(ctx context.Context, owner latch.Owner, fn uint32) (int, error) {
	if err := b.mu.Acquire(ctx, owner); err != nil {
		return 0, err
	}
	defer b.release(owner)
	f, ok := b.files[fn]
	if !ok {
		return 0, fmt.Errorf("logbuffer: file 0x%x gone: %w", fn, dberrors.ErrNotFound)
	}
	return len(f), nil
}

// TryRemoveFile drops a cleaned file. It uses TryAcquire so a cleaner pass
// can back off instead of stalling foreground appends; removed reports
// whether the latch was obtained. Removing the current write file is
// refused.
func (b *LogBuffer) TryRemoveFile(owner latch.Owner, fn uint32) (removed bool, err error) {
	ok, err := b.mu.TryAcquire(owner)
	if err != nil || !ok {
		return false, err
	}
	defer b.release(owner)
	if fn == b.current {
		return false, fmt.Errorf("logbuffer: cannot remove current file 0x%x: %w", fn, dberrors.ErrInvalidArgument)
	}
	delete(b.files, fn)
	return true, nil
}

// Close refuses further appends and fetches.
func (b *LogBuffer) Close(ctx context.Context, owner latch.Owner) error {
	if err := b.mu.Acquire(ctx, owner); err != nil {
		return err
	}
	defer b.release(owner)
	b.closed = true
	return nil
}

func (b *LogBuffer) release(owner latch.Owner) {
	// A failed release here means the protocol was already violated; the
	// latch package reports it loudly.
	if err := b.mu.Release(owner); err != nil {
		panic(err)
	}
}
