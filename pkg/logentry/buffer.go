package logentry

import (
	"encoding/binary"
	"errors"
	"fmt"

	"emberdb/pkg/lsn"
)

// ErrFormat is the category for malformed or truncated log data. A decode
// failure never hands back a partially populated record.
var ErrFormat = errors.New("logentry: malformed log data")

// Writer is a position-tracking destination buffer for log serialization.
// All fixed-width fields are written MSB first. Not safe for concurrent
// use; the caller holds whatever latch protects the underlying buffer.
type Writer struct {
	buf []byte
}

// NewWriter returns a writer with the given initial capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// PutByte appends a single byte.
func (w *Writer) PutByte(b byte) {
	w.buf = append(w.buf, b)
}

// PutUint32 appends v MSB first.
func (w *Writer) PutUint32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

// PutUint64 appends v MSB first.
func (w *Writer) PutUint64(v uint64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
}

// PutBytes appends p verbatim, no length prefix.
func (w *Writer) PutBytes(p []byte) {
	w.buf = append(w.buf, p...)
}

// PutByteSlice appends p with a 4-byte length prefix. Zero length is legal.
func (w *Writer) PutByteSlice(p []byte) {
	w.PutUint32(uint32(len(p)))
	w.buf = append(w.buf, p...)
}

// PutLSN appends l as its 8-byte big-endian composite.
func (w *Writer) PutLSN(l lsn.LSN) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, uint64(l))
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Bytes returns the accumulated buffer. The slice aliases the writer's
// storage and is invalidated by further writes.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Reader is a position-tracking source buffer for log deserialization.
type Reader struct {
	buf []byte
	pos int
}

// NewReader reads from buf starting at position zero.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// need fails with a format error unless n more bytes are available.
func (r *Reader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d",
			ErrFormat, n, r.pos, len(r.buf)-r.pos)
	}
	return nil
}

// GetByte consumes one byte.
func (r *Reader) GetByte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

// GetUint32 consumes a 4-byte MSB-first unsigned integer.
func (r *Reader) GetUint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

// GetUint64 consumes an 8-byte MSB-first unsigned integer.
func (r *Reader) GetUint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

// GetBytes consumes exactly n bytes and returns a copy.
func (r *Reader) GetBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative length %d", ErrFormat, n)
	}
	if err := r.need(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.buf[r.pos:])
	r.pos += n
	return out, nil
}

// GetByteSlice consumes a 4-byte length prefix followed by that many bytes.
func (r *Reader) GetByteSlice() ([]byte, error) {
	n, err := r.GetUint32()
	if err != nil {
		return nil, err
	}
	return r.GetBytes(int(n))
}

// GetLSN consumes an 8-byte LSN.
func (r *Reader) GetLSN() (lsn.LSN, error) {
	v, err := r.GetUint64()
	if err != nil {
		return lsn.Null, err
	}
	return lsn.LSN(v), nil
}

// Pos returns the current read position.
func (r *Reader) Pos() int {
	return r.pos
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.pos
}
