package logentry

import (
	"fmt"
	"strings"
)

// Loggable is the capability contract required of every object a log
// entry wraps: the node content, the database identifier, the key, the
// transaction descriptor. LogSize must report the exact byte count the
// next WriteToLog will append; ReadFromLog consumes exactly the bytes a
// matching WriteToLog produced.
type Loggable interface {
	LogSize() int
	WriteToLog(w *Writer)
	ReadFromLog(r *Reader) error
	DumpLog(sb *strings.Builder, verbose bool)
}

// Transactional is implemented by loggables that can participate in a
// transaction, such as a transaction descriptor or a self-describing
// single item.
type Transactional interface {
	Loggable
	IsTransactional() bool
	TransactionID() int64
}

// DatabaseID identifies the database a logged node belongs to. Stored as a
// 4-byte MSB-first field.
type DatabaseID uint32

func (d DatabaseID) LogSize() int {
	return 4
}

func (d DatabaseID) WriteToLog(w *Writer) {
	w.PutUint32(uint32(d))
}

func (d *DatabaseID) ReadFromLog(r *Reader) error {
	v, err := r.GetUint32()
	if err != nil {
		return err
	}
	*d = DatabaseID(v)
	return nil
}

func (d DatabaseID) DumpLog(sb *strings.Builder, verbose bool) {
	fmt.Fprintf(sb, "<dbId id=%d/>", uint32(d))
}

// Key is a length-prefixed byte-string field. A zero-length key is legal
// and round-trips as such.
type Key []byte

func (k Key) LogSize() int {
	return 4 + len(k)
}

func (k Key) WriteToLog(w *Writer) {
	w.PutByteSlice(k)
}

func (k *Key) ReadFromLog(r *Reader) error {
	b, err := r.GetByteSlice()
	if err != nil {
		return err
	}
	*k = b
	return nil
}

func (k Key) DumpLog(sb *strings.Builder, verbose bool) {
	if verbose {
		fmt.Fprintf(sb, "<key len=%d val=%q/>", len(k), []byte(k))
		return
	}
	fmt.Fprintf(sb, "<key len=%d/>", len(k))
}
