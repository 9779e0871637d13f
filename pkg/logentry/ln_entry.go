package logentry

import (
	"fmt"
	"strings"

	"emberdb/pkg/lsn"
)

// abortKnownDeletedBit is bit 0 of the transactional flag byte. The
// remaining bits are reserved: written as zero, ignored on read so the
// layout can grow.
const abortKnownDeletedBit = 0x01

// LNEntry wraps a leaf node, the database it belongs to and its key. When
// constructed as transactional it additionally carries a contiguous block
// of transactional state: the abort LSN (Null when there is no prior
// version), the abort-known-deleted flag and the transaction descriptor.
// The block is present on the wire if and only if the entry is
// transactional, and has a fixed internal layout once present.
type LNEntry struct {
	item Loggable
	dbID DatabaseID
	key  Key

	abortLSN          lsn.LSN
	abortKnownDeleted bool
	txn               Transactional

	newItem func() Loggable
	newTxn  func() Transactional
}

// NewLNEntry builds a non-transactional leaf entry for writing.
func NewLNEntry(item Loggable, dbID DatabaseID, key Key) *LNEntry {
	return &LNEntry{item: item, dbID: dbID, key: key, abortLSN: lsn.Null}
}

// NewTransactionalLNEntry builds a transactional leaf entry for writing.
// abortLSN is lsn.Null when the transaction has no prior version to revert
// to; the null is still written, as a sentinel, so the block layout stays
// fixed.
func NewTransactionalLNEntry(item Loggable, dbID DatabaseID, key Key,
	abortLSN lsn.LSN, abortKnownDeleted bool, txn Transactional) *LNEntry {
	return &LNEntry{
		item:              item,
		dbID:              dbID,
		key:               key,
		abortLSN:          abortLSN,
		abortKnownDeleted: abortKnownDeleted,
		txn:               txn,
	}
}

// LNEntryFactory returns a Factory for non-transactional leaf entries.
func LNEntryFactory(newItem func() Loggable) Factory {
	return func() Entry {
		return &LNEntry{newItem: newItem, abortLSN: lsn.Null}
	}
}

// TransactionalLNEntryFactory returns a Factory for transactional leaf
// entries; newTxn constructs the empty transaction descriptor on decode.
func TransactionalLNEntryFactory(newItem func() Loggable, newTxn func() Transactional) Factory {
	return func() Entry {
		return &LNEntry{newItem: newItem, newTxn: newTxn, abortLSN: lsn.Null}
	}
}

func (e *LNEntry) Size() int {
	return e.baseSize()
}

func (e *LNEntry) baseSize() int {
	n := e.item.LogSize() + e.dbID.LogSize() + e.key.LogSize()
	if e.IsTransactional() {
		n += lsn.EncodedSize + 1 + e.txn.LogSize()
	}
	return n
}

func (e *LNEntry) WriteEntry(w *Writer) {
	e.writeBase(w)
}

func (e *LNEntry) writeBase(w *Writer) {
	e.item.WriteToLog(w)
	e.dbID.WriteToLog(w)
	e.key.WriteToLog(w)
	if !e.IsTransactional() {
		return
	}
	w.PutLSN(e.abortLSN)
	var flags byte
	if e.abortKnownDeleted {
		flags |= abortKnownDeletedBit
	}
	w.PutByte(flags)
	e.txn.WriteToLog(w)
}

func (e *LNEntry) ReadEntry(r *Reader) error {
	return e.readBase(r)
}

func (e *LNEntry) readBase(r *Reader) error {
	e.item = e.newItem()
	if err := e.item.ReadFromLog(r); err != nil {
		return err
	}
	if err := e.dbID.ReadFromLog(r); err != nil {
		return err
	}
	if err := e.key.ReadFromLog(r); err != nil {
		return err
	}
	if e.newTxn == nil {
		return nil
	}
	var err error
	if e.abortLSN, err = r.GetLSN(); err != nil {
		return err
	}
	flags, err := r.GetByte()
	if err != nil {
		return err
	}
	e.abortKnownDeleted = flags&abortKnownDeletedBit != 0
	e.txn = e.newTxn()
	return e.txn.ReadFromLog(r)
}

func (e *LNEntry) Dump(sb *strings.Builder, verbose bool) {
	sb.WriteString("<lnEntry>")
	e.dumpBase(sb, verbose)
	sb.WriteString("</lnEntry>")
}

func (e *LNEntry) dumpBase(sb *strings.Builder, verbose bool) {
	e.item.DumpLog(sb, verbose)
	e.dbID.DumpLog(sb, verbose)
	e.key.DumpLog(sb, verbose)
	if e.IsTransactional() {
		fmt.Fprintf(sb, "<abortLSN val=%q knownDeleted=%t/>", e.abortLSN, e.abortKnownDeleted)
		e.txn.DumpLog(sb, verbose)
	}
}

func (e *LNEntry) IsTransactional() bool {
	return e.txn != nil || e.newTxn != nil
}

func (e *LNEntry) TransactionID() int64 {
	if e.txn == nil {
		return 0
	}
	return e.txn.TransactionID()
}

func (e *LNEntry) Item() Loggable { return e.item }

// DBID returns the owning database identifier.
func (e *LNEntry) DBID() DatabaseID { return e.dbID }

// Key returns the leaf's key.
func (e *LNEntry) Key() Key { return e.key }

// AbortLSN returns the prior version to revert to on abort; lsn.Null when
// there is none. Meaningful only for transactional entries.
func (e *LNEntry) AbortLSN() lsn.LSN { return e.abortLSN }

// AbortKnownDeleted reports whether the aborted version is known deleted.
func (e *LNEntry) AbortKnownDeleted() bool { return e.abortKnownDeleted }

// Txn returns the transaction descriptor, nil for non-transactional
// entries.
func (e *LNEntry) Txn() Transactional { return e.txn }
