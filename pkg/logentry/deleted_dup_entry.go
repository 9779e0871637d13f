package logentry

import (
	"strings"

	"emberdb/pkg/lsn"
)

// DeletedDupLNEntry is a leaf entry for a deleted duplicate: the duplicate
// set needs the deleted record's data to keep its position, so the data is
// carried as one extra key appended after the whole base layout.
type DeletedDupLNEntry struct {
	LNEntry
	dataAsKey Key
}

// NewDeletedDupLNEntry builds a non-transactional deleted-duplicate entry
// for writing.
func NewDeletedDupLNEntry(item Loggable, dbID DatabaseID, key, dataAsKey Key) *DeletedDupLNEntry {
	e := &DeletedDupLNEntry{dataAsKey: dataAsKey}
	e.LNEntry = *NewLNEntry(item, dbID, key)
	return e
}

// NewTransactionalDeletedDupLNEntry builds a transactional
// deleted-duplicate entry for writing.
func NewTransactionalDeletedDupLNEntry(item Loggable, dbID DatabaseID, key, dataAsKey Key,
	abortLSN lsn.LSN, abortKnownDeleted bool, txn Transactional) *DeletedDupLNEntry {
	e := &DeletedDupLNEntry{dataAsKey: dataAsKey}
	e.LNEntry = *NewTransactionalLNEntry(item, dbID, key, abortLSN, abortKnownDeleted, txn)
	return e
}

// DeletedDupLNEntryFactory returns a Factory for non-transactional
// deleted-duplicate entries.
func DeletedDupLNEntryFactory(newItem func() Loggable) Factory {
	return func() Entry {
		e := &DeletedDupLNEntry{}
		e.newItem = newItem
		return e
	}
}

// TransactionalDeletedDupLNEntryFactory returns a Factory for
// transactional deleted-duplicate entries.
func TransactionalDeletedDupLNEntryFactory(newItem func() Loggable, newTxn func() Transactional) Factory {
	return func() Entry {
		e := &DeletedDupLNEntry{}
		e.newItem = newItem
		e.newTxn = newTxn
		return e
	}
}

func (e *DeletedDupLNEntry) Size() int {
	return e.baseSize() + e.dataAsKey.LogSize()
}

func (e *DeletedDupLNEntry) WriteEntry(w *Writer) {
	e.writeBase(w)
	e.dataAsKey.WriteToLog(w)
}

func (e *DeletedDupLNEntry) ReadEntry(r *Reader) error {
	if err := e.readBase(r); err != nil {
		return err
	}
	return e.dataAsKey.ReadFromLog(r)
}

func (e *DeletedDupLNEntry) Dump(sb *strings.Builder, verbose bool) {
	sb.WriteString("<deletedDupLnEntry>")
	e.dumpBase(sb, verbose)
	e.dataAsKey.DumpLog(sb, verbose)
	sb.WriteString("</deletedDupLnEntry>")
}

// DataAsKey returns the deleted record's data, carried as a key.
func (e *DeletedDupLNEntry) DataAsKey() Key { return e.dataAsKey }
