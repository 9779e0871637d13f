package logentry

import "strings"

// INEntry wraps an internal (index) node together with the database it
// belongs to. Internal nodes never carry transactional state.
type INEntry struct {
	item    Loggable
	dbID    DatabaseID
	newItem func() Loggable
}

// NewINEntry builds an entry for writing from a live internal node.
func NewINEntry(item Loggable, dbID DatabaseID) *INEntry {
	return &INEntry{item: item, dbID: dbID}
}

// INEntryFactory returns a Factory producing empty INEntries whose main
// item is constructed by newItem on decode.
func INEntryFactory(newItem func() Loggable) Factory {
	return func() Entry {
		return &INEntry{newItem: newItem}
	}
}

func (e *INEntry) Size() int {
	return e.item.LogSize() + e.dbID.LogSize()
}

func (e *INEntry) WriteEntry(w *Writer) {
	e.item.WriteToLog(w)
	e.dbID.WriteToLog(w)
}

func (e *INEntry) ReadEntry(r *Reader) error {
	e.item = e.newItem()
	if err := e.item.ReadFromLog(r); err != nil {
		return err
	}
	return e.dbID.ReadFromLog(r)
}

func (e *INEntry) Dump(sb *strings.Builder, verbose bool) {
	sb.WriteString("<inEntry>")
	e.item.DumpLog(sb, verbose)
	e.dbID.DumpLog(sb, verbose)
	sb.WriteString("</inEntry>")
}

func (e *INEntry) IsTransactional() bool { return false }
func (e *INEntry) TransactionID() int64  { return 0 }
func (e *INEntry) Item() Loggable        { return e.item }

// DBID returns the owning database identifier.
func (e *INEntry) DBID() DatabaseID { return e.dbID }
