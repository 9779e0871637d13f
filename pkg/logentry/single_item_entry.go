package logentry

import "strings"

// SingleItemEntry wraps exactly one loggable item and nothing else. The
// item supplies its own transactional flags; the entry owns none.
type SingleItemEntry struct {
	item    Transactional
	newItem func() Transactional
}

// NewSingleItemEntry builds a single-item entry for writing.
func NewSingleItemEntry(item Transactional) *SingleItemEntry {
	return &SingleItemEntry{item: item}
}

// SingleItemEntryFactory returns a Factory producing empty single-item
// entries whose item is constructed by newItem on decode.
func SingleItemEntryFactory(newItem func() Transactional) Factory {
	return func() Entry {
		return &SingleItemEntry{newItem: newItem}
	}
}

func (e *SingleItemEntry) Size() int {
	return e.item.LogSize()
}

func (e *SingleItemEntry) WriteEntry(w *Writer) {
	e.item.WriteToLog(w)
}

func (e *SingleItemEntry) ReadEntry(r *Reader) error {
	e.item = e.newItem()
	return e.item.ReadFromLog(r)
}

func (e *SingleItemEntry) Dump(sb *strings.Builder, verbose bool) {
	sb.WriteString("<singleItemEntry>")
	e.item.DumpLog(sb, verbose)
	sb.WriteString("</singleItemEntry>")
}

func (e *SingleItemEntry) IsTransactional() bool {
	return e.item.IsTransactional()
}

func (e *SingleItemEntry) TransactionID() int64 {
	return e.item.TransactionID()
}

func (e *SingleItemEntry) Item() Loggable { return e.item }
