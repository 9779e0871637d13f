package logentry

import (
	"fmt"
	"strings"
)

// ByteItem is an opaque, length-prefixed node image. The tree layer logs
// its nodes through richer types; ByteItem is the neutral carrier used
// where only the bytes matter (cleaning, dump tooling, tests).
type ByteItem []byte

func (b ByteItem) LogSize() int {
	return 4 + len(b)
}

func (b ByteItem) WriteToLog(w *Writer) {
	w.PutByteSlice(b)
}

func (b *ByteItem) ReadFromLog(r *Reader) error {
	p, err := r.GetByteSlice()
	if err != nil {
		return err
	}
	*b = p
	return nil
}

func (b ByteItem) DumpLog(sb *strings.Builder, verbose bool) {
	if verbose {
		fmt.Fprintf(sb, "<item len=%d val=%q/>", len(b), []byte(b))
		return
	}
	fmt.Fprintf(sb, "<item len=%d/>", len(b))
}

// TxnDesc is the minimal transaction descriptor logged inside a
// transactional entry's block: just the transaction identifier. The lock
// manager layers its own state on top elsewhere.
type TxnDesc struct {
	ID int64
}

func (t TxnDesc) LogSize() int {
	return 8
}

func (t TxnDesc) WriteToLog(w *Writer) {
	w.PutUint64(uint64(t.ID))
}

func (t *TxnDesc) ReadFromLog(r *Reader) error {
	v, err := r.GetUint64()
	if err != nil {
		return err
	}
	t.ID = int64(v)
	return nil
}

func (t TxnDesc) DumpLog(sb *strings.Builder, verbose bool) {
	fmt.Fprintf(sb, "<txn id=%d/>", t.ID)
}

func (t TxnDesc) IsTransactional() bool { return true }
func (t TxnDesc) TransactionID() int64  { return t.ID }
