package logentry

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emberdb/pkg/lsn"
)

const (
	tagIN TypeTag = iota + 1
	tagLN
	tagLNTransactional
	tagDeletedDupLN
	tagDeletedDupLNTransactional
	tagSingleItem
)

func newItem() Loggable { return new(ByteItem) }

func newTxn() Transactional { return new(TxnDesc) }

func newSingleItem() Transactional { return new(TxnDesc) }

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	rg := NewRegistry()
	require.NoError(t, rg.Register(tagIN, INEntryFactory(newItem)))
	require.NoError(t, rg.Register(tagLN, LNEntryFactory(newItem)))
	require.NoError(t, rg.Register(tagLNTransactional, TransactionalLNEntryFactory(newItem, newTxn)))
	require.NoError(t, rg.Register(tagDeletedDupLN, DeletedDupLNEntryFactory(newItem)))
	require.NoError(t, rg.Register(tagDeletedDupLNTransactional,
		TransactionalDeletedDupLNEntryFactory(newItem, newTxn)))
	require.NoError(t, rg.Register(tagSingleItem, SingleItemEntryFactory(newSingleItem)))
	return rg
}

// encodeThenDecode runs one entry through the wire and back via the
// registry, verifying the declared size matches the bytes produced.
func encodeThenDecode(t *testing.T, rg *Registry, tag TypeTag, e Entry) Entry {
	t.Helper()
	w := NewWriter(e.Size())
	e.WriteEntry(w)
	require.Equal(t, e.Size(), w.Len(), "Size() must match bytes written")

	decoded, err := rg.NewEntry(tag)
	require.NoError(t, err)
	r := NewReader(w.Bytes())
	require.NoError(t, decoded.ReadEntry(r))
	assert.Equal(t, 0, r.Remaining(), "decode must consume the whole record")
	return decoded
}

func TestINEntryRoundTrip(t *testing.T) {
	rg := testRegistry(t)
	item := ByteItem("internal-node-image")
	e := NewINEntry(&item, 9)

	decoded := encodeThenDecode(t, rg, tagIN, e).(*INEntry)
	assert.Equal(t, item, *decoded.Item().(*ByteItem))
	assert.Equal(t, DatabaseID(9), decoded.DBID())
	assert.False(t, decoded.IsTransactional())
}

func TestLNEntryRoundTrip(t *testing.T) {
	rg := testRegistry(t)
	item := ByteItem("leaf-data")
	e := NewLNEntry(&item, 3, Key("user-key"))

	decoded := encodeThenDecode(t, rg, tagLN, e).(*LNEntry)
	assert.Equal(t, item, *decoded.Item().(*ByteItem))
	assert.Equal(t, DatabaseID(3), decoded.DBID())
	assert.Equal(t, Key("user-key"), decoded.Key())
	assert.False(t, decoded.IsTransactional())
	assert.Nil(t, decoded.Txn())
}

// Concrete scenario from the wire contract: transactional leaf entry with
// database id 7, key "k1", a 3-byte item, null abort LSN,
// abort-known-deleted false, transaction id 42.
func TestTransactionalLNEntryScenario(t *testing.T) {
	rg := testRegistry(t)
	item := ByteItem{0xA, 0xB, 0xC}
	e := NewTransactionalLNEntry(&item, 7, Key("k1"), lsn.Null, false, &TxnDesc{ID: 42})

	decoded := encodeThenDecode(t, rg, tagLNTransactional, e).(*LNEntry)
	assert.Equal(t, item, *decoded.Item().(*ByteItem))
	assert.Equal(t, DatabaseID(7), decoded.DBID())
	assert.Equal(t, Key("k1"), decoded.Key())
	assert.True(t, decoded.AbortLSN().IsNull())
	assert.False(t, decoded.AbortKnownDeleted())
	assert.True(t, decoded.IsTransactional())
	assert.Equal(t, int64(42), decoded.TransactionID())
}

func TestTransactionalLNEntryNonNullAbort(t *testing.T) {
	rg := testRegistry(t)
	item := ByteItem("v2")
	abort := lsn.Make(4, 512)
	e := NewTransactionalLNEntry(&item, 1, Key("k"), abort, true, &TxnDesc{ID: -5})

	decoded := encodeThenDecode(t, rg, tagLNTransactional, e).(*LNEntry)
	assert.Equal(t, abort, decoded.AbortLSN())
	assert.True(t, decoded.AbortKnownDeleted())
	assert.Equal(t, int64(-5), decoded.TransactionID())
}

func TestZeroLengthKeyRoundTrip(t *testing.T) {
	rg := testRegistry(t)
	item := ByteItem("x")
	e := NewLNEntry(&item, 2, Key{})

	decoded := encodeThenDecode(t, rg, tagLN, e).(*LNEntry)
	assert.Len(t, decoded.Key(), 0)
}

func TestDeletedDupLNEntryRoundTrip(t *testing.T) {
	rg := testRegistry(t)
	item := ByteItem("dup-leaf")
	e := NewTransactionalDeletedDupLNEntry(&item, 11, Key("k9"), Key("data-as-key"),
		lsn.Make(2, 64), false, &TxnDesc{ID: 77})

	decoded := encodeThenDecode(t, rg, tagDeletedDupLNTransactional, e).(*DeletedDupLNEntry)
	assert.Equal(t, Key("k9"), decoded.Key())
	assert.Equal(t, Key("data-as-key"), decoded.DataAsKey())
	assert.Equal(t, lsn.Make(2, 64), decoded.AbortLSN())
	assert.Equal(t, int64(77), decoded.TransactionID())

	plain := NewDeletedDupLNEntry(&item, 11, Key("k9"), Key("d"))
	decoded2 := encodeThenDecode(t, rg, tagDeletedDupLN, plain).(*DeletedDupLNEntry)
	assert.Equal(t, Key("d"), decoded2.DataAsKey())
	assert.False(t, decoded2.IsTransactional())
}

func TestSingleItemEntryDelegatesTransactionalFlags(t *testing.T) {
	rg := testRegistry(t)
	e := NewSingleItemEntry(&TxnDesc{ID: 1234})

	decoded := encodeThenDecode(t, rg, tagSingleItem, e).(*SingleItemEntry)
	assert.True(t, decoded.IsTransactional())
	assert.Equal(t, int64(1234), decoded.TransactionID())
}

// Reserved bits of the flag byte are zero on write and ignored on read.
func TestFlagByteReservedBits(t *testing.T) {
	rg := testRegistry(t)
	item := ByteItem("v")
	e := NewTransactionalLNEntry(&item, 1, Key("k"), lsn.Null, true, &TxnDesc{ID: 1})

	w := NewWriter(e.Size())
	e.WriteEntry(w)
	raw := w.Bytes()

	flagOff := (&item).LogSize() + 4 + Key("k").LogSize() + lsn.EncodedSize
	assert.Equal(t, byte(abortKnownDeletedBit), raw[flagOff], "reserved bits must be zero")

	// Set a reserved bit; the decode must not reject it.
	raw[flagOff] |= 0x80
	decoded, err := rg.NewEntry(tagLNTransactional)
	require.NoError(t, err)
	require.NoError(t, decoded.ReadEntry(NewReader(raw)))
	assert.True(t, decoded.(*LNEntry).AbortKnownDeleted())
}

func TestTruncatedRecordIsFormatError(t *testing.T) {
	rg := testRegistry(t)
	item := ByteItem("leaf-data")
	e := NewTransactionalLNEntry(&item, 3, Key("kk"), lsn.Null, false, &TxnDesc{ID: 8})
	w := NewWriter(e.Size())
	e.WriteEntry(w)
	raw := w.Bytes()

	for _, cut := range []int{0, 1, 5, len(raw) - 1} {
		decoded, err := rg.NewEntry(tagLNTransactional)
		require.NoError(t, err)
		err = decoded.ReadEntry(NewReader(raw[:cut]))
		assert.ErrorIs(t, err, ErrFormat, "cut at %d", cut)
	}
}

func TestBadLengthPrefixIsFormatError(t *testing.T) {
	w := NewWriter(8)
	w.PutUint32(1 << 30) // claims a gigabyte payload
	var b ByteItem
	assert.ErrorIs(t, b.ReadFromLog(NewReader(w.Bytes())), ErrFormat)
}

func TestRegistryUnknownTag(t *testing.T) {
	rg := testRegistry(t)
	_, err := rg.NewEntry(TypeTag(200))
	assert.ErrorIs(t, err, ErrFormat)
}

func TestRegistryDuplicateTag(t *testing.T) {
	rg := NewRegistry()
	require.NoError(t, rg.Register(tagIN, INEntryFactory(newItem)))
	assert.Error(t, rg.Register(tagIN, INEntryFactory(newItem)))
	assert.Equal(t, 1, rg.Tags())
}

func TestDump(t *testing.T) {
	item := ByteItem("v")
	e := NewTransactionalLNEntry(&item, 7, Key("k1"), lsn.Null, false, &TxnDesc{ID: 42})
	var sb strings.Builder
	e.Dump(&sb, true)
	out := sb.String()
	assert.Contains(t, out, "<lnEntry>")
	assert.Contains(t, out, "id=7")
	assert.Contains(t, out, `"k1"`)
	assert.Contains(t, out, "id=42")
	assert.Contains(t, out, "NULL_LSN")
}
