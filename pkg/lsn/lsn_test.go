package lsn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeAndAccessors(t *testing.T) {
	l := Make(3, 0x1000)
	assert.Equal(t, uint32(3), l.FileNumber())
	assert.Equal(t, uint32(0x1000), l.FileOffset())
	assert.False(t, l.IsNull())

	// Offset and file number do not bleed into each other.
	l = Make(0xFFFFFFFE, 0xFFFFFFFF)
	assert.Equal(t, uint32(0xFFFFFFFE), l.FileNumber())
	assert.Equal(t, uint32(0xFFFFFFFF), l.FileOffset())
}

func TestNullSentinel(t *testing.T) {
	assert.True(t, Null.IsNull())
	assert.Equal(t, uint32(0xFFFFFFFF), Null.FileNumber())
	assert.Equal(t, uint32(0), Null.FileOffset())
	assert.Equal(t, "NULL_LSN", Null.String())
}

func TestCompare(t *testing.T) {
	cases := []struct {
		a, b LSN
		want int
	}{
		{Make(1, 100), Make(1, 50), 1},
		{Make(1, 50), Make(1, 100), -1},
		{Make(1, 50), Make(1, 50), 0},
		{Make(2, 0), Make(1, 0xFFFFFFF0), 1},
		{Make(0, 0xFFFFFFF0), Make(1, 0), -1},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Compare(c.a, c.b), "compare %s %s", c.a, c.b)
	}
}

func TestCompareNullPanics(t *testing.T) {
	assert.Panics(t, func() { Compare(Null, Make(1, 0)) })
	assert.Panics(t, func() { Compare(Make(1, 0), Null) })
	assert.Panics(t, func() { Compare(Null, Null) })
}

func TestNoCleaningDistance(t *testing.T) {
	a := Make(1, 100)
	b := Make(1, 50)
	assert.Equal(t, uint64(50), NoCleaningDistance(a, b, 1<<20))
	assert.Equal(t, NoCleaningDistance(a, b, 1<<20), NoCleaningDistance(b, a, 1<<20))

	// Across two file boundaries with a 1000-byte nominal file size:
	// file 2 starts 2000 bytes after file 0.
	a = Make(0, 900)
	b = Make(2, 100)
	assert.Equal(t, uint64(2*1000-900+100), NoCleaningDistance(a, b, 1000))
	assert.Equal(t, NoCleaningDistance(a, b, 1000), NoCleaningDistance(b, a, 1000))
}

func TestCleaningDistance(t *testing.T) {
	// Files 1 and 2 were cleaned away; 0 and 3 are adjacent in the live set.
	live := []uint32{0, 3, 7}
	a := Make(0, 900)
	b := Make(3, 100)
	d, err := CleaningDistance(a, b, live, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1*1000-900+100), d)

	d, err = CleaningDistance(Make(0, 10), Make(7, 10), live, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(2000), d)

	_, err = CleaningDistance(Make(1, 0), b, live, 1000)
	assert.Error(t, err)
}

func TestDistanceClampsOnOversizedFrame(t *testing.T) {
	// An oversized frame can leave a real offset past the nominal file
	// size; the estimate bottoms out at zero instead of wrapping.
	a := Make(1, 200)
	b := Make(2, 10)
	assert.Equal(t, uint64(0), NoCleaningDistance(a, b, 100))
	assert.Equal(t, uint64(0), NoCleaningDistance(b, a, 100))

	d, err := CleaningDistance(a, b, []uint32{1, 2}, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), d)

	// A large enough hi offset still yields the exact positive span.
	assert.Equal(t, uint64(110), NoCleaningDistance(Make(1, 200), Make(2, 210), 100))
}

func TestEncodeDecode(t *testing.T) {
	buf := make([]byte, EncodedSize)
	for _, l := range []LSN{Make(0, 0), Make(7, 42), Make(0xFFFFFFFE, 0xFFFFFFFF), Null} {
		Put(buf, l)
		assert.Equal(t, l, Get(buf))
	}

	// Big-endian composite: file number occupies the leading four bytes.
	Put(buf, Make(0x01020304, 0x05060708))
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, buf)
}
