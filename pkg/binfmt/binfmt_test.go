package binfmt

import (
	"bytes"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInt32RoundTrip(t *testing.T) {
	buf := make([]byte, 4)
	for _, v := range []int32{math.MinInt32, -1, 0, 1, 42, math.MaxInt32} {
		PutInt32(buf, v)
		assert.Equal(t, v, GetInt32(buf))
	}
}

func TestInt64RoundTrip(t *testing.T) {
	buf := make([]byte, 8)
	for _, v := range []int64{math.MinInt64, -7, 0, 7, math.MaxInt64} {
		PutInt64(buf, v)
		assert.Equal(t, v, GetInt64(buf))
	}
}

func TestInt16RoundTrip(t *testing.T) {
	buf := make([]byte, 2)
	for _, v := range []int16{math.MinInt16, -1, 0, 1, math.MaxInt16} {
		PutInt16(buf, v)
		assert.Equal(t, v, GetInt16(buf))
	}
}

// Byte-wise order of encoded signed integers must match numeric order;
// this is the whole point of the sign-bit inversion.
func TestInt32ByteOrderMatchesNumericOrder(t *testing.T) {
	values := []int32{math.MinInt32, -100000, -1, 0, 1, 99, math.MaxInt32}
	encoded := make([][]byte, len(values))
	for i, v := range values {
		encoded[i] = make([]byte, 4)
		PutInt32(encoded[i], v)
	}
	assert.True(t, sort.SliceIsSorted(encoded, func(i, j int) bool {
		return bytes.Compare(encoded[i], encoded[j]) < 0
	}))
}

func TestFloatRoundTrip(t *testing.T) {
	buf := make([]byte, 8)
	for _, v := range []float64{-math.MaxFloat64, -1.5, 0, 2.75, math.MaxFloat64} {
		PutFloat64(buf, v)
		assert.Equal(t, v, GetFloat64(buf))
	}
	b4 := make([]byte, 4)
	PutFloat32(b4, 3.25)
	assert.Equal(t, float32(3.25), GetFloat32(b4))
}

// Non-negative floats sort correctly under byte comparison; negative ones
// are documented not to.
func TestNonNegativeFloatByteOrder(t *testing.T) {
	values := []float64{0, 0.5, 1, 1024.25, math.MaxFloat64}
	encoded := make([][]byte, len(values))
	for i, v := range values {
		encoded[i] = make([]byte, 8)
		PutFloat64(encoded[i], v)
	}
	assert.True(t, sort.SliceIsSorted(encoded, func(i, j int) bool {
		return bytes.Compare(encoded[i], encoded[j]) < 0
	}))
}
