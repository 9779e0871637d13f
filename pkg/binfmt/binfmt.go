// Package binfmt holds the numeric encodings shared by the engine's
// tuple-style binary formats. Signed integers are stored MSB-first with the
// sign bit inverted so that unsigned byte-wise comparison of two encoded
// values matches their numeric order. Unsigned integers are stored
// MSB-first unmodified. Floating-point values keep their IEEE-754 bit
// pattern: non-negative values sort correctly under byte comparison,
// negative values do not.
package binfmt

import (
	"encoding/binary"
	"math"
)

const signBit16 = uint16(1) << 15
const signBit32 = uint32(1) << 31
const signBit64 = uint64(1) << 63

// PutInt16 encodes v into the first 2 bytes of buf.
func PutInt16(buf []byte, v int16) {
	binary.BigEndian.PutUint16(buf, uint16(v)^signBit16)
}

// GetInt16 decodes an int16 from the first 2 bytes of buf.
func GetInt16(buf []byte) int16 {
	return int16(binary.BigEndian.Uint16(buf) ^ signBit16)
}

// PutInt32 encodes v into the first 4 bytes of buf.
func PutInt32(buf []byte, v int32) {
	binary.BigEndian.PutUint32(buf, uint32(v)^signBit32)
}

// GetInt32 decodes an int32 from the first 4 bytes of buf.
func GetInt32(buf []byte) int32 {
	return int32(binary.BigEndian.Uint32(buf) ^ signBit32)
}

// PutInt64 encodes v into the first 8 bytes of buf.
func PutInt64(buf []byte, v int64) {
	binary.BigEndian.PutUint64(buf, uint64(v)^signBit64)
}

// GetInt64 decodes an int64 from the first 8 bytes of buf.
func GetInt64(buf []byte) int64 {
	return int64(binary.BigEndian.Uint64(buf) ^ signBit64)
}

// PutUint32 encodes v MSB-first into the first 4 bytes of buf.
func PutUint32(buf []byte, v uint32) {
	binary.BigEndian.PutUint32(buf, v)
}

// GetUint32 decodes a uint32 from the first 4 bytes of buf.
func GetUint32(buf []byte) uint32 {
	return binary.BigEndian.Uint32(buf)
}

// PutUint64 encodes v MSB-first into the first 8 bytes of buf.
func PutUint64(buf []byte, v uint64) {
	binary.BigEndian.PutUint64(buf, v)
}

// GetUint64 decodes a uint64 from the first 8 bytes of buf.
func GetUint64(buf []byte) uint64 {
	return binary.BigEndian.Uint64(buf)
}

// PutFloat32 encodes v's IEEE-754 bits into the first 4 bytes of buf.
func PutFloat32(buf []byte, v float32) {
	binary.BigEndian.PutUint32(buf, math.Float32bits(v))
}

// GetFloat32 decodes a float32 from the first 4 bytes of buf.
func GetFloat32(buf []byte) float32 {
	return math.Float32frombits(binary.BigEndian.Uint32(buf))
}

// PutFloat64 encodes v's IEEE-754 bits into the first 8 bytes of buf.
func PutFloat64(buf []byte, v float64) {
	binary.BigEndian.PutUint64(buf, math.Float64bits(v))
}

// GetFloat64 decodes a float64 from the first 8 bytes of buf.
func GetFloat64(buf []byte) float64 {
	return math.Float64frombits(binary.BigEndian.Uint64(buf))
}
