// Package lsn implements log sequence numbers: packed (file number, file
// offset) addresses of records in the write-ahead log.
package lsn

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// LSN packs a 32-bit log file number and a 32-bit offset within that file
// into a single immutable value: (fileNumber << 32) | fileOffset.
type LSN uint64

// Null is the distinguished "no address" sentinel: file number all-ones,
// offset zero. It never participates in ordering.
const Null LSN = LSN(0xFFFFFFFF) << 32

// EncodedSize is the exact on-disk size of an LSN.
const EncodedSize = 8

// Make builds an LSN from a file number and an offset within that file.
func Make(fileNumber, fileOffset uint32) LSN {
	return LSN(fileNumber)<<32 | LSN(fileOffset)
}

// FileNumber returns the log file number component.
func (l LSN) FileNumber() uint32 {
	return uint32(l >> 32)
}

// FileOffset returns the byte offset within the log file.
func (l LSN) FileOffset() uint32 {
	return uint32(l)
}

// IsNull reports whether l is the Null sentinel.
func (l LSN) IsNull() bool {
	return l == Null
}

// Compare orders two LSNs by (fileNumber, fileOffset) and returns -1, 0 or
// +1. Comparing against Null is a programming error and panics: callers
// must check IsNull first.
func Compare(a, b LSN) int {
	if a.IsNull() || b.IsNull() {
		panic("lsn: compare against the null LSN")
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// NoCleaningDistance estimates the byte distance between two log addresses
// assuming no log files have been removed. Within a single file this is
// exact; across files the gap is fileSize per intervening file boundary.
// Symmetric in its first two arguments.
func NoCleaningDistance(a, b LSN, fileSize uint32) uint64 {
	if a.IsNull() || b.IsNull() {
		panic("lsn: distance from the null LSN")
	}
	lo, hi := a, b
	if Compare(lo, hi) > 0 {
		lo, hi = hi, lo
	}
	fileGap := uint64(hi.FileNumber()) - uint64(lo.FileNumber())
	return spanBytes(fileGap, lo.FileOffset(), hi.FileOffset(), fileSize)
}

// CleaningDistance estimates the byte distance between two log addresses
// when log files may have been removed by the cleaner. liveFiles is the
// ascending list of file numbers still present; the gap between the two
// addresses is taken as their index gap within that list times the nominal
// fileSize. Deliberately an approximation: cleaned neighbors are rarely
// exactly fileSize bytes apart, but the estimate is what the cleaner's
// heuristics are calibrated against.
func CleaningDistance(a, b LSN, liveFiles []uint32, fileSize uint32) (uint64, error) {
	if a.IsNull() || b.IsNull() {
		panic("lsn: distance from the null LSN")
	}
	lo, hi := a, b
	if Compare(lo, hi) > 0 {
		lo, hi = hi, lo
	}
	loIdx, ok := liveIndex(liveFiles, lo.FileNumber())
	if !ok {
		return 0, fmt.Errorf("lsn: file 0x%x is not in the live file set", lo.FileNumber())
	}
	hiIdx, ok := liveIndex(liveFiles, hi.FileNumber())
	if !ok {
		return 0, fmt.Errorf("lsn: file 0x%x is not in the live file set", hi.FileNumber())
	}
	return spanBytes(uint64(hiIdx-loIdx), lo.FileOffset(), hi.FileOffset(), fileSize), nil
}

// spanBytes computes fileGap*fileSize - loOffset + hiOffset, the shared
// tail of both distance estimates. With fileGap == 0 it reduces to the
// exact intra-file offset difference. An oversized frame can push a real
// offset past the nominal fileSize and drive the estimate negative; that
// clamps to zero rather than wrapping.
func spanBytes(fileGap uint64, loOffset, hiOffset, fileSize uint32) uint64 {
	span := fileGap*uint64(fileSize) + uint64(hiOffset)
	if uint64(loOffset) >= span {
		return 0
	}
	return span - uint64(loOffset)
}

func liveIndex(liveFiles []uint32, fn uint32) (int, bool) {
	i := sort.Search(len(liveFiles), func(i int) bool { return liveFiles[i] >= fn })
	if i < len(liveFiles) && liveFiles[i] == fn {
		return i, true
	}
	return 0, false
}

// Put encodes l into exactly 8 bytes, big-endian composite. The byte order
// of two encoded LSNs does not define their log order; use Compare.
func Put(buf []byte, l LSN) {
	binary.BigEndian.PutUint64(buf, uint64(l))
}

// Get decodes an LSN from the first 8 bytes of buf.
func Get(buf []byte) LSN {
	return LSN(binary.BigEndian.Uint64(buf))
}

func (l LSN) String() string {
	if l.IsNull() {
		return "NULL_LSN"
	}
	return fmt.Sprintf("0x%x/0x%x", l.FileNumber(), l.FileOffset())
}
