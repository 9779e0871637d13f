// Package checksum implements the streaming Adler-32 accumulator used to
// validate log blocks read back from disk.
package checksum

// adlerBase is the largest prime smaller than 65536.
const adlerBase = 65521

// maxBatch is the largest number of byte additions that can be deferred
// before the running pair must be reduced modulo adlerBase without risking
// uint32 overflow of s2.
const maxBatch = 5552

// Accumulator is a streaming Adler-32 checksum. The zero value is not
// ready for use; call New. One accumulator belongs to one caller at a
// time; there is no internal locking.
type Accumulator struct {
	s1, s2 uint32
	batch  int
}

// New returns an accumulator in its initial state (value 1).
func New() *Accumulator {
	return &Accumulator{s1: 1}
}

// UpdateByte folds a single byte into the checksum.
func (a *Accumulator) UpdateByte(b byte) {
	a.s1 += uint32(b)
	a.s2 += a.s1
	a.batch++
	if a.batch >= maxBatch {
		a.reduce()
	}
}

// Update folds p into the checksum, deferring the modulo reduction for up
// to maxBatch additions at a time.
func (a *Accumulator) Update(p []byte) {
	for len(p) > 0 {
		n := maxBatch - a.batch
		if n > len(p) {
			n = len(p)
		}
		for _, b := range p[:n] {
			a.s1 += uint32(b)
			a.s2 += a.s1
		}
		a.batch += n
		if a.batch >= maxBatch {
			a.reduce()
		}
		p = p[n:]
	}
}

// Reset returns the accumulator to its initial state.
func (a *Accumulator) Reset() {
	a.s1 = 1
	a.s2 = 0
	a.batch = 0
}

// Value returns the current checksum, (s2 << 16) | s1.
func (a *Accumulator) Value() uint32 {
	a.reduce()
	return a.s2<<16 | a.s1
}

func (a *Accumulator) reduce() {
	a.s1 %= adlerBase
	a.s2 %= adlerBase
	a.batch = 0
}
