package stream

import "sync/atomic"

// counterWrap caps the generator counter. The counter is reduced
// modulo this value after a fill, never during one, so a buffer that
// straddles the boundary is generated from the unreduced values.
const counterWrap = 2 * 65535

// minSyncWindow is the smallest window FindCounter accepts. Shorter
// windows match too many counter positions to be useful.
const minSyncWindow = 8

// Generator produces the test payload. Each byte is derived from a
// running counter n: odd n contribute n>>9, even n contribute n>>1,
// and n advances by one per byte. The counter starts at zero when the
// process starts and is never reset by connection events.
//
// Fill has a single writer (the pump goroutine). Counter is safe to
// call from anywhere.
type Generator struct {
	n atomic.Uint32
}

// NewGenerator returns a generator with the counter at zero.
func NewGenerator() *Generator {
	return &Generator{}
}

// NewGeneratorAt returns a generator with the counter at n. Used by
// receivers that reproduce the stream for verification.
func NewGeneratorAt(n uint32) *Generator {
	g := &Generator{}
	g.n.Store(n)
	return g
}

// Fill writes len(buf) pattern bytes and advances the counter.
func (g *Generator) Fill(buf []byte) {
	n := g.n.Load()
	for i := range buf {
		shift := uint(1)
		if n&1 != 0 {
			shift = 9
		}
		buf[i] = byte(n >> shift)
		n++
	}
	if n > counterWrap {
		n %= counterWrap
	}
	g.n.Store(n)
}

// Counter returns the current counter value.
func (g *Generator) Counter() uint32 {
	return g.n.Load()
}

// FindCounter locates the counter position that generates window. A
// receiver joining a running stream feeds it the first payload it
// sees, then verifies everything after with a generator seeded at the
// result. Windows shorter than eight bytes are rejected; ok is false
// when no position matches.
func FindCounter(window []byte) (n uint32, ok bool) {
	if len(window) < minSyncWindow {
		return 0, false
	}
	// A fill leaves the counter anywhere in [0, counterWrap], the
	// upper bound included because reduction applies only above it.
	for start := uint32(0); start <= counterWrap; start++ {
		n := start
		matched := true
		for _, b := range window {
			shift := uint(1)
			if n&1 != 0 {
				shift = 9
			}
			if byte(n>>shift) != b {
				matched = false
				break
			}
			n++
		}
		if matched {
			return start, true
		}
	}
	return 0, false
}
