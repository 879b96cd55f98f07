package stream

import (
	"bytes"
	"testing"
)

func TestGeneratorFirstBytes(t *testing.T) {
	g := NewGenerator()
	buf := make([]byte, 8)
	g.Fill(buf)

	// Even positions carry n>>1, odd positions n>>9 (zero below 512).
	want := []byte{0, 0, 1, 0, 2, 0, 3, 0}
	if !bytes.Equal(buf, want) {
		t.Errorf("Fill from zero = % x, want % x", buf, want)
	}
	if got := g.Counter(); got != 8 {
		t.Errorf("Counter = %d, want 8", got)
	}
}

func TestGeneratorShiftRule(t *testing.T) {
	// From 512 the odd-position shift becomes visible.
	g := NewGeneratorAt(512)
	buf := make([]byte, 4)
	g.Fill(buf)

	n := uint64(512)
	want := []byte{
		byte(n >> 1),       // 0x00
		byte((n + 1) >> 9), // 0x01
		byte((n + 2) >> 1), // 0x01
		byte((n + 3) >> 9), // 0x01
	}
	if !bytes.Equal(buf, want) {
		t.Errorf("Fill from 512 = % x, want % x", buf, want)
	}
}

func TestGeneratorContinuityAcrossFills(t *testing.T) {
	one := NewGenerator()
	whole := make([]byte, 64)
	one.Fill(whole)

	split := NewGenerator()
	parts := make([]byte, 0, 64)
	for i := 0; i < 4; i++ {
		chunk := make([]byte, 16)
		split.Fill(chunk)
		parts = append(parts, chunk...)
	}

	if !bytes.Equal(whole, parts) {
		t.Error("split fills diverge from one continuous fill")
	}
}

func TestGeneratorWrap(t *testing.T) {
	g := NewGeneratorAt(counterWrap - 2)
	buf := make([]byte, 4)
	g.Fill(buf)

	// The fill runs past the cap unreduced; reduction happens after.
	w := uint64(counterWrap)
	want := []byte{
		byte((w - 2) >> 1),
		byte((w - 1) >> 9),
		byte(w >> 1),
		byte((w + 1) >> 9),
	}
	if !bytes.Equal(buf, want) {
		t.Errorf("Fill across cap = % x, want % x", buf, want)
	}
	if got := g.Counter(); got != (counterWrap+2)%counterWrap {
		t.Errorf("Counter after wrap = %d, want %d", got, (counterWrap+2)%counterWrap)
	}
}

func TestGeneratorNoWrapAtExactCap(t *testing.T) {
	// Reduction applies strictly above the cap, so a fill ending
	// exactly on it leaves the counter there.
	g := NewGeneratorAt(counterWrap - 4)
	g.Fill(make([]byte, 4))
	if got := g.Counter(); got != counterWrap {
		t.Errorf("Counter = %d, want %d", got, counterWrap)
	}
}

func TestGeneratorSurvivesReuse(t *testing.T) {
	// The counter keeps running across fills of different sizes,
	// mirroring a stream that spans reconnects.
	g := NewGenerator()
	g.Fill(make([]byte, 182))
	g.Fill(make([]byte, 20))
	if got := g.Counter(); got != 202 {
		t.Errorf("Counter = %d, want 202", got)
	}
}

func TestFindCounter(t *testing.T) {
	src := NewGeneratorAt(4242)
	window := make([]byte, 32)
	src.Fill(window)

	n, ok := FindCounter(window)
	if !ok {
		t.Fatal("FindCounter found no match")
	}
	if n != 4242 {
		t.Fatalf("FindCounter = %d, want 4242", n)
	}

	// A generator seeded at the result reproduces the stream.
	shadow := NewGeneratorAt(n)
	replay := make([]byte, 32)
	shadow.Fill(replay)
	if !bytes.Equal(replay, window) {
		t.Error("seeded generator does not reproduce the window")
	}
	next := make([]byte, 16)
	cont := make([]byte, 16)
	src.Fill(next)
	shadow.Fill(cont)
	if !bytes.Equal(next, cont) {
		t.Error("seeded generator diverges after the window")
	}
}

func TestFindCounterRejectsShortWindow(t *testing.T) {
	if _, ok := FindCounter([]byte{0, 0, 1, 0}); ok {
		t.Error("FindCounter accepted a 4-byte window")
	}
}

func TestFindCounterNoMatch(t *testing.T) {
	// Even positions of any genuine window ramp by one; a constant
	// run cannot occur.
	window := bytes.Repeat([]byte{0xAA}, 16)
	if n, ok := FindCounter(window); ok {
		t.Errorf("FindCounter matched garbage at %d", n)
	}
}

func TestFindCounterAtCap(t *testing.T) {
	// A fill can leave the counter exactly on the cap; the next
	// window starts there and must still be locatable.
	src := NewGeneratorAt(counterWrap)
	window := make([]byte, 16)
	src.Fill(window)

	n, ok := FindCounter(window)
	if !ok {
		t.Fatal("FindCounter found no match")
	}
	if n != counterWrap {
		t.Errorf("FindCounter = %d, want %d", n, counterWrap)
	}
}
