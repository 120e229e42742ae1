package wfpq

import "testing"

func TestDoBytesFitInRemainingCapacity(t *testing.T) {
	cases := []struct {
		bufLen, offset, n uint64
		want              bool
	}{
		{100, 0, 100, true},
		{100, 0, 101, false},
		{100, 50, 50, true},
		{100, 50, 51, false},
		{100, 100, 0, true},
		{100, 101, 0, false},
		{100, 0, 0, true},
	}
	for _, c := range cases {
		if got := DoBytesFitInRemainingCapacity(c.bufLen, c.offset, c.n); got != c.want {
			t.Errorf("DoBytesFitInRemainingCapacity(%d,%d,%d) = %v, want %v", c.bufLen, c.offset, c.n, got, c.want)
		}
	}
}

func TestLCBReleasedByWriters(t *testing.T) {
	cb := NewLCB(make([]byte, 64))
	if !cb.ReleasedByWriters() {
		t.Fatal("fresh LCB should be released by writers")
	}

	cb.numberOfWriters.Add(1)
	if cb.ReleasedByWriters() {
		t.Fatal("LCB with an active writer must not report released")
	}
	cb.numberOfWriters.Add(-1)

	cb.acquiredIndex.Add(8)
	if cb.ReleasedByWriters() {
		t.Fatal("LCB with acquired > written must not report released")
	}
	cb.writtenIndex.Add(8)
	if !cb.ReleasedByWriters() {
		t.Fatal("LCB with acquired == written and no writers should report released")
	}
}
