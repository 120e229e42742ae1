package shm

import (
	"bytes"
	"testing"
)

func newTestSharedData(t *testing.T, bufferSize int) *SharedData {
	t.Helper()
	mapping := NewInProcessMapping(Size(bufferSize))
	return New(mapping, bufferSize)
}

func TestWriterReaderRoundTrip(t *testing.T) {
	sd := newTestSharedData(t, 4096)
	w := NewWriter(sd, func() int64 { return 1 })
	r := NewReader(sd)

	if !w.Write(7, []byte("hello")) {
		t.Fatal("write should succeed")
	}

	var got []SharedMemoryRecord
	var regs []TypeRegistration
	r.Read(func(tr TypeRegistration) { regs = append(regs, tr) },
		func(rec SharedMemoryRecord) { got = append(got, rec) })

	if len(regs) != 1 || regs[0].TypeID != 7 {
		t.Fatalf("expected one registration for type 7, got %+v", regs)
	}
	if len(got) != 1 || !bytes.Equal(got[0].Payload, []byte("hello")) {
		t.Fatalf("expected one record with payload hello, got %+v", got)
	}
	if got[0].Header.TypeID != 7 {
		t.Fatalf("record header type = %d, want 7", got[0].Header.TypeID)
	}
}

func TestWriterRegistersOncePerType(t *testing.T) {
	sd := newTestSharedData(t, 4096)
	w := NewWriter(sd, func() int64 { return 0 })
	r := NewReader(sd)

	w.Write(1, []byte("a"))
	w.Write(1, []byte("b"))

	var regCount, recCount int
	r.Read(func(TypeRegistration) { regCount++ }, func(SharedMemoryRecord) { recCount++ })

	if regCount != 1 {
		t.Fatalf("registrations = %d, want 1 (only the first Write for a type registers it)", regCount)
	}
	if recCount != 2 {
		t.Fatalf("records = %d, want 2", recCount)
	}
}

func TestDropCountersInvalidSize(t *testing.T) {
	sd := newTestSharedData(t, 4096)
	w := NewWriter(sd, func() int64 { return 0 })

	huge := make([]byte, 1<<30) // exceeds MaxAcquireLength once framed
	if w.Write(1, huge) {
		t.Fatal("oversized write should be dropped")
	}
	if sd.DropCounters().NumberOfDropsInvalidSize != 1 {
		t.Fatalf("NumberOfDropsInvalidSize = %d, want 1", sd.DropCounters().NumberOfDropsInvalidSize)
	}
}

func TestDropCountersBufferFull(t *testing.T) {
	sd := newTestSharedData(t, 64)
	w := NewWriter(sd, func() int64 { return 0 })

	// First write consumes the registration frame plus some of the buffer;
	// subsequent large writes should overflow and count as buffer-full.
	dropped := 0
	for i := 0; i < 50; i++ {
		if !w.Write(1, []byte("0123456789012345678901234567890123456789")) {
			dropped++
		}
	}
	if dropped == 0 {
		t.Fatal("expected at least one buffer-full drop in a 64-byte buffer")
	}
	if sd.DropCounters().NumberOfDropsBufferFull == 0 {
		t.Fatal("NumberOfDropsBufferFull should be non-zero")
	}
}

func TestReaderSwitchesAcrossTwoCycles(t *testing.T) {
	sd := newTestSharedData(t, 4096)
	w := NewWriter(sd, func() int64 { return 0 })
	r := NewReader(sd)

	w.Write(1, []byte("cycle1"))
	var firstCycle []SharedMemoryRecord
	r.Read(nil, func(rec SharedMemoryRecord) { firstCycle = append(firstCycle, rec) })

	w.Write(1, []byte("cycle2"))
	var secondCycle []SharedMemoryRecord
	r.Read(nil, func(rec SharedMemoryRecord) { secondCycle = append(secondCycle, rec) })

	if len(firstCycle) != 1 || string(firstCycle[0].Payload) != "cycle1" {
		t.Fatalf("first cycle = %+v", firstCycle)
	}
	if len(secondCycle) != 1 || string(secondCycle[0].Payload) != "cycle2" {
		t.Fatalf("second cycle = %+v", secondCycle)
	}
}
