package shm

import (
	"context"
	"testing"
	"time"
)

// TestReaderRunDrainsUntilCancelled exercises the ctx-cancellation exit of
// Run: a record written before cancellation must still be observed by
// recordCB, since Run's select only checks ctx.Done() between Read cycles
// rather than abandoning an in-flight one.
func TestReaderRunDrainsUntilCancelled(t *testing.T) {
	sd := newTestSharedData(t, 4096)
	w := NewWriter(sd, func() int64 { return 1 })
	r := NewReader(sd)

	if !w.Write(3, []byte("payload")) {
		t.Fatal("write should succeed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var got []SharedMemoryRecord
	go func() {
		r.Run(ctx, nil, func(rec SharedMemoryRecord) { got = append(got, rec) })
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for len(got) == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for Run to observe the written record")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after ctx cancellation")
	}
}

// TestReaderRunExitsOnWriterDetached exercises the other exit path: once
// the producer marks itself detached, Run performs one ReadDetached pass
// over both LCBs and returns on its own, without needing ctx cancellation.
func TestReaderRunExitsOnWriterDetached(t *testing.T) {
	sd := newTestSharedData(t, 4096)
	w := NewWriter(sd, func() int64 { return 1 })
	r := NewReader(sd)

	if !w.Write(5, []byte("a")) {
		t.Fatal("write should succeed")
	}
	sd.SetWriterDetached(true)

	ctx := context.Background()
	done := make(chan struct{})
	var got []SharedMemoryRecord
	go func() {
		r.Run(ctx, nil, func(rec SharedMemoryRecord) { got = append(got, rec) })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after WriterDetached was set")
	}
	if len(got) == 0 {
		t.Fatal("expected the detached drain pass to observe the already-written record")
	}
}
