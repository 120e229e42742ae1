package wfpq

import "fmt"

// AlternatingAcquired pairs an acquired span with the block ID it was
// acquired from, so Release can be routed back to the right LinearWriter.
type AlternatingAcquired struct {
	Acquired
	BlockID uint32
}

// AlternatingWriter routes an Acquire to whichever LCB of an ACB is
// currently active, surviving a reader-initiated Switch that happens
// concurrently with the acquire (spec.md §4.4). It holds no state of its
// own beyond the ACB reference, so any number of producer goroutines (or,
// in the real deployment, processes mapping the same shared memory) can
// use their own AlternatingWriter value concurrently.
type AlternatingWriter struct {
	acb *ACB
}

// NewAlternatingWriter returns a writer bound to acb.
func NewAlternatingWriter(acb *ACB) *AlternatingWriter { return &AlternatingWriter{acb: acb} }

// ErrProtocol describes a reader that violated its one-switch-per-cycle
// contract while a writer was observing switch_count (switch_count moved
// by more than one generation). Acquire neither returns nor panics with
// it: on that condition Acquire releases its writer count and returns
// false, the same result as any other failed acquire.
type ErrProtocol struct {
	Loaded, Observed uint32
}

func (e ErrProtocol) Error() string {
	return fmt.Sprintf("wfpq: switch_count advanced by more than one writer generation (loaded=%d observed=%d)", e.Loaded, e.Observed)
}

// Acquire reserves n bytes in whichever LCB is active for writing,
// transparently following a single concurrent Switch.
func (w *AlternatingWriter) Acquire(n uint64) (AlternatingAcquired, bool) {
	loaded := w.acb.SwitchCount()
	candidateID := loaded % 2
	candidate := w.acb.BlockByID(candidateID)

	candidate.numberOfWriters.Add(1)

	reloaded := w.acb.SwitchCount()
	switch {
	case reloaded == loaded:
		// Candidate is genuinely still active.
		lw := NewLinearWriter(candidate)
		acq, ok := lw.acquireHoldingWriterCount(n)
		if !ok {
			candidate.numberOfWriters.Add(-1)
			return AlternatingAcquired{}, false
		}
		return AlternatingAcquired{Acquired: acq, BlockID: candidateID}, true

	case reloaded == loaded+1:
		// The reader switched underneath us. Move to the opposite block,
		// then confirm no second switch happened while we were moving.
		oppositeID := reloaded % 2
		opposite := w.acb.BlockByID(oppositeID)
		opposite.numberOfWriters.Add(1)
		candidate.numberOfWriters.Add(-1)

		if w.acb.SwitchCount() != loaded+1 {
			opposite.numberOfWriters.Add(-1)
			return AlternatingAcquired{}, false
		}

		lw := NewLinearWriter(opposite)
		acq, ok := lw.acquireHoldingWriterCount(n)
		if !ok {
			opposite.numberOfWriters.Add(-1)
			return AlternatingAcquired{}, false
		}
		return AlternatingAcquired{Acquired: acq, BlockID: oppositeID}, true

	default:
		// The reader advanced switch_count by more than one generation
		// while a single writer was mid-acquire; the reader protocol
		// forbids this (spec.md §4.5). The writer count is released and
		// the acquire fails.
		candidate.numberOfWriters.Add(-1)
		return AlternatingAcquired{}, false
	}
}

// Release delegates to the LinearWriter of the block the span was
// acquired from.
func (w *AlternatingWriter) Release(a AlternatingAcquired) {
	cb := w.acb.BlockByID(a.BlockID)
	NewLinearWriter(cb).Release(a.Acquired)
}

// acquireHoldingWriterCount performs the WFLW acquire algorithm without
// the initial numberOfWriters increment/bound check, which the caller
// (AlternatingWriter.Acquire) has already performed against the correct
// block before it knew whether that block was genuinely active.
func (w *LinearWriter) acquireHoldingWriterCount(n uint64) (Acquired, bool) {
	if n > maxAcquireLength || w.cb.acquiredIndex.Load() >= maxBufferCapacity {
		return Acquired{}, false
	}

	bufLen := uint64(len(w.cb.Data))
	old := w.cb.acquiredIndex.Load()
	if !DoBytesFitInRemainingCapacity(bufLen, old, n+framePrefixLen) {
		return Acquired{}, false
	}

	offset := w.cb.acquiredIndex.Add(n+framePrefixLen) - (n + framePrefixLen)

	if !DoBytesFitInRemainingCapacity(bufLen, offset, n+framePrefixLen) {
		w.terminateBufferNoDecrement(offset, n)
		return Acquired{}, false
	}

	return w.commit(offset, n), true
}

// commit writes the length prefix and returns the payload span, without
// touching numberOfWriters (the caller owns that lifecycle when acquiring
// through AlternatingWriter).
func (w *LinearWriter) commit(offset, n uint64) Acquired {
	putLen(w.cb.Data, offset, n)
	bufOffset := offset + framePrefixLen
	return Acquired{Span: w.cb.Data[bufOffset : bufOffset+n]}
}

func (w *LinearWriter) terminateBufferNoDecrement(offset, n uint64) {
	bufLen := uint64(len(w.cb.Data))
	if DoBytesFitInRemainingCapacity(bufLen, offset, framePrefixLen) {
		putLen(w.cb.Data, offset, n)
	}
	w.cb.writtenIndex.Add(n + framePrefixLen)
}
