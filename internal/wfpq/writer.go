package wfpq

import "encoding/binary"

// WriteFreeLinearWriter's frame prefix is 8 bytes: a little-endian u64
// payload length, written ahead of the payload at the acquired offset.
const framePrefixLen = 8

// putLen writes the 8-byte little-endian length prefix at offset.
func putLen(data []byte, offset, n uint64) {
	binary.LittleEndian.PutUint64(data[offset:offset+framePrefixLen], n)
}

// LinearWriter is the multi-producer wait-free writer over a single LCB.
// Acquire/Release are the only two operations; there is no construction
// step beyond wrapping an LCB; callers typically reach this type through
// AlternatingWriter rather than directly.
type LinearWriter struct {
	cb *LCB
}

// NewLinearWriter returns a writer bound to cb.
func NewLinearWriter(cb *LCB) *LinearWriter { return &LinearWriter{cb: cb} }

// Acquired is the writable span returned by Acquire, paired with the byte
// count the caller must pass back to Release.
type Acquired struct {
	Span []byte
}

// Acquire reserves a writable span of exactly n bytes (the length prefix
// is not included in n and is not part of the returned span). It returns
// ok=false if the acquire could not be satisfied; the caller must treat
// that as a silent drop (spec.md §4.2).
func (w *LinearWriter) Acquire(n uint64) (Acquired, bool) {
	count := w.cb.numberOfWriters.Add(1)
	if count > maxConcurrentWriters || n > maxAcquireLength || w.cb.acquiredIndex.Load() >= maxBufferCapacity {
		w.cb.numberOfWriters.Add(-1)
		return Acquired{}, false
	}

	bufLen := uint64(len(w.cb.Data))
	old := w.cb.acquiredIndex.Load()
	if !DoBytesFitInRemainingCapacity(bufLen, old, n+framePrefixLen) {
		w.cb.numberOfWriters.Add(-1)
		return Acquired{}, false
	}

	offset := w.cb.acquiredIndex.Add(n+framePrefixLen) - (n + framePrefixLen)

	if !DoBytesFitInRemainingCapacity(bufLen, offset, n+framePrefixLen) {
		// A concurrent writer consumed the slack the pre-check saw free.
		// The reservation still needs to converge written_index to
		// acquired_index, so we terminate the slot instead of undoing it.
		w.terminateBuffer(offset, n)
		return Acquired{}, false
	}

	putLen(w.cb.Data, offset, n)
	span := w.cb.Data[offset+framePrefixLen : offset+framePrefixLen+n]
	return Acquired{Span: span}, true
}

// Release finalizes a previously acquired span, making it visible to the
// reader. The release-fence requirement from spec.md §4.2 (payload writes
// happen-before written_index publication) is satisfied by writtenIndex
// being a sync/atomic store, which Go defines as a release operation with
// respect to a paired atomic load.
func (w *LinearWriter) Release(a Acquired) {
	n := uint64(len(a.Span))
	w.cb.writtenIndex.Add(n + framePrefixLen)
	w.cb.numberOfWriters.Add(-1)
}

// terminateBuffer handles a failed post-check acquire (spec.md §4.2 step
// 5): if the 8-byte prefix still fits at offset, it is overwritten with the
// true length n so a reader that later reaches this slot can skip past it
// cleanly; written_index is always advanced by n+8 regardless, so it keeps
// converging toward acquired_index even though this slot's payload bytes
// are garbage.
func (w *LinearWriter) terminateBuffer(offset, n uint64) {
	bufLen := uint64(len(w.cb.Data))
	if DoBytesFitInRemainingCapacity(bufLen, offset, framePrefixLen) {
		putLen(w.cb.Data, offset, n)
	}
	w.cb.writtenIndex.Add(n + framePrefixLen)
	w.cb.numberOfWriters.Add(-1)
}
