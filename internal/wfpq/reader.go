package wfpq

import "encoding/binary"

// Reader is the single-consumer framed iterator over an LCB's written
// portion. It is a value type: construct one per drain pass with NewReader.
type Reader struct {
	data      []byte
	readIndex uint64
}

// NewReader crops data to min(writtenIndex, len(data)) and returns a fresh
// iterator over that span.
func NewReader(cb *LCB) *Reader {
	written := cb.WrittenIndex()
	limit := uint64(len(cb.Data))
	if written < limit {
		limit = written
	}
	return &Reader{data: cb.Data[:limit]}
}

// Read returns the next frame's payload, or ok=false when the buffer is
// exhausted or the remainder is malformed (spec.md §4.3).
func (r *Reader) Read() (payload []byte, ok bool) {
	remaining := uint64(len(r.data)) - r.readIndex
	if remaining < framePrefixLen {
		return nil, false
	}

	length := binary.LittleEndian.Uint64(r.data[r.readIndex : r.readIndex+framePrefixLen])
	if length > maxAcquireLength {
		// A corrupt length prefix can never be trusted again; discard the
		// rest of the buffer rather than risk reading past unrelated data.
		r.readIndex = uint64(len(r.data))
		return nil, false
	}

	frameStart := r.readIndex + framePrefixLen
	r.readIndex += length + framePrefixLen

	if frameStart+length > uint64(len(r.data)) {
		// Terminated (failed-acquire) slot: the length prefix was written
		// but the payload bytes were never fully committed.
		return nil, false
	}
	return r.data[frameStart : frameStart+length], true
}
