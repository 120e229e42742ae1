package wfpq

// AlternatingReaderProxy is the single-consumer side of an ACB. It owns the
// switch_count advance and the block-reuse reset that writers are forbidden
// from performing themselves, so a single reader goroutine (or, in the real
// deployment, the one process holding the read end of the shared memory
// mapping) must serialize all calls to Switch.
//
// Reader protocol contract (spec.md §4.5): after calling Switch and getting
// back a block ID, the reader must poll IsBlockReleasedByWriters(id) until
// it returns true, then drain that block with NewReader, and only then call
// Switch again. Calling Switch a second time before the first returned
// block has been fully drained races the reset in step 2 below against
// whatever the reader is still reading; AlternatingWriter.Acquire detects
// a switch_count jump of more than one generation during its own acquire
// and fails that acquire (returns false), but the proxy itself does not guard
// against it since doing so would require the proxy to know the reader
// finished draining, which only the reader knows.
type AlternatingReaderProxy struct {
	acb *ACB
}

// NewAlternatingReaderProxy returns a reader proxy bound to acb.
func NewAlternatingReaderProxy(acb *ACB) *AlternatingReaderProxy {
	return &AlternatingReaderProxy{acb: acb}
}

// Switch hands the currently-active-for-writers block to the reader and
// opens the other block to new writers. It returns the block ID the reader
// should now wait for and drain.
//
// Before publishing the new switch_count, Switch resets the block that is
// about to become writable again: that block is the one identified by
// switch_count+1, which has the same parity as switch_count-1 and was
// therefore the block handed to the reader on the *previous* call to
// Switch. Under the one-switch-per-cycle contract that block has already
// been fully drained by the time this call happens, so resetting it here
// is safe and makes its zeroed counters visible to writers no earlier than
// the incremented switch_count that tells them to use it.
func (p *AlternatingReaderProxy) Switch() uint32 {
	loaded := p.acb.SwitchCount()
	outgoing := loaded % 2

	reused := p.acb.BlockByID((loaded + 1) % 2)
	reused.reset()

	p.acb.switchCount.Add(1)
	return outgoing
}

// IsBlockReleasedByWriters reports whether the block addressed by id (a
// value previously returned by Switch) is quiescent: no writer is mid
// acquire and every acquired byte has reached written_index. The reader
// must not construct a Reader over this block, nor call Switch again, until
// this returns true.
func (p *AlternatingReaderProxy) IsBlockReleasedByWriters(id uint32) bool {
	return p.acb.BlockByID(id).ReleasedByWriters()
}

// CreateLinearReader returns a fresh Reader over the block addressed by id.
// Callers must only invoke this after IsBlockReleasedByWriters(id) has
// returned true.
func (p *AlternatingReaderProxy) CreateLinearReader(id uint32) *Reader {
	return NewReader(p.acb.BlockByID(id))
}
