// Package wfpq implements the wait-free producer queue: a shared-memory
// double-buffered ring used by many writer processes and a single reader.
// It is organized the same way the teacher's internal/uring package
// isolates memory-ordering primitives from the higher-level protocol: this
// file holds only the linear control block and its one capacity predicate,
// writer.go and reader.go build the framed Acquire/Release/Read protocol on
// top of it, and acb.go/alternating_writer.go/reader_proxy.go add the
// double-buffering (switch) layer.
package wfpq

import (
	"sync/atomic"

	"github.com/ehrlich-b/dlt-router/internal/constants"
)

// DoBytesFitInRemainingCapacity is the single allowed capacity check: all
// writer and reader arithmetic routes through it rather than reimplementing
// the comparison inline.
func DoBytesFitInRemainingCapacity(bufLen uint64, offset uint64, n uint64) bool {
	return offset <= bufLen && n <= bufLen-offset
}

// LCB (LinearControlBlock) is a data span of up to MaxBufferCapacity bytes
// and three monotone atomic counters. Data lives in a caller-provided byte
// slice so the same type backs both a real shared-memory mapping
// (internal/shm) and an in-process buffer used by tests.
type LCB struct {
	Data []byte

	acquiredIndex   atomic.Uint64
	writtenIndex    atomic.Uint64
	numberOfWriters atomic.Int32
}

// NewLCB wraps data as a fresh, empty control block. data is not copied.
func NewLCB(data []byte) *LCB {
	return &LCB{Data: data}
}

// AcquiredIndex returns the total bytes reserved by writers so far,
// including length prefixes.
func (b *LCB) AcquiredIndex() uint64 { return b.acquiredIndex.Load() }

// WrittenIndex returns the total bytes fully written and released so far.
func (b *LCB) WrittenIndex() uint64 { return b.writtenIndex.Load() }

// NumberOfWriters returns the count of writers currently inside an
// acquire/release region.
func (b *LCB) NumberOfWriters() int32 { return b.numberOfWriters.Load() }

// ReleasedByWriters reports whether the block is quiescent: no writer is
// mid-acquire and every acquired byte has been released. This is the
// precondition spec.md requires before the reader may read the block's
// data; callers must follow a true result with an acquire-fence, which on
// sync/atomic load already provides the required ordering guarantee.
func (b *LCB) ReleasedByWriters() bool {
	return b.numberOfWriters.Load() == 0 && b.writtenIndex.Load() == b.acquiredIndex.Load()
}

// reset zeroes the counters for reuse as the next writer target. Callers
// (AlternatingReaderProxy.Switch) must only call this on a block already
// known to be released by writers.
func (b *LCB) reset() {
	b.acquiredIndex.Store(0)
	b.writtenIndex.Store(0)
}

// capacityGuard mirrors MaxBufferCapacity/MaxConcurrentWriters/
// MaxAcquireLength so callers outside this package never need to import
// internal/constants just to validate an acquire request.
const (
	maxAcquireLength     = constants.MaxAcquireLength
	maxConcurrentWriters = constants.MaxConcurrentWriters
	maxBufferCapacity    = constants.MaxBufferCapacity
)
