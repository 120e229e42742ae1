package shm

import (
	"context"
	"time"

	"github.com/ehrlich-b/dlt-router/internal/constants"
	"github.com/ehrlich-b/dlt-router/internal/wfpq"
)

// TypeCallback is invoked for each registration record a Read pass
// encounters. RecordCallback is invoked for each data record.
type TypeCallback func(TypeRegistration)
type RecordCallback func(SharedMemoryRecord)

// Reader is the daemon-side facade over a SharedData's ACB: it drives the
// reader half of the switch protocol and demultiplexes registration frames
// from data frames.
type Reader struct {
	sd    *SharedData
	proxy *wfpq.AlternatingReaderProxy
}

// NewReader returns a Reader over sd.
func NewReader(sd *SharedData) *Reader {
	return &Reader{sd: sd, proxy: wfpq.NewAlternatingReaderProxy(sd.ACB)}
}

// Read performs one full switch+wait+drain cycle: it calls Switch, busy
// polls IsBlockReleasedByWriters (the wait step spec.md §4.6 requires before
// reading), then iterates every frame in the drained block, invoking typeCB
// or recordCB as appropriate. It returns the number of bytes consumed.
//
// The busy poll below is intentionally unbounded: spec.md's reader protocol
// guarantees the block becomes released in bounded time because writers
// never block (Acquire/Release do not suspend), so a caller on a dedicated
// goroutine can simply spin; production callers that need a responsive
// shutdown path should wrap this in a context-aware loop at a higher layer
// the way cmd/dlt-router's drain goroutine does.
func (r *Reader) Read(typeCB TypeCallback, recordCB RecordCallback) uint64 {
	id := r.proxy.Switch()
	for !r.proxy.IsBlockReleasedByWriters(id) {
	}
	return r.drain(id, typeCB, recordCB)
}

// ReadDetached drains the remaining side unconditionally, used once
// SharedData.WriterDetached() is observed true: there is no more writer
// activity to wait for, so both LCBs can simply be read as-is.
func (r *Reader) ReadDetached(typeCB TypeCallback, recordCB RecordCallback) uint64 {
	consumed := r.drain(0, typeCB, recordCB)
	consumed += r.drain(1, typeCB, recordCB)
	return consumed
}

func (r *Reader) drain(id uint32, typeCB TypeCallback, recordCB RecordCallback) uint64 {
	lr := r.proxy.CreateLinearReader(id)
	var consumed uint64
	for {
		frame, ok := lr.Read()
		if !ok {
			break
		}
		consumed += uint64(len(frame))
		header, ok := unmarshalHeader(frame)
		if !ok {
			continue
		}
		body := frame[headerSize:]
		if header.IsRegistration() {
			if reg, ok := unmarshalRegistration(body); ok && typeCB != nil {
				typeCB(reg)
			}
			continue
		}
		if recordCB != nil {
			recordCB(SharedMemoryRecord{Header: header, Payload: body})
		}
	}
	return consumed
}

// Run drives Read in a loop until ctx is cancelled, waiting inside
// IsBlockReleasedByWriters' busy poll and, after an empty cycle, in the
// idle backoff described below. Once the producer side
// has set writer_detached, it performs one final ReadDetached pass over
// both LCBs and returns, matching spec.md §4.6's writer-detached drain
// sequence instead of continuing to spin after the producer is gone.
//
// A cycle that drains zero bytes means the producer had nothing new for an
// entire switch, so Run backs off for constants.IdleDrainBackoff before
// trying again rather than immediately issuing another Switch: without this,
// an idle producer leaves switch_count advancing at whatever rate an empty
// Read can loop at, far past spec.md §9's assumed sub-kHz switch rate, for
// no benefit (there is nothing to read sooner).
func (r *Reader) Run(ctx context.Context, typeCB TypeCallback, recordCB RecordCallback) {
	for {
		select {
		case <-ctx.Done():
			r.ReadDetached(typeCB, recordCB)
			return
		default:
		}
		if r.sd.WriterDetached() {
			r.ReadDetached(typeCB, recordCB)
			return
		}
		if consumed := r.Read(typeCB, recordCB); consumed == 0 {
			select {
			case <-ctx.Done():
				r.ReadDetached(typeCB, recordCB)
				return
			case <-time.After(constants.IdleDrainBackoff):
			}
		}
	}
}

// NotifyAcquisitionSetReader is the wait step of the RPC-driven handshake
// path (spec.md §4.6): the caller has already learned the producer's
// acquired switch_count out of band (via an AcquisitionTransport) and
// hands it here. It busy-waits until the block addressed by that value is
// released by writers and then always returns true. It does not call
// Switch, does not drain the block, and does not compare the value with
// this side's own switch_count.
func (r *Reader) NotifyAcquisitionSetReader(acquiredBlockID uint32) bool {
	for !r.proxy.IsBlockReleasedByWriters(acquiredBlockID) {
	}
	return true
}
