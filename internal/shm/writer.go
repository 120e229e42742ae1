package shm

import (
	"github.com/ehrlich-b/dlt-router/internal/constants"
	"github.com/ehrlich-b/dlt-router/internal/wfpq"
)

// Writer is the producer-side facade over a SharedData's ACB: it frames a
// BufferEntryHeader ahead of each payload, emits a registration record the
// first time a type_identifier is used, and maps every acquire failure onto
// the drop taxonomy from spec.md §4.6.
type Writer struct {
	sd        *SharedData
	w         *wfpq.AlternatingWriter
	now       func() int64
	registered map[uint16]bool
}

// NewWriter returns a Writer over sd. now supplies the timestamp for each
// BufferEntryHeader; production callers pass time.Now().UnixNano, tests pass
// a fixed or incrementing stub.
func NewWriter(sd *SharedData, now func() int64) *Writer {
	return &Writer{
		sd:         sd,
		w:          wfpq.NewAlternatingWriter(sd.ACB),
		now:        now,
		registered: make(map[uint16]bool),
	}
}

// Write frames payload under typeID, registering typeID with a registration
// record the first time this Writer sees it. Returns false if either the
// registration or the data record was dropped; the caller does not need to
// distinguish which, since both paths already updated the drop counters.
func (w *Writer) Write(typeID uint16, payload []byte) bool {
	if !w.registered[typeID] {
		if !w.writeFrame(BufferEntryHeader{TimeStampNs: w.now(), TypeID: RegistrationTypeID},
			marshalRegistration(TypeRegistration{TypeID: typeID, Name: ""})) {
			w.sd.AddDropsTypeRegistrationFailed()
			return false
		}
		w.registered[typeID] = true
	}
	return w.writeFrame(BufferEntryHeader{TimeStampNs: w.now(), TypeID: typeID}, payload)
}

// WriteNamed is like Write but carries a human-readable name in the
// registration record, for type ids a consumer cannot otherwise identify.
func (w *Writer) WriteNamed(typeID uint16, name string, payload []byte) bool {
	if !w.registered[typeID] {
		if !w.writeFrame(BufferEntryHeader{TimeStampNs: w.now(), TypeID: RegistrationTypeID},
			marshalRegistration(TypeRegistration{TypeID: typeID, Name: name})) {
			w.sd.AddDropsTypeRegistrationFailed()
			return false
		}
		w.registered[typeID] = true
	}
	return w.writeFrame(BufferEntryHeader{TimeStampNs: w.now(), TypeID: typeID}, payload)
}

func (w *Writer) writeFrame(header BufferEntryHeader, payload []byte) bool {
	headerBytes := marshalHeader(header)
	n := uint64(len(headerBytes) + len(payload))

	if n > constants.MaxAcquireLength {
		w.sd.AddDropsInvalidSize()
		return false
	}

	acq, ok := w.w.Acquire(n)
	if !ok {
		w.sd.AddDropsBufferFull(n)
		return false
	}
	copy(acq.Span, headerBytes)
	copy(acq.Span[len(headerBytes):], payload)
	w.w.Release(acq)
	return true
}
