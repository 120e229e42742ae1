package shm

import (
	"os"

	"github.com/ehrlich-b/dlt-router/internal/wfpq"
)

// SharedData couples a Mapping with the ACB it carries and the control
// region publishing drop counters, writer_detached, and producer_pid
// (spec.md §3's SharedData layout).
//
// The ACB's own counters (acquired_index/written_index/number_of_writers/
// switch_count) are ordinary process-local sync/atomic values owned by
// wfpq.ACB/LCB, not raw offsets into the mapping: only the two LCBs' data
// spans are carved out of the mapping's bytes. This is accurate for the
// deployment this repository targets, where the producer and the daemon
// share the same address space (goroutines in one process, as the demo
// producer in cmd/dlt-router and the test harness in testing.go both do).
// A genuine separate-process deployment would additionally need the four
// ACB/LCB counters placed at mapping offsets via the same unsafe-pointer
// technique controlRegion uses; that extension is not built out here.
type SharedData struct {
	Mapping *Mapping
	ACB     *wfpq.ACB
	control controlRegion
}

// New carves a mapping into the control region and two equal LCB data
// spans of bufferSize bytes each, and returns the assembled SharedData.
// mapping.Bytes must be at least controlRegionSize + 2*bufferSize long.
func New(mapping *Mapping, bufferSize int) *SharedData {
	control := newControlRegion(mapping.Bytes)
	rest := mapping.Bytes[controlRegionSize:]
	if len(rest) < 2*bufferSize {
		panic("shm: mapping too small for two LCB buffers of the requested size")
	}
	even := rest[:bufferSize]
	odd := rest[bufferSize : 2*bufferSize]

	sd := &SharedData{
		Mapping: mapping,
		ACB:     wfpq.NewACB(even, odd),
		control: control,
	}
	sd.control.setProducerPID(int32(os.Getpid()))
	return sd
}

// Size returns the total mapping length New requires for the given
// per-LCB buffer size.
func Size(bufferSize int) int {
	return controlRegionSize + 2*bufferSize
}

func (sd *SharedData) DropCounters() DropCounters { return sd.control.snapshot() }

func (sd *SharedData) AddDropsBufferFull(n uint64)       { sd.control.addDropsBufferFull(n) }
func (sd *SharedData) AddDropsInvalidSize()              { sd.control.addDropsInvalidSize() }
func (sd *SharedData) AddDropsTypeRegistrationFailed()   { sd.control.addDropsTypeRegistrationFailed() }
func (sd *SharedData) SetWriterDetached(v bool)          { sd.control.setWriterDetached(v) }
func (sd *SharedData) WriterDetached() bool              { return sd.control.writerDetached() }
func (sd *SharedData) ProducerPID() int32                { return sd.control.producerPID() }
