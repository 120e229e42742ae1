package shm

import (
	"sync/atomic"
	"unsafe"
)

// controlRegionSize is the fixed-size header written at the start of every
// mapping, ahead of the two LCB data spans. Field order and size mirror
// spec.md §3's SharedData layout, minus the ACB itself (see shared.go).
const controlRegionSize = 64

const (
	offNumberOfDropsBufferFull              = 0
	offSizeOfDropsBufferFull                = 8
	offNumberOfDropsInvalidSize             = 16
	offNumberOfDropsTypeRegistrationFailed  = 24
	offWriterDetached                       = 32 // stored as 0/1 in a uint32
	offProducerPID                          = 36
)

// controlRegion is a thin atomic view over controlRegionSize bytes at the
// front of a Mapping. It never copies or owns the bytes; every accessor
// reads or writes through an unsafe pointer into the mapping, the same
// technique the teacher's loadDescriptor uses for a kernel-shared mmap.
type controlRegion struct {
	base []byte
}

func newControlRegion(mapping []byte) controlRegion {
	if len(mapping) < controlRegionSize {
		panic("shm: mapping too small for control region")
	}
	return controlRegion{base: mapping[:controlRegionSize]}
}

func (c controlRegion) ptr64(off int) *uint64 {
	return (*uint64)(unsafe.Pointer(&c.base[off]))
}

func (c controlRegion) ptr32(off int) *uint32 {
	return (*uint32)(unsafe.Pointer(&c.base[off]))
}

func (c controlRegion) addDropsBufferFull(n uint64) {
	atomic.AddUint64(c.ptr64(offNumberOfDropsBufferFull), 1)
	atomic.AddUint64(c.ptr64(offSizeOfDropsBufferFull), n)
}

func (c controlRegion) addDropsInvalidSize() {
	atomic.AddUint64(c.ptr64(offNumberOfDropsInvalidSize), 1)
}

func (c controlRegion) addDropsTypeRegistrationFailed() {
	atomic.AddUint64(c.ptr64(offNumberOfDropsTypeRegistrationFailed), 1)
}

// DropCounters is a point-in-time snapshot of the writer-side drop taxonomy
// (spec.md §4.6).
type DropCounters struct {
	NumberOfDropsBufferFull             uint64
	SizeOfDropsBufferFull               uint64
	NumberOfDropsInvalidSize            uint64
	NumberOfDropsTypeRegistrationFailed uint64
}

func (c controlRegion) snapshot() DropCounters {
	return DropCounters{
		NumberOfDropsBufferFull:             atomic.LoadUint64(c.ptr64(offNumberOfDropsBufferFull)),
		SizeOfDropsBufferFull:               atomic.LoadUint64(c.ptr64(offSizeOfDropsBufferFull)),
		NumberOfDropsInvalidSize:            atomic.LoadUint64(c.ptr64(offNumberOfDropsInvalidSize)),
		NumberOfDropsTypeRegistrationFailed: atomic.LoadUint64(c.ptr64(offNumberOfDropsTypeRegistrationFailed)),
	}
}

func (c controlRegion) setWriterDetached(v bool) {
	var raw uint32
	if v {
		raw = 1
	}
	atomic.StoreUint32(c.ptr32(offWriterDetached), raw)
}

func (c controlRegion) writerDetached() bool {
	return atomic.LoadUint32(c.ptr32(offWriterDetached)) != 0
}

func (c controlRegion) setProducerPID(pid int32) {
	atomic.StoreUint32(c.ptr32(offProducerPID), uint32(pid))
}

func (c controlRegion) producerPID() int32 {
	return int32(atomic.LoadUint32(c.ptr32(offProducerPID)))
}
