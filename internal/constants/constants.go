// Package constants holds the wire limits and timing constants shared
// across the wait-free producer queue, the routing engine, and the
// diagnostic configuration protocol.
package constants

import "time"

// WFPQ limits. These exist so that acquired_index cannot overflow under
// any legal sequence of Acquire calls (see MaxBufferCapacity below).
const (
	// MaxAcquireLength is the largest payload a single Acquire may request.
	MaxAcquireLength = 128 * 1024 * 1024

	// MaxConcurrentWriters bounds the number of writers simultaneously
	// inside an acquire/release region of a single LinearControlBlock.
	MaxConcurrentWriters = 64

	// frameOverhead is the 8-byte little-endian length prefix WFLW writes
	// ahead of every acquired span.
	frameOverhead = 8

	// MaxBufferCapacity is the largest data span a LinearControlBlock may
	// address without risking acquired_index overflow: even if every one
	// of MaxConcurrentWriters writers is mid-acquire for MaxAcquireLength
	// bytes when the buffer is otherwise full, fetch_add cannot wrap.
	MaxBufferCapacity = ^uint64(0) - MaxConcurrentWriters*(MaxAcquireLength+frameOverhead)
)

// DCP/transport timing.
const (
	// NewSessionTimeout is how long a DCP connection may sit in the New
	// state (awaiting its first framed message) before the server closes it.
	NewSessionTimeout = 500 * time.Millisecond

	// PollTimeout caps the blocking duration of a single poll(2) iteration
	// in the UnixDomainServer loop so the daemon can react to cancellation.
	PollTimeout = 100 * time.Millisecond

	// IdleDrainBackoff is how long Reader.Run sleeps after a drain cycle
	// that consumed no bytes, so an idle producer does not leave the drain
	// goroutine spinning switch_count forward at full CPU.
	IdleDrainBackoff = time.Millisecond
)

// DLT wire-format limits.
const (
	// MaxDltMessageBytes is the largest DLT message the wire format may
	// produce; payloads that would exceed it are truncated, not dropped.
	MaxDltMessageBytes = 65536

	// MaxFileTransferChunkBytes bounds the raw payload of a single FLDA
	// (file-transfer data) packet.
	MaxFileTransferChunkBytes = 1024

	// DefaultMulticastAddr/Port are the fallback destination used when
	// init_log_channels falls back to the single default channel.
	DefaultMulticastAddr = "239.255.42.99"
	DefaultMulticastPort = 3490
	DefaultBindPort      = 3491
)
