// Package channel models one DLT output destination: a named UDP endpoint
// with an atomically-updatable log-level threshold plus the raw socket that
// carries its traffic, mirroring the teacher's internal/ctrl package's
// close-to-the-syscall construction style applied to sockets instead of the
// ublk control device.
package channel

import (
	"sync/atomic"

	"github.com/ehrlich-b/dlt-router/internal/dltid"
)

// Mask is a bit set indexing into a DltLogServer's channel slice
// (spec.md §3's ChannelMask), wide enough for well over 32 channels.
type Mask uint64

// Bit returns the mask selecting only channel index i.
func Bit(i int) Mask { return Mask(1) << uint(i) }

// Has reports whether bit i is set in m.
func (m Mask) Has(i int) bool { return m&Bit(i) != 0 }

// Channel is one logical output: a name and ecu identifier, its bind/
// destination addressing, and an atomic threshold read on the hot send path
// without any lock (spec.md §4.7).
type Channel struct {
	Name           dltid.ID
	Ecu            dltid.ID
	BindAddr       string
	BindPort       uint16
	DstAddr        string
	DstPort        uint16
	MulticastIface string

	threshold atomic.Uint32

	dropsQuotaExceeded atomic.Uint64

	Output *UdpStreamOutput
}

// New builds a Channel with the given static fields and initial threshold.
// It does not open the socket; call Open separately once the channel is
// placed in the routing table, matching init_log_channels' two-phase
// construct-then-bind sequence.
func New(name, ecu dltid.ID, bindAddr string, bindPort uint16, dstAddr string, dstPort uint16, multicastIface string, threshold dltid.LogLevel) *Channel {
	c := &Channel{
		Name: name, Ecu: ecu,
		BindAddr: bindAddr, BindPort: bindPort,
		DstAddr: dstAddr, DstPort: dstPort,
		MulticastIface: multicastIface,
	}
	c.threshold.Store(uint32(threshold))
	return c
}

// Threshold returns the channel's current log-level ceiling.
func (c *Channel) Threshold() dltid.LogLevel { return dltid.LogLevel(c.threshold.Load()) }

// SetThreshold updates the channel's log-level ceiling. Safe to call
// concurrently with Threshold from the hot send path.
func (c *Channel) SetThreshold(level dltid.LogLevel) { c.threshold.Store(uint32(level)) }

// CountDropQuotaExceeded increments the per-channel counter of records
// dropped because a throughput quota was exceeded (the supplemental
// numberOfDropsQuotaExceeded counter, distinct from a filter drop).
func (c *Channel) CountDropQuotaExceeded() { c.dropsQuotaExceeded.Add(1) }

// DropsQuotaExceeded reads the quota-drop counter for metrics export.
func (c *Channel) DropsQuotaExceeded() uint64 { return c.dropsQuotaExceeded.Load() }

// Open constructs and binds this channel's UdpStreamOutput. Per spec.md
// §4.8, construction failures are logged (through logf, if non-nil) and
// swallowed here; Open returns nothing. On failure Output is set to an
// unconfigured UdpStreamOutput with no socket, so a send attempt against it
// simply fails rather than crashing the daemon.
func (c *Channel) Open(logf func(format string, args ...any)) {
	out, err := newUdpStreamOutput(c.BindAddr, c.BindPort, c.DstAddr, c.DstPort, c.MulticastIface)
	if err != nil {
		if logf != nil {
			logf("channel %s: socket setup failed, sends will be dropped: %v", c.Name, err)
		}
		c.Output = &UdpStreamOutput{}
		return
	}
	c.Output = out
}

// Close releases the channel's socket, if any.
func (c *Channel) Close() error {
	if c.Output == nil {
		return nil
	}
	return c.Output.Close()
}
