package dltrouter

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks this daemon's operational counters the way the teacher's
// Metrics tracks a block device's I/O counters: plain atomics updated on
// the hot path, read through by both Snapshot (for programmatic access)
// and a dedicated prometheus.Registry (for scraping).
type Metrics struct {
	ChannelSends   atomic.Uint64 // records handed to channel.Output.Send
	FilterDrops    atomic.Uint64 // records dropped by threshold/mask filtering
	QuotaDrops     atomic.Uint64 // records dropped by a throughput quota
	BufferFull     atomic.Uint64 // WFPQ acquire failures: no room this cycle
	InvalidSize    atomic.Uint64 // WFPQ acquire requests over MaxAcquireLength
	TypeRegFailed  atomic.Uint64 // registration-record writes that themselves failed
	DCPCommands    atomic.Uint64 // DCP frames successfully parsed and dispatched
	DCPErrors      atomic.Uint64 // DCP frames that failed to parse (RET_ERROR)
	ActiveSessions atomic.Int64  // DCP connections currently in the Active state

	startTime atomic.Int64

	registry *prometheus.Registry
}

// NewMetrics builds an empty Metrics and its backing prometheus.Registry.
// The registry is private to this Metrics instance (not the global
// DefaultRegisterer) so a test can construct any number of Daemons without
// tripping prometheus's duplicate-collector panic.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.startTime.Store(time.Now().UnixNano())
	m.registry = prometheus.NewRegistry()

	counter := func(name, help string, get func() uint64) {
		m.registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: name, Help: help,
		}, func() float64 { return float64(get()) }))
	}
	counter("dltrouter_channel_sends_total", "Records forwarded to a channel's UDP output.", m.ChannelSends.Load)
	counter("dltrouter_filter_drops_total", "Records dropped by threshold or routing-mask filtering.", m.FilterDrops.Load)
	counter("dltrouter_quota_drops_total", "Records dropped by a throughput quota.", m.QuotaDrops.Load)
	counter("dltrouter_buffer_full_drops_total", "WFPQ acquire failures because no writer slot was free.", m.BufferFull.Load)
	counter("dltrouter_invalid_size_drops_total", "WFPQ acquire requests exceeding the maximum acquire length.", m.InvalidSize.Load)
	counter("dltrouter_type_registration_failed_total", "Type-registration frames that themselves failed to write.", m.TypeRegFailed.Load)
	counter("dltrouter_dcp_commands_total", "DCP frames successfully parsed and dispatched.", m.DCPCommands.Load)
	counter("dltrouter_dcp_errors_total", "DCP frames that failed to parse.", m.DCPErrors.Load)

	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "dltrouter_active_dcp_sessions", Help: "DCP connections currently in the Active state.",
	}, func() float64 { return float64(m.ActiveSessions.Load()) }))

	return m
}

// Registry returns the prometheus.Registry backing this Metrics, for a
// caller to expose over promhttp.HandlerFor.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// MetricsSnapshot is a point-in-time copy of Metrics, safe to retain or
// serialize without racing the live atomics.
type MetricsSnapshot struct {
	ChannelSends   uint64
	FilterDrops    uint64
	QuotaDrops     uint64
	BufferFull     uint64
	InvalidSize    uint64
	TypeRegFailed  uint64
	DCPCommands    uint64
	DCPErrors      uint64
	ActiveSessions int64
	UptimeNs       uint64
}

// Snapshot copies every counter's current value.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		ChannelSends:   m.ChannelSends.Load(),
		FilterDrops:    m.FilterDrops.Load(),
		QuotaDrops:     m.QuotaDrops.Load(),
		BufferFull:     m.BufferFull.Load(),
		InvalidSize:    m.InvalidSize.Load(),
		TypeRegFailed:  m.TypeRegFailed.Load(),
		DCPCommands:    m.DCPCommands.Load(),
		DCPErrors:      m.DCPErrors.Load(),
		ActiveSessions: m.ActiveSessions.Load(),
		UptimeNs:       uint64(time.Now().UnixNano() - m.startTime.Load()),
	}
}
