package dltrouter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsStartsAtZero(t *testing.T) {
	m := NewMetrics()
	snap := m.Snapshot()
	assert.Zero(t, snap.ChannelSends)
	assert.Zero(t, snap.FilterDrops)
	assert.Zero(t, snap.DCPCommands)
	assert.Zero(t, snap.ActiveSessions)
}

func TestMetricsCountersIncrement(t *testing.T) {
	m := NewMetrics()
	m.ChannelSends.Add(3)
	m.FilterDrops.Add(1)
	m.QuotaDrops.Add(2)
	m.DCPCommands.Add(5)
	m.ActiveSessions.Add(4)
	m.ActiveSessions.Add(-1)

	snap := m.Snapshot()
	assert.EqualValues(t, 3, snap.ChannelSends)
	assert.EqualValues(t, 1, snap.FilterDrops)
	assert.EqualValues(t, 2, snap.QuotaDrops)
	assert.EqualValues(t, 5, snap.DCPCommands)
	assert.EqualValues(t, 3, snap.ActiveSessions)
}

func TestMultipleMetricsInstancesDoNotCollide(t *testing.T) {
	// Exercises the reason each Metrics owns a private prometheus.Registry
	// rather than registering against the global DefaultRegisterer: two
	// instances must be constructible in the same process (as two Daemons
	// in the same test binary would) without panicking on duplicate
	// collector registration.
	a := NewMetrics()
	b := NewMetrics()
	a.ChannelSends.Add(1)
	b.ChannelSends.Add(2)

	_, err := a.Registry().Gather()
	require.NoError(t, err)
	_, err = b.Registry().Gather()
	require.NoError(t, err)
	assert.NotEqual(t, a.Snapshot().ChannelSends, b.Snapshot().ChannelSends)
}

func TestMetricsRegistryGathersChannelSends(t *testing.T) {
	m := NewMetrics()
	m.ChannelSends.Add(7)

	metricFamilies, err := m.Registry().Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range metricFamilies {
		if mf.GetName() != "dltrouter_channel_sends_total" {
			continue
		}
		found = true
		assert.Equal(t, float64(7), mf.GetMetric()[0].GetCounter().GetValue())
	}
	assert.True(t, found, "expected dltrouter_channel_sends_total in the gathered metric families")
}
