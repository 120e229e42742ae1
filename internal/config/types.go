package config

import "github.com/ehrlich-b/dlt-router/internal/constants"

// ChannelConfig is one entry of the JSON "channels" object (spec.md §6).
type ChannelConfig struct {
	Ecu                string `json:"ecu"`
	Address            string `json:"address"`
	Port               uint16 `json:"port"`
	DstAddress         string `json:"dstAddress"`
	DstPort            uint16 `json:"dstPort"`
	ChannelThreshold   string `json:"channelThreshold"`
	MulticastInterface string `json:"multicastInterface"`
}

// ThroughputConfig is the JSON "quotas.throughput" object.
type ThroughputConfig struct {
	OverallMbps      float64            `json:"overallMbps"`
	ApplicationsKbps map[string]float64 `json:"applicationsKbps"`
}

// QuotasConfig is the JSON "quotas" object (spec.md §4.7's supplemental
// quota enforcement).
type QuotasConfig struct {
	QuotaEnforcementEnabled bool             `json:"quotaEnforcementEnabled"`
	Throughput              ThroughputConfig `json:"throughput"`
}

// StaticConfig is the decoded form of the JSON configuration file
// (spec.md §3's StaticConfig, §6's "Configuration JSON" member list).
type StaticConfig struct {
	Channels           map[string]ChannelConfig `json:"channels"`
	ChannelAssignments map[string][]string      `json:"channelAssignments"`
	FilteringEnabled   *bool                    `json:"filteringEnabled"`
	DefaultChannel     string                   `json:"defaultChannel"`
	CoredumpChannel    string                   `json:"coredumpChannel"`
	DefaultThreshold   string                   `json:"defaultThreshold"`
	DefaultThresold    string                   `json:"defaultThresold"`
	MessageThresholds  map[string]string        `json:"messageThresholds"`
	Quotas             QuotasConfig             `json:"quotas"`
}

// ResolvedFilteringEnabled applies the "default true if absent" rule.
func (c *StaticConfig) ResolvedFilteringEnabled() bool {
	if c.FilteringEnabled == nil {
		return true
	}
	return *c.FilteringEnabled
}

// ResolvedDefaultThreshold applies spec.md §6's default ("Verbose" if
// absent) and the same correct-spelling-preferred rule persistence uses.
func (c *StaticConfig) ResolvedDefaultThreshold() string {
	if c.DefaultThreshold != "" {
		return c.DefaultThreshold
	}
	if c.DefaultThresold != "" {
		return c.DefaultThresold
	}
	return "Verbose"
}

// ResolvedDstAddress and ResolvedDstPort apply a channel's defaults.
func (cc ChannelConfig) ResolvedDstAddress() string {
	if cc.DstAddress != "" {
		return cc.DstAddress
	}
	return constants.DefaultMulticastAddr
}

func (cc ChannelConfig) ResolvedDstPort() uint16 {
	if cc.DstPort != 0 {
		return cc.DstPort
	}
	return constants.DefaultMulticastPort
}
