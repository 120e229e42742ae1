package dre

import (
	"strings"

	"github.com/ehrlich-b/dlt-router/internal/channel"
	"github.com/ehrlich-b/dlt-router/internal/config"
	"github.com/ehrlich-b/dlt-router/internal/constants"
	"github.com/ehrlich-b/dlt-router/internal/dltid"
	"github.com/ehrlich-b/dlt-router/internal/persistence"
)

// maxChannels bounds the number of routed channels to the bit width of
// channel.Mask minus one (spec.md §4.7's "bits(ChannelMask)-1"), leaving
// one bit pattern free so an all-zero mask unambiguously means "no route".
const maxChannels = 63

// InitLogChannels realizes init_log_channels(reloading=false): it builds
// the channel table from cfg, falling back to a single default channel if
// cfg's channel count is out of [1, maxChannels], then overlays any
// persisted routing/threshold state on top of the static config.
func (s *Server) InitLogChannels(cfg *config.StaticConfig, quota *config.QuotaLimiters) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.quota = quota
	s.lastConfig = cfg
	s.closeChannelsLocked()

	if len(cfg.Channels) < 1 || len(cfg.Channels) > maxChannels {
		s.installFallbackChannelLocked()
	} else {
		s.installChannelsLocked(cfg)
	}

	s.filteringEnabled.Store(cfg.ResolvedFilteringEnabled())
	s.defaultThreshold = mustParseLevel(cfg.ResolvedDefaultThreshold(), dltid.Verbose)
	s.routing = make(map[dltid.Key]channel.Mask)
	for key, names := range cfg.ChannelAssignments {
		k, ok := parseKey(key)
		if !ok {
			continue
		}
		var mask channel.Mask
		for _, name := range names {
			if idx, ok := s.channelNums[dltid.FromString(name)]; ok {
				mask |= channel.Bit(idx)
			}
		}
		if mask != 0 {
			s.routing[k] = mask
		}
	}
	s.messageThresholds = make(map[dltid.Key]dltid.LogLevel)
	for key, levelStr := range cfg.MessageThresholds {
		k, ok := parseKey(key)
		if !ok {
			continue
		}
		level, ok := levelFromString(levelStr)
		if !ok {
			continue
		}
		s.messageThresholds[k] = level
	}

	if s.store != nil {
		if snap, found := s.store.LoadDltConfig(); found {
			s.applyPersistedOverlayLocked(snap)
		}
	}

	for _, c := range s.channels {
		c.Open(s.logf)
	}
}

// ReloadThresholds realizes init_log_channels(reloading=true): it updates
// channel thresholds only, preserving the existing sockets.
func (s *Server) ReloadThresholds(cfg *config.StaticConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, cc := range cfg.Channels {
		idx, ok := s.channelNums[dltid.FromString(name)]
		if !ok {
			continue
		}
		s.channels[idx].SetThreshold(mustParseLevel(cc.ChannelThreshold, dltid.Verbose))
	}
	s.defaultThreshold = mustParseLevel(cfg.ResolvedDefaultThreshold(), s.defaultThreshold)
}

// ResetToDefault discards any persisted overlay and re-derives the channel
// table from the static config last passed to InitLogChannels, the
// behavior spec.md §3 reserves exclusively for RESET_TO_DEFAULT
// ("channels... are recreated only on RESET_TO_DEFAULT and never deleted
// otherwise"). If InitLogChannels has never been called it still clears
// the persisted overlay, rebuilds nothing, and returns RET_ERROR.
func (s *Server) ResetToDefault() []byte {
	if s.store != nil {
		_ = s.store.ClearDltConfig()
	}
	s.mu.Lock()
	cfg, quota := s.lastConfig, s.quota
	s.mu.Unlock()
	if cfg == nil {
		return []byte{RetError}
	}
	s.InitLogChannels(cfg, quota)
	return []byte{RetOK}
}

// closeChannelsLocked releases any previously-opened sockets before the
// channel table is rebuilt.
func (s *Server) closeChannelsLocked() {
	for _, c := range s.channels {
		_ = c.Close()
	}
	s.channels = nil
	s.channelNums = make(map[dltid.ID]int)
}

func (s *Server) installFallbackChannelLocked() {
	name := dltid.FromString(fallbackChannelName)
	c := channel.New(
		name, dltid.FromString(fallbackEcu),
		fallbackBindAddr, constants.DefaultBindPort,
		constants.DefaultMulticastAddr, constants.DefaultMulticastPort,
		"", dltid.Error,
	)
	s.channels = []*channel.Channel{c}
	s.channelNums[name] = 0
	s.defaultChannel = 0
	s.coredumpChannel = nil
}

func (s *Server) installChannelsLocked(cfg *config.StaticConfig) {
	names := make([]string, 0, len(cfg.Channels))
	for name := range cfg.Channels {
		names = append(names, name)
	}
	sortStrings(names)

	s.channels = make([]*channel.Channel, 0, len(names))
	for _, name := range names {
		cc := cfg.Channels[name]
		id := dltid.FromString(name)
		c := channel.New(
			id, dltid.FromString(cc.Ecu),
			cc.Address, cc.Port,
			cc.ResolvedDstAddress(), cc.ResolvedDstPort(),
			cc.MulticastInterface,
			mustParseLevel(cc.ChannelThreshold, dltid.Verbose),
		)
		s.channelNums[id] = len(s.channels)
		s.channels = append(s.channels, c)
	}

	if idx, ok := s.channelNums[dltid.FromString(cfg.DefaultChannel)]; ok {
		s.defaultChannel = idx
	} else {
		s.defaultChannel = 0
	}
	s.coredumpChannel = nil
	if cfg.CoredumpChannel != "" {
		if idx, ok := s.channelNums[dltid.FromString(cfg.CoredumpChannel)]; ok {
			idxCopy := idx
			s.coredumpChannel = &idxCopy
		}
	}
}

// sortStrings avoids importing "sort" just for one call site's worth of
// need; channel iteration order only has to be deterministic, not
// meaningful, since routing is keyed by name everywhere else.
func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func parseKey(s string) (dltid.Key, bool) {
	app, ctx, ok := strings.Cut(s, "/")
	if !ok {
		return dltid.Key{}, false
	}
	return dltid.Key{App: dltid.FromString(app), Ctx: dltid.FromString(ctx)}, true
}

func keyToString(k dltid.Key) string {
	return k.App.String() + "/" + k.Ctx.String()
}

func levelFromString(s string) (dltid.LogLevel, bool) {
	switch s {
	case "Off":
		return dltid.Off, true
	case "Fatal":
		return dltid.Fatal, true
	case "Error":
		return dltid.Error, true
	case "Warn":
		return dltid.Warn, true
	case "Info":
		return dltid.Info, true
	case "Debug":
		return dltid.Debug, true
	case "Verbose":
		return dltid.Verbose, true
	default:
		return 0, false
	}
}

func mustParseLevel(s string, fallback dltid.LogLevel) dltid.LogLevel {
	if level, ok := levelFromString(s); ok {
		return level
	}
	return fallback
}

// applyPersistedOverlayLocked overlays a persisted snapshot on top of the
// just-built static channel/routing/threshold state. Must be called with
// s.mu held.
func (s *Server) applyPersistedOverlayLocked(snap persistence.DltConfigSnapshot) {
	for name, thresholdStr := range snap.Channels {
		idx, ok := s.channelNums[dltid.FromString(name)]
		if !ok {
			continue
		}
		if level, ok := levelFromString(thresholdStr); ok {
			s.channels[idx].SetThreshold(level)
		}
	}
	for key, mask := range snap.ChannelAssignments {
		k, ok := parseKey(key)
		if !ok {
			continue
		}
		if mask == 0 {
			delete(s.routing, k)
			continue
		}
		s.routing[k] = channel.Mask(mask)
	}
	s.filteringEnabled.Store(snap.FilteringEnabled)
	if level, ok := levelFromString(snap.DefaultThreshold); ok {
		s.defaultThreshold = level
	}
	for key, thresholdStr := range snap.MessageThresholds {
		k, ok := parseKey(key)
		if !ok {
			continue
		}
		if level, ok := levelFromString(thresholdStr); ok {
			s.messageThresholds[k] = level
		}
	}
}
