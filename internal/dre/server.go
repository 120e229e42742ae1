// Package dre implements the DLT routing and filtering engine: the
// channel table, the (AppId,CtxId) routing/threshold maps, and the
// filterAndCall dispatch core every send path funnels through.
package dre

import (
	"sync"
	"sync/atomic"

	"github.com/ehrlich-b/dlt-router/internal/channel"
	"github.com/ehrlich-b/dlt-router/internal/config"
	"github.com/ehrlich-b/dlt-router/internal/dltid"
	"github.com/ehrlich-b/dlt-router/internal/persistence"
)

// RET_OK and RET_ERROR are the DCP response-contract leading bytes (spec.md
// §4.7's "Response contract").
const (
	RetOK    byte = 0x00
	RetError byte = 0xFE
)

// fallbackChannel is the single channel init_log_channels substitutes when
// the static config's channel count is out of range.
const (
	fallbackChannelName = "TEST"
	fallbackEcu         = "HOST"
	fallbackBindAddr    = "0.0.0.0"
)

// Sender is invoked once per matching channel by filterAndCall.
type Sender func(c *channel.Channel)

// Server holds all DltLogServer state (spec.md §4.7). The config mutex
// guards every structural mutation (routing, messageThresholds, the
// channels slice); Channel.Threshold and dltOutputEnabled are atomics read
// on the hot send path without the lock.
type Server struct {
	mu sync.Mutex

	channels    []*channel.Channel
	channelNums map[dltid.ID]int

	routing           map[dltid.Key]channel.Mask
	messageThresholds map[dltid.Key]dltid.LogLevel

	defaultThreshold dltid.LogLevel
	defaultChannel   int
	coredumpChannel  *int

	filteringEnabled atomic.Bool
	dltOutputEnabled atomic.Bool

	store      *persistence.Store
	quota      *config.QuotaLimiters
	lastConfig *config.StaticConfig

	logf func(format string, args ...any)
}

// New builds an empty Server. Call InitLogChannels to populate it from a
// StaticConfig plus any persisted overlay.
func New(store *persistence.Store, logf func(format string, args ...any)) *Server {
	s := &Server{
		channelNums:       make(map[dltid.ID]int),
		routing:           make(map[dltid.Key]channel.Mask),
		messageThresholds: make(map[dltid.Key]dltid.LogLevel),
		store:             store,
		logf:              logf,
	}
	s.filteringEnabled.Store(true)
	s.dltOutputEnabled.Store(true)
	return s
}

// ChannelCount reports the number of routed channels.
func (s *Server) ChannelCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.channels)
}

// FilteringEnabled and SetFilteringEnabled expose the atomic filtering
// toggle (SET_MESSAGING_FILTERING_STATE).
func (s *Server) FilteringEnabled() bool     { return s.filteringEnabled.Load() }
func (s *Server) SetFilteringEnabled(v bool) { s.filteringEnabled.Store(v) }
func (s *Server) DltOutputEnabled() bool     { return s.dltOutputEnabled.Load() }
func (s *Server) SetDltOutputEnabled(v bool) { s.dltOutputEnabled.Store(v) }

// DefaultThreshold and SetDefaultThreshold guard defaultThreshold under the
// config mutex since it participates in filterAndCall's lookup alongside
// the map-based per-(app,ctx) overrides.
func (s *Server) DefaultThreshold() dltid.LogLevel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.defaultThreshold
}

func (s *Server) SetDefaultThreshold(level dltid.LogLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultThreshold = level
}

// lookupThreshold returns the effective threshold for (appId,ctxId): the
// per-(app,ctx) override if one exists, else defaultThreshold. Must be
// called with s.mu held.
func (s *Server) lookupThreshold(key dltid.Key) dltid.LogLevel {
	if level, ok := s.messageThresholds[key]; ok {
		return level
	}
	return s.defaultThreshold
}

// lookupMask returns the effective channel mask for (appId,ctxId): the
// routed mask if one exists and is non-empty, else the singleton
// defaultChannel mask. Must be called with s.mu held.
func (s *Server) lookupMask(key dltid.Key) channel.Mask {
	if mask, ok := s.routing[key]; ok && mask != 0 {
		return mask
	}
	return channel.Bit(s.defaultChannel)
}

// FilterAndCall is the dispatch core (spec.md §4.7, testable property 6).
// payloadBytes is the size of the record about to be sent; it is consumed
// against the quota limiters (the supplemental throughput-quota feature)
// immediately before sender is invoked, after the threshold/mask checks, so
// a quota drop never short-circuits a legitimate filter-drop count.
func (s *Server) FilterAndCall(appID, ctxID dltid.ID, level dltid.LogLevel, payloadBytes int, sender Sender) {
	if !s.dltOutputEnabled.Load() {
		return
	}

	s.mu.Lock()
	var mask channel.Mask
	if s.filteringEnabled.Load() {
		key := dltid.Key{App: appID, Ctx: ctxID}
		threshold := s.lookupThreshold(key)
		if level > threshold {
			s.mu.Unlock()
			return
		}
		mask = s.lookupMask(key)
	} else {
		mask = s.lookupMask(dltid.Key{App: appID, Ctx: ctxID})
	}
	channels := s.channels
	quota := s.quota
	s.mu.Unlock()

	for i, c := range channels {
		if !mask.Has(i) {
			continue
		}
		if level > c.Threshold() {
			continue
		}
		if !quota.Allow(appID.String(), payloadBytes) {
			c.CountDropQuotaExceeded()
			continue
		}
		sender(c)
	}
}

// SendNonVerbose and SendVerbose both dispatch through FilterAndCall with
// the level extracted from the record being routed; they are named
// separately because their callers construct different wire payloads
// before invoking sender, not because the dispatch logic differs.
func (s *Server) SendNonVerbose(appID, ctxID dltid.ID, level dltid.LogLevel, payloadBytes int, sender Sender) {
	s.FilterAndCall(appID, ctxID, level, payloadBytes, sender)
}

func (s *Server) SendVerbose(appID, ctxID dltid.ID, level dltid.LogLevel, payloadBytes int, sender Sender) {
	s.FilterAndCall(appID, ctxID, level, payloadBytes, sender)
}

// SendFTVerbose routes a file-transfer frame. When a coredump channel is
// configured, file-transfer frames bypass filtering entirely and go only
// there (spec.md §9's "coredump channel" bypass); otherwise they follow the
// normal filterAndCall path like any other verbose entry.
func (s *Server) SendFTVerbose(appID, ctxID dltid.ID, level dltid.LogLevel, payloadBytes int, sender Sender) {
	s.mu.Lock()
	coredump := s.coredumpChannel
	var channels []*channel.Channel
	if coredump != nil {
		channels = s.channels
	}
	s.mu.Unlock()

	if coredump != nil {
		if *coredump < len(channels) {
			sender(channels[*coredump])
		}
		return
	}
	s.FilterAndCall(appID, ctxID, level, payloadBytes, sender)
}
