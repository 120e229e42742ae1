package dre

import (
	"testing"

	"github.com/ehrlich-b/dlt-router/internal/config"
	"github.com/ehrlich-b/dlt-router/internal/dltid"
	"github.com/ehrlich-b/dlt-router/internal/persistence"
)

func newStaticConfig() *config.StaticConfig {
	return &config.StaticConfig{
		Channels: map[string]config.ChannelConfig{
			"DFLT": {Ecu: "ECU0", Port: 3491, ChannelThreshold: "Error"},
			"CORE": {Ecu: "ECU0", Port: 3492, ChannelThreshold: "Verbose"},
		},
		DefaultChannel:  "DFLT",
		CoredumpChannel: "CORE",
	}
}

func TestInitLogChannelsBuildsTable(t *testing.T) {
	s := New(nil, nil)
	s.InitLogChannels(newStaticConfig(), nil)

	if s.ChannelCount() != 2 {
		t.Fatalf("expected 2 channels, got %d", s.ChannelCount())
	}
	if s.coredumpChannel == nil || s.nameAt(*s.coredumpChannel) != dltid.FromString("CORE") {
		t.Fatalf("coredump channel not wired to CORE")
	}
	if s.nameAt(s.defaultChannel) != dltid.FromString("DFLT") {
		t.Fatalf("default channel not wired to DFLT")
	}
}

func TestInitLogChannelsFallsBackOnEmptyChannels(t *testing.T) {
	s := New(nil, nil)
	s.InitLogChannels(&config.StaticConfig{}, nil)

	if s.ChannelCount() != 1 {
		t.Fatalf("expected fallback single channel, got %d", s.ChannelCount())
	}
	if s.nameAt(0) != dltid.FromString(fallbackChannelName) {
		t.Fatalf("fallback channel name wrong: %v", s.nameAt(0))
	}
	if s.channels[0].Threshold() != dltid.Error {
		t.Fatalf("fallback channel threshold should be Error, got %v", s.channels[0].Threshold())
	}
}

func TestInitLogChannelsFallsBackOnTooManyChannels(t *testing.T) {
	channels := make(map[string]config.ChannelConfig, maxChannels+1)
	for i := 0; i < maxChannels+1; i++ {
		name := string(rune('A'+i%26)) + string(rune('0'+i/26))
		channels[name] = config.ChannelConfig{Ecu: "ECU0", Port: 3491, ChannelThreshold: "Error"}
	}
	s := New(nil, nil)
	s.InitLogChannels(&config.StaticConfig{Channels: channels}, nil)
	if s.ChannelCount() != 1 {
		t.Fatalf("expected fallback on out-of-range channel count, got %d", s.ChannelCount())
	}
}

func TestReloadThresholdsPreservesSockets(t *testing.T) {
	s := New(nil, nil)
	cfg := newStaticConfig()
	s.InitLogChannels(cfg, nil)
	dflt := s.channelNums[dltid.FromString("DFLT")]
	originalOutput := s.channels[dflt].Output

	cfg.Channels["DFLT"] = config.ChannelConfig{Ecu: "ECU0", Port: 3491, ChannelThreshold: "Verbose"}
	s.ReloadThresholds(cfg)

	if s.channels[dflt].Threshold() != dltid.Verbose {
		t.Fatalf("expected reloaded threshold Verbose, got %v", s.channels[dflt].Threshold())
	}
	if s.channels[dflt].Output != originalOutput {
		t.Fatalf("ReloadThresholds must not recreate the socket")
	}
}

func TestSaveAndLoadDltConfigOverlay(t *testing.T) {
	store, err := persistence.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	s := New(store, nil)
	s.InitLogChannels(newStaticConfig(), nil)

	app, ctx := dltid.FromString("APP0"), dltid.FromString("CTX0")
	s.SetLogLevel(app, ctx, byte(dltid.Debug))
	s.SetLogChannelAssignment(app, ctx, dltid.FromString("CORE"), AssignmentAdd)
	s.SetLogChannelThreshold(dltid.FromString("DFLT"), dltid.Warn)

	if resp := s.SaveDatabase(); resp[0] != RetOK {
		t.Fatalf("SaveDatabase failed: %v", resp)
	}

	s2 := New(store, nil)
	s2.InitLogChannels(newStaticConfig(), nil)

	if level := s2.lookupThreshold(dltid.Key{App: app, Ctx: ctx}); level != dltid.Debug {
		t.Fatalf("overlay did not restore message threshold, got %v", level)
	}
	if mask := s2.routing[dltid.Key{App: app, Ctx: ctx}]; !mask.Has(s2.channelNums[dltid.FromString("CORE")]) {
		t.Fatalf("overlay did not restore routing, mask=%v", mask)
	}
	if dflt := s2.channels[s2.channelNums[dltid.FromString("DFLT")]]; dflt.Threshold() != dltid.Warn {
		t.Fatalf("overlay did not restore channel threshold, got %v", dflt.Threshold())
	}
}

func TestResetToDefaultClearsOverlay(t *testing.T) {
	store, err := persistence.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	s := New(store, nil)
	cfg := newStaticConfig()
	s.InitLogChannels(cfg, nil)
	s.SetLogChannelThreshold(dltid.FromString("DFLT"), dltid.Verbose)
	s.SaveDatabase()

	s.ResetToDefault()
	if dflt := s.channels[s.channelNums[dltid.FromString("DFLT")]]; dflt.Threshold() != dltid.Error {
		t.Fatalf("ResetToDefault should restore static threshold Error, got %v", dflt.Threshold())
	}
}
