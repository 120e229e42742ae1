package dre

import (
	"testing"

	"github.com/ehrlich-b/dlt-router/internal/channel"
	"github.com/ehrlich-b/dlt-router/internal/config"
	"github.com/ehrlich-b/dlt-router/internal/dltid"
)

// newTestServer builds a Server with two unopened channels (DFLT index 0,
// CORE index 1) and no persistence/quota collaborators, for exercising
// FilterAndCall and the DCP-facing mutation methods without real sockets.
func newTestServer() *Server {
	s := New(nil, nil)
	dflt := channel.New(dltid.FromString("DFLT"), dltid.FromString("ECU0"), "", 0, "", 0, "", dltid.Error)
	core := channel.New(dltid.FromString("CORE"), dltid.FromString("ECU0"), "", 0, "", 0, "", dltid.Verbose)
	s.channels = []*channel.Channel{dflt, core}
	s.channelNums = map[dltid.ID]int{dflt.Name: 0, core.Name: 1}
	s.defaultChannel = 0
	return s
}

func captureSender() (Sender, *[]dltid.ID) {
	var called []dltid.ID
	return func(c *channel.Channel) { called = append(called, c.Name) }, &called
}

// Property 6: filterAndCall invokes the sender for channel c iff
// dltOutputEnabled && (!filteringEnabled || level <= threshold) &&
// mask_bit(c) && level <= channels[c].threshold.
func TestFilterAndCallProperty6(t *testing.T) {
	s := newTestServer()
	key := dltid.Key{App: dltid.FromString("APP0"), Ctx: dltid.FromString("CTX0")}
	s.routing[key] = channel.Bit(0) | channel.Bit(1)
	s.messageThresholds[key] = dltid.Warn

	sender, called := captureSender()
	s.FilterAndCall(key.App, key.Ctx, dltid.Info, 0, sender)
	if len(*called) != 0 {
		t.Fatalf("level above threshold should drop, got sends: %v", *called)
	}

	*called = nil
	s.FilterAndCall(key.App, key.Ctx, dltid.Warn, 0, sender)
	// DFLT threshold is Error (2), Warn (3) exceeds it; CORE threshold is
	// Verbose so it passes.
	if len(*called) != 1 || (*called)[0] != s.nameAt(1) {
		t.Fatalf("expected exactly one send to CORE, got: %v", *called)
	}
}

// helper to read a channel's name by index without exporting internals
// beyond what the package already does.
func (s *Server) nameAt(i int) dltid.ID { return s.channels[i].Name }

func TestFilterAndCallRespectsDltOutputEnabled(t *testing.T) {
	s := newTestServer()
	s.SetDltOutputEnabled(false)
	key := dltid.Key{App: dltid.FromString("APP0"), Ctx: dltid.FromString("CTX0")}
	s.routing[key] = channel.Bit(0)

	sender, called := captureSender()
	s.FilterAndCall(key.App, key.Ctx, dltid.Off, 0, sender)
	if len(*called) != 0 {
		t.Fatalf("dltOutputEnabled=false must suppress all sends, got: %v", *called)
	}
}

func TestFilterAndCallDefaultMaskWhenUnrouted(t *testing.T) {
	s := newTestServer()
	sender, called := captureSender()
	s.FilterAndCall(dltid.FromString("APP9"), dltid.FromString("CTX9"), dltid.Off, 0, sender)
	if len(*called) != 1 || (*called)[0] != s.nameAt(0) {
		t.Fatalf("unrouted (app,ctx) should hit defaultChannel only, got: %v", *called)
	}
}

// Property 7: Add followed by Remove on the same channel restores the
// pre-Add mask exactly.
func TestAssignmentAddThenRemoveRestoresMask(t *testing.T) {
	s := newTestServer()
	app, ctx, core := dltid.FromString("APP0"), dltid.FromString("CTX0"), dltid.FromString("CORE")
	key := dltid.Key{App: app, Ctx: ctx}

	before, existed := s.routing[key]

	if resp := s.SetLogChannelAssignment(app, ctx, core, AssignmentAdd); resp[0] != RetOK {
		t.Fatalf("Add failed: %v", resp)
	}
	if mask := s.routing[key]; mask != channel.Bit(1) {
		t.Fatalf("after Add, mask = %v, want bit 1 set", mask)
	}

	if resp := s.SetLogChannelAssignment(app, ctx, core, AssignmentRemove); resp[0] != RetOK {
		t.Fatalf("Remove failed: %v", resp)
	}
	after, stillExists := s.routing[key]
	if existed != stillExists || (existed && before != after) {
		t.Fatalf("Remove did not restore pre-Add state: before=(%v,%v) after=(%v,%v)", before, existed, after, stillExists)
	}
}

func TestSetLogChannelAssignmentUnknownChannel(t *testing.T) {
	s := newTestServer()
	resp := s.SetLogChannelAssignment(dltid.FromString("APP0"), dltid.FromString("CTX0"), dltid.FromString("NOPE"), AssignmentAdd)
	if resp[0] != RetError {
		t.Fatalf("expected RetError for unknown channel, got %v", resp)
	}
}

// Property 8: SetLogLevel(USE_DEFAULT) restores default-threshold behavior.
func TestSetLogLevelUseDefaultRestoresDefault(t *testing.T) {
	s := newTestServer()
	app, ctx := dltid.FromString("APP0"), dltid.FromString("CTX0")
	s.SetDefaultThreshold(dltid.Warn)

	if resp := s.SetLogLevel(app, ctx, byte(dltid.Off)); resp[0] != RetOK {
		t.Fatalf("SetLogLevel failed: %v", resp)
	}
	if level := s.lookupThreshold(dltid.Key{App: app, Ctx: ctx}); level != dltid.Off {
		t.Fatalf("override not applied, got %v", level)
	}

	if resp := s.SetLogLevel(app, ctx, dltid.UseDefaultLevel); resp[0] != RetOK {
		t.Fatalf("SetLogLevel(USE_DEFAULT) failed: %v", resp)
	}
	if level := s.lookupThreshold(dltid.Key{App: app, Ctx: ctx}); level != dltid.Warn {
		t.Fatalf("expected default threshold Warn to apply, got %v", level)
	}
}

func TestSetLogLevelInvalidLevel(t *testing.T) {
	s := newTestServer()
	resp := s.SetLogLevel(dltid.FromString("APP0"), dltid.FromString("CTX0"), 200)
	if resp[0] != RetError {
		t.Fatalf("expected RetError for invalid level, got %v", resp)
	}
}

func TestReadLogChannelNames(t *testing.T) {
	s := newTestServer()
	resp := s.ReadLogChannelNames()
	if resp[0] != RetOK {
		t.Fatalf("expected RetOK prefix, got %v", resp)
	}
	if len(resp) != 1+4*2 {
		t.Fatalf("expected RetOK + 2*4 bytes, got %d bytes", len(resp))
	}
}

// E1: a single routed channel with an Off-level override drops everything
// until SET_LOG_LEVEL raises the override to Verbose. DFLT's channel
// threshold is raised to Verbose first: at its Error threshold a Verbose
// entry is dropped by the per-channel check of property 6 whatever the
// override says.
func TestScenarioE1(t *testing.T) {
	s := newTestServer()
	app, ctx := dltid.FromString("APP0"), dltid.FromString("CTX0")
	key := dltid.Key{App: app, Ctx: ctx}
	s.routing[key] = channel.Bit(0)
	s.messageThresholds[key] = dltid.Off
	s.channels[0].SetThreshold(dltid.Verbose)

	sender, called := captureSender()
	s.FilterAndCall(app, ctx, dltid.Verbose, 0, sender)
	if len(*called) != 0 {
		t.Fatalf("expected zero sends before SET_LOG_LEVEL, got %v", *called)
	}

	s.SetLogLevel(app, ctx, byte(dltid.Verbose))

	*called = nil
	s.FilterAndCall(app, ctx, dltid.Verbose, 0, sender)
	if len(*called) != 1 || (*called)[0] != s.nameAt(0) {
		t.Fatalf("expected exactly one send to DFLT, got %v", *called)
	}
}

// E2: two channels routed to (APP0,CTX0), both at Verbose channel
// threshold so the channel threshold never limits this scenario. An entry
// at level Off (numerically 0, the lowest value) never exceeds any
// messageThreshold >= Off, so per property 6's "level > threshold, drop"
// rule it is sent regardless of whether the threshold is Off or Fatal.
// (spec.md §8's literal E2 prose claims the Fatal-threshold case yields
// zero sends, which is inconsistent with property 6's own formula for a
// level-Off entry; this test follows the formula, see DESIGN.md.)
func TestScenarioE2(t *testing.T) {
	s := newTestServer()
	app, ctx := dltid.FromString("APP0"), dltid.FromString("CTX0")
	key := dltid.Key{App: app, Ctx: ctx}
	s.routing[key] = channel.Bit(0) | channel.Bit(1)
	s.channels[0].SetThreshold(dltid.Verbose)
	s.channels[1].SetThreshold(dltid.Verbose)

	s.messageThresholds[key] = dltid.Off
	sender, called := captureSender()
	s.FilterAndCall(app, ctx, dltid.Off, 0, sender)
	if len(*called) != 2 {
		t.Fatalf("expected two sends with threshold Off, got %v", *called)
	}

	s.messageThresholds[key] = dltid.Fatal
	*called = nil
	s.FilterAndCall(app, ctx, dltid.Off, 0, sender)
	if len(*called) != 2 {
		t.Fatalf("expected two sends with threshold Fatal (level Off never exceeds it), got %v", *called)
	}
}

// E6: SET_DLT_OUTPUT_ENABLE(0) suppresses all sends until re-enabled.
func TestScenarioE6(t *testing.T) {
	s := newTestServer()
	app, ctx := dltid.FromString("APP0"), dltid.FromString("CTX0")
	s.routing[dltid.Key{App: app, Ctx: ctx}] = channel.Bit(0)

	s.SetDltOutputEnable(false)
	sender, called := captureSender()
	s.FilterAndCall(app, ctx, dltid.Off, 0, sender)
	if len(*called) != 0 {
		t.Fatalf("expected zero sends while output disabled, got %v", *called)
	}

	s.SetDltOutputEnable(true)
	*called = nil
	s.FilterAndCall(app, ctx, dltid.Off, 0, sender)
	if len(*called) != 1 {
		t.Fatalf("expected one send once output re-enabled, got %v", *called)
	}
}

// SendFTVerbose must bypass filtering entirely and go only to the
// coredump channel when one is configured (spec.md §9's coredump bypass),
// even though filteringEnabled/thresholds would otherwise drop the entry.
func TestSendFTVerboseCoredumpBypass(t *testing.T) {
	s := newTestServer()
	core := 1
	s.coredumpChannel = &core
	s.SetDefaultThreshold(dltid.Off)

	sender, called := captureSender()
	s.SendFTVerbose(dltid.FromString("APP0"), dltid.FromString("CTX0"), dltid.Verbose, 0, sender)
	if len(*called) != 1 || (*called)[0] != s.nameAt(1) {
		t.Fatalf("expected the single send to go to the coredump channel, got %v", *called)
	}
}

func TestSendFTVerboseFallsBackToFilterAndCallWithoutCoredump(t *testing.T) {
	s := newTestServer()
	key := dltid.Key{App: dltid.FromString("APP0"), Ctx: dltid.FromString("CTX0")}
	s.routing[key] = channel.Bit(0)
	s.messageThresholds[key] = dltid.Verbose

	sender, called := captureSender()
	s.SendFTVerbose(key.App, key.Ctx, dltid.Error, 0, sender)
	if len(*called) != 1 || (*called)[0] != s.nameAt(0) {
		t.Fatalf("expected normal filterAndCall routing, got %v", *called)
	}
}

// A quota-exhausted send is dropped (never reaches sender) and counted on
// the channel's own drop counter, without disturbing the filter-drop logic
// above it (spec.md §4.7's realization note on quota-check placement).
func TestFilterAndCallQuotaExceededDrops(t *testing.T) {
	s := newTestServer()
	key := dltid.Key{App: dltid.FromString("APP0"), Ctx: dltid.FromString("CTX0")}
	s.routing[key] = channel.Bit(0)
	s.messageThresholds[key] = dltid.Verbose
	s.quota = config.NewQuotaLimiters(config.QuotasConfig{
		QuotaEnforcementEnabled: true,
		Throughput:              config.ThroughputConfig{OverallMbps: 0.000001},
	})

	sender, called := captureSender()
	s.FilterAndCall(key.App, key.Ctx, dltid.Error, 10_000_000, sender)
	if len(*called) != 0 {
		t.Fatalf("expected quota to drop the oversized send, got %v", *called)
	}
	if s.channels[0].DropsQuotaExceeded() != 1 {
		t.Fatalf("expected one quota-drop counted, got %d", s.channels[0].DropsQuotaExceeded())
	}
}
