package dcp

import (
	"github.com/ehrlich-b/dlt-router/internal/dltid"
	"github.com/ehrlich-b/dlt-router/internal/dre"
)

// SetLogLevel implements CmdSetLogLevel. Level carries dltid.UseDefaultLevel
// as a sentinel distinct from any parsed dltid.LogLevel, so it stays a raw
// byte here and Server.SetLogLevel interprets it.
type SetLogLevel struct {
	AppID, CtxID dltid.ID
	Level        byte
}

func (c SetLogLevel) Execute(s *dre.Server) []byte {
	return s.SetLogLevel(c.AppID, c.CtxID, c.Level)
}

// ResetToDefault implements CmdResetToDefault.
type ResetToDefault struct{}

func (c ResetToDefault) Execute(s *dre.Server) []byte { return s.ResetToDefault() }

// SetMessagingFilteringState implements CmdSetMessagingFilteringState.
type SetMessagingFilteringState struct {
	Enabled bool
}

func (c SetMessagingFilteringState) Execute(s *dre.Server) []byte {
	return s.SetMessagingFilteringState(c.Enabled)
}

// SetLogChannelThreshold implements CmdSetLogChannelThreshold. The
// trailing traceState byte in the wire payload is parsed but ignored, per
// spec.md §4.10's table.
type SetLogChannelThreshold struct {
	Channel dltid.ID
	Level   dltid.LogLevel
}

func (c SetLogChannelThreshold) Execute(s *dre.Server) []byte {
	return s.SetLogChannelThreshold(c.Channel, c.Level)
}

// StoreDltConfig implements CmdStoreDltConfig.
type StoreDltConfig struct{}

func (c StoreDltConfig) Execute(s *dre.Server) []byte { return s.SaveDatabase() }

// SetTraceState implements CmdSetTraceState.
type SetTraceState struct{}

func (c SetTraceState) Execute(s *dre.Server) []byte { return s.SetTraceState() }

// SetDefaultLogLevel implements CmdSetDefaultLogLevel.
type SetDefaultLogLevel struct {
	Level dltid.LogLevel
}

func (c SetDefaultLogLevel) Execute(s *dre.Server) []byte { return s.SetDefaultLogLevel(c.Level) }

// SetDefaultTraceState implements CmdSetDefaultTraceState.
type SetDefaultTraceState struct{}

func (c SetDefaultTraceState) Execute(s *dre.Server) []byte { return s.SetDefaultTraceState() }

// ReadLogChannelNames implements CmdReadLogChannelNames.
type ReadLogChannelNames struct{}

func (c ReadLogChannelNames) Execute(s *dre.Server) []byte { return s.ReadLogChannelNames() }

// SetLogChannelAssignment implements CmdSetLogChannelAssignment.
type SetLogChannelAssignment struct {
	AppID, CtxID, Channel dltid.ID
	Action                dre.AssignmentAction
}

func (c SetLogChannelAssignment) Execute(s *dre.Server) []byte {
	return s.SetLogChannelAssignment(c.AppID, c.CtxID, c.Channel, c.Action)
}

// SetDltOutputEnable implements CmdSetDltOutputEnable.
type SetDltOutputEnable struct {
	Enabled bool
}

func (c SetDltOutputEnable) Execute(s *dre.Server) []byte { return s.SetDltOutputEnable(c.Enabled) }
