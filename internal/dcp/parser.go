// Package dcp implements the diagnostic configuration protocol: the
// DiagnosticJobParser that turns a raw command byte string into a typed
// Command, and the UnixDomainServer transport that frames and dispatches
// those commands over an AF_UNIX SOCK_STREAM connection.
package dcp

import (
	"github.com/ehrlich-b/dlt-router/internal/dltid"
	"github.com/ehrlich-b/dlt-router/internal/dre"
)

// CmdID is the first byte of every DCP command (spec.md §4.10's table).
type CmdID uint8

const (
	CmdSetLogLevel                CmdID = 0
	CmdResetToDefault             CmdID = 1
	CmdSetMessagingFilteringState CmdID = 2
	CmdSetLogChannelThreshold     CmdID = 3
	CmdStoreDltConfig             CmdID = 4
	CmdSetTraceState              CmdID = 5
	CmdSetDefaultLogLevel         CmdID = 6
	CmdSetDefaultTraceState       CmdID = 7
	CmdReadLogChannelNames        CmdID = 8
	CmdSetLogChannelAssignment    CmdID = 9
	CmdSetDltOutputEnable         CmdID = 10
)

// fixedSize is the exact byte count (CmdId included) each command requires;
// any other length is a parse failure (spec.md §4.10: "Wrong size → nil").
var fixedSize = map[CmdID]int{
	CmdSetLogLevel:                10,
	CmdResetToDefault:             1,
	CmdSetMessagingFilteringState: 2,
	CmdSetLogChannelThreshold:     7,
	CmdStoreDltConfig:             1,
	CmdSetTraceState:              1,
	CmdSetDefaultLogLevel:         2,
	CmdSetDefaultTraceState:       1,
	CmdReadLogChannelNames:        1,
	CmdSetLogChannelAssignment:    14,
	CmdSetDltOutputEnable:         2,
}

// Command is a closed tagged union realizing spec.md §9's preference for a
// tagged variant over virtual dispatch: one concrete struct per row of
// §4.10's table, each calling exactly one dre.Server method.
type Command interface {
	Execute(s *dre.Server) []byte
}

// Parse turns a raw command byte string into a Command, or (nil, false) if
// the input is malformed (wrong size, unknown CmdId, or an invalid enum
// value inside an otherwise well-sized payload).
func Parse(data []byte) (Command, bool) {
	if len(data) == 0 {
		return nil, false
	}
	id := CmdID(data[0])
	want, known := fixedSize[id]
	if !known || len(data) != want {
		return nil, false
	}

	switch id {
	case CmdSetLogLevel:
		appID, ctxID := extractID4(data[1:5]), extractID4(data[5:9])
		level := data[9]
		if level != dltid.UseDefaultLevel {
			if _, ok := dltid.ParseLogLevel(level); !ok {
				return nil, false
			}
		}
		return SetLogLevel{AppID: appID, CtxID: ctxID, Level: level}, true

	case CmdResetToDefault:
		return ResetToDefault{}, true

	case CmdSetMessagingFilteringState:
		enabled, ok := parseBoolByte(data[1])
		if !ok {
			return nil, false
		}
		return SetMessagingFilteringState{Enabled: enabled}, true

	case CmdSetLogChannelThreshold:
		channelName := extractID4(data[1:5])
		level, ok := dltid.ParseLogLevel(data[5])
		if !ok {
			return nil, false
		}
		return SetLogChannelThreshold{Channel: channelName, Level: level}, true

	case CmdStoreDltConfig:
		return StoreDltConfig{}, true

	case CmdSetTraceState:
		return SetTraceState{}, true

	case CmdSetDefaultLogLevel:
		level, ok := dltid.ParseLogLevel(data[1])
		if !ok {
			return nil, false
		}
		return SetDefaultLogLevel{Level: level}, true

	case CmdSetDefaultTraceState:
		return SetDefaultTraceState{}, true

	case CmdReadLogChannelNames:
		return ReadLogChannelNames{}, true

	case CmdSetLogChannelAssignment:
		appID, ctxID := extractID4(data[1:5]), extractID4(data[5:9])
		channelName := extractID4(data[9:13])
		action, ok := parseAssignmentAction(data[13])
		if !ok {
			return nil, false
		}
		return SetLogChannelAssignment{AppID: appID, CtxID: ctxID, Channel: channelName, Action: action}, true

	case CmdSetDltOutputEnable:
		enabled, ok := parseBoolByte(data[1])
		if !ok {
			return nil, false
		}
		return SetDltOutputEnable{Enabled: enabled}, true

	default:
		return nil, false
	}
}

// extractID4 copies exactly 4 bytes into a dltid.ID. Callers only ever
// invoke this after fixedSize has already confirmed the slice has enough
// bytes, matching spec.md §4.10's "shorter input is a parse failure, not a
// truncation" rule (the failure already happened at the length check).
func extractID4(b []byte) dltid.ID {
	var id dltid.ID
	copy(id[:], b)
	return id
}

func parseBoolByte(b byte) (bool, bool) {
	switch b {
	case 0:
		return false, true
	case 1:
		return true, true
	default:
		return false, false
	}
}

func parseAssignmentAction(b byte) (dre.AssignmentAction, bool) {
	switch b {
	case byte(dre.AssignmentRemove):
		return dre.AssignmentRemove, true
	case byte(dre.AssignmentAdd):
		return dre.AssignmentAdd, true
	default:
		return 0, false
	}
}
