package dre

import (
	"github.com/ehrlich-b/dlt-router/internal/channel"
	"github.com/ehrlich-b/dlt-router/internal/dltid"
)

// AssignmentAction is SET_LOG_CHANNEL_ASSIGNMENT's action byte (spec.md
// §4.10/§4.12): Remove=0, Add=1.
type AssignmentAction uint8

const (
	AssignmentRemove AssignmentAction = 0
	AssignmentAdd    AssignmentAction = 1
)

// SetLogLevel implements the SET_LOG_LEVEL handler (spec.md §4.10/§4.12).
// dltid.UseDefaultLevel erases the (appId,ctxId) override so the default
// threshold applies again; any other valid level replaces the entry.
func (s *Server) SetLogLevel(appID, ctxID dltid.ID, level byte) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dltid.Key{App: appID, Ctx: ctxID}
	if level == dltid.UseDefaultLevel {
		delete(s.messageThresholds, key)
		return []byte{RetOK}
	}
	parsed, ok := dltid.ParseLogLevel(level)
	if !ok {
		return []byte{RetError}
	}
	s.messageThresholds[key] = parsed
	return []byte{RetOK}
}

// SetDefaultLogLevel implements SET_DEFAULT_LOG_LEVEL.
func (s *Server) SetDefaultLogLevel(level dltid.LogLevel) []byte {
	s.SetDefaultThreshold(level)
	return []byte{RetOK}
}

// SetLogChannelThreshold implements SET_LOG_CHANNEL_THRESHOLD.
func (s *Server) SetLogChannelThreshold(channelName dltid.ID, level dltid.LogLevel) []byte {
	s.mu.Lock()
	idx, ok := s.channelNums[channelName]
	channels := s.channels
	s.mu.Unlock()
	if !ok {
		return []byte{RetError}
	}
	channels[idx].SetThreshold(level)
	return []byte{RetOK}
}

// SetLogChannelAssignment implements the Add/Remove routing mutation
// (spec.md §4.12): look up the channel index, then under the config mutex
// OR the bit in on Add, AND-NOT it on Remove, erasing the routing entry
// entirely if the result becomes empty.
func (s *Server) SetLogChannelAssignment(appID, ctxID, channelName dltid.ID, action AssignmentAction) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.channelNums[channelName]
	if !ok {
		return []byte{RetError}
	}
	bit := channel.Bit(idx)

	key := dltid.Key{App: appID, Ctx: ctxID}
	switch action {
	case AssignmentAdd:
		s.routing[key] |= bit
	case AssignmentRemove:
		mask := s.routing[key] &^ bit
		if mask == 0 {
			delete(s.routing, key)
		} else {
			s.routing[key] = mask
		}
	default:
		return []byte{RetError}
	}
	return []byte{RetOK}
}

// ReadLogChannelNames implements READ_LOG_CHANNEL_NAMES: RET_OK followed by
// the 4-byte IDs of all channels concatenated, in table order.
func (s *Server) ReadLogChannelNames() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]byte, 0, 1+4*len(s.channels))
	out = append(out, RetOK)
	for _, c := range s.channels {
		out = append(out, c.Name[:]...)
	}
	return out
}

// SetTraceState and SetDefaultTraceState implement SET_TRACE_STATE and
// SET_DEFAULT_TRACE_STATE. Neither carries a payload (spec.md §4.10's
// fixed size of 1, command byte only) and trace-level filtering is not
// part of this core's scope, so both are no-ops that acknowledge the
// command.
func (s *Server) SetTraceState() []byte        { return []byte{RetOK} }
func (s *Server) SetDefaultTraceState() []byte { return []byte{RetOK} }

// SetMessagingFilteringState implements SET_MESSAGING_FILTERING_STATE.
func (s *Server) SetMessagingFilteringState(enabled bool) []byte {
	s.SetFilteringEnabled(enabled)
	return []byte{RetOK}
}

// SetDltOutputEnable implements SET_DLT_OUTPUT_ENABLE.
func (s *Server) SetDltOutputEnable(enabled bool) []byte {
	s.SetDltOutputEnabled(enabled)
	return []byte{RetOK}
}
