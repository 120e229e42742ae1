package dre

import "github.com/ehrlich-b/dlt-router/internal/persistence"

// SaveDatabase implements STORE_DLT_CONFIG: it snapshots the mutable
// routing/threshold/filtering state into the opaque persistence blob
// (spec.md §4.7's save_database).
func (s *Server) SaveDatabase() []byte {
	if s.store == nil {
		return []byte{RetOK}
	}

	s.mu.Lock()
	snap := persistence.DltConfigSnapshot{
		Channels:           make(map[string]string, len(s.channels)),
		ChannelAssignments: make(map[string]uint64, len(s.routing)),
		FilteringEnabled:   s.filteringEnabled.Load(),
		DefaultThreshold:   s.defaultThreshold.String(),
		MessageThresholds:  make(map[string]string, len(s.messageThresholds)),
	}
	for _, c := range s.channels {
		snap.Channels[c.Name.String()] = c.Threshold().String()
	}
	for key, mask := range s.routing {
		snap.ChannelAssignments[keyToString(key)] = uint64(mask)
	}
	for key, level := range s.messageThresholds {
		snap.MessageThresholds[keyToString(key)] = level.String()
	}
	s.mu.Unlock()

	if err := s.store.SaveDltConfig(snap); err != nil {
		if s.logf != nil {
			s.logf("dre: save_database failed: %v", err)
		}
		return []byte{RetError}
	}
	return []byte{RetOK}
}

// ClearDatabase drops any persisted overlay, implementing clear_database's
// reset-to-static-config behavior. It does not itself rebuild the channel
// table; callers that want RESET_TO_DEFAULT semantics should call
// Server.ResetToDefault instead, which also re-derives routing state.
func (s *Server) ClearDatabase() error {
	if s.store == nil {
		return nil
	}
	return s.store.ClearDltConfig()
}
