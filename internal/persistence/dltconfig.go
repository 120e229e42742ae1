package persistence

import "encoding/json"

// dltConfigKey and dltOutputEnabledKey are the two persistence keys this
// daemon owns (spec.md §6).
const (
	dltConfigKey        = "dltConfig"
	dltOutputEnabledKey = "dltOutputEnabled"
)

// DltConfigSnapshot is the decoded form of the opaque "dltConfig" string:
// everything a DCP session can mutate at runtime (spec.md §3's
// PersistentConfig). Map keys use "<AppId>/<CtxId>" for per-(app,ctx)
// entries and bare channel names for per-channel entries, since JSON object
// keys must be strings.
type DltConfigSnapshot struct {
	Channels           map[string]string `json:"channels"`
	ChannelAssignments map[string]uint64 `json:"channelAssignments"`
	FilteringEnabled   bool              `json:"filteringEnabled"`

	// DefaultThreshold is the correctly-spelled key. DefaultThresold is the
	// legacy misspelling spec.md §9 requires writers to keep emitting for
	// backward compatibility with existing stores; LoadDltConfig folds both
	// into DefaultThreshold, preferring the correct spelling when a store
	// somehow carries both.
	DefaultThreshold string `json:"defaultThreshold,omitempty"`
	DefaultThresold  string `json:"defaultThresold,omitempty"`

	MessageThresholds map[string]string `json:"messageThresholds"`
}

// SaveDltConfig serializes snapshot and writes it to the "dltConfig" key.
// Per spec.md §9's documented current-source behavior, the correctly-spelled
// DefaultThreshold field is never written; only the legacy DefaultThresold
// key reaches disk.
func (s *Store) SaveDltConfig(snapshot DltConfigSnapshot) error {
	snapshot.DefaultThresold = snapshot.DefaultThreshold
	snapshot.DefaultThreshold = ""
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return s.SetString(dltConfigKey, string(data))
}

// LoadDltConfig reads and decodes the "dltConfig" key. Its second result is
// false if no config has ever been saved. DefaultThreshold is resolved from
// whichever of the two spellings is present, preferring the correctly
// spelled key when both are.
func (s *Store) LoadDltConfig() (DltConfigSnapshot, bool) {
	raw, found := s.GetString(dltConfigKey)
	if !found {
		return DltConfigSnapshot{}, false
	}
	var snap DltConfigSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return DltConfigSnapshot{}, false
	}
	if snap.DefaultThreshold == "" {
		snap.DefaultThreshold = snap.DefaultThresold
	}
	return snap, true
}

// ClearDltConfig removes the "dltConfig" key, implementing clear_database's
// reset-to-static-config behavior.
func (s *Store) ClearDltConfig() error {
	return s.Delete(dltConfigKey)
}

// GetDltOutputEnabled and SetDltOutputEnabled back the "dltOutputEnabled"
// persistence key directly; it is a bare boolean, not part of the opaque
// dltConfig blob.
func (s *Store) GetDltOutputEnabled() (bool, bool) {
	return s.GetBool(dltOutputEnabledKey)
}

func (s *Store) SetDltOutputEnabled(enabled bool) error {
	return s.SetBool(dltOutputEnabledKey, enabled)
}
