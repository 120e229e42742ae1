package persistence

import "testing"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStringRoundTrip(t *testing.T) {
	s := newTestStore(t)
	if _, found := s.GetString("missing"); found {
		t.Fatal("expected missing key to report not found")
	}
	if err := s.SetString("k", "v"); err != nil {
		t.Fatalf("SetString: %v", err)
	}
	if v, found := s.GetString("k"); !found || v != "v" {
		t.Fatalf("GetString = (%q, %v), want (\"v\", true)", v, found)
	}
}

func TestBoolRoundTrip(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetBool("flag", true); err != nil {
		t.Fatalf("SetBool: %v", err)
	}
	if v, found := s.GetBool("flag"); !found || !v {
		t.Fatalf("GetBool = (%v, %v), want (true, true)", v, found)
	}
	if err := s.SetBool("flag", false); err != nil {
		t.Fatalf("SetBool: %v", err)
	}
	if v, found := s.GetBool("flag"); !found || v {
		t.Fatalf("GetBool = (%v, %v), want (false, true)", v, found)
	}
}

func TestDltConfigWritesOnlyLegacyKey(t *testing.T) {
	s := newTestStore(t)
	snap := DltConfigSnapshot{
		Channels:          map[string]string{"DFLT": "Error"},
		FilteringEnabled:  true,
		DefaultThreshold:  "Verbose",
		MessageThresholds: map[string]string{},
	}
	if err := s.SaveDltConfig(snap); err != nil {
		t.Fatalf("SaveDltConfig: %v", err)
	}

	raw, found := s.GetString(dltConfigKey)
	if !found {
		t.Fatal("dltConfig key not written")
	}
	if contains(raw, `"defaultThreshold"`) {
		t.Fatalf("raw config should not contain the correctly-spelled key: %s", raw)
	}
	if !contains(raw, `"defaultThresold":"Verbose"`) {
		t.Fatalf("raw config should contain the legacy key: %s", raw)
	}
}

func TestDltConfigPrefersCorrectSpellingOnRead(t *testing.T) {
	s := newTestStore(t)
	// Simulate a store carrying both spellings, as a future migrated writer might.
	if err := s.SetString(dltConfigKey, `{"channels":{},"messageThresholds":{},"defaultThreshold":"Info","defaultThresold":"Fatal"}`); err != nil {
		t.Fatalf("SetString: %v", err)
	}
	snap, found := s.LoadDltConfig()
	if !found {
		t.Fatal("expected LoadDltConfig to find the seeded value")
	}
	if snap.DefaultThreshold != "Info" {
		t.Fatalf("DefaultThreshold = %q, want %q (preferring correct spelling)", snap.DefaultThreshold, "Info")
	}
}

func TestDltConfigFallsBackToLegacySpelling(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetString(dltConfigKey, `{"channels":{},"messageThresholds":{},"defaultThresold":"Fatal"}`); err != nil {
		t.Fatalf("SetString: %v", err)
	}
	snap, found := s.LoadDltConfig()
	if !found {
		t.Fatal("expected LoadDltConfig to find the seeded value")
	}
	if snap.DefaultThreshold != "Fatal" {
		t.Fatalf("DefaultThreshold = %q, want %q (falling back to legacy spelling)", snap.DefaultThreshold, "Fatal")
	}
}

func TestClearDltConfig(t *testing.T) {
	s := newTestStore(t)
	_ = s.SaveDltConfig(DltConfigSnapshot{})
	if err := s.ClearDltConfig(); err != nil {
		t.Fatalf("ClearDltConfig: %v", err)
	}
	if _, found := s.GetString(dltConfigKey); found {
		t.Fatal("expected dltConfig key to be gone after ClearDltConfig")
	}
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
