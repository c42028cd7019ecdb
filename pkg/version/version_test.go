package version

import "testing"

func TestDefaults(t *testing.T) {
	if Version != "dev" {
		t.Errorf("default Version = %q, want %q", Version, "dev")
	}
	if GitCommit != "unknown" {
		t.Errorf("default GitCommit = %q, want %q", GitCommit, "unknown")
	}
	if BuildDate != "unknown" {
		t.Errorf("default BuildDate = %q, want %q", BuildDate, "unknown")
	}
}

func TestProtocolVersion(t *testing.T) {
	if ProtocolVersion != "1.0.0" {
		t.Errorf("ProtocolVersion = %q, want %q", ProtocolVersion, "1.0.0")
	}
}

func TestCapabilitiesNonEmpty(t *testing.T) {
	if len(Capabilities) == 0 {
		t.Error("expected at least one capability")
	}
}

func TestInfo(t *testing.T) {
	s := Info()
	if s == "" {
		t.Error("Info() should return non-empty string")
	}
}
