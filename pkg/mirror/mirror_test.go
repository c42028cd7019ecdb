package mirror

import "testing"

func TestNew_EmptyAddrIsNoop(t *testing.T) {
	m := New("")
	if m.enabled() {
		t.Fatal("expected disabled mirror for empty addr")
	}
	if err := m.Ping(); err != nil {
		t.Errorf("Ping on disabled mirror should be nil, got %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close on disabled mirror should be nil, got %v", err)
	}
	// Must not panic even though there is no client.
	m.PublishDescriptors(nil)
	m.PublishMeasurements(nil)
}

func TestNew_WithAddrIsEnabled(t *testing.T) {
	m := New("127.0.0.1:6379")
	if !m.enabled() {
		t.Fatal("expected enabled mirror for non-empty addr")
	}
	m.Close()
}
