package registry

import (
	"sync"
	"testing"

	"github.com/stonegate-lab/stonegate/pkg/device"
)

func TestRegister_GetRoundTrip(t *testing.T) {
	r := New()
	tc := device.NewThermocouple("s1", 25.0)
	r.Register(tc)

	got, ok := r.Get("s1")
	if !ok {
		t.Fatal("expected s1 to be registered")
	}
	if got.ID() != "s1" {
		t.Errorf("got.ID() = %q, want s1", got.ID())
	}
}

func TestGet_UnknownDevice(t *testing.T) {
	r := New()
	if _, ok := r.Get("missing"); ok {
		t.Error("expected ok=false for unregistered id")
	}
}

func TestPollAll_IDsMatchDevices(t *testing.T) {
	r := New()
	r.Register(device.NewThermocouple("s1", 25.0))
	r.Register(device.NewPhotonicDetector("s2", 1000, 5))

	for _, entry := range r.PollAll() {
		d, ok := r.Get(entry.ID)
		if !ok {
			t.Fatalf("poll_all produced unknown id %q", entry.ID)
		}
		if entry.ID != d.ID() {
			t.Errorf("entry.ID = %q, d.ID() = %q", entry.ID, d.ID())
		}
	}
}

func TestPollAll_EachDeviceExactlyOnce(t *testing.T) {
	r := New()
	for i := 0; i < 10; i++ {
		r.Register(device.NewThermocouple(string(rune('a'+i)), 25.0))
	}

	entries := r.PollAll()
	if len(entries) != 10 {
		t.Fatalf("len(entries) = %d, want 10", len(entries))
	}
	seen := make(map[string]int)
	for _, e := range entries {
		seen[e.ID]++
	}
	for id, count := range seen {
		if count != 1 {
			t.Errorf("device %q appeared %d times in poll_all, want 1", id, count)
		}
	}
}

func TestPollAll_DefaultsToNominalState(t *testing.T) {
	r := New()
	r.Register(device.NewThermocouple("s1", 25.0))
	entries := r.PollAll()
	if entries[0].Measurement.State != StateNominal {
		t.Errorf("state = %q, want nominal", entries[0].Measurement.State)
	}
}

func TestPollAll_ConcurrentWithRegister(t *testing.T) {
	r := New()
	for i := 0; i < 20; i++ {
		r.Register(device.NewThermocouple(string(rune('a'+i)), 25.0))
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			r.PollAll()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			r.Register(device.NewPhotonicDetector(string(rune('A'+i)), 1000, 5))
		}
	}()
	wg.Wait()
}

func TestDescriptorGraph_ReturnsAllDevices(t *testing.T) {
	r := New()
	r.Register(device.NewThermocouple("s1", 25.0))
	r.Register(device.NewLaserController("l1", 0, 1))

	descs := r.DescriptorGraph()
	if len(descs) != 2 {
		t.Fatalf("len(descs) = %d, want 2", len(descs))
	}
}

func TestForEach_VisitsAllUnderLock(t *testing.T) {
	r := New()
	r.Register(device.NewThermocouple("s1", 25.0))
	r.Register(device.NewThermocouple("s2", 25.0))

	visited := 0
	r.ForEach(func(d device.Device) { visited++ })
	if visited != 2 {
		t.Errorf("visited = %d, want 2", visited)
	}
}
