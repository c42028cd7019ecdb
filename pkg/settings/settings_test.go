package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSettings_Defaults(t *testing.T) {
	s := &Settings{}

	if got := s.GetGraphPath(); got != DefaultGraphPath {
		t.Errorf("GetGraphPath() default = %q, want %q", got, DefaultGraphPath)
	}
	if s.RedisAddr != "" {
		t.Errorf("RedisAddr should be empty, got %q", s.RedisAddr)
	}
}

func TestSettings_Clear(t *testing.T) {
	s := &Settings{
		DefaultPort: 9001,
		GraphPath:   "/path/DeviceGraph.json",
		RedisAddr:   "localhost:6379",
		Verbose:     true,
	}

	s.Clear()

	if s.DefaultPort != 0 || s.GraphPath != "" || s.RedisAddr != "" || s.Verbose {
		t.Error("Clear() should reset all fields to zero values")
	}
}

func TestSettings_SaveLoad(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "stonegate-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "config.yaml")

	original := &Settings{
		DefaultPort: 8080,
		GraphPath:   "/etc/stonegate/DeviceGraph.json",
		RedisAddr:   "localhost:6379",
		LogJSON:     true,
	}

	if err := original.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() failed: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}

	if loaded.DefaultPort != original.DefaultPort {
		t.Errorf("DefaultPort mismatch: got %d, want %d", loaded.DefaultPort, original.DefaultPort)
	}
	if loaded.GraphPath != original.GraphPath {
		t.Errorf("GraphPath mismatch: got %q, want %q", loaded.GraphPath, original.GraphPath)
	}
	if loaded.RedisAddr != original.RedisAddr {
		t.Errorf("RedisAddr mismatch: got %q, want %q", loaded.RedisAddr, original.RedisAddr)
	}
	if loaded.LogJSON != original.LogJSON {
		t.Errorf("LogJSON mismatch: got %v, want %v", loaded.LogJSON, original.LogJSON)
	}
}

func TestSettings_LoadNonExistent(t *testing.T) {
	s, err := LoadFrom("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("LoadFrom() non-existent should not error: %v", err)
	}
	if s == nil {
		t.Fatal("LoadFrom() should return non-nil Settings")
	}
	if s.GraphPath != "" {
		t.Error("LoadFrom() non-existent should return empty settings")
	}
}

func TestSettings_LoadInvalidYAML(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "stonegate-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(path, []byte("default_port: [not, a, scalar"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	if _, err := LoadFrom(path); err == nil {
		t.Error("LoadFrom() with invalid YAML should error")
	}
}

func TestSettings_SaveCreatesDirectory(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "stonegate-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "subdir", "nested", "config.yaml")

	s := &Settings{DefaultPort: 9001}
	if err := s.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() should create directories: %v", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("SaveTo() should have created the file")
	}
}

func TestDefaultSettingsPath(t *testing.T) {
	path := DefaultSettingsPath()
	if path == "" {
		t.Error("DefaultSettingsPath() should not be empty")
	}
}
