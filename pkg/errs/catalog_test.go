package errs

import (
	"strings"
	"testing"
)

func TestNewCarriesCodeAndDetail(t *testing.T) {
	err := New(DRPCMissingID, "")
	if err.Code != CodeControl {
		t.Errorf("expected code %s, got %s", CodeControl, err.Code)
	}
	if err.Detail != DRPCMissingID {
		t.Errorf("expected detail %q, got %q", DRPCMissingID, err.Detail)
	}
	if err.Key() != "D2400_RPC_MISSING_ID" {
		t.Errorf("unexpected key: %s", err.Key())
	}
}

func TestErrorMessageIncludesDetail(t *testing.T) {
	err := New(DUnknownDevice, "id=s99")
	msg := err.Error()
	if !strings.Contains(msg, "unknown device") {
		t.Errorf("message missing detail text: %s", msg)
	}
	if !strings.Contains(msg, "s99") {
		t.Errorf("message missing context: %s", msg)
	}
}

func TestErrorMessageWithoutContext(t *testing.T) {
	err := New(DInvalidRequest, "")
	if strings.Contains(err.Error(), "()") {
		t.Errorf("empty context should not render parentheses: %s", err.Error())
	}
}

func TestSessionDropped(t *testing.T) {
	err := SessionDropped("read: EOF")
	if err.Code != CodeSessionDropped {
		t.Errorf("expected code %s, got %s", CodeSessionDropped, err.Code)
	}
	if err.Key() != "D2410_SESSION_DROPPED" {
		t.Errorf("unexpected key: %s", err.Key())
	}
}

func TestAllDetailsHaveKeys(t *testing.T) {
	for d := range detailKeys {
		e := &Err{Code: CodeControl, Detail: d}
		if e.Key() == "D2400_UNKNOWN" {
			t.Errorf("detail %q missing a stable key", d)
		}
	}
}
