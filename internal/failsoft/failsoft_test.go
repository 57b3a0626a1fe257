package failsoft

import (
	"errors"
	"testing"
)

func TestResult(t *testing.T) {
	ok := OK([]string{"a"})
	if ok.Degraded() {
		t.Error("expected OK result not to be degraded")
	}

	d := Degrade([]string{}, "timeout")
	if !d.Degraded() || d.Reason != "timeout" {
		t.Errorf("expected degraded with reason timeout, got %+v", d)
	}

	blank := Degrade("fallback", "")
	if !blank.Degraded() {
		t.Error("expected blank reason to still mark the result degraded")
	}
}

func TestFromError(t *testing.T) {
	r := FromError("value", errors.New("boom"), "fallback")
	if r.Value != "fallback" || r.Reason != "boom" {
		t.Errorf("expected fallback with reason boom, got %+v", r)
	}
	r = FromError("value", nil, "fallback")
	if r.Value != "value" || r.Degraded() {
		t.Errorf("expected value without degradation, got %+v", r)
	}
}
