package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = fmt.Sprintf(format, v...)
	})
	Logf("segment %d", 3)
	if got != "segment 3" {
		t.Errorf("custom logger got %q, want %q", got, "segment 3")
	}

	got = ""
	SetLogger(nil)
	Logf("muted")
	if got != "" {
		t.Errorf("no-op logger should not reach previous sink, got %q", got)
	}
}

func TestTracef_DefaultIsNoop(t *testing.T) {
	original := Tracef
	defer func() { Tracef = original }()

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("Tracef panicked: %v", r)
		}
	}()
	Tracef("frame %d", 1)
}

func TestSetTraceLogger(t *testing.T) {
	original := Tracef
	defer func() { Tracef = original }()

	calls := 0
	SetTraceLogger(func(string, ...interface{}) { calls++ })
	Tracef("a")
	Tracef("b")
	if calls != 2 {
		t.Errorf("trace calls = %d, want 2", calls)
	}

	SetTraceLogger(nil)
	Tracef("c")
	if calls != 2 {
		t.Errorf("trace calls after reset = %d, want 2", calls)
	}
}
