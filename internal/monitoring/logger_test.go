package monitoring

import (
	"fmt"
	"testing"
	"time"

	"github.com/banshee-data/climate.report/internal/timeutil"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")

	if !called {
		t.Error("Custom logger was not called")
	}

	// nil installs a no-op logger
	called = false
	SetLogger(nil)
	Logf("test message")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil {
		t.Error("Logf should not be nil by default")
	}
}

func TestStage(t *testing.T) {
	originalLogf := Logf
	defer func() {
		Logf = originalLogf
		SetClock(nil)
	}()

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})

	mock := timeutil.NewMockClock(time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC))
	SetClock(mock)

	done := Stage("load tiles")
	mock.Advance(1500 * time.Millisecond)
	done()

	want := []string{"load tiles: started", "load tiles: done in 1.5s"}
	if len(lines) != len(want) {
		t.Fatalf("got %d log lines, want %d: %q", len(lines), len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}
