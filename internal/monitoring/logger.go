package monitoring

import (
	"log"
	"time"

	"github.com/banshee-data/climate.report/internal/timeutil"
)

// Logf is the package-level diagnostic logger used by the chart pipelines.
// It defaults to log.Printf; tests may redirect or mute it with SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

var clock timeutil.Clock = timeutil.RealClock{}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetClock replaces the clock used for stage timings. Passing nil restores
// the wall clock.
func SetClock(c timeutil.Clock) {
	if c == nil {
		c = timeutil.RealClock{}
	}
	clock = c
}

// Stage logs the start of a named pipeline stage and returns a func that
// logs its completion with the elapsed time. Typical use:
//
//	defer monitoring.Stage("load regions")()
func Stage(name string) func() {
	start := clock.Now()
	Logf("%s: started", name)
	return func() {
		Logf("%s: done in %s", name, clock.Since(start).Round(time.Millisecond))
	}
}
