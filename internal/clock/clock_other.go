//go:build !unix

package clock

import "time"

// Monotonic falls back to time.Now()'s monotonic reading on platforms
// without CLOCK_MONOTONIC; taskd does not target these platforms (spec
// §1: "local task orchestrator"), but the type still needs to compile.
type Monotonic struct{}

var start = time.Now()

// Now returns a monotonic reading relative to process start.
func (Monotonic) Now() (sec int64, nsec int64) {
	d := time.Since(start)
	return int64(d / time.Second), int64(d % time.Second)
}
