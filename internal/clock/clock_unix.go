//go:build unix

package clock

import "golang.org/x/sys/unix"

// Monotonic reads CLOCK_MONOTONIC directly rather than through
// time.Now(), matching the wire protocol's raw seconds+nanoseconds
// Timestamp (spec §3) without an intermediate time.Time conversion.
type Monotonic struct{}

// Now returns the current monotonic clock reading.
func (Monotonic) Now() (sec int64, nsec int64) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0, 0
	}
	return int64(ts.Sec), int64(ts.Nsec)
}
