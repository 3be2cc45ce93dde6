// Package clock provides the real monotonic time source behind
// interfaces.Clock.
package clock

import (
	"github.com/behrlich/taskd/internal/interfaces"
	"github.com/behrlich/taskd/internal/wire"
)

// Stamp returns a wire.Timestamp for the current instant.
func Stamp(c interfaces.Clock) wire.Timestamp {
	sec, nsec := c.Now()
	return wire.Timestamp{Sec: sec, Nsec: nsec}
}

var _ interfaces.Clock = Monotonic{}
