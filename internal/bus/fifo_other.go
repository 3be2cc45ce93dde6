//go:build !unix

package bus

import "github.com/behrlich/taskd"

// mkfifo has no equivalent outside POSIX platforms; the message bus is
// inherently a local, filesystem-FIFO design and does not target
// non-unix hosts (spec §1: "local task orchestrator").
func mkfifo(path string, mode uint32) error {
	return taskd.NewError("bus.mkfifo", taskd.KindDomain, "named pipes are not supported on this platform")
}
