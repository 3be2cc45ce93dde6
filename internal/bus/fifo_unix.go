//go:build unix

// Package bus implements taskd's message bus: bidirectional, framed
// datagram exchange between the server and transient clients over a
// pair of named FIFOs (spec §4.1).
package bus

import "golang.org/x/sys/unix"

// mkfifo creates a named pipe at path with the given permission mode.
// The standard library has no FIFO constructor; golang.org/x/sys/unix
// is the idiomatic way to reach the underlying mkfifo(2) syscall.
func mkfifo(path string, mode uint32) error {
	return unix.Mkfifo(path, mode)
}
