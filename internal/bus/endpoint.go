package bus

import (
	"encoding/binary"
	"errors"
	"os"
	"syscall"
	"time"

	"github.com/behrlich/taskd"
	"github.com/behrlich/taskd/internal/bufpool"
	"github.com/behrlich/taskd/internal/constants"
	"github.com/behrlich/taskd/internal/logging"
)

// Role distinguishes which side of the bus an Endpoint plays.
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

// Endpoint is one side of the message bus (spec §4.1). It owns a FIFO
// at a well-known path for reading, and a deferred send-side file
// descriptor for writing to its peer.
type Endpoint struct {
	role    Role
	ownPath string
	send    *os.File
	logger  *logging.Logger
}

// NewServerEndpoint creates the server's own FIFO. Failure because the
// path already exists means another server is running (spec §7:
// already-exists).
func NewServerEndpoint(path string) (*Endpoint, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	if err := mkfifo(path, constants.ServerFIFOMode); err != nil {
		if errors.Is(err, os.ErrExist) || isErrno(err, syscall.EEXIST) {
			return nil, taskd.NewError("bus.NewServerEndpoint", taskd.KindAlreadyExists, "server FIFO already present: "+path)
		}
		return nil, taskd.WrapError("bus.NewServerEndpoint", taskd.KindInvalidArgument, err)
	}
	return &Endpoint{role: RoleServer, ownPath: path, logger: logging.Default()}, nil
}

// NewClientEndpoint creates the client's own FIFO at ownPath, then opens
// the server's FIFO for writing. The open blocks until the server is
// listening for reads, which is the desired synchronization (spec
// §4.1): a client cannot proceed until a server exists to receive it.
func NewClientEndpoint(ownPath, serverPath string) (*Endpoint, error) {
	if err := ensureDir(ownPath); err != nil {
		return nil, err
	}
	if err := mkfifo(ownPath, constants.ClientFIFOMode); err != nil && !isErrno(err, syscall.EEXIST) {
		return nil, taskd.WrapError("bus.NewClientEndpoint", taskd.KindInvalidArgument, err)
	}

	e := &Endpoint{role: RoleClient, ownPath: ownPath, logger: logging.Default()}
	f, err := os.OpenFile(serverPath, os.O_WRONLY, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, taskd.NewError("bus.NewClientEndpoint", taskd.KindNotFound, "server FIFO not found: "+serverPath)
		}
		return nil, taskd.WrapError("bus.NewClientEndpoint", taskd.KindInvalidArgument, err)
	}
	e.send = f
	return e, nil
}

// NewSendOnlyEndpoint returns an Endpoint with no FIFO of its own,
// suitable for a process that only ever reports a message to a peer
// and exits: a task runner reporting TASK_DONE, or a status reader
// streaming STATUS_RESP to a client before doing the same (spec §4.7,
// §4.8).
func NewSendOnlyEndpoint() *Endpoint {
	return &Endpoint{logger: logging.Default()}
}

// OpenSending opens peerPath for writing. The server calls this lazily
// per client rather than at construction (spec §4.1: "the server's
// send-side is deferred").
func (e *Endpoint) OpenSending(peerPath string) error {
	if e.send != nil {
		e.send.Close()
		e.send = nil
	}
	f, err := os.OpenFile(peerPath, os.O_WRONLY, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return taskd.NewError("bus.OpenSending", taskd.KindNotFound, "peer FIFO not found: "+peerPath)
		}
		return taskd.WrapError("bus.OpenSending", taskd.KindInvalidArgument, err)
	}
	e.send = f
	return nil
}

// CloseSending closes the deferred send-side descriptor, if open.
func (e *Endpoint) CloseSending() error {
	if e.send == nil {
		return nil
	}
	err := e.send.Close()
	e.send = nil
	return err
}

// OwnPath returns the endpoint's own FIFO path.
func (e *Endpoint) OwnPath() string {
	return e.ownPath
}

// Close removes the endpoint's own FIFO from the filesystem and closes
// any open send-side descriptor.
func (e *Endpoint) Close() error {
	e.CloseSending()
	return os.Remove(e.ownPath)
}

// Send frames payload (magic + length header) and issues it as one
// write. Because header+payload never exceeds PIPE_BUF, the write is
// atomic and requires no reader-side reassembly at the OS level (spec
// §4.1). Fails with invalid-argument if the send side isn't open, and
// message-size if payload doesn't fit.
func (e *Endpoint) Send(payload []byte) error {
	if e.send == nil {
		return taskd.NewError("bus.Send", taskd.KindInvalidArgument, "send side not open")
	}
	if len(payload) == 0 || len(payload) > constants.MaxFramePayload {
		return taskd.NewError("bus.Send", taskd.KindMessageSize, "payload length out of bounds")
	}

	_, err := writeFrame(e.send, payload)
	if err != nil {
		return taskd.WrapError("bus.Send", taskd.KindInvalidArgument, err)
	}
	return nil
}

// SendRetrying behaves like Send but tolerates a broken peer: on EPIPE
// or EINTR it reopens peerPath and reissues the write, up to attempts
// times, returning timed-out on exhaustion (spec §4.1).
func (e *Endpoint) SendRetrying(peerPath string, payload []byte, attempts int, delay time.Duration) error {
	if len(payload) == 0 || len(payload) > constants.MaxFramePayload {
		return taskd.NewError("bus.SendRetrying", taskd.KindMessageSize, "payload length out of bounds")
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if e.send == nil {
			if err := e.OpenSending(peerPath); err != nil {
				lastErr = err
				time.Sleep(delay)
				continue
			}
		}

		_, err := writeFrame(e.send, payload)
		if err == nil {
			return nil
		}

		lastErr = err
		if isErrno(err, syscall.EPIPE) || isErrno(err, syscall.EINTR) {
			e.CloseSending()
			time.Sleep(delay)
			continue
		}
		return taskd.WrapError("bus.SendRetrying", taskd.KindInvalidArgument, err)
	}

	return taskd.WrapError("bus.SendRetrying", taskd.KindTimedOut, lastErr)
}

// writeFrame builds the magic+length header plus payload in a pooled
// buffer and issues one write. The buffer never outlives this call, so
// it always goes back to the pool before returning.
func writeFrame(f *os.File, payload []byte) (int, error) {
	frame := bufpool.Get(uint32(constants.FrameHeaderLen + len(payload)))
	defer bufpool.Put(frame)
	binary.LittleEndian.PutUint32(frame[0:4], constants.FrameMagic)
	binary.LittleEndian.PutUint32(frame[4:8], uint32(len(payload)))
	copy(frame[constants.FrameHeaderLen:], payload)
	return f.Write(frame)
}

func isErrno(err error, target syscall.Errno) bool {
	var errno syscall.Errno
	return errors.As(err, &errno) && errno == target
}

func ensureDir(path string) error {
	dir := parentDir(path)
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return taskd.WrapError("bus.ensureDir", taskd.KindInvalidArgument, err)
	}
	return nil
}

func parentDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return ""
}
