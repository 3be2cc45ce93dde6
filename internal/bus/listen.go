package bus

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/behrlich/taskd/internal/constants"
)

// ControlFlow is the signal a Listen callback returns: Continue keeps
// the loop going, any other value terminates Listen with that value.
type ControlFlow int

const Continue ControlFlow = 0

// OnMessage is invoked once per validated frame with its payload.
type OnMessage func(payload []byte) ControlFlow

// OnBeforeBlock is invoked whenever the owned FIFO has no more writers
// and Listen is about to reopen it for another blocking read.
type OnBeforeBlock func() ControlFlow

// Listen repeatedly opens the endpoint's own FIFO for reading and
// dispatches validated frames to onMessage, following spec §4.1's loop:
// open, read into a residual-preserving buffer, validate and dispatch
// frames, and on EOF call onBeforeBlock before reopening.
func (e *Endpoint) Listen(onMessage OnMessage, onBeforeBlock OnBeforeBlock) ControlFlow {
	buf := make([]byte, constants.PipeBufSize*constants.ListenBufferMultiple)

	for {
		f, err := os.OpenFile(e.ownPath, os.O_RDONLY, 0)
		if err != nil {
			e.logger.Error("failed to open endpoint FIFO for reading", "path", e.ownPath, "error", err)
			if cf := onBeforeBlock(); cf != Continue {
				return cf
			}
			continue
		}

		cf, terminated := e.drainSession(f, buf, onMessage)
		f.Close()
		if terminated {
			return cf
		}

		if cf := onBeforeBlock(); cf != Continue {
			return cf
		}
	}
}

// drainSession reads from one open FIFO session until EOF (all writers
// gone), dispatching frames as they complete. It returns
// (value, true) if onMessage asked to terminate listening.
func (e *Endpoint) drainSession(f *os.File, buf []byte, onMessage OnMessage) (ControlFlow, bool) {
	residual := 0

	for {
		n, err := f.Read(buf[residual:])
		if n > 0 {
			residual += n
			result := e.dispatchFrames(buf[:residual], onMessage)
			if result.consumed > 0 {
				copy(buf, buf[result.consumed:residual])
				residual -= result.consumed
			}
			if result.terminate {
				// spec §4.1: a nonzero on_message return drains the rest
				// of the currently open FIFO session before terminating
				// listening with that value.
				io.Copy(io.Discard, f)
				return result.value, true
			}
			if result.invalid {
				// spec §4.1: an invalid frame drains the rest of the
				// current session and closes the descriptor.
				io.Copy(io.Discard, f)
				return Continue, false
			}
		}

		if err == io.EOF {
			return Continue, false
		}
		if err != nil {
			e.logger.Error("read failed on endpoint FIFO", "path", e.ownPath, "error", err)
			return Continue, false
		}
		if n == 0 {
			return Continue, false
		}
	}
}

type dispatchResult struct {
	consumed  int
	invalid   bool
	terminate bool
	value     ControlFlow
}

// dispatchFrames validates and delivers as many complete frames as buf
// holds.
func (e *Endpoint) dispatchFrames(buf []byte, onMessage OnMessage) dispatchResult {
	consumed := 0
	for len(buf)-consumed >= constants.FrameHeaderLen+1 {
		window := buf[consumed:]

		magic := binary.LittleEndian.Uint32(window[0:4])
		if magic != constants.FrameMagic {
			e.logger.Warn("dropping frame with bad magic", "path", e.ownPath)
			return dispatchResult{consumed: consumed, invalid: true}
		}

		length := binary.LittleEndian.Uint32(window[4:8])
		if length == 0 || length > constants.MaxFramePayload {
			e.logger.Warn("dropping frame with invalid length", "path", e.ownPath, "length", length)
			return dispatchResult{consumed: consumed, invalid: true}
		}

		total := constants.FrameHeaderLen + int(length)
		if total > len(window) {
			// Incomplete frame; wait for more bytes unless we've hit EOF,
			// in which case the caller's io.EOF branch drops the residual.
			break
		}

		payload := window[constants.FrameHeaderLen:total]
		if cf := onMessage(payload); cf != Continue {
			return dispatchResult{consumed: consumed + total, terminate: true, value: cf}
		}

		consumed += total
	}
	return dispatchResult{consumed: consumed}
}
