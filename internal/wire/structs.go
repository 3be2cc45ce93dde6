// Package wire implements taskd's on-FIFO protocol codec: a tagged union
// of fixed-prefix, variable-tail messages discriminated by a single
// leading byte, matching the packed-struct wire layout the message bus
// exchanges between the server and its transient clients.
package wire

import "fmt"

// MessageType is the leading discriminant byte of a frame's payload.
type MessageType uint8

const (
	MsgSendProgram MessageType = 1
	MsgSendTask    MessageType = 2
	MsgTaskDone    MessageType = 3
	MsgStatus      MessageType = 4
	MsgError       MessageType = 5
	MsgTaskID      MessageType = 6
	MsgStatusResp  MessageType = 7
)

func (t MessageType) String() string {
	switch t {
	case MsgSendProgram:
		return "SEND_PROGRAM"
	case MsgSendTask:
		return "SEND_TASK"
	case MsgTaskDone:
		return "TASK_DONE"
	case MsgStatus:
		return "STATUS"
	case MsgError:
		return "ERROR"
	case MsgTaskID:
		return "TASK_ID"
	case MsgStatusResp:
		return "STATUS_RESP"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
	}
}

// Timestamp is a monotonic clock reading, seconds plus nanoseconds. The
// zero value represents "not set" (spec §3's absent stamp).
type Timestamp struct {
	Sec  int64
	Nsec int64
}

// IsZero reports whether the timestamp has never been stamped.
func (t Timestamp) IsZero() bool {
	return t.Sec == 0 && t.Nsec == 0
}

// TaskStatus classifies a TaggedTask for a STATUS_RESP record (spec
// §4.8's "status inferred").
type TaskStatus uint8

const (
	StatusDone TaskStatus = iota
	StatusExecuting
	StatusQueued
)

func (s TaskStatus) String() string {
	switch s {
	case StatusDone:
		return "DONE"
	case StatusExecuting:
		return "EXECUTING"
	case StatusQueued:
		return "QUEUED"
	default:
		return "UNKNOWN"
	}
}

// SendProgram is a C->S request submitting a single, non-pipelined
// command (spec §4.2: "First forbids pipes").
type SendProgram struct {
	ClientPID   uint32
	SentTS      Timestamp
	ExpectedMS  uint32
	CommandLine string
}

// SendTask is a C->S request submitting a command line that may parse
// into a pipeline.
type SendTask struct {
	ClientPID   uint32
	SentTS      Timestamp
	ExpectedMS  uint32
	CommandLine string
}

// TaskDone is sent by a forked runner or status child back to the
// server FIFO on completion.
type TaskDone struct {
	Slot     uint32
	EndedTS  Timestamp
	IsStatus bool
	Error    bool
}

// Status is a C->S request to enumerate queued/running/completed tasks.
type Status struct {
	ClientPID uint32
}

// ErrorMsg is an S->C reply carrying a human-readable failure reason.
type ErrorMsg struct {
	Text string
}

// TaskID is an S->C submission receipt.
type TaskID struct {
	ID uint32
}

// StatusResp is one S->C record in a status response stream.
type StatusResp struct {
	Status      TaskStatus
	ID          uint32
	Error       bool
	C2SFifoUs   float64
	WaitingUs   float64
	ExecutingUs float64
	S2SFifoUs   float64
	CommandLine string
}

// Message is the tagged union decoded from a frame payload.
type Message interface {
	Type() MessageType
}

func (SendProgram) Type() MessageType { return MsgSendProgram }
func (SendTask) Type() MessageType    { return MsgSendTask }
func (TaskDone) Type() MessageType    { return MsgTaskDone }
func (Status) Type() MessageType      { return MsgStatus }
func (ErrorMsg) Type() MessageType    { return MsgError }
func (TaskID) Type() MessageType      { return MsgTaskID }
func (StatusResp) Type() MessageType  { return MsgStatusResp }
