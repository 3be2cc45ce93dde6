package wire

import (
	"encoding/binary"
	"math"

	"github.com/behrlich/taskd/internal/constants"

	"github.com/behrlich/taskd"
)

// Fixed prefix sizes, discriminant byte included, for each message type.
const (
	sendProgramPrefixLen = 1 + 4 + 8 + 8 + 4
	taskDonePrefixLen    = 1 + 4 + 8 + 8 + 1 + 1
	statusPrefixLen      = 1 + 4
	taskIDPrefixLen      = 1 + 4
	statusRespPrefixLen  = 1 + 1 + 4 + 1 + 8*4
)

// MaxCommandLine is the largest command_line tail a frame can carry
// given the bus's maximum payload (spec §4.1: MAX = PIPE_BUF - 8) and
// the SEND_TASK fixed prefix.
const MaxCommandLine = constants.MaxFramePayload - sendProgramPrefixLen

// Encode serializes a Message into a frame payload (discriminant byte
// plus packed fields), ready for the message bus to frame and send.
func Encode(msg Message) ([]byte, error) {
	switch m := msg.(type) {
	case SendProgram:
		return encodeCommandMessage(MsgSendProgram, m.ClientPID, m.SentTS, m.ExpectedMS, m.CommandLine)
	case SendTask:
		return encodeCommandMessage(MsgSendTask, m.ClientPID, m.SentTS, m.ExpectedMS, m.CommandLine)
	case TaskDone:
		return encodeTaskDone(m)
	case Status:
		return encodeStatus(m)
	case ErrorMsg:
		return encodeErrorMsg(m)
	case TaskID:
		return encodeTaskID(m)
	case StatusResp:
		return encodeStatusResp(m)
	default:
		return nil, taskd.NewError("wire.Encode", taskd.KindInvalidArgument, "unknown message type")
	}
}

// Decode inspects the leading discriminant byte and deserializes the
// rest of payload into the matching Message variant.
func Decode(payload []byte) (Message, error) {
	if len(payload) < 1 {
		return nil, taskd.NewError("wire.Decode", taskd.KindMessageSize, "empty payload")
	}
	switch MessageType(payload[0]) {
	case MsgSendProgram:
		return decodeCommandMessage(MsgSendProgram, payload)
	case MsgSendTask:
		return decodeCommandMessage(MsgSendTask, payload)
	case MsgTaskDone:
		return decodeTaskDone(payload)
	case MsgStatus:
		return decodeStatus(payload)
	case MsgError:
		return decodeErrorMsg(payload)
	case MsgTaskID:
		return decodeTaskID(payload)
	case MsgStatusResp:
		return decodeStatusResp(payload)
	default:
		return nil, taskd.NewError("wire.Decode", taskd.KindInvalidArgument, "unknown message discriminant")
	}
}

func putTimestamp(buf []byte, ts Timestamp) {
	binary.LittleEndian.PutUint64(buf[0:8], uint64(ts.Sec))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(ts.Nsec))
}

func getTimestamp(buf []byte) Timestamp {
	return Timestamp{
		Sec:  int64(binary.LittleEndian.Uint64(buf[0:8])),
		Nsec: int64(binary.LittleEndian.Uint64(buf[8:16])),
	}
}

func encodeCommandMessage(t MessageType, clientPID uint32, sentTS Timestamp, expectedMS uint32, cmd string) ([]byte, error) {
	if len(cmd) > MaxCommandLine {
		return nil, taskd.NewError("wire.Encode", taskd.KindMessageSize, "command line too long")
	}
	buf := make([]byte, sendProgramPrefixLen+len(cmd))
	buf[0] = byte(t)
	binary.LittleEndian.PutUint32(buf[1:5], clientPID)
	putTimestamp(buf[5:21], sentTS)
	binary.LittleEndian.PutUint32(buf[21:25], expectedMS)
	copy(buf[sendProgramPrefixLen:], cmd)
	return buf, nil
}

func decodeCommandMessage(t MessageType, payload []byte) (Message, error) {
	if len(payload) < sendProgramPrefixLen {
		return nil, taskd.NewError("wire.Decode", taskd.KindMessageSize, "truncated command message")
	}
	clientPID := binary.LittleEndian.Uint32(payload[1:5])
	sentTS := getTimestamp(payload[5:21])
	expectedMS := binary.LittleEndian.Uint32(payload[21:25])
	cmd := string(payload[sendProgramPrefixLen:])
	if t == MsgSendProgram {
		return SendProgram{ClientPID: clientPID, SentTS: sentTS, ExpectedMS: expectedMS, CommandLine: cmd}, nil
	}
	return SendTask{ClientPID: clientPID, SentTS: sentTS, ExpectedMS: expectedMS, CommandLine: cmd}, nil
}

func encodeTaskDone(m TaskDone) ([]byte, error) {
	buf := make([]byte, taskDonePrefixLen)
	buf[0] = byte(MsgTaskDone)
	binary.LittleEndian.PutUint32(buf[1:5], m.Slot)
	putTimestamp(buf[5:21], m.EndedTS)
	buf[21] = boolByte(m.IsStatus)
	buf[22] = boolByte(m.Error)
	return buf, nil
}

func decodeTaskDone(payload []byte) (Message, error) {
	if len(payload) != taskDonePrefixLen {
		return nil, taskd.NewError("wire.Decode", taskd.KindMessageSize, "malformed TASK_DONE")
	}
	return TaskDone{
		Slot:     binary.LittleEndian.Uint32(payload[1:5]),
		EndedTS:  getTimestamp(payload[5:21]),
		IsStatus: payload[21] != 0,
		Error:    payload[22] != 0,
	}, nil
}

func encodeStatus(m Status) ([]byte, error) {
	buf := make([]byte, statusPrefixLen)
	buf[0] = byte(MsgStatus)
	binary.LittleEndian.PutUint32(buf[1:5], m.ClientPID)
	return buf, nil
}

func decodeStatus(payload []byte) (Message, error) {
	if len(payload) != statusPrefixLen {
		return nil, taskd.NewError("wire.Decode", taskd.KindMessageSize, "malformed STATUS")
	}
	return Status{ClientPID: binary.LittleEndian.Uint32(payload[1:5])}, nil
}

func encodeErrorMsg(m ErrorMsg) ([]byte, error) {
	buf := make([]byte, 1+len(m.Text))
	buf[0] = byte(MsgError)
	copy(buf[1:], m.Text)
	return buf, nil
}

func decodeErrorMsg(payload []byte) (Message, error) {
	return ErrorMsg{Text: string(payload[1:])}, nil
}

func encodeTaskID(m TaskID) ([]byte, error) {
	buf := make([]byte, taskIDPrefixLen)
	buf[0] = byte(MsgTaskID)
	binary.LittleEndian.PutUint32(buf[1:5], m.ID)
	return buf, nil
}

func decodeTaskID(payload []byte) (Message, error) {
	if len(payload) != taskIDPrefixLen {
		return nil, taskd.NewError("wire.Decode", taskd.KindMessageSize, "malformed TASK_ID")
	}
	return TaskID{ID: binary.LittleEndian.Uint32(payload[1:5])}, nil
}

func encodeStatusResp(m StatusResp) ([]byte, error) {
	if len(m.CommandLine) > MaxCommandLine {
		return nil, taskd.NewError("wire.Encode", taskd.KindMessageSize, "command line too long")
	}
	buf := make([]byte, statusRespPrefixLen+len(m.CommandLine))
	buf[0] = byte(MsgStatusResp)
	buf[1] = byte(m.Status)
	binary.LittleEndian.PutUint32(buf[2:6], m.ID)
	buf[6] = boolByte(m.Error)
	binary.LittleEndian.PutUint64(buf[7:15], math.Float64bits(m.C2SFifoUs))
	binary.LittleEndian.PutUint64(buf[15:23], math.Float64bits(m.WaitingUs))
	binary.LittleEndian.PutUint64(buf[23:31], math.Float64bits(m.ExecutingUs))
	binary.LittleEndian.PutUint64(buf[31:39], math.Float64bits(m.S2SFifoUs))
	copy(buf[statusRespPrefixLen:], m.CommandLine)
	return buf, nil
}

func decodeStatusResp(payload []byte) (Message, error) {
	if len(payload) < statusRespPrefixLen {
		return nil, taskd.NewError("wire.Decode", taskd.KindMessageSize, "truncated STATUS_RESP")
	}
	return StatusResp{
		Status:      TaskStatus(payload[1]),
		ID:          binary.LittleEndian.Uint32(payload[2:6]),
		Error:       payload[6] != 0,
		C2SFifoUs:   math.Float64frombits(binary.LittleEndian.Uint64(payload[7:15])),
		WaitingUs:   math.Float64frombits(binary.LittleEndian.Uint64(payload[15:23])),
		ExecutingUs: math.Float64frombits(binary.LittleEndian.Uint64(payload[23:31])),
		S2SFifoUs:   math.Float64frombits(binary.LittleEndian.Uint64(payload[31:39])),
		CommandLine: string(payload[statusRespPrefixLen:]),
	}, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
