package wire

import (
	"testing"

	"github.com/behrlich/taskd"
)

func TestRoundTripSendTask(t *testing.T) {
	msg := SendTask{
		ClientPID:   4242,
		SentTS:      Timestamp{Sec: 100, Nsec: 500},
		ExpectedMS:  250,
		CommandLine: `echo a | wc -c`,
	}

	buf, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	got, ok := decoded.(SendTask)
	if !ok {
		t.Fatalf("expected SendTask, got %T", decoded)
	}
	if got != msg {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, msg)
	}
}

func TestRoundTripSendProgram(t *testing.T) {
	msg := SendProgram{ClientPID: 1, SentTS: Timestamp{Sec: 1, Nsec: 2}, ExpectedMS: 10, CommandLine: "echo hi"}

	buf, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if MessageType(buf[0]) != MsgSendProgram {
		t.Fatalf("expected discriminant %d, got %d", MsgSendProgram, buf[0])
	}

	decoded, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != msg {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, msg)
	}
}

func TestRoundTripTaskDone(t *testing.T) {
	msg := TaskDone{Slot: 3, EndedTS: Timestamp{Sec: 7, Nsec: 8}, IsStatus: true, Error: false}

	buf, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != msg {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, msg)
	}
}

func TestRoundTripStatus(t *testing.T) {
	msg := Status{ClientPID: 99}
	buf, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != msg {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, msg)
	}
}

func TestRoundTripErrorMsg(t *testing.T) {
	msg := ErrorMsg{Text: "Parsing failure"}
	buf, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != msg {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, msg)
	}
}

func TestRoundTripTaskID(t *testing.T) {
	msg := TaskID{ID: 17}
	buf, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != msg {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, msg)
	}
}

func TestRoundTripStatusResp(t *testing.T) {
	msg := StatusResp{
		Status:      StatusDone,
		ID:          5,
		Error:       true,
		C2SFifoUs:   12.5,
		WaitingUs:   100.25,
		ExecutingUs: 4200.0,
		S2SFifoUs:   3.0,
		CommandLine: "echo a | wc -c",
	}

	buf, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != msg {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, msg)
	}
}

func TestDecodeEmptyPayload(t *testing.T) {
	_, err := Decode(nil)
	if !taskd.IsKind(err, taskd.KindMessageSize) {
		t.Errorf("expected KindMessageSize, got %v", err)
	}
}

func TestDecodeUnknownDiscriminant(t *testing.T) {
	_, err := Decode([]byte{0xFF})
	if !taskd.IsKind(err, taskd.KindInvalidArgument) {
		t.Errorf("expected KindInvalidArgument, got %v", err)
	}
}

func TestEncodeCommandLineTooLong(t *testing.T) {
	huge := make([]byte, MaxCommandLine+1)
	for i := range huge {
		huge[i] = 'a'
	}
	_, err := Encode(SendTask{CommandLine: string(huge)})
	if !taskd.IsKind(err, taskd.KindMessageSize) {
		t.Errorf("expected KindMessageSize, got %v", err)
	}
}

func TestDecodeTruncatedTaskDone(t *testing.T) {
	_, err := Decode([]byte{byte(MsgTaskDone), 0, 0})
	if !taskd.IsKind(err, taskd.KindMessageSize) {
		t.Errorf("expected KindMessageSize, got %v", err)
	}
}

func TestMessageTypeString(t *testing.T) {
	if MsgSendTask.String() != "SEND_TASK" {
		t.Errorf("expected SEND_TASK, got %s", MsgSendTask.String())
	}
	if MessageType(0).String() == "" {
		t.Error("expected non-empty string for unknown type")
	}
}

func TestTaskStatusString(t *testing.T) {
	cases := map[TaskStatus]string{
		StatusDone:      "DONE",
		StatusExecuting: "EXECUTING",
		StatusQueued:    "QUEUED",
	}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Errorf("status %d: got %q, want %q", status, got, want)
		}
	}
}
