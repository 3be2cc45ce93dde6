//go:build !integration

// Package unit holds tests that exercise taskd's public surface without
// any FIFOs, child processes, or kernel features — just the wiring
// between packages that integration tests can't easily isolate.
package unit

import (
	"errors"
	"testing"

	"github.com/behrlich/taskd"
	"github.com/behrlich/taskd/internal/task"
	"github.com/behrlich/taskd/internal/wire"
	"github.com/behrlich/taskd/policy"
)

func TestDefaultConstants(t *testing.T) {
	if taskd.DefaultTaskSlots <= 0 {
		t.Error("DefaultTaskSlots should be positive")
	}
	if taskd.DefaultStatusSlots <= 0 {
		t.Error("DefaultStatusSlots should be positive")
	}
	if taskd.SendRetryAttempts <= 0 {
		t.Error("SendRetryAttempts should be positive")
	}
}

func TestErrorKindsImplementError(t *testing.T) {
	err := taskd.NewError("unit.test", taskd.KindInvalidArgument, "bad input")
	var terr *taskd.Error
	if !errors.As(err, &terr) {
		t.Fatal("expected errors.As to find *taskd.Error")
	}
	if terr.Kind != taskd.KindInvalidArgument {
		t.Errorf("Kind = %v, want KindInvalidArgument", terr.Kind)
	}
	if terr.Op != "unit.test" {
		t.Errorf("Op = %q, want %q", terr.Op, "unit.test")
	}
}

func TestRecordingObserverTracksCalls(t *testing.T) {
	obs := taskd.NewRecordingObserver()
	obs.ObserveSubmit()
	obs.ObserveDispatch(1500)
	obs.ObserveComplete(2_000_000, false)
	obs.ObserveStatusQuery()
	obs.ObserveQueueDepth(3)

	if obs.Submits != 1 {
		t.Errorf("Submits = %d, want 1", obs.Submits)
	}
	if len(obs.Dispatches) != 1 || obs.Dispatches[0] != 1500 {
		t.Errorf("Dispatches = %v, want [1500]", obs.Dispatches)
	}
	if len(obs.Completions) != 1 || obs.Completions[0].Failed {
		t.Errorf("Completions = %v, want one non-failed entry", obs.Completions)
	}
	if obs.StatusQueries != 1 {
		t.Errorf("StatusQueries = %d, want 1", obs.StatusQueries)
	}
	if len(obs.QueueDepths) != 1 || obs.QueueDepths[0] != 3 {
		t.Errorf("QueueDepths = %v, want [3]", obs.QueueDepths)
	}

	obs.Reset()
	if obs.Submits != 0 || len(obs.Dispatches) != 0 {
		t.Error("Reset should clear all recorded observations")
	}
}

func TestPolicyParse(t *testing.T) {
	if _, err := policy.Parse("fcfs"); err != nil {
		t.Errorf("Parse(fcfs): %v", err)
	}
	if _, err := policy.Parse("sjf"); err != nil {
		t.Errorf("Parse(sjf): %v", err)
	}
	if _, err := policy.Parse("round-robin"); err == nil {
		t.Error("Parse(round-robin) should fail, policy does not exist")
	}
}

func TestTaskParseSinglePipeline(t *testing.T) {
	programs, err := task.Parse(`echo "hello world" | wc -c`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(programs) != 2 {
		t.Fatalf("expected 2 pipeline stages, got %d", len(programs))
	}
	if programs[0][0] != "echo" || programs[0][1] != "hello world" {
		t.Errorf("first stage = %v, want [echo, \"hello world\"]", programs[0])
	}
	if programs[1][0] != "wc" || programs[1][1] != "-c" {
		t.Errorf("second stage = %v, want [wc, -c]", programs[1])
	}
}

func TestTaskParseUnterminatedQuoteFails(t *testing.T) {
	if _, err := task.Parse(`echo "unterminated`); err == nil {
		t.Error("expected unterminated quote to fail parsing")
	}
}

func TestTaskParseTrailingEscapeFails(t *testing.T) {
	if _, err := task.Parse(`echo foo\`); err == nil {
		t.Error("expected trailing backslash to fail parsing")
	}
}

func TestWireEncodeDecodeRoundTrip(t *testing.T) {
	original := wire.TaskID{ID: 42}
	payload, err := wire.Encode(original)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := wire.Decode(payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	got, ok := decoded.(wire.TaskID)
	if !ok {
		t.Fatalf("Decode returned %T, want wire.TaskID", decoded)
	}
	if got.ID != original.ID {
		t.Errorf("ID = %d, want %d", got.ID, original.ID)
	}
}

func TestWireDecodeRejectsTruncatedPayload(t *testing.T) {
	if _, err := wire.Decode(nil); err == nil {
		t.Error("expected empty payload to fail to decode")
	}
}
