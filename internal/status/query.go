package status

import (
	"github.com/behrlich/taskd/internal/bus"
	"github.com/behrlich/taskd/internal/clock"
	"github.com/behrlich/taskd/internal/constants"
	"github.com/behrlich/taskd/internal/logfile"
	"github.com/behrlich/taskd/internal/logging"
	"github.com/behrlich/taskd/internal/task"
	"github.com/behrlich/taskd/internal/wire"
)

// Snapshot is the point-in-time state a status query answers against,
// captured synchronously by the server loop at the moment it accepts
// the STATUS request — the same instant a real fork() would have
// copied it (spec §4.8).
type Snapshot struct {
	LogWriteCount int
	Running       []*task.TaggedTask
	Queued        []*task.TaggedTask
}

// BuildRunner returns the Runner that answers one status query:
// replay the log up to the snapshot's bound, stream the running and
// queued slices, then report completion to the server FIFO (spec
// §4.8 steps 1-4).
func BuildRunner(snap Snapshot, logf *logfile.File, clientFIFOPath, serverFIFOPath string) Runner {
	return func(slot int) {
		logger := logging.Default().WithSlot(slot)

		client := bus.NewSendOnlyEndpoint()
		if err := client.OpenSending(clientFIFOPath); err != nil {
			logger.Error("status query: failed to open client FIFO", "error", err)
			reportDone(slot, serverFIFOPath, logger)
			return
		}

		replayErr := logf.Replay(snap.LogWriteCount, func(tt *task.TaggedTask, failed bool) bool {
			sendRecord(client, wire.StatusDone, tt, failed, logger)
			return true
		})
		if replayErr != nil {
			logger.Error("status query: log replay failed", "error", replayErr)
		}

		for _, tt := range snap.Running {
			sendRecord(client, wire.StatusExecuting, tt, false, logger)
		}
		for _, tt := range snap.Queued {
			sendRecord(client, wire.StatusQueued, tt, false, logger)
		}

		client.CloseSending()
		reportDone(slot, serverFIFOPath, logger)
	}
}

func sendRecord(client *bus.Endpoint, st wire.TaskStatus, tt *task.TaggedTask, failed bool, logger *logging.Logger) {
	c2s, waiting, executing, s2s := Timings(tt)
	resp := wire.StatusResp{
		Status:      st,
		ID:          tt.ID,
		Error:       failed,
		C2SFifoUs:   c2s,
		WaitingUs:   waiting,
		ExecutingUs: executing,
		S2SFifoUs:   s2s,
		CommandLine: tt.CommandLine,
	}
	payload, err := wire.Encode(resp)
	if err != nil {
		logger.Error("status query: failed to encode STATUS_RESP", "error", err)
		return
	}
	if err := client.Send(payload); err != nil {
		logger.Error("status query: failed to send STATUS_RESP", "error", err)
	}
}

func reportDone(slot int, serverFIFOPath string, logger *logging.Logger) {
	done := wire.TaskDone{
		Slot:     uint32(slot),
		EndedTS:  clock.Stamp(clock.Monotonic{}),
		IsStatus: true,
		Error:    false,
	}
	payload, err := wire.Encode(done)
	if err != nil {
		logger.Error("status query: failed to encode TASK_DONE", "error", err)
		return
	}

	server := bus.NewSendOnlyEndpoint()
	if err := server.SendRetrying(serverFIFOPath, payload, constants.SendRetryAttempts, constants.SendRetryDelay); err != nil {
		logger.Error("status query: failed to report completion", "error", err)
	}
}
