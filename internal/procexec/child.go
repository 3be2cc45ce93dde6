package procexec

import (
	"github.com/behrlich/taskd/internal/bus"
	"github.com/behrlich/taskd/internal/clock"
	"github.com/behrlich/taskd/internal/constants"
	"github.com/behrlich/taskd/internal/logging"
	"github.com/behrlich/taskd/internal/wire"
)

// RunChild is the entire body of a re-exec'd task runner process (spec
// §4.7). A host binary calls this after recognizing ChildMarker in its
// own argv, then exits with the returned code.
func RunChild(spec ChildSpec) int {
	failed := RunPipeline(spec)

	done := wire.TaskDone{
		Slot:     uint32(spec.Slot),
		EndedTS:  clock.Stamp(clock.Monotonic{}),
		IsStatus: false,
		Error:    failed,
	}

	payload, err := wire.Encode(done)
	if err != nil {
		logging.Default().WithTask(spec.TaskID).Error("failed to encode TASK_DONE", "error", err)
		return 1
	}

	ep := bus.NewSendOnlyEndpoint()
	if err := ep.SendRetrying(spec.ServerFIFOPath, payload, constants.SendRetryAttempts, constants.SendRetryDelay); err != nil {
		logging.Default().WithTask(spec.TaskID).Error("failed to report task completion", "error", err)
		return 1
	}

	return 0
}
