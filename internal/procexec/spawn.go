package procexec

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/behrlich/taskd"
	"github.com/behrlich/taskd/internal/logging"
	"github.com/behrlich/taskd/internal/queue"
	"github.com/behrlich/taskd/internal/task"
)

// NewSpawner returns a queue.Spawn bound to outputDir and the server's
// own FIFO path, suitable for queue.Scheduler.DispatchPossible.
func NewSpawner(outputDir, serverFIFOPath string) queue.Spawn {
	return func(tt *task.TaggedTask, slot int) (int, error) {
		return spawn(tt, slot, outputDir, serverFIFOPath)
	}
}

func spawn(tt *task.TaggedTask, slot int, outputDir, serverFIFOPath string) (int, error) {
	if tt.Task.Kind != task.KindPipeline {
		return 0, taskd.NewError("procexec.spawn", taskd.KindInvalidArgument, "only pipeline tasks dispatch through the task runner")
	}

	programs := make([][]string, len(tt.Task.Programs))
	for i, p := range tt.Task.Programs {
		programs[i] = []string(p)
	}

	spec := ChildSpec{
		Slot:           slot,
		TaskID:         tt.ID,
		Programs:       programs,
		OutputDir:      outputDir,
		ServerFIFOPath: serverFIFOPath,
	}
	encoded, err := spec.Encode()
	if err != nil {
		return 0, taskd.WrapError("procexec.spawn", taskd.KindInvalidArgument, err)
	}

	self, err := os.Executable()
	if err != nil {
		return 0, taskd.WrapError("procexec.spawn", taskd.KindInvalidArgument, err)
	}

	cmd := exec.Command(self, ChildMarker, encoded)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		logging.Default().WithTask(tt.ID).Error("failed to start task runner", "error", err)
		return 0, taskd.WrapError("procexec.spawn", taskd.KindInvalidArgument, err)
	}
	return cmd.Process.Pid, nil
}
