package procexec

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/hashicorp/go-multierror"

	"github.com/behrlich/taskd/internal/constants"
	"github.com/behrlich/taskd/internal/logging"
)

// RunPipeline wires up and runs spec's stages (spec §4.7 step 2-3):
// each stage's stdout feeds the next stage's stdin, the first stage
// reads from the null device, the last stage's stdout goes to the
// per-task output file, and every stage shares the per-task error
// file. It reports whether any stage failed to start or exited
// nonzero; the per-stage failures are aggregated with go-multierror
// rather than collapsed into the first one seen, and the full
// aggregate is what gets written to the error file and logged, so a
// k-stage pipeline with several independent failures doesn't hide all
// but the first from whoever reads spec.TaskID's error file.
func RunPipeline(spec ChildSpec) bool {
	outFile, outFallback := openOrFallback(outputPath(spec.OutputDir, spec.TaskID, "out"), os.Stdout)
	errFile, errFallback := openOrFallback(outputPath(spec.OutputDir, spec.TaskID, "err"), os.Stderr)
	if !outFallback {
		defer outFile.Close()
	}
	if !errFallback {
		defer errFile.Close()
	}

	k := len(spec.Programs)
	cmds := make([]*exec.Cmd, k)
	var stageErrs *multierror.Error

	var prevRead *os.File
	for i, argv := range spec.Programs {
		if len(argv) == 0 {
			stageErrs = multierror.Append(stageErrs, fmt.Errorf("stage %d: empty program", i))
			continue
		}

		cmd := exec.Command(argv[0], argv[1:]...)
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true, Pdeathsig: syscall.SIGKILL}
		cmd.Stderr = errFile

		if i > 0 {
			cmd.Stdin = prevRead
		}

		var thisWrite *os.File
		if i < k-1 {
			r, w, err := os.Pipe()
			if err != nil {
				stageErrs = multierror.Append(stageErrs, fmt.Errorf("stage %d (%s): pipe: %w", i, argv[0], err))
				continue
			}
			cmd.Stdout = w
			thisWrite = w
			prevRead = r
		} else {
			cmd.Stdout = outFile
		}

		if err := cmd.Start(); err != nil {
			stageErrs = multierror.Append(stageErrs, fmt.Errorf("stage %d (%s): exec: %w", i, argv[0], err))
		} else {
			cmds[i] = cmd
		}

		closePipeEnds(cmd, i, thisWrite)
	}

	for i, cmd := range cmds {
		if cmd == nil {
			continue
		}
		if err := cmd.Wait(); err != nil {
			stageErrs = multierror.Append(stageErrs, fmt.Errorf("stage %d (%s): wait: %w", i, spec.Programs[i][0], err))
		}
	}

	if stageErrs.ErrorOrNil() == nil {
		return false
	}

	fmt.Fprintln(errFile, stageErrs)
	logging.Default().WithTask(spec.TaskID).Warn("pipeline stage failures", "error", stageErrs)
	return true
}

// closePipeEnds releases the parent's copies of pipe fds once the
// stages that needed them have had a chance to dup them via Start.
// Holding them open past that point would prevent downstream stages
// from ever seeing EOF.
func closePipeEnds(cmd *exec.Cmd, i int, thisWrite *os.File) {
	if i > 0 {
		if f, ok := cmd.Stdin.(*os.File); ok && f != nil {
			f.Close()
		}
	}
	if thisWrite != nil {
		thisWrite.Close()
	}
}

func openOrFallback(path string, fallback *os.File) (*os.File, bool) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, constants.OutputFileMode)
	if err != nil {
		logging.Default().Warn("failed to open task output file, falling back to inherited stream", "path", path, "error", err)
		return fallback, true
	}
	return f, false
}

func outputPath(dir string, id uint32, ext string) string {
	return fmt.Sprintf("%s/%d.%s", dir, id, ext)
}
