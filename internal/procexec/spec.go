// Package procexec implements the task runner that executes a
// dispatched pipeline as a child process and reports completion back
// to the server (spec §4.7).
//
// Go has no bare fork(): a goroutine can't become an independently
// waitable OS process, and the scheduler needs exactly one pid per
// slot even for a multi-stage pipeline. Spawn re-execs the running
// binary with a hidden marker argument instead, the same "parent/child
// protocol" self-exec technique used for this kind of fork+exec split.
// The re-exec'd process is the runner: it owns the slot's pid, wires
// up the pipeline's own child processes, waits on all of them, and
// reports back over the message bus.
package procexec

import "encoding/json"

// ChildMarker is the argv[1] value that tells the re-exec'd process to
// run as a task runner instead of its normal entry point. A binary
// embedding this package must check for it before doing anything else
// in main().
const ChildMarker = "__taskd_runner__"

// ChildSpec is everything the runner process needs, carried across the
// re-exec boundary as a single JSON argv element.
type ChildSpec struct {
	Slot           int        `json:"slot"`
	TaskID         uint32     `json:"task_id"`
	Programs       [][]string `json:"programs"`
	OutputDir      string     `json:"output_dir"`
	ServerFIFOPath string     `json:"server_fifo_path"`
}

// Encode serializes the spec for passing as a single argv element.
func (s ChildSpec) Encode() (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeChildSpec parses an argv element produced by Encode.
func DecodeChildSpec(raw string) (ChildSpec, error) {
	var s ChildSpec
	err := json.Unmarshal([]byte(raw), &s)
	return s, err
}
