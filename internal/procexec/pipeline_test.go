package procexec

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRunPipelineSingleStage(t *testing.T) {
	dir := t.TempDir()
	spec := ChildSpec{
		TaskID:    1,
		Programs:  [][]string{{"/bin/echo", "hi"}},
		OutputDir: dir,
	}

	if failed := RunPipeline(spec); failed {
		t.Fatal("expected single-stage pipeline to succeed")
	}

	out, err := os.ReadFile(filepath.Join(dir, "1.out"))
	if err != nil {
		t.Fatalf("reading output file: %v", err)
	}
	if string(out) != "hi\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestRunPipelineMultiStage(t *testing.T) {
	dir := t.TempDir()
	spec := ChildSpec{
		TaskID:    2,
		Programs:  [][]string{{"/bin/echo", "ab"}, {"/usr/bin/wc", "-c"}},
		OutputDir: dir,
	}

	if failed := RunPipeline(spec); failed {
		t.Fatal("expected multi-stage pipeline to succeed")
	}

	out, err := os.ReadFile(filepath.Join(dir, "2.out"))
	if err != nil {
		t.Fatalf("reading output file: %v", err)
	}
	// "ab\n" piped through `wc -c` counts 3 bytes.
	if string(out) != "3\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestRunPipelineReportsExecFailure(t *testing.T) {
	dir := t.TempDir()
	spec := ChildSpec{
		TaskID:    3,
		Programs:  [][]string{{"/no/such/binary"}},
		OutputDir: dir,
	}

	if failed := RunPipeline(spec); !failed {
		t.Fatal("expected failure for nonexistent binary")
	}

	errContent, err := os.ReadFile(filepath.Join(dir, "3.err"))
	if err != nil {
		t.Fatalf("reading error file: %v", err)
	}
	if len(errContent) == 0 {
		t.Fatal("expected a diagnostic written to the error file")
	}
}

func TestRunPipelineNonzeroExitIsFailure(t *testing.T) {
	dir := t.TempDir()
	spec := ChildSpec{
		TaskID:    4,
		Programs:  [][]string{{"/bin/false"}},
		OutputDir: dir,
	}

	if failed := RunPipeline(spec); !failed {
		t.Fatal("expected nonzero exit to be reported as failure")
	}
}
