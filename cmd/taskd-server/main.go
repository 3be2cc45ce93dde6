// Command taskd-server runs the task orchestrator's long-running
// server process (spec §6).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/behrlich/taskd"
	"github.com/behrlich/taskd/internal/bus"
	"github.com/behrlich/taskd/internal/logging"
	"github.com/behrlich/taskd/internal/procexec"
	"github.com/behrlich/taskd/internal/server"
	"github.com/behrlich/taskd/policy"
)

const usage = `usage:
  taskd-server <output_dir> <ntasks> <policy>    policy is fcfs or sjf
  taskd-server help`

func main() {
	// Before anything else: a dispatched task runner re-execs this same
	// binary with a hidden marker argument. Intercept that here, since
	// the spawner from internal/procexec.NewSpawner assumes
	// os.Executable() lands back in this main, not the usual CLI
	// parsing path.
	if len(os.Args) >= 3 && os.Args[1] == procexec.ChildMarker {
		spec, err := procexec.DecodeChildSpec(os.Args[2])
		if err != nil {
			fmt.Fprintln(os.Stderr, "taskd-server: malformed child spec:", err)
			os.Exit(1)
		}
		os.Exit(procexec.RunChild(spec))
	}

	if len(os.Args) == 2 && os.Args[1] == "help" {
		fmt.Println(usage)
		os.Exit(0)
	}

	if len(os.Args) != 4 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	outputDir := os.Args[1]
	ntasks, err := strconv.Atoi(os.Args[2])
	if err != nil || ntasks <= 0 {
		fmt.Fprintln(os.Stderr, "taskd-server: ntasks must be a positive integer")
		os.Exit(1)
	}
	pol, err := policy.Parse(os.Args[3])
	if err != nil {
		fmt.Fprintln(os.Stderr, "taskd-server:", err)
		os.Exit(1)
	}

	if err := ensureOutputDir(outputDir); err != nil {
		fmt.Fprintln(os.Stderr, "taskd-server:", err)
		os.Exit(1)
	}

	logger := logging.Default()
	metrics := taskd.NewMetrics()

	srv, err := server.New(server.Config{
		Paths:     bus.DefaultPaths(),
		OutputDir: outputDir,
		NTasks:    ntasks,
		Policy:    pol,
		Observer:  metrics,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "taskd-server: startup failed:", err)
		os.Exit(1)
	}
	defer srv.Close()

	logger.Info("server started", "output_dir", outputDir, "ntasks", ntasks, "policy", pol)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	srv.Run(ctx)
	metrics.Stop()
	snap := metrics.Snapshot()
	logger.Info("server stopped",
		"tasks_submitted", snap.TasksSubmitted,
		"tasks_completed", snap.TasksCompleted,
		"tasks_failed", snap.TasksFailed,
		"status_queries", snap.StatusQueries,
		"uptime_ns", snap.UptimeNs,
	)
	os.Exit(0)
}

func ensureOutputDir(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return os.MkdirAll(path, 0755)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s exists and is not a directory", path)
	}
	return nil
}
