// Command taskd-client submits tasks to and queries status from a
// running taskd-server (spec §6).
package main

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/behrlich/taskd/internal/bus"
	"github.com/behrlich/taskd/internal/clock"
	"github.com/behrlich/taskd/internal/wire"
)

const usage = `usage:
  taskd-client execute <expected_ms> {-u|-p} <command_line>
  taskd-client status
  taskd-client help`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "help":
		fmt.Println(usage)
		os.Exit(0)
	case "execute":
		os.Exit(runExecute(os.Args[2:]))
	case "status":
		os.Exit(runStatus())
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}
}

func runExecute(args []string) int {
	if len(args) < 3 {
		fmt.Fprintln(os.Stderr, usage)
		return 1
	}

	expectedMS, err := strconv.Atoi(args[0])
	if err != nil || expectedMS < 0 {
		fmt.Fprintln(os.Stderr, "taskd-client: expected_ms must be a non-negative integer")
		return 1
	}

	var asPipeline bool
	switch args[1] {
	case "-u":
		asPipeline = false
	case "-p":
		asPipeline = true
	default:
		fmt.Fprintln(os.Stderr, usage)
		return 1
	}

	cmdLine := strings.Join(args[2:], " ")

	paths := bus.DefaultPaths()
	pid := os.Getpid()
	client, err := bus.NewClientEndpoint(paths.ClientFIFO(pid), paths.ServerFIFO)
	if err != nil {
		fmt.Fprintln(os.Stderr, "taskd-client:", err)
		return 1
	}
	defer client.Close()

	sentTS := clock.Stamp(clock.Monotonic{})
	var payload []byte
	if asPipeline {
		payload, err = wire.Encode(wire.SendTask{ClientPID: uint32(pid), SentTS: sentTS, ExpectedMS: uint32(expectedMS), CommandLine: cmdLine})
	} else {
		payload, err = wire.Encode(wire.SendProgram{ClientPID: uint32(pid), SentTS: sentTS, ExpectedMS: uint32(expectedMS), CommandLine: cmdLine})
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "taskd-client:", err)
		return 1
	}

	if err := client.Send(payload); err != nil {
		fmt.Fprintln(os.Stderr, "taskd-client:", err)
		return 1
	}

	exitCode := 1
	client.Listen(func(p []byte) bus.ControlFlow {
		msg, decErr := wire.Decode(p)
		if decErr != nil {
			fmt.Fprintln(os.Stderr, "taskd-client: malformed reply:", decErr)
			exitCode = 1
			return 1
		}
		switch m := msg.(type) {
		case wire.TaskID:
			fmt.Println(m.ID)
			exitCode = 0
		case wire.ErrorMsg:
			fmt.Fprintln(os.Stderr, "taskd-client: server error:", m.Text)
			exitCode = 2
		default:
			fmt.Fprintf(os.Stderr, "taskd-client: unexpected reply type %v\n", msg.Type())
			exitCode = 1
		}
		return 1
	}, func() bus.ControlFlow { return 1 })

	return exitCode
}

func runStatus() int {
	paths := bus.DefaultPaths()
	pid := os.Getpid()
	client, err := bus.NewClientEndpoint(paths.ClientFIFO(pid), paths.ServerFIFO)
	if err != nil {
		fmt.Fprintln(os.Stderr, "taskd-client:", err)
		return 1
	}
	defer client.Close()

	payload, err := wire.Encode(wire.Status{ClientPID: uint32(pid)})
	if err != nil {
		fmt.Fprintln(os.Stderr, "taskd-client:", err)
		return 1
	}
	if err := client.Send(payload); err != nil {
		fmt.Fprintln(os.Stderr, "taskd-client:", err)
		return 1
	}

	exitCode := 0
	saw := false
	client.Listen(func(p []byte) bus.ControlFlow {
		msg, decErr := wire.Decode(p)
		if decErr != nil {
			fmt.Fprintln(os.Stderr, "taskd-client: malformed reply:", decErr)
			exitCode = 1
			return 1
		}
		switch m := msg.(type) {
		case wire.StatusResp:
			saw = true
			printStatusResp(m)
		case wire.ErrorMsg:
			fmt.Fprintln(os.Stderr, "taskd-client: server error:", m.Text)
			exitCode = 2
			return 1
		default:
			fmt.Fprintf(os.Stderr, "taskd-client: unexpected reply type %v\n", msg.Type())
		}
		return bus.Continue
	}, func() bus.ControlFlow { return 1 })

	if !saw && exitCode == 0 {
		fmt.Println("no tasks")
	}
	return exitCode
}

func printStatusResp(m wire.StatusResp) {
	errFlag := " "
	if m.Error {
		errFlag = "E"
	}
	fmt.Printf("%-5d %-10s %s c2s=%s wait=%s exec=%s s2s=%s  %s\n",
		m.ID, m.Status, errFlag,
		formatUs(m.C2SFifoUs), formatUs(m.WaitingUs), formatUs(m.ExecutingUs), formatUs(m.S2SFifoUs),
		m.CommandLine)
}

func formatUs(v float64) string {
	if math.IsNaN(v) {
		return "|-?-|"
	}
	return fmt.Sprintf("%.1fus", v)
}
