// Package server implements taskd's request loop (spec §4.9): the
// single-threaded event loop that owns the message bus, both
// schedulers, and the log file, and dispatches every frame the server
// FIFO receives to the right subsystem.
package server

import (
	"context"

	"github.com/behrlich/taskd"
	"github.com/behrlich/taskd/internal/bus"
	"github.com/behrlich/taskd/internal/clock"
	"github.com/behrlich/taskd/internal/constants"
	"github.com/behrlich/taskd/internal/interfaces"
	"github.com/behrlich/taskd/internal/logfile"
	"github.com/behrlich/taskd/internal/logging"
	"github.com/behrlich/taskd/internal/procexec"
	"github.com/behrlich/taskd/internal/queue"
	"github.com/behrlich/taskd/internal/status"
	"github.com/behrlich/taskd/internal/task"
	"github.com/behrlich/taskd/internal/wire"
	"github.com/behrlich/taskd/policy"
)

// Config configures a Server. Paths and OutputDir are required, and New
// rejects an NTasks <= 0. An empty Policy orders the queue FCFS;
// StatusSlots, Observer and Spawn have defaults.
type Config struct {
	Paths       bus.Paths
	OutputDir   string
	NTasks      int
	Policy      policy.Name
	StatusSlots int
	Observer    interfaces.Observer

	// Spawn overrides how dispatched tasks are started. Defaults to
	// procexec.NewSpawner(OutputDir, Paths.ServerFIFO) — the self-reexec
	// runner. Tests substitute a stub that starts a real, trivial child
	// process so Scheduler.MarkDone still has something to reap.
	Spawn queue.Spawn
}

// Server owns the message bus endpoint, the task and status schedulers,
// the log file, and the id counter (spec §4.9). It is single-threaded:
// every mutation happens on the goroutine that calls Run.
type Server struct {
	cfg      Config
	ep       *bus.Endpoint
	sched    *queue.Scheduler
	statuses *status.Scheduler
	logf     *logfile.File
	spawn    queue.Spawn
	nextID   uint32
	logger   *logging.Logger
	observer interfaces.Observer
}

// New wires up a Server from cfg. It creates the server's own FIFO
// (failing with already-exists if one is present) and opens or creates
// the log file at <OutputDir>/log.bin.
func New(cfg Config) (*Server, error) {
	if cfg.NTasks <= 0 {
		return nil, taskd.NewError("server.New", taskd.KindInvalidArgument, "ntasks must be > 0")
	}
	if cfg.StatusSlots <= 0 {
		cfg.StatusSlots = constants.DefaultStatusSlots
	}
	observer := cfg.Observer
	if observer == nil {
		observer = taskd.NoOpObserver{}
	}

	ep, err := bus.NewServerEndpoint(cfg.Paths.ServerFIFO)
	if err != nil {
		return nil, err
	}

	logf, err := logfile.Open(logPath(cfg.OutputDir))
	if err != nil {
		ep.Close()
		return nil, err
	}

	sched, err := queue.NewScheduler(cfg.Policy.LessFunc(), cfg.NTasks, cfg.OutputDir, observer)
	if err != nil {
		logf.Close()
		ep.Close()
		return nil, err
	}

	statuses, err := status.NewScheduler(cfg.StatusSlots)
	if err != nil {
		logf.Close()
		ep.Close()
		return nil, err
	}

	spawn := cfg.Spawn
	if spawn == nil {
		spawn = procexec.NewSpawner(cfg.OutputDir, cfg.Paths.ServerFIFO)
	}

	return &Server{
		cfg:      cfg,
		ep:       ep,
		sched:    sched,
		statuses: statuses,
		logf:     logf,
		spawn:    spawn,
		nextID:   1,
		logger:   logging.Default(),
		observer: observer,
	}, nil
}

// Close tears the server down: removes the server FIFO and closes the
// log file. Any still-running children are orphaned (spec §5: "on
// scheduler teardown any still-running children are orphaned; this is
// explicitly accepted").
func (s *Server) Close() error {
	var merr error
	if err := s.logf.Close(); err != nil {
		merr = err
	}
	if err := s.ep.Close(); err != nil && merr == nil {
		merr = err
	}
	return merr
}

// Run starts the server's request loop. It blocks until ctx is
// cancelled or the listener terminates for some other reason. The
// loop itself has no cancellation primitive of its own (spec §5: "no
// wall-clock timeout"); ctx is checked only at the one point where the
// loop would otherwise block indefinitely waiting for a new writer.
func (s *Server) Run(ctx context.Context) error {
	s.ep.Listen(s.onMessage, func() bus.ControlFlow {
		s.sched.DispatchPossible(now(), s.spawn)
		select {
		case <-ctx.Done():
			return 1
		default:
			return bus.Continue
		}
	})
	return ctx.Err()
}

func (s *Server) onMessage(payload []byte) bus.ControlFlow {
	msg, err := wire.Decode(payload)
	if err != nil {
		s.logger.Warn("dropping undecodable frame", "error", err)
		return bus.Continue
	}

	switch m := msg.(type) {
	case wire.SendProgram:
		s.handleSubmit(m.ClientPID, m.SentTS, m.ExpectedMS, m.CommandLine, true)
	case wire.SendTask:
		s.handleSubmit(m.ClientPID, m.SentTS, m.ExpectedMS, m.CommandLine, false)
	case wire.TaskDone:
		s.handleTaskDone(m)
	case wire.Status:
		s.handleStatus(m.ClientPID)
	default:
		s.logger.Warn("dropping message of unexpected type", "type", msg.Type())
	}

	return bus.Continue
}

// handleSubmit implements spec §4.9's SEND_PROGRAM/SEND_TASK branch.
// programOnly rejects anything that doesn't parse into exactly one
// program, treating a pipeline sent as SEND_PROGRAM as a parse failure
// (spec §9's resolved open question).
func (s *Server) handleSubmit(clientPID uint32, sentTS wire.Timestamp, expectedMS uint32, cmdLine string, programOnly bool) {
	programs, err := task.Parse(cmdLine)
	if err != nil || (programOnly && len(programs) != 1) {
		s.replyError(clientPID, "Parsing failure")
		return
	}

	id := s.nextID
	tt := &task.TaggedTask{
		ID:          id,
		ExpectedMS:  expectedMS,
		CommandLine: cmdLine,
		Task:        task.NewPipelineTask(programs),
	}
	tt.Stamp(task.PhaseSent, sentTS)
	tt.Stamp(task.PhaseArrived, now())

	if err := s.sched.Add(tt); err != nil {
		s.logger.Error("failed to enqueue task", "task_id", id, "error", err)
		s.replyError(clientPID, "Server error")
		return
	}

	s.nextID++
	s.replyTaskID(clientPID, id)
}

// handleTaskDone implements spec §4.9's TASK_DONE branch, routing by
// is_status to the matching scheduler's mark_done.
func (s *Server) handleTaskDone(m wire.TaskDone) {
	if m.IsStatus {
		if err := s.statuses.MarkDone(int(m.Slot)); err != nil {
			s.logger.Error("status mark_done failed", "slot", m.Slot, "error", err)
		}
		return
	}

	tt, err := s.sched.MarkDone(int(m.Slot), m.EndedTS, now())
	if err != nil {
		s.logger.Error("mark_done failed", "slot", m.Slot, "error", err)
		return
	}
	if err := s.logf.Write(tt, m.Error); err != nil {
		s.logger.Error("failed to log completed task", "task_id", tt.ID, "error", err)
	}
}

// handleStatus implements spec §4.8/§4.9's STATUS branch: snapshot the
// log's write count plus the running and queued slices, and hand it off
// to the status scheduler's own goroutine pool.
func (s *Server) handleStatus(clientPID uint32) {
	if !s.statuses.CanScheduleNow() {
		s.replyError(clientPID, "No capacity available")
		return
	}

	snap := status.Snapshot{
		LogWriteCount: s.logf.WriteCount(),
		Running:       s.cloneRunning(),
		Queued:        s.cloneQueued(),
	}

	clientFIFO := s.cfg.Paths.ClientFIFO(int(clientPID))
	runner := status.BuildRunner(snap, s.logf, clientFIFO, s.cfg.Paths.ServerFIFO)
	if err := s.statuses.Submit(runner); err != nil {
		s.replyError(clientPID, "No capacity available")
		return
	}
	s.observer.ObserveStatusQuery()
}

func (s *Server) cloneRunning() []*task.TaggedTask {
	var out []*task.TaggedTask
	s.sched.EnumerateRunning(func(tt *task.TaggedTask) bool {
		out = append(out, tt.Clone())
		return true
	})
	return out
}

func (s *Server) cloneQueued() []*task.TaggedTask {
	var out []*task.TaggedTask
	s.sched.EnumerateQueued(func(tt *task.TaggedTask) bool {
		out = append(out, tt.Clone())
		return true
	})
	return out
}

func (s *Server) replyTaskID(clientPID uint32, id uint32) {
	payload, err := wire.Encode(wire.TaskID{ID: id})
	if err != nil {
		s.logger.Error("failed to encode TASK_ID", "error", err)
		return
	}
	s.sendToClient(clientPID, payload)
}

func (s *Server) replyError(clientPID uint32, text string) {
	payload, err := wire.Encode(wire.ErrorMsg{Text: text})
	if err != nil {
		s.logger.Error("failed to encode ERROR", "error", err)
		return
	}
	s.sendToClient(clientPID, payload)
}

func (s *Server) sendToClient(clientPID uint32, payload []byte) {
	path := s.cfg.Paths.ClientFIFO(int(clientPID))
	if err := s.ep.OpenSending(path); err != nil {
		s.logger.Error("failed to open client FIFO for reply", "path", path, "error", err)
		return
	}
	defer s.ep.CloseSending()
	if err := s.ep.Send(payload); err != nil {
		s.logger.Error("failed to send reply to client", "path", path, "error", err)
	}
}

func logPath(outputDir string) string {
	return outputDir + "/log.bin"
}

func now() wire.Timestamp {
	return clock.Stamp(clock.Monotonic{})
}
