// Package logfile implements taskd's append-only completed-task log: a
// sequence of fixed-size serialized records plus an in-memory write
// counter that bounds replay for a point-in-time snapshot (spec §4.5).
package logfile

import (
	"encoding/binary"
	"os"

	"github.com/behrlich/taskd"
	"github.com/behrlich/taskd/internal/bufpool"
	"github.com/behrlich/taskd/internal/task"
	"github.com/behrlich/taskd/internal/wire"
)

// MaxCommandLine is the largest command line a log record stores; the
// wire protocol's command lines are truncated to this length before
// being written (spec §4.5: "zero-padded command_line buffer").
const MaxCommandLine = 200

// RecordSize is the on-disk size of one fixed-size log record: id,
// command length, expected_ms, error flag, five timestamps (16 bytes
// each), and the zero-padded command line.
const RecordSize = 4 + 4 + 4 + 1 + 5*16 + MaxCommandLine

// readBatch is how many records Replay deserializes per read (spec
// §4.5: "reads in batches (4 records)").
const readBatch = 4

// File is an append-only log handle. Holds an in-memory count of
// records this handle has written, which callers can snapshot to
// bound a later replay (spec §9's "bounded log replay").
type File struct {
	f          *os.File
	writeCount int
}

// Open opens path for append-writing, creating it if absent.
func Open(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0640)
	if err != nil {
		return nil, taskd.WrapError("logfile.Open", taskd.KindInvalidArgument, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, taskd.WrapError("logfile.Open", taskd.KindInvalidArgument, err)
	}
	writeCount := int(info.Size() / RecordSize)
	if _, err := f.Seek(0, os.SEEK_END); err != nil {
		f.Close()
		return nil, taskd.WrapError("logfile.Open", taskd.KindInvalidArgument, err)
	}
	return &File{f: f, writeCount: writeCount}, nil
}

// Close closes the underlying file.
func (l *File) Close() error {
	return l.f.Close()
}

// WriteCount returns the number of records this handle has written
// (or found already present at Open), used to snapshot a bounded
// replay point.
func (l *File) WriteCount() int {
	return l.writeCount
}

// Write appends one record for tt, keeping the file offset at EOF
// between writes (spec §3). failed records the task's exit status.
func (l *File) Write(tt *task.TaggedTask, failed bool) error {
	rec := bufpool.Get(uint32(RecordSize))
	defer bufpool.Put(rec)
	encodeRecord(rec, tt, failed)

	n, err := l.f.Write(rec)
	if err != nil {
		return taskd.WrapError("logfile.Write", taskd.KindInvalidArgument, err)
	}
	if n != RecordSize {
		return taskd.NewError("logfile.Write", taskd.KindMessageSize, "short write")
	}
	l.writeCount++
	return nil
}

// RecordCallback receives one replayed record; a false return stops
// replay early.
type RecordCallback func(tt *task.TaggedTask, failed bool) bool

// Replay deserializes up to limit records from the start of the file
// (typically WriteCount() as snapshotted at the time the caller decided
// to answer a status query), invoking cb for each. It reads by absolute
// offset (ReadAt) rather than the file's shared seek position, so a
// concurrent Write from another goroutine never races with it (spec
// §4.5, §4.8's "consistent snapshot" requirement). Records with
// impossible lengths abort replay with illegal-byte-sequence.
func (l *File) Replay(limit int, cb RecordCallback) error {
	buf := make([]byte, RecordSize*readBatch)
	read := 0

	for read < limit {
		want := readBatch
		if remaining := limit - read; remaining < want {
			want = remaining
		}

		off := int64(read) * RecordSize
		n, err := l.f.ReadAt(buf[:RecordSize*want], off)
		if n == 0 {
			break
		}
		if n%RecordSize != 0 {
			return taskd.NewError("logfile.Replay", taskd.KindIllegalByteSequence, "truncated record")
		}

		count := n / RecordSize
		for i := 0; i < count; i++ {
			tt, failed, decErr := decodeRecord(buf[i*RecordSize : (i+1)*RecordSize])
			if decErr != nil {
				return decErr
			}
			read++
			if !cb(tt, failed) {
				return nil
			}
		}

		if err != nil || n < RecordSize*want {
			break
		}
	}

	return nil
}

// encodeRecord fills buf (which must be exactly RecordSize long) with
// tt's on-disk representation.
func encodeRecord(buf []byte, tt *task.TaggedTask, failed bool) {
	off := 0

	binary.LittleEndian.PutUint32(buf[off:off+4], tt.ID)
	off += 4

	cmd := tt.CommandLine
	if len(cmd) > MaxCommandLine {
		cmd = cmd[:MaxCommandLine]
	}
	binary.LittleEndian.PutUint32(buf[off:off+4], uint32(len(cmd)))
	off += 4

	binary.LittleEndian.PutUint32(buf[off:off+4], tt.ExpectedMS)
	off += 4

	if failed {
		buf[off] = 1
	}
	off++

	for phase := task.PhaseSent; phase <= task.PhaseCompleted; phase++ {
		ts := tt.TimestampAt(phase)
		binary.LittleEndian.PutUint64(buf[off:off+8], uint64(ts.Sec))
		off += 8
		binary.LittleEndian.PutUint64(buf[off:off+8], uint64(ts.Nsec))
		off += 8
	}

	copy(buf[off:off+MaxCommandLine], cmd)
}

func decodeRecord(buf []byte) (*task.TaggedTask, bool, error) {
	if len(buf) != RecordSize {
		return nil, false, taskd.NewError("logfile.decodeRecord", taskd.KindIllegalByteSequence, "malformed record")
	}

	off := 0
	id := binary.LittleEndian.Uint32(buf[off : off+4])
	off += 4

	cmdLen := binary.LittleEndian.Uint32(buf[off : off+4])
	off += 4
	if cmdLen > MaxCommandLine {
		return nil, false, taskd.NewError("logfile.decodeRecord", taskd.KindIllegalByteSequence, "impossible command length")
	}

	expectedMS := binary.LittleEndian.Uint32(buf[off : off+4])
	off += 4

	failed := buf[off] != 0
	off++

	tt := &task.TaggedTask{ID: id, ExpectedMS: expectedMS}
	for phase := task.PhaseSent; phase <= task.PhaseCompleted; phase++ {
		sec := int64(binary.LittleEndian.Uint64(buf[off : off+8]))
		off += 8
		nsec := int64(binary.LittleEndian.Uint64(buf[off : off+8]))
		off += 8
		tt.Stamp(phase, wire.Timestamp{Sec: sec, Nsec: nsec})
	}

	tt.CommandLine = string(buf[off : off+int(cmdLen)])
	return tt, failed, nil
}
