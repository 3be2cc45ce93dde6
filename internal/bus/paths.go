package bus

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths locates the well-known FIFOs the bus uses (spec §6): a fixed
// server path and a per-client path parameterized by pid.
type Paths struct {
	ServerFIFO string
	ClientDir  string
}

// DefaultPaths returns the bus's default locations under the system
// temp directory, namespaced so multiple taskd instances don't collide.
func DefaultPaths() Paths {
	base := filepath.Join(os.TempDir(), "taskd")
	return Paths{
		ServerFIFO: filepath.Join(base, "server.fifo"),
		ClientDir:  base,
	}
}

// ClientFIFO returns the path of the client FIFO for the given pid.
func (p Paths) ClientFIFO(pid int) string {
	return filepath.Join(p.ClientDir, fmt.Sprintf("client-%d.fifo", pid))
}
