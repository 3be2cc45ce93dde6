package taskd

import "github.com/behrlich/taskd/internal/constants"

// Re-export tuning knobs for public API consumers (cmd/ binaries, examples)
// that want the defaults without importing internal/constants directly.
const (
	DefaultTaskSlots   = constants.DefaultTaskSlots
	DefaultStatusSlots = constants.DefaultStatusSlots
	SendRetryAttempts  = constants.SendRetryAttempts
	SendRetryDelay     = constants.SendRetryDelay
)
