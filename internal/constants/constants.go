package constants

import "time"

// Default host configuration constants
const (
	// DefaultQueueDepth is the default number of tags per host
	DefaultQueueDepth = 64

	// DefaultWorkers is the default number of execution workers per host
	DefaultWorkers = 4

	// DefaultLogicalBlockSize is the default logical block size in bytes
	DefaultLogicalBlockSize = 512

	// DefaultAllowedRetries is the default number of retries a command may use
	DefaultAllowedRetries = 5

	// DefaultBackendSize is the default memory backend size in bytes (64MB)
	DefaultBackendSize = 64 << 20

	// MaxQueueDepth is the largest tag space a host can expose
	MaxQueueDepth = 1 << 16
)

// Timing constants for command lifecycle
const (
	// DefaultCommandTimeout matches the block layer's default request timeout
	DefaultCommandTimeout = 30 * time.Second

	// DefaultScanInterval is how often the timeout scanner runs
	DefaultScanInterval = 250 * time.Millisecond
)

// Command descriptor block limits
const (
	// MaxCDBSize is the largest CDB a command can carry
	MaxCDBSize = 32

	// CDBDisplayBuffer is the size of the text buffer a CDB is rendered into,
	// including room for a terminator in the C-style layout it mirrors.
	CDBDisplayBuffer = 80

	// MaxCDBDisplay is the maximum number of bytes a rendered CDB may occupy
	MaxCDBDisplay = CDBDisplayBuffer - 1
)

// Buffer pool constants
const (
	// PooledBufferSize is the size of a pooled write bounce buffer (64KB)
	PooledBufferSize = 64 * 1024
)
