package scmd

import "github.com/ehrlich-b/go-scmd/internal/constants"

// Re-export constants for public API
const (
	DefaultQueueDepth       = constants.DefaultQueueDepth
	DefaultWorkers          = constants.DefaultWorkers
	DefaultLogicalBlockSize = constants.DefaultLogicalBlockSize
	DefaultAllowedRetries   = constants.DefaultAllowedRetries
	DefaultCommandTimeout   = constants.DefaultCommandTimeout
	MaxCDBSize              = constants.MaxCDBSize
	CDBDisplayBuffer        = constants.CDBDisplayBuffer
	MaxCDBDisplay           = constants.MaxCDBDisplay
)
