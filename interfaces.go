package scmd

import "github.com/ehrlich-b/go-scmd/internal/interfaces"

// Backend interfaces re-exported for host users
type (
	Backend            = interfaces.Backend
	DiscardBackend     = interfaces.DiscardBackend
	WriteZeroesBackend = interfaces.WriteZeroesBackend
	StatBackend        = interfaces.StatBackend
)
