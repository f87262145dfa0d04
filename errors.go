package jobrec

import "github.com/kailas-cloud/jobrec/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrData               = domain.ErrData
	ErrInvalidArgument    = domain.ErrInvalidArgument
	ErrArtifactCorruption = domain.ErrArtifactCorruption
	ErrNotFound           = domain.ErrNotFound
	ErrModelNotLoaded     = domain.ErrModelNotLoaded
)
