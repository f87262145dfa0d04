package artifact

import (
	"fmt"

	"github.com/kailas-cloud/jobrec/internal/domain"
)

// CorruptionError reports a bundle part that failed validation.
type CorruptionError struct {
	Part   string
	Reason string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("%s: %s: %s", domain.ErrArtifactCorruption.Error(), e.Part, e.Reason)
}

func (e *CorruptionError) Unwrap() error { return domain.ErrArtifactCorruption }

func corrupt(part, format string, args ...any) error {
	return &CorruptionError{Part: part, Reason: fmt.Sprintf(format, args...)}
}
