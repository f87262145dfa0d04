package artifact

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/jobrec/internal/domain"
)

// ValidateName rejects version or part names that could escape a backend
// namespace (path separators, key separators, dot names).
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\:`) {
		return fmt.Errorf("%w: invalid artifact name %q", domain.ErrInvalidArgument, name)
	}
	return nil
}
