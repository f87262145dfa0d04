package domain

import (
	"errors"
)

var (
	// ErrData signals an empty or degenerate corpus at fit time.
	ErrData = errors.New("degenerate corpus")
	// ErrEmptyQuery signals that the user text has no usable terms.
	ErrEmptyQuery = errors.New("empty query")
	// ErrInvalidArgument signals a contract violation (bad k, mismatched shapes).
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrArtifactCorruption signals a persisted artifact that fails structural checks.
	ErrArtifactCorruption = errors.New("artifact corrupted")

	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrModelNotLoaded signals that no artifact has been published or loaded yet.
	ErrModelNotLoaded = errors.New("model not loaded")
	// ErrUnsupportedFormat signals an uploaded document type that cannot be read.
	ErrUnsupportedFormat = errors.New("unsupported document format")
)

// KeyPrefix namespaces every key the service writes to a shared key-value store.
const KeyPrefix = "jobrec:"
