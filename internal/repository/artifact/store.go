package artifact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/jobrec/internal/domain"
)

// Backend is the byte storage under a Store. Publish must switch the current
// version atomically; PutPart on an unpublished version is invisible to readers.
// GetPart and CurrentVersion return an error wrapping domain.ErrNotFound when
// nothing is stored.
type Backend interface {
	PutPart(ctx context.Context, version, part string, data []byte) error
	GetPart(ctx context.Context, version, part string) ([]byte, error)
	Publish(ctx context.Context, version string) error
	CurrentVersion(ctx context.Context) (string, error)
}

// MinRetain is the fewest versions a pruning backend keeps: the one being
// published and its predecessor, which a concurrent Load may still be reading.
const MinRetain = 2

// Retain raises a positive retention below MinRetain to MinRetain.
// Zero and negative values disable pruning and are returned unchanged.
func Retain(n int) int {
	if n > 0 && n < MinRetain {
		return MinRetain
	}
	return n
}

// BlobStore implements Store on top of a Backend.
type BlobStore struct {
	backend Backend
	logger  *zap.Logger
	now     func() time.Time
}

var _ Store = (*BlobStore)(nil)

// NewStore creates a Store writing through backend.
func NewStore(backend Backend, logger *zap.Logger) *BlobStore {
	return &BlobStore{backend: backend, logger: logger, now: time.Now}
}

// Save encodes b under a fresh UUIDv7 version, writes every part and then
// publishes the version.
func (s *BlobStore) Save(ctx context.Context, b *Bundle) (Manifest, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Manifest{}, fmt.Errorf("generate version: %w", err)
	}
	version := id.String()

	m, parts, err := Encode(b, version, s.now())
	if err != nil {
		return Manifest{}, err
	}

	for _, name := range writeOrder {
		if err := s.backend.PutPart(ctx, version, name, parts[name]); err != nil {
			return Manifest{}, fmt.Errorf("put %s: %w", name, err)
		}
	}
	if err := s.backend.Publish(ctx, version); err != nil {
		return Manifest{}, fmt.Errorf("publish %s: %w", version, err)
	}

	s.logger.Info("artifact published",
		zap.String("version", version),
		zap.Int("rows", m.Rows),
		zap.Int("cols", m.Cols),
		zap.Int("nnz", m.NNZ),
	)
	return m, nil
}

// Load reads and validates the current bundle.
func (s *BlobStore) Load(ctx context.Context) (*Bundle, error) {
	version, err := s.backend.CurrentVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("current version: %w", err)
	}

	parts := make(Parts, len(writeOrder))
	for _, name := range writeOrder {
		data, err := s.backend.GetPart(ctx, version, name)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, corrupt(name, "part is missing in version %s", version)
			}
			return nil, fmt.Errorf("get %s: %w", name, err)
		}
		parts[name] = data
	}

	b, err := Decode(parts)
	if err != nil {
		return nil, err
	}
	if b.Manifest.Version != version {
		return nil, corrupt(PartManifest, "version %s stored under %s", b.Manifest.Version, version)
	}
	return b, nil
}

// Current returns the manifest of the published bundle without decoding it.
func (s *BlobStore) Current(ctx context.Context) (Manifest, error) {
	version, err := s.backend.CurrentVersion(ctx)
	if err != nil {
		return Manifest{}, fmt.Errorf("current version: %w", err)
	}
	raw, err := s.backend.GetPart(ctx, version, PartManifest)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Manifest{}, corrupt(PartManifest, "part is missing in version %s", version)
		}
		return Manifest{}, fmt.Errorf("get %s: %w", PartManifest, err)
	}
	return ParseManifest(raw)
}
