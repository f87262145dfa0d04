// Package kv stores artifact bundles in Redis/Valkey:
//
//	<prefix>artifact:<version>:<part>
//	<prefix>artifact:current
//
// The current pointer is a single SET issued after every part is written.
package kv

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/jobrec/internal/db"
	"github.com/kailas-cloud/jobrec/internal/domain"
	"github.com/kailas-cloud/jobrec/internal/repository/artifact"
)

// store is the consumer interface for the KV backend (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Backend implements artifact.Backend on a key-value store.
type Backend struct {
	store  store
	prefix string
	retain int
	logger *zap.Logger
}

// New creates a backend. An empty prefix uses domain.KeyPrefix.
// retain > 0 keeps only that many newest versions after each publish,
// never fewer than artifact.MinRetain.
func New(s store, prefix string, retain int, logger *zap.Logger) *Backend {
	if prefix == "" {
		prefix = domain.KeyPrefix
	}
	return &Backend{store: s, prefix: prefix + "artifact:", retain: artifact.Retain(retain), logger: logger}
}

// NewStore wraps the backend in an artifact.BlobStore.
func NewStore(s store, prefix string, retain int, logger *zap.Logger) *artifact.BlobStore {
	return artifact.NewStore(New(s, prefix, retain, logger), logger)
}

func (b *Backend) partKey(version, part string) string {
	return b.prefix + version + ":" + part
}

func (b *Backend) currentKey() string {
	return b.prefix + "current"
}

// PutPart stores one part of an unpublished version.
func (b *Backend) PutPart(ctx context.Context, version, part string, data []byte) error {
	if err := validate(version, part); err != nil {
		return err
	}
	if err := b.store.Set(ctx, b.partKey(version, part), data); err != nil {
		return fmt.Errorf("set part: %w", err)
	}
	return nil
}

// GetPart reads one part.
func (b *Backend) GetPart(ctx context.Context, version, part string) ([]byte, error) {
	if err := validate(version, part); err != nil {
		return nil, err
	}
	data, err := b.store.Get(ctx, b.partKey(version, part))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", domain.ErrNotFound, version, part)
		}
		return nil, fmt.Errorf("get part: %w", err)
	}
	return data, nil
}

// Publish sets the current pointer, then prunes old versions.
// A version whose manifest was never written is refused.
func (b *Backend) Publish(ctx context.Context, version string) error {
	if err := artifact.ValidateName(version); err != nil {
		return err
	}
	if _, err := b.GetPart(ctx, version, artifact.PartManifest); err != nil {
		return fmt.Errorf("publish %s: %w", version, err)
	}
	if err := b.store.Set(ctx, b.currentKey(), []byte(version)); err != nil {
		return fmt.Errorf("set current: %w", err)
	}
	b.prune(ctx, version)
	return nil
}

// CurrentVersion reads the current pointer.
func (b *Backend) CurrentVersion(ctx context.Context) (string, error) {
	raw, err := b.store.Get(ctx, b.currentKey())
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return "", fmt.Errorf("%w: no published artifact", domain.ErrNotFound)
		}
		return "", fmt.Errorf("get current: %w", err)
	}
	version := strings.TrimSpace(string(raw))
	if err := artifact.ValidateName(version); err != nil {
		return "", &artifact.CorruptionError{Part: "current", Reason: err.Error()}
	}
	return version, nil
}

// Versions lists stored versions that have a manifest, oldest first.
func (b *Backend) Versions(ctx context.Context) ([]string, error) {
	keys, err := b.store.Scan(ctx, b.prefix+"*:"+artifact.PartManifest)
	if err != nil {
		return nil, fmt.Errorf("scan versions: %w", err)
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		v := strings.TrimSuffix(strings.TrimPrefix(k, b.prefix), ":"+artifact.PartManifest)
		if artifact.ValidateName(v) == nil {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (b *Backend) prune(ctx context.Context, current string) {
	if b.retain <= 0 {
		return
	}
	versions, err := b.Versions(ctx)
	if err != nil {
		b.logger.Warn("artifact prune skipped", zap.Error(err))
		return
	}
	if len(versions) <= b.retain {
		return
	}
	for _, v := range versions[:len(versions)-b.retain] {
		if v == current {
			continue
		}
		keys := make([]string, 0, 4)
		for _, part := range []string{artifact.PartManifest, artifact.PartCorpus, artifact.PartModel, artifact.PartMatrix} {
			keys = append(keys, b.partKey(v, part))
		}
		if err := b.store.Del(ctx, keys...); err != nil {
			b.logger.Warn("artifact prune failed", zap.String("version", v), zap.Error(err))
			continue
		}
		b.logger.Debug("artifact version pruned", zap.String("version", v))
	}
}

func validate(version, part string) error {
	if err := artifact.ValidateName(version); err != nil {
		return err
	}
	return artifact.ValidateName(part)
}
