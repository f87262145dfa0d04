// Package fs stores artifact bundles in a local directory:
//
//	<dir>/versions/<version>/<part>
//	<dir>/CURRENT
//
// CURRENT is replaced by rename, so readers always see a complete version.
package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/jobrec/internal/domain"
	"github.com/kailas-cloud/jobrec/internal/repository/artifact"
)

const (
	versionsDir = "versions"
	currentFile = "CURRENT"
)

// Backend implements artifact.Backend on the local filesystem.
type Backend struct {
	dir    string
	retain int
	logger *zap.Logger
}

// New creates the directory layout under dir. retain > 0 keeps only that many
// newest versions after each publish, never fewer than artifact.MinRetain.
func New(dir string, retain int, logger *zap.Logger) (*Backend, error) {
	if dir == "" {
		return nil, fmt.Errorf("artifact dir is required")
	}
	if err := os.MkdirAll(filepath.Join(dir, versionsDir), 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &Backend{dir: dir, retain: artifact.Retain(retain), logger: logger}, nil
}

// NewStore is New wrapped in an artifact.BlobStore.
func NewStore(dir string, retain int, logger *zap.Logger) (*artifact.BlobStore, error) {
	b, err := New(dir, retain, logger)
	if err != nil {
		return nil, err
	}
	return artifact.NewStore(b, logger), nil
}

// PutPart writes one part of an unpublished version.
func (b *Backend) PutPart(_ context.Context, version, part string, data []byte) error {
	if err := validate(version, part); err != nil {
		return err
	}
	vdir := filepath.Join(b.dir, versionsDir, version)
	if err := os.MkdirAll(vdir, 0o755); err != nil {
		return fmt.Errorf("create version dir: %w", err)
	}
	return writeFileSync(filepath.Join(vdir, part), data)
}

// GetPart reads one part.
func (b *Backend) GetPart(_ context.Context, version, part string) ([]byte, error) {
	if err := validate(version, part); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(b.dir, versionsDir, version, part))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s/%s", domain.ErrNotFound, version, part)
		}
		return nil, fmt.Errorf("read part: %w", err)
	}
	return data, nil
}

// Publish points CURRENT at version via write-then-rename, then prunes.
func (b *Backend) Publish(_ context.Context, version string) error {
	if err := artifact.ValidateName(version); err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Join(b.dir, versionsDir, version, artifact.PartManifest)); err != nil {
		return fmt.Errorf("version %s is incomplete: %w", version, err)
	}

	tmp := filepath.Join(b.dir, currentFile+".tmp")
	if err := writeFileSync(tmp, []byte(version+"\n")); err != nil {
		return err
	}
	if err := os.Rename(tmp, filepath.Join(b.dir, currentFile)); err != nil {
		return fmt.Errorf("rename %s: %w", currentFile, err)
	}
	syncDir(b.dir)

	b.prune(version)
	return nil
}

// CurrentVersion reads CURRENT.
func (b *Backend) CurrentVersion(_ context.Context) (string, error) {
	raw, err := os.ReadFile(filepath.Join(b.dir, currentFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: no published artifact in %s", domain.ErrNotFound, b.dir)
		}
		return "", fmt.Errorf("read %s: %w", currentFile, err)
	}
	version := strings.TrimSpace(string(raw))
	if err := artifact.ValidateName(version); err != nil {
		return "", &artifact.CorruptionError{Part: currentFile, Reason: err.Error()}
	}
	return version, nil
}

// Versions lists stored versions, oldest first (UUIDv7 sorts by time).
func (b *Backend) Versions() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(b.dir, versionsDir))
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// prune failures are logged only; the new version is already live.
func (b *Backend) prune(current string) {
	if b.retain <= 0 {
		return
	}
	versions, err := b.Versions()
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
		if err := os.RemoveAll(filepath.Join(b.dir, versionsDir, v)); err != nil {
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

func writeFileSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	return nil
}

// syncDir makes the rename durable where the platform supports it.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
