package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kailas-cloud/jobrec/internal/domain"
	"github.com/kailas-cloud/jobrec/internal/domain/posting"
	"github.com/kailas-cloud/jobrec/internal/repository/artifact"
)

// ParquetSource reads a corpus.parquet file written by the artifact store,
// e.g. to refit a published corpus with different model settings.
type ParquetSource struct {
	path   string
	logger *zap.Logger
}

// NewParquetSource creates a parquet source.
func NewParquetSource(path string, logger *zap.Logger) *ParquetSource {
	return &ParquetSource{path: path, logger: logger}
}

// Load reads the file.
func (s *ParquetSource) Load(_ context.Context) (posting.Corpus, error) {
	f, err := os.Open(filepath.Clean(s.path))
	if err != nil {
		return posting.Corpus{}, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return posting.Corpus{}, fmt.Errorf("stat: %w", err)
	}
	c, err := artifact.ReadCorpus(f, stat.Size())
	if err != nil {
		return posting.Corpus{}, fmt.Errorf("%w: %s: %v", domain.ErrData, filepath.Base(s.path), err)
	}
	s.logger.Info("postings loaded", zap.String("path", s.path), zap.Int("postings", c.Len()))
	return c, nil
}
