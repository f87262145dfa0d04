package build

import (
	"context"

	"github.com/kailas-cloud/jobrec/internal/domain/posting"
	"github.com/kailas-cloud/jobrec/internal/repository/artifact"
)

// Source reads the raw postings corpus.
type Source interface {
	Load(ctx context.Context) (posting.Corpus, error)
}

// Store publishes a fitted bundle.
type Store interface {
	Save(ctx context.Context, b *artifact.Bundle) (artifact.Manifest, error)
}

// Notifier announces a newly published artifact.
type Notifier interface {
	Published(ctx context.Context, m artifact.Manifest) error
}
