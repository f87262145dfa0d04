package recommend

import (
	"context"

	"github.com/kailas-cloud/jobrec/internal/domain/ranking"
	"github.com/kailas-cloud/jobrec/internal/repository/artifact"
)

// Store reads the published artifact.
type Store interface {
	Load(ctx context.Context) (*artifact.Bundle, error)
}

// Cache stores ranked hits by request key. Implementations swallow their
// own failures; a failed Get is a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]ranking.Hit, bool)
	Put(ctx context.Context, key string, hits []ranking.Hit)
}
