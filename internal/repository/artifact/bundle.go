// Package artifact persists the fitted model, document matrix and corpus as
// one versioned, checksummed bundle and publishes it atomically.
package artifact

import (
	"context"
	"time"

	"github.com/kailas-cloud/jobrec/internal/domain/posting"
	"github.com/kailas-cloud/jobrec/internal/domain/text"
	"github.com/kailas-cloud/jobrec/internal/domain/vectorspace"
)

// Part names. They double as file names and key suffixes in every backend.
const (
	PartCorpus   = "corpus.parquet"
	PartModel    = "model.bin.zst"
	PartMatrix   = "matrix.bin.zst"
	PartManifest = "manifest.json"
)

// dataParts are the checksummed parts listed in the manifest.
var dataParts = []string{PartCorpus, PartModel, PartMatrix}

// writeOrder lists every part; the manifest goes last so a half-written
// version never looks complete.
var writeOrder = []string{PartCorpus, PartModel, PartMatrix, PartManifest}

// Bundle is everything a recommendation needs at request time.
// Matrix row i is the vector of Corpus posting i.
type Bundle struct {
	Corpus     posting.Corpus
	Model      *vectorspace.Model
	Matrix     *vectorspace.Matrix
	Normalizer text.Config

	// Manifest is filled in by Decode and Store.Load.
	Manifest Manifest
}

// Manifest describes one published bundle.
type Manifest struct {
	Version   string            `json:"version"`
	CreatedAt time.Time         `json:"created_at"`
	Rows      int               `json:"rows"`
	Cols      int               `json:"cols"`
	NNZ       int               `json:"nnz"`
	Checksums map[string]string `json:"checksums"`
}

// Store saves and loads bundles. Save publishes atomically: Load and Current
// see either the previous bundle or the new one, never a mix.
type Store interface {
	Save(ctx context.Context, b *Bundle) (Manifest, error)
	Load(ctx context.Context) (*Bundle, error)
	Current(ctx context.Context) (Manifest, error)
}
