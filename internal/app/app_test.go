package app

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/jobrec/internal/config"
	"github.com/kailas-cloud/jobrec/internal/repository/artifact/artifacttest"
	"github.com/kailas-cloud/jobrec/internal/repository/corpus"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Config{}
	cfg.Source.CSV.Path = "postings.csv"
	cfg.Artifacts.FS.Dir = t.TempDir()
	cfg.ApplyDefaults()
	return cfg
}

func TestDeps_Source(t *testing.T) {
	cfg := testConfig(t)
	d := New(cfg, zap.NewNop())
	defer d.Close()

	src, err := d.Source(context.Background())
	if err != nil {
		t.Fatalf("Source: %v", err)
	}
	if _, ok := src.(*corpus.CSVSource); !ok {
		t.Errorf("expected *corpus.CSVSource, got %T", src)
	}

	cfg.Source.Driver = "parquet"
	cfg.Source.Parquet.Path = "postings.parquet"
	src, err = New(cfg, zap.NewNop()).Source(context.Background())
	if err != nil {
		t.Fatalf("Source: %v", err)
	}
	if _, ok := src.(*corpus.ParquetSource); !ok {
		t.Errorf("expected *corpus.ParquetSource, got %T", src)
	}

	cfg.Source.Driver = "mongo"
	if _, err := New(cfg, zap.NewNop()).Source(context.Background()); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestDeps_ArtifactStoreFS(t *testing.T) {
	d := New(testConfig(t), zap.NewNop())
	defer d.Close()

	ctx := context.Background()
	store, err := d.ArtifactStore(ctx)
	if err != nil {
		t.Fatalf("ArtifactStore: %v", err)
	}
	m, err := store.Save(ctx, artifacttest.NewBundle(t))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Manifest.Version != m.Version {
		t.Errorf("loaded version %q, want %q", got.Manifest.Version, m.Version)
	}
}

func TestDeps_ArtifactStoreUnknown(t *testing.T) {
	cfg := testConfig(t)
	cfg.Artifacts.Driver = "ftp"
	if _, err := New(cfg, zap.NewNop()).ArtifactStore(context.Background()); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestDeps_ResultCacheDisabled(t *testing.T) {
	d := New(testConfig(t), zap.NewNop())
	c, err := d.ResultCache(context.Background())
	if err != nil {
		t.Fatalf("ResultCache: %v", err)
	}
	if c != nil {
		t.Error("expected nil cache when disabled")
	}
}

func TestDeps_RedisWithoutAddrs(t *testing.T) {
	d := New(testConfig(t), zap.NewNop())
	if _, err := d.Redis(context.Background()); err == nil {
		t.Error("expected error without addrs")
	}
}

func TestDeps_CloseRunsNewestFirst(t *testing.T) {
	d := New(testConfig(t), zap.NewNop())
	var order []int
	d.closers = append(d.closers, func() { order = append(order, 1) }, func() { order = append(order, 2) })
	d.Close()
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Errorf("close order = %v, want [2 1]", order)
	}
	d.Close()
	if len(order) != 2 {
		t.Error("second Close should be a no-op")
	}
}
