// Package app opens the sources, stores and caches named by a Config.
// Both binaries wire their services through it.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/jobrec/internal/config"
	dbRedis "github.com/kailas-cloud/jobrec/internal/db/redis"
	"github.com/kailas-cloud/jobrec/internal/metrics"
	"github.com/kailas-cloud/jobrec/internal/repository/artifact"
	"github.com/kailas-cloud/jobrec/internal/repository/artifact/fs"
	"github.com/kailas-cloud/jobrec/internal/repository/artifact/kv"
	"github.com/kailas-cloud/jobrec/internal/repository/artifact/s3"
	"github.com/kailas-cloud/jobrec/internal/repository/corpus"
	"github.com/kailas-cloud/jobrec/internal/repository/reccache"
)

// Deps opens dependencies on demand and closes them together.
type Deps struct {
	cfg     config.Config
	logger  *zap.Logger
	redis   *dbRedis.Store
	closers []func()
}

// New creates an empty dependency set for cfg.
func New(cfg config.Config, logger *zap.Logger) *Deps {
	return &Deps{cfg: cfg, logger: logger}
}

// Redis connects to the configured database once and waits until it answers.
func (d *Deps) Redis(ctx context.Context) (*dbRedis.Store, error) {
	if d.redis != nil {
		return d.redis, nil
	}
	dbc := d.cfg.Database
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    dbc.Addrs,
		Username: dbc.Username,
		Password: dbc.Password,
		DB:       dbc.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	if err := store.WaitForReady(ctx, time.Duration(dbc.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, err
	}
	d.logger.Info("Connected to database", zap.Strings("addrs", dbc.Addrs))
	d.redis = store
	d.closers = append(d.closers, store.Close)
	return store, nil
}

// Source opens the configured posting source.
func (d *Deps) Source(ctx context.Context) (corpus.Source, error) {
	sc := d.cfg.Source
	switch sc.Driver {
	case "csv":
		return corpus.NewCSVSource(corpus.CSVConfig{
			Path:          sc.CSV.Path,
			SkillsMapPath: sc.CSV.SkillsMapPath,
			JobSkillsPath: sc.CSV.JobSkillsPath,
		}, d.logger), nil
	case "parquet":
		return corpus.NewParquetSource(sc.Parquet.Path, d.logger), nil
	case "postgres":
		pg, err := corpus.OpenPostgres(ctx, sc.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, func() { _ = pg.Close() })
		return corpus.NewPostgresSource(pg, sc.Postgres.Table, sc.Postgres.OrderBy, d.logger)
	default:
		return nil, fmt.Errorf("unknown source driver %q", sc.Driver)
	}
}

// ArtifactStore opens the configured artifact backend.
func (d *Deps) ArtifactStore(ctx context.Context) (artifact.Store, error) {
	ac := d.cfg.Artifacts
	switch ac.Driver {
	case "fs":
		return fs.NewStore(ac.FS.Dir, ac.FS.Retain, d.logger)
	case "s3":
		return s3.NewStore(ctx, s3.Config{
			Bucket:       ac.S3.Bucket,
			Prefix:       ac.S3.Prefix,
			Region:       ac.S3.Region,
			Endpoint:     ac.S3.Endpoint,
			AccessKey:    ac.S3.AccessKey,
			SecretKey:    ac.S3.SecretKey,
			UsePathStyle: ac.S3.UsePathStyle,
		}, d.logger)
	case "kv":
		store, err := d.Redis(ctx)
		if err != nil {
			return nil, err
		}
		return kv.NewStore(store, ac.KV.Prefix, ac.KV.Retain, d.logger), nil
	default:
		return nil, fmt.Errorf("unknown artifacts driver %q", ac.Driver)
	}
}

// ResultCache returns the recommendation cache, or nil when it is disabled.
func (d *Deps) ResultCache(ctx context.Context) (*reccache.Cache, error) {
	rc := d.cfg.Recommend
	if !rc.Cache {
		return nil, nil
	}
	store, err := d.Redis(ctx)
	if err != nil {
		return nil, err
	}
	ttl := time.Duration(rc.CacheTTLSec) * time.Second
	return reccache.New(store, ttl, metrics.RecommendCacheTotal, d.logger.Named("reccache")), nil
}

// Close releases everything opened so far, newest first.
func (d *Deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
	d.redis = nil
}
