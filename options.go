package jobrec

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/jobrec/internal/config"
	"github.com/kailas-cloud/jobrec/internal/domain/search/request"
	"github.com/kailas-cloud/jobrec/internal/repository/artifact"
)

// Option configures Open and Build.
type Option interface {
	apply(*engineConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*engineConfig)

func (f optionFunc) apply(c *engineConfig) { f(c) }

type engineConfig struct {
	cfg    config.Config
	limits request.Limits

	// store overrides the configured backend
	store artifact.Store

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

func newEngineConfig(opts []Option) *engineConfig {
	c := &engineConfig{limits: request.DefaultLimits(), logger: zap.NewNop()}
	c.cfg.Artifacts.Driver = "fs"
	for _, o := range opts {
		o.apply(c)
	}
	c.cfg.ApplyDefaults()
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// S3Config locates artifacts in an S3-compatible bucket.
// Empty keys fall back to the default AWS credential chain.
type S3Config struct {
	Bucket       string
	Prefix       string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// WithDir stores artifacts in a local directory. This is the default
// ("artifacts").
func WithDir(dir string) Option {
	return optionFunc(func(c *engineConfig) {
		c.cfg.Artifacts.Driver = "fs"
		c.cfg.Artifacts.FS.Dir = dir
	})
}

// WithRedis stores artifacts in a Redis or Valkey instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *engineConfig) {
		c.cfg.Artifacts.Driver = "kv"
		c.cfg.Database.Addrs = []string{addr}
		c.cfg.Database.Password = password
	})
}

// WithS3 stores artifacts in an S3 bucket.
func WithS3(s S3Config) Option {
	return optionFunc(func(c *engineConfig) {
		c.cfg.Artifacts.Driver = "s3"
		c.cfg.Artifacts.S3 = config.S3ArtifactConfig(s)
	})
}

// WithRetain sets how many published versions the directory and Redis
// stores keep. Defaults: 3 for directories, 2 for Redis. A positive n below
// 2 is raised to 2; 0 keeps every version.
func WithRetain(n int) Option {
	return optionFunc(func(c *engineConfig) {
		c.cfg.Artifacts.FS.Retain = n
		c.cfg.Artifacts.KV.Retain = n
	})
}

// WithLimits sets the default and maximum number of recommendations.
// Defaults: 3 and 50.
func WithLimits(defaultK, maxK int) Option {
	return optionFunc(func(c *engineConfig) {
		c.limits = request.Limits{DefaultK: defaultK, MaxK: maxK}
	})
}

// WithMaxFeatures caps the vocabulary at build time. Default: 5000.
// A negative value keeps every term.
func WithMaxFeatures(n int) Option {
	return optionFunc(func(c *engineConfig) {
		c.cfg.Model.MaxFeatures = n
	})
}

// WithLanguage selects the stemming language at build time. Default: english.
func WithLanguage(lang string) Option {
	return optionFunc(func(c *engineConfig) {
		c.cfg.Text.Language = lang
	})
}

// WithStopwords adds stopwords to the builtin list at build time.
func WithStopwords(words ...string) Option {
	return optionFunc(func(c *engineConfig) {
		c.cfg.Text.ExtraStopwords = append(c.cfg.Text.ExtraStopwords, words...)
	})
}

// WithoutStemming keeps tokens unstemmed at build time.
func WithoutStemming() Option {
	return optionFunc(func(c *engineConfig) {
		off := false
		c.cfg.Text.Stem = &off
	})
}

// WithLogger enables structured logging. Default: no logging.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *engineConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *engineConfig) {
		c.metricsReg = reg
	})
}

// withStore bypasses the configured backend.
func withStore(s artifact.Store) Option {
	return optionFunc(func(c *engineConfig) {
		c.store = s
	})
}
