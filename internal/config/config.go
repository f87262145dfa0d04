package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/jobrec/internal/domain/search/request"
	"github.com/kailas-cloud/jobrec/internal/domain/text"
	"github.com/kailas-cloud/jobrec/internal/domain/vectorspace"
)

// DefaultMaxFeatures caps the vocabulary when model.max_features is unset.
const DefaultMaxFeatures = 5000

// Config holds the jobrec configuration shared by the server and the CLI.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Text      TextConfig      `yaml:"text"`
	Model     ModelConfig     `yaml:"model"`
	Recommend RecommendConfig `yaml:"recommend"`
	Source    SourceConfig    `yaml:"source"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Database  DatabaseConfig  `yaml:"database"`
	Events    EventsConfig    `yaml:"events"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	MaxUploadMB     int `yaml:"max_upload_mb"`
}

// TextConfig holds normalizer settings. They are baked into the artifact at
// build time; the server uses whatever the loaded artifact carries.
type TextConfig struct {
	Language       string   `yaml:"language"`
	MinTokenLength int      `yaml:"min_token_length"`
	Stem           *bool    `yaml:"stem"`
	StripDigits    *bool    `yaml:"strip_digits"`
	ExtraStopwords []string `yaml:"extra_stopwords"`
}

// Normalizer converts the section into a normalizer config.
func (t TextConfig) Normalizer() text.Config {
	cfg := text.DefaultConfig()
	if t.Language != "" {
		cfg.Language = t.Language
	}
	if t.MinTokenLength > 0 {
		cfg.MinTokenLength = t.MinTokenLength
	}
	if t.Stem != nil {
		cfg.Stem = *t.Stem
	}
	if t.StripDigits != nil {
		cfg.StripDigits = *t.StripDigits
	}
	cfg.ExtraStopwords = t.ExtraStopwords
	return cfg
}

// ModelConfig holds vector space settings.
type ModelConfig struct {
	MaxFeatures int `yaml:"max_features"` // 0 = default, negative = unlimited
}

// FitOptions converts the section into fit options.
func (m ModelConfig) FitOptions() vectorspace.FitOptions {
	return vectorspace.FitOptions{MaxFeatures: max(m.MaxFeatures, 0)}
}

// RecommendConfig holds request-time settings.
type RecommendConfig struct {
	DefaultK    int  `yaml:"default_k"`
	MaxK        int  `yaml:"max_k"`
	Cache       bool `yaml:"cache"`
	CacheTTLSec int  `yaml:"cache_ttl_sec"`
}

// Limits converts the section into request limits.
func (r RecommendConfig) Limits() request.Limits {
	return request.Limits{DefaultK: r.DefaultK, MaxK: r.MaxK}
}

// SourceConfig selects where the build reads postings from.
type SourceConfig struct {
	Driver   string               `yaml:"driver"` // csv, postgres, parquet (default: csv)
	CSV      CSVSourceConfig      `yaml:"csv"`
	Postgres PostgresSourceConfig `yaml:"postgres"`
	Parquet  ParquetSourceConfig  `yaml:"parquet"`
}

// CSVSourceConfig holds postings CSV settings.
type CSVSourceConfig struct {
	Path          string `yaml:"path"`
	SkillsMapPath string `yaml:"skills_map_path"`
	JobSkillsPath string `yaml:"job_skills_path"`
}

// PostgresSourceConfig holds postings table settings.
type PostgresSourceConfig struct {
	DSN     string `yaml:"dsn"`
	Table   string `yaml:"table"`
	OrderBy string `yaml:"order_by"`
}

// ParquetSourceConfig holds the path of a previously published corpus.
type ParquetSourceConfig struct {
	Path string `yaml:"path"`
}

// ArtifactsConfig selects the artifact backend.
type ArtifactsConfig struct {
	Driver string           `yaml:"driver"` // fs, s3, kv (default: fs)
	FS     FSArtifactConfig `yaml:"fs"`
	S3     S3ArtifactConfig `yaml:"s3"`
	KV     KVArtifactConfig `yaml:"kv"`
}

// FSArtifactConfig holds local filesystem artifact settings.
type FSArtifactConfig struct {
	Dir    string `yaml:"dir"`
	Retain int    `yaml:"retain"`
}

// S3ArtifactConfig holds object storage artifact settings.
type S3ArtifactConfig struct {
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// KVArtifactConfig holds Redis artifact settings.
type KVArtifactConfig struct {
	Prefix string `yaml:"prefix"`
	Retain int    `yaml:"retain"`
}

// DatabaseConfig holds Redis/Valkey connection settings used by the result
// cache and the kv artifact backend.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EventsConfig holds artifact event settings. Events are off without a URL.
type EventsConfig struct {
	AMQPURL  string `yaml:"amqp_url"`
	Exchange string `yaml:"exchange"`
}

// Enabled reports whether artifact events are configured.
func (e EventsConfig) Enabled() bool { return e.AMQPURL != "" }

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes, defaults and validates a YAML document.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxUploadMB <= 0 {
		c.HTTP.MaxUploadMB = 10
	}
	if c.Model.MaxFeatures == 0 {
		c.Model.MaxFeatures = DefaultMaxFeatures
	}
	if c.Recommend.DefaultK <= 0 {
		c.Recommend.DefaultK = request.DefaultK
	}
	if c.Recommend.MaxK <= 0 {
		c.Recommend.MaxK = request.MaxK
	}
	if c.Recommend.CacheTTLSec <= 0 {
		c.Recommend.CacheTTLSec = 300
	}
	if c.Source.Driver == "" {
		c.Source.Driver = "csv"
	}
	if c.Source.Postgres.Table == "" {
		c.Source.Postgres.Table = "postings"
	}
	if c.Artifacts.Driver == "" {
		c.Artifacts.Driver = "fs"
	}
	if c.Artifacts.FS.Dir == "" {
		c.Artifacts.FS.Dir = "artifacts"
	}
	if c.Artifacts.FS.Retain <= 0 {
		c.Artifacts.FS.Retain = 3
	}
	if c.Artifacts.KV.Retain <= 0 {
		c.Artifacts.KV.Retain = 2
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Events.Exchange == "" {
		c.Events.Exchange = "jobrec.artifacts"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if _, err := text.NewNormalizer(c.Text.Normalizer()); err != nil {
		return fmt.Errorf("text: %w", err)
	}
	if c.Recommend.DefaultK > c.Recommend.MaxK {
		return fmt.Errorf("recommend.default_k (%d) must not exceed recommend.max_k (%d)",
			c.Recommend.DefaultK, c.Recommend.MaxK)
	}
	if err := c.validateSource(); err != nil {
		return err
	}
	if err := c.validateArtifacts(); err != nil {
		return err
	}
	if c.Recommend.Cache && len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required when recommend.cache is on")
	}
	return nil
}

func (c *Config) validateSource() error {
	switch c.Source.Driver {
	case "csv":
		if c.Source.CSV.Path == "" {
			return fmt.Errorf("source.csv.path is required")
		}
	case "postgres":
		if c.Source.Postgres.DSN == "" {
			return fmt.Errorf("source.postgres.dsn is required")
		}
	case "parquet":
		if c.Source.Parquet.Path == "" {
			return fmt.Errorf("source.parquet.path is required")
		}
	default:
		return fmt.Errorf("source.driver must be \"csv\", \"postgres\" or \"parquet\", got %q", c.Source.Driver)
	}
	return nil
}

// minRetain mirrors artifact.MinRetain.
const minRetain = 2

func (c *Config) validateArtifacts() error {
	if c.Artifacts.FS.Retain > 0 && c.Artifacts.FS.Retain < minRetain {
		return fmt.Errorf("artifacts.fs.retain must be 0 or >= %d, got %d", minRetain, c.Artifacts.FS.Retain)
	}
	if c.Artifacts.KV.Retain > 0 && c.Artifacts.KV.Retain < minRetain {
		return fmt.Errorf("artifacts.kv.retain must be 0 or >= %d, got %d", minRetain, c.Artifacts.KV.Retain)
	}
	switch c.Artifacts.Driver {
	case "fs":
	case "s3":
		if c.Artifacts.S3.Bucket == "" {
			return fmt.Errorf("artifacts.s3.bucket is required")
		}
	case "kv":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for the kv artifact driver")
		}
	default:
		return fmt.Errorf("artifacts.driver must be \"fs\", \"s3\" or \"kv\", got %q", c.Artifacts.Driver)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
