package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		Source: SourceConfig{CSV: CSVSourceConfig{Path: "data/postings.csv"}},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected Port=8080, got %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 30 {
		t.Errorf("expected WriteTimeoutSec=30, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.MaxUploadMB != 10 {
		t.Errorf("expected MaxUploadMB=10, got %d", cfg.HTTP.MaxUploadMB)
	}
	if cfg.Model.MaxFeatures != DefaultMaxFeatures {
		t.Errorf("expected MaxFeatures=%d, got %d", DefaultMaxFeatures, cfg.Model.MaxFeatures)
	}
	if cfg.Recommend.DefaultK != 3 || cfg.Recommend.MaxK != 50 {
		t.Errorf("expected k 3/50, got %d/%d", cfg.Recommend.DefaultK, cfg.Recommend.MaxK)
	}
	if cfg.Recommend.CacheTTLSec != 300 {
		t.Errorf("expected CacheTTLSec=300, got %d", cfg.Recommend.CacheTTLSec)
	}
	if cfg.Source.Driver != "csv" {
		t.Errorf("expected source driver csv, got %q", cfg.Source.Driver)
	}
	if cfg.Source.Postgres.Table != "postings" {
		t.Errorf("expected postgres table postings, got %q", cfg.Source.Postgres.Table)
	}
	if cfg.Artifacts.Driver != "fs" || cfg.Artifacts.FS.Dir != "artifacts" || cfg.Artifacts.FS.Retain != 3 {
		t.Errorf("unexpected artifacts defaults: %+v", cfg.Artifacts)
	}
	if cfg.Events.Exchange != "jobrec.artifacts" {
		t.Errorf("expected exchange jobrec.artifacts, got %q", cfg.Events.Exchange)
	}
	if cfg.Events.Enabled() {
		t.Error("events must be off without a url")
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:      HTTPConfig{Port: 9000, ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Model:     ModelConfig{MaxFeatures: -1},
		Recommend: RecommendConfig{DefaultK: 5, MaxK: 20},
		Artifacts: ArtifactsConfig{Driver: "s3", FS: FSArtifactConfig{Dir: "/var/lib/jobrec", Retain: 7}},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 9000 || cfg.HTTP.ReadTimeoutSec != 30 || cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("http overridden: %+v", cfg.HTTP)
	}
	if cfg.Model.MaxFeatures != -1 {
		t.Errorf("expected MaxFeatures=-1, got %d", cfg.Model.MaxFeatures)
	}
	if cfg.Recommend.DefaultK != 5 || cfg.Recommend.MaxK != 20 {
		t.Errorf("recommend overridden: %+v", cfg.Recommend)
	}
	if cfg.Artifacts.Driver != "s3" || cfg.Artifacts.FS.Dir != "/var/lib/jobrec" || cfg.Artifacts.FS.Retain != 7 {
		t.Errorf("artifacts overridden: %+v", cfg.Artifacts)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string // "" means valid
	}{
		{"valid", func(*Config) {}, ""},
		{"invalid port", func(c *Config) { c.HTTP.Port = 70000 }, "http.port"},
		{"unknown language", func(c *Config) { c.Text.Language = "klingon" }, "text"},
		{"default above max", func(c *Config) { c.Recommend.DefaultK = 60 }, "recommend.default_k"},
		{"unknown source", func(c *Config) { c.Source.Driver = "mysql" }, "source.driver"},
		{"csv without path", func(c *Config) { c.Source.CSV.Path = "" }, "source.csv.path"},
		{"postgres without dsn", func(c *Config) { c.Source.Driver = "postgres" }, "source.postgres.dsn"},
		{"parquet without path", func(c *Config) { c.Source.Driver = "parquet" }, "source.parquet.path"},
		{"unknown artifacts", func(c *Config) { c.Artifacts.Driver = "gcs" }, "artifacts.driver"},
		{"s3 without bucket", func(c *Config) { c.Artifacts.Driver = "s3" }, "artifacts.s3.bucket"},
		{"kv without addrs", func(c *Config) { c.Artifacts.Driver = "kv" }, "database.addrs"},
		{"cache without addrs", func(c *Config) { c.Recommend.Cache = true }, "database.addrs"},
		{"fs retain one", func(c *Config) { c.Artifacts.FS.Retain = 1 }, "artifacts.fs.retain"},
		{"kv retain one", func(c *Config) { c.Artifacts.KV.Retain = 1 }, "artifacts.kv.retain"},
		{"fs retain two", func(c *Config) { c.Artifacts.FS.Retain = 2 }, ""},
		{"kv with addrs", func(c *Config) {
			c.Artifacts.Driver = "kv"
			c.Database.Addrs = []string{"localhost:6379"}
		}, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestTextConfig_Normalizer(t *testing.T) {
	off := false
	cfg := TextConfig{Language: "spanish", MinTokenLength: 3, Stem: &off, ExtraStopwords: []string{"empresa"}}.Normalizer()

	if cfg.Language != "spanish" || cfg.MinTokenLength != 3 || cfg.Stem {
		t.Errorf("unexpected normalizer config: %+v", cfg)
	}
	if !cfg.StripDigits {
		t.Error("strip_digits should keep its default when unset")
	}
	if len(cfg.ExtraStopwords) != 1 {
		t.Errorf("expected extra stopwords, got %v", cfg.ExtraStopwords)
	}
}

func TestModelConfig_FitOptions(t *testing.T) {
	if got := (ModelConfig{MaxFeatures: -1}).FitOptions().MaxFeatures; got != 0 {
		t.Errorf("negative max_features should be unlimited, got %d", got)
	}
	if got := (ModelConfig{MaxFeatures: 100}).FitOptions().MaxFeatures; got != 100 {
		t.Errorf("expected 100, got %d", got)
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("JOBREC_TEST_CSV", "/data/postings.csv")

	cfg, err := Parse([]byte(`
source:
  csv:
    path: ${JOBREC_TEST_CSV}
artifacts:
  fs:
    dir: ${JOBREC_TEST_UNSET:-/tmp/artifacts}
recommend:
  default_k: 4
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Source.CSV.Path != "/data/postings.csv" {
		t.Errorf("csv path = %q", cfg.Source.CSV.Path)
	}
	if cfg.Artifacts.FS.Dir != "/tmp/artifacts" {
		t.Errorf("artifacts dir = %q", cfg.Artifacts.FS.Dir)
	}
	if lim := cfg.Recommend.Limits(); lim.DefaultK != 4 || lim.MaxK != 50 {
		t.Errorf("limits = %+v", lim)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("source: [")); err == nil {
		t.Error("expected yaml error")
	}
	if _, err := Parse([]byte("source:\n  driver: mysql\n")); err == nil {
		t.Error("expected validation error")
	}
}

func TestLoad_LocalConfig(t *testing.T) {
	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("Load(local): %v", err)
	}
	if cfg.Source.Driver == "" || cfg.Artifacts.Driver == "" {
		t.Errorf("local config incomplete: %+v", cfg)
	}
}
