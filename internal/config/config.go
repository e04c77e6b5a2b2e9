// Package config loads and validates run configuration via Viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/ccnews-ingest/internal/ccnews"
	"github.com/JakeFAU/ccnews-ingest/internal/dispatcher"
	"github.com/JakeFAU/ccnews-ingest/internal/parser"
	"github.com/JakeFAU/ccnews-ingest/internal/policy/ratelimit"
	"github.com/JakeFAU/ccnews-ingest/internal/runcontext"
	"github.com/JakeFAU/ccnews-ingest/internal/storage/local"
	"github.com/JakeFAU/ccnews-ingest/internal/storage/s3"
	pkgconfig "github.com/JakeFAU/ccnews-ingest/pkg/config"
)

// Storage providers.
const (
	ProviderS3     = "s3"
	ProviderGCS    = "gcs"
	ProviderLocal  = "local"
	ProviderMemory = "memory"
)

// Config captures all run configuration loaded via Viper.
type Config struct {
	Storage      StorageConfig      `mapstructure:"storage"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Parser       ParserConfig       `mapstructure:"parser"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	PubSub       PubSubConfig       `mapstructure:"pubsub"`
	Ops          OpsConfig          `mapstructure:"ops"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// StorageConfig selects and configures the object store.
type StorageConfig struct {
	Provider string       `mapstructure:"provider"`
	S3       s3.Config    `mapstructure:"s3"`
	Local    local.Config `mapstructure:"local"`
	// MaxRecordBytes caps a single archive record.
	MaxRecordBytes int64 `mapstructure:"max_record_bytes"`
	// Throttle limits sample fetches across all month workers.
	Throttle ratelimit.Config `mapstructure:"throttle"`
}

// DatabaseConfig controls access to the calendar and universe tables.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// ParserConfig holds gate thresholds and extraction tuning.
type ParserConfig struct {
	MinWords           int               `mapstructure:"min_words"`
	MaxWords           int               `mapstructure:"max_words"`
	Language           string            `mapstructure:"language"`
	LanguageConfidence float64           `mapstructure:"language_confidence"`
	Languages          []string          `mapstructure:"languages"`
	PreloadLanguages   bool              `mapstructure:"preload_languages"`
	MaxEntities        int               `mapstructure:"max_entities"`
	FirstDay           string            `mapstructure:"first_day"`
	RootSelectors      []string          `mapstructure:"root_selectors"`
	BodySelectors      []string          `mapstructure:"body_selectors"`
	NonVisibleTags     []string          `mapstructure:"non_visible_tags"`
	NameSuffixes       []string          `mapstructure:"name_suffixes"`
	CharsetAliases     map[string]string `mapstructure:"charset_aliases"`
	MaxBodyBytes       int64             `mapstructure:"max_body_bytes"`
}

// OrchestratorConfig sizes the month pool.
type OrchestratorConfig struct {
	Workers int `mapstructure:"workers"`
}

// PubSubConfig holds the slice completion topic. An empty topic disables publishing.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// OpsConfig controls the ops HTTP server. An empty address disables it.
type OpsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from an optional file and the environment.
func Load(path string) (Config, error) {
	v, _, err := pkgconfig.New(path)
	if err != nil {
		return Config{}, err
	}
	return FromViper(v)
}

// FromViper applies defaults, decodes, and validates.
func FromViper(v *viper.Viper) (Config, error) {
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	gate := parser.DefaultConfig()

	v.SetDefault("storage.provider", ProviderS3)
	v.SetDefault("storage.s3.endpoint", "s3.amazonaws.com")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.access_key", "")
	v.SetDefault("storage.s3.secret_key", "")
	v.SetDefault("storage.s3.use_ssl", true)
	v.SetDefault("storage.local.base_dir", "data")
	v.SetDefault("storage.max_record_bytes", 64<<20)
	v.SetDefault("storage.throttle.rps", 0)
	v.SetDefault("storage.throttle.burst", 1)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_conns", 0)
	v.SetDefault("database.min_conns", 0)
	v.SetDefault("database.max_conn_lifetime", "30m")

	v.SetDefault("parser.min_words", gate.MinWords)
	v.SetDefault("parser.max_words", gate.MaxWords)
	v.SetDefault("parser.language", gate.Language)
	v.SetDefault("parser.language_confidence", gate.MinConfidence)
	v.SetDefault("parser.languages", []string{})
	v.SetDefault("parser.preload_languages", false)
	v.SetDefault("parser.max_entities", gate.MaxEntities)
	v.SetDefault("parser.first_day", runcontext.DefaultFirstDay.Format(ccnews.DateLayout))
	v.SetDefault("parser.max_body_bytes", 32<<20)

	v.SetDefault("orchestrator.workers", dispatcher.DefaultWorkers())
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic", "")
	v.SetDefault("ops.addr", "")
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	switch c.Storage.Provider {
	case ProviderS3:
		if c.Storage.S3.Endpoint == "" {
			return fmt.Errorf("storage.s3.endpoint is required for the s3 provider")
		}
	case ProviderLocal:
		if c.Storage.Local.BaseDir == "" {
			return fmt.Errorf("storage.local.base_dir is required for the local provider")
		}
	case ProviderGCS, ProviderMemory:
	default:
		return fmt.Errorf("unknown storage.provider %q", c.Storage.Provider)
	}
	if c.Storage.MaxRecordBytes <= 0 {
		return fmt.Errorf("storage.max_record_bytes must be > 0")
	}
	if c.Parser.MinWords <= 0 {
		return fmt.Errorf("parser.min_words must be > 0")
	}
	if c.Parser.MaxWords < c.Parser.MinWords {
		return fmt.Errorf("parser.max_words must be >= parser.min_words")
	}
	if c.Parser.LanguageConfidence <= 0 || c.Parser.LanguageConfidence > 1 {
		return fmt.Errorf("parser.language_confidence must be in (0, 1]")
	}
	if c.Parser.Language == "" {
		return fmt.Errorf("parser.language is required")
	}
	if c.Parser.MaxEntities <= 0 {
		return fmt.Errorf("parser.max_entities must be > 0")
	}
	if _, err := c.FirstDay(); err != nil {
		return err
	}
	if c.Orchestrator.Workers <= 0 {
		return fmt.Errorf("orchestrator.workers must be > 0")
	}
	if c.PubSub.Topic != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id is required when pubsub.topic is set")
	}
	return nil
}

// FirstDay parses the first day of the data horizon.
func (c Config) FirstDay() (time.Time, error) {
	day, err := time.Parse(ccnews.DateLayout, c.Parser.FirstDay)
	if err != nil {
		return time.Time{}, fmt.Errorf("parser.first_day: %w", err)
	}
	return day, nil
}

// Gate returns the record gate thresholds.
func (c Config) Gate() parser.Config {
	return parser.Config{
		MinWords:      c.Parser.MinWords,
		MaxWords:      c.Parser.MaxWords,
		Language:      c.Parser.Language,
		MinConfidence: c.Parser.LanguageConfidence,
		MaxEntities:   c.Parser.MaxEntities,
	}
}
