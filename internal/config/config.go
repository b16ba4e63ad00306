package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type ProviderConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type BigQueryConfig struct {
	ProjectID string `mapstructure:"project_id"`
	DatasetID string `mapstructure:"dataset_id"`
}

type GCSConfig struct {
	Bucket string `mapstructure:"bucket"`
}

type NotionConfig struct {
	Token      string `mapstructure:"token"`
	DatabaseID string `mapstructure:"database_id"`
}

type EnrichConfig struct {
	Model string `mapstructure:"model"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Config is the process-wide configuration. It is read once at startup and
// read-only afterwards.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Provider ProviderConfig `mapstructure:"provider"`
	BigQuery BigQueryConfig `mapstructure:"bigquery"`
	GCS      GCSConfig      `mapstructure:"gcs"`
	Notion   NotionConfig   `mapstructure:"notion"`
	Enrich   EnrichConfig   `mapstructure:"enrich"`
	Log      LogConfig      `mapstructure:"log"`
}

// Load reads configuration from the given file path (e.g. "config.yaml").
// An empty path looks for config.yaml in the working directory. Environment
// variables prefixed with BFD_ override file values, e.g. BFD_SERVER_PORT.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetDefault("server.port", 8080)
	v.SetDefault("provider.base_url", "")
	v.SetDefault("bigquery.dataset_id", "ledger")
	v.SetDefault("enrich.model", "gemini-2.5-flash")
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix("BFD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows about, so keys
	// without a default or file entry (e.g. notion.token) must be bound
	// explicitly for BFD_ overrides to reach Unmarshal.
	for _, key := range []string{
		"server.port",
		"provider.base_url",
		"bigquery.project_id",
		"bigquery.dataset_id",
		"gcs.bucket",
		"notion.token",
		"notion.database_id",
		"enrich.model",
		"log.level",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine: defaults + env cover local runs.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}
