package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Database  DatabaseConfig
	Legacy    LegacyConfig
	Extractor ExtractorConfig
	Identify  IdentifyConfig
	Web       WebConfig
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

// LegacyConfig points at the old MySQL schema used by the import-legacy command.
type LegacyConfig struct {
	DSN string // e.g. educonnect:secret@tcp(localhost:3306)/educonnect
}

type ExtractorConfig struct {
	URL          string `yaml:"url"`            // face embedding service base URL
	MaxImageSize int    `yaml:"max_image_size"` // captures are downscaled to this before upload
}

type IdentifyConfig struct {
	MaxDistance float64 `yaml:"max_distance"`
	SearchLimit int     `yaml:"search_limit"`
}

type WebConfig struct {
	Host string
	Port int
}

// defaults mirrors the structure of the embedded defaults.yaml.
type defaults struct {
	Extractor ExtractorConfig `yaml:"extractor"`
	Identify  IdentifyConfig  `yaml:"identify"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func Load() *Config {
	var def defaults
	if err := yaml.Unmarshal(defaultsYAML, &def); err != nil {
		// Embedded file, so this can only break if the file itself is broken.
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	cfg := &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Legacy: LegacyConfig{
			DSN: os.Getenv("LEGACY_MYSQL_DSN"),
		},
		Extractor: def.Extractor,
		Identify:  def.Identify,
		Web: WebConfig{
			Host: os.Getenv("WEB_HOST"),
			Port: envInt("WEB_PORT", 8080),
		},
	}

	if url := os.Getenv("EXTRACTOR_URL"); url != "" {
		cfg.Extractor.URL = url
	}
	cfg.Extractor.MaxImageSize = envInt("EXTRACTOR_MAX_IMAGE_SIZE", cfg.Extractor.MaxImageSize)

	if cfg.Web.Host == "" {
		cfg.Web.Host = "0.0.0.0"
	}

	return cfg
}
