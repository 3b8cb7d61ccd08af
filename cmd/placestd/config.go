package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type config struct {
	Addr string `yaml:"addr"`
	// DatasetDir holds manifest.yaml and data.gob or the flat index files.
	DatasetDir string `yaml:"dataset_dir"`
	// Standardizer is an optional YAML file over the built-in word lists
	// and weights.
	Standardizer string `yaml:"standardizer"`

	DB    dbConfig    `yaml:"db"`
	Cache cacheConfig `yaml:"cache"`
	TLS   tlsConfig   `yaml:"tls"`
	// MCPQUICAddr serves MCP over QUIC on its own UDP port when TLS is off.
	MCPQUICAddr string `yaml:"mcp_quic_addr"`

	SourcesDB     string        `yaml:"sources_db"`
	CheckInterval time.Duration `yaml:"check_interval"`
}

// dbConfig selects the SQL-backed index instead of the dataset directory.
type dbConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type cacheConfig struct {
	Size int           `yaml:"size"`
	TTL  time.Duration `yaml:"ttl"`
}

// tlsConfig switches serve to the TLS chassis (HTTP/1.1, HTTP/2, HTTP/3 and
// MCP over QUIC on one port).
type tlsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

func defaultConfig() config {
	return config{
		Addr:          ":8420",
		DatasetDir:    "data/geonames",
		DB:            dbConfig{Driver: "sqlite"},
		Cache:         cacheConfig{Size: 100000, TTL: time.Hour},
		TLS:           tlsConfig{Addr: ":8443"},
		SourcesDB:     "data/sources.db",
		CheckInterval: 24 * time.Hour,
	}
}

// loadConfig reads path over the defaults; a missing file leaves the
// defaults. PLACESTD_DB_DRIVER and PLACESTD_DB_DSN override the file.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if v := os.Getenv("PLACESTD_DB_DRIVER"); v != "" {
		cfg.DB.Driver = v
	}
	if v := os.Getenv("PLACESTD_DB_DSN"); v != "" {
		cfg.DB.DSN = v
	}
	return cfg, nil
}
