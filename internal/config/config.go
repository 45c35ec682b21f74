// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"keeptree/internal/catalog"
	"keeptree/internal/safe"
)

type Config struct {
	Server struct {
		Host        string   `json:"host"`
		Port        int      `json:"port"`
		CORSOrigins []string `json:"cors_origins"` // empty allows any origin
	} `json:"server"`

	Database struct {
		Path string `json:"path"`
	} `json:"database"`

	Safe struct {
		CacheSize        int `json:"cache_size"`
		CompressMinSize  int `json:"compress_min_size"`
		CompressionLevel int `json:"compression_level"` // 1=fastest, 4=best
	} `json:"safe"`

	Catalog struct {
		ListingCacheSize int  `json:"listing_cache_size"`
		Strict           bool `json:"strict"` // reject manifests whose tokens overrun their blocks
	} `json:"catalog"`

	Watch struct {
		Dir string `json:"dir"` // empty disables the watcher
	} `json:"watch"`

	Environment string `json:"environment"` // development, production
	LogLevel    string `json:"log_level"`   // debug, info, warn, error
}

// Default returns the configuration used for any field a file omits.
func Default() *Config {
	var c Config
	c.Server.Host = "127.0.0.1"
	c.Server.Port = 8080
	c.Database.Path = "."
	c.Safe.CacheSize = 256
	c.Safe.CompressMinSize = 4096
	c.Safe.CompressionLevel = 2
	c.Catalog.ListingCacheSize = 128
	c.Environment = "development"
	c.LogLevel = "info"
	return &c
}

// Path resolves the config file: KEEPTREE_CONFIG if set, otherwise
// config/config.<KEEPTREE_ENV>.json.
func Path() string {
	if p := os.Getenv("KEEPTREE_CONFIG"); p != "" {
		return p
	}
	env := os.Getenv("KEEPTREE_ENV")
	if env == "" {
		env = "development"
	}
	return fmt.Sprintf("config/config.%s.json", env)
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	config := Default()

	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return config, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Safe.CacheSize <= 0 {
		return fmt.Errorf("safe.cache_size must be positive")
	}
	if c.Safe.CompressionLevel < 1 || c.Safe.CompressionLevel > 4 {
		return fmt.Errorf("safe.compression_level must be between 1 and 4")
	}
	if c.Catalog.ListingCacheSize <= 0 {
		return fmt.Errorf("catalog.listing_cache_size must be positive")
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// CatalogOptions translates the safe and catalog sections.
func (c *Config) CatalogOptions() catalog.Options {
	return catalog.Options{
		ListingCacheSize: c.Catalog.ListingCacheSize,
		Strict:           c.Catalog.Strict,
		Safe: safe.Options{
			CacheSize: c.Safe.CacheSize,
			Compression: safe.CompressionOptions{
				MinSize: c.Safe.CompressMinSize,
				Level:   c.Safe.CompressionLevel,
			},
		},
	}
}
