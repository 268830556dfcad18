// Package config provides the unified configuration system for Tributary.
// It defines a single Config structure consumed by the pipeline, organized
// into logical sections:
//   - Warehouse: PostgreSQL connection settings
//   - ObjectStore: S3-compatible object store settings (MinIO in dev)
//   - Scrape: catalog scraper settings (base URLs, politeness, retries)
//   - Geocoder: address API settings
//   - Transform: normalization constants (currency rate, price bounds)
//
// Values are resolved from the environment through Load; a .env file is
// honored when present. Callers should Validate before handing the
// configuration to the engine.
package config

import (
	"fmt"
	"time"
)

// Config is the resolved run configuration consumed by the pipeline.
type Config struct {
	Warehouse   WarehouseConfig   `mapstructure:"warehouse"`
	ObjectStore ObjectStoreConfig `mapstructure:"object_store"`
	Scrape      ScrapeConfig      `mapstructure:"scrape"`
	Geocoder    GeocoderConfig    `mapstructure:"geocoder"`
	Transform   TransformConfig   `mapstructure:"transform"`
	LogLevel    string            `mapstructure:"log_level"`
}

// WarehouseConfig contains PostgreSQL connection settings.
type WarehouseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	// Enabled disables warehouse writes when false (dry extraction runs)
	Enabled bool `mapstructure:"enabled"`
}

// DSN returns the pgx connection string for the warehouse.
func (w WarehouseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		w.User, w.Password, w.Host, w.Port, w.Database, w.SSLMode)
}

// ObjectStoreConfig contains S3-compatible object store settings.
// Endpoint is a custom endpoint for MinIO or other S3-compatible stores;
// leave empty for AWS S3 proper. UseSSL selects https for endpoints
// given without a scheme.
type ObjectStoreConfig struct {
	Endpoint     string `mapstructure:"endpoint"`
	Region       string `mapstructure:"region"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UseSSL       bool   `mapstructure:"use_ssl"`
	ImagesBucket string `mapstructure:"images_bucket"`
	ExportBucket string `mapstructure:"export_bucket"`
	// Enabled disables object-store writes when false
	Enabled bool `mapstructure:"enabled"`
}

// ScrapeConfig contains catalog scraper settings.
type ScrapeConfig struct {
	BooksURL      string        `mapstructure:"books_url"`
	QuotesURL     string        `mapstructure:"quotes_url"`
	Delay         time.Duration `mapstructure:"delay"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	MaxPages      int           `mapstructure:"max_pages"`
	UserAgent     string        `mapstructure:"user_agent"`
}

// GeocoderConfig contains address API settings.
type GeocoderConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	// RateLimitPerSec bounds request rate against the public API
	RateLimitPerSec int `mapstructure:"rate_limit_per_sec"`
}

// TransformConfig contains normalization constants.
type TransformConfig struct {
	// GBPToEUR is the fixed conversion rate applied to catalog prices
	GBPToEUR float64 `mapstructure:"gbp_to_eur"`
	// MaxPriceGBP is the upper validity bound for catalog prices
	MaxPriceGBP float64 `mapstructure:"max_price_gbp"`
}

// Default returns a Config with development defaults.
func Default() *Config {
	return &Config{
		Warehouse: WarehouseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "tributary",
			Password: "tributary",
			Database: "tributary",
			SSLMode:  "disable",
			Enabled:  true,
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:     "http://localhost:9000",
			Region:       "us-east-1",
			AccessKey:    "minioadmin",
			SecretKey:    "minioadmin",
			UseSSL:       false,
			ImagesBucket: "product-images",
			ExportBucket: "data-exports",
			Enabled:      true,
		},
		Scrape: ScrapeConfig{
			BooksURL:      "https://books.toscrape.com/",
			QuotesURL:     "https://quotes.toscrape.com/",
			Delay:         time.Second,
			Timeout:       30 * time.Second,
			RetryAttempts: 3,
			MaxPages:      10,
			UserAgent:     "Mozilla/5.0 (compatible; Tributary/1.0)",
		},
		Geocoder: GeocoderConfig{
			BaseURL:         "https://api-adresse.data.gouv.fr/search/",
			Timeout:         10 * time.Second,
			RetryAttempts:   3,
			RateLimitPerSec: 10,
		},
		Transform: TransformConfig{
			GBPToEUR:    1.17,
			MaxPriceGBP: 500,
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.Warehouse.Enabled {
		if c.Warehouse.Host == "" {
			return fmt.Errorf("warehouse host is required")
		}
		if c.Warehouse.Port <= 0 {
			return fmt.Errorf("warehouse port must be positive")
		}
		if c.Warehouse.Database == "" {
			return fmt.Errorf("warehouse database is required")
		}
	}
	if c.ObjectStore.Enabled {
		if c.ObjectStore.ImagesBucket == "" {
			return fmt.Errorf("object store images bucket is required")
		}
		if c.ObjectStore.ExportBucket == "" {
			return fmt.Errorf("object store export bucket is required")
		}
	}
	if c.Scrape.BooksURL == "" || c.Scrape.QuotesURL == "" {
		return fmt.Errorf("scrape base URLs are required")
	}
	if c.Scrape.RetryAttempts < 0 {
		return fmt.Errorf("retry_attempts cannot be negative")
	}
	if c.Geocoder.BaseURL == "" {
		return fmt.Errorf("geocoder base URL is required")
	}
	if c.Transform.GBPToEUR <= 0 {
		return fmt.Errorf("gbp_to_eur rate must be positive")
	}
	if c.Transform.MaxPriceGBP <= 0 {
		return fmt.Errorf("max_price_gbp must be positive")
	}
	return nil
}
