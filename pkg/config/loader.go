package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load resolves the configuration from the environment on top of the
// development defaults. Every key is overridable through a TRIBUTARY_
// prefixed variable, e.g. TRIBUTARY_WAREHOUSE_HOST or
// TRIBUTARY_TRANSFORM_GBP_TO_EUR.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TRIBUTARY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, Default())

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults seeds viper with the development defaults so that
// AutomaticEnv sees every key and Unmarshal always produces a complete
// configuration.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("warehouse.host", d.Warehouse.Host)
	v.SetDefault("warehouse.port", d.Warehouse.Port)
	v.SetDefault("warehouse.user", d.Warehouse.User)
	v.SetDefault("warehouse.password", d.Warehouse.Password)
	v.SetDefault("warehouse.database", d.Warehouse.Database)
	v.SetDefault("warehouse.ssl_mode", d.Warehouse.SSLMode)
	v.SetDefault("warehouse.enabled", d.Warehouse.Enabled)

	v.SetDefault("object_store.endpoint", d.ObjectStore.Endpoint)
	v.SetDefault("object_store.region", d.ObjectStore.Region)
	v.SetDefault("object_store.access_key", d.ObjectStore.AccessKey)
	v.SetDefault("object_store.secret_key", d.ObjectStore.SecretKey)
	v.SetDefault("object_store.use_ssl", d.ObjectStore.UseSSL)
	v.SetDefault("object_store.images_bucket", d.ObjectStore.ImagesBucket)
	v.SetDefault("object_store.export_bucket", d.ObjectStore.ExportBucket)
	v.SetDefault("object_store.enabled", d.ObjectStore.Enabled)

	v.SetDefault("scrape.books_url", d.Scrape.BooksURL)
	v.SetDefault("scrape.quotes_url", d.Scrape.QuotesURL)
	v.SetDefault("scrape.delay", d.Scrape.Delay)
	v.SetDefault("scrape.timeout", d.Scrape.Timeout)
	v.SetDefault("scrape.retry_attempts", d.Scrape.RetryAttempts)
	v.SetDefault("scrape.max_pages", d.Scrape.MaxPages)
	v.SetDefault("scrape.user_agent", d.Scrape.UserAgent)

	v.SetDefault("geocoder.base_url", d.Geocoder.BaseURL)
	v.SetDefault("geocoder.timeout", d.Geocoder.Timeout)
	v.SetDefault("geocoder.retry_attempts", d.Geocoder.RetryAttempts)
	v.SetDefault("geocoder.rate_limit_per_sec", d.Geocoder.RateLimitPerSec)

	v.SetDefault("transform.gbp_to_eur", d.Transform.GBPToEUR)
	v.SetDefault("transform.max_price_gbp", d.Transform.MaxPriceGBP)

	v.SetDefault("log_level", d.LogLevel)
}
