// Package config provides centralized configuration management
// using Viper for configuration loading and validation
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Assets     AssetsConfig     `mapstructure:"assets"`
	Images     ImagesConfig     `mapstructure:"images"`
	Gallery    GalleryConfig    `mapstructure:"gallery"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
}

// ServerConfig contains API server configuration
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	MaxHeaderBytes    int           `mapstructure:"max_header_bytes"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	EnableCORS        bool          `mapstructure:"enable_cors"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
	TrustedProxies    []string      `mapstructure:"trusted_proxies"`
	EnableCompression bool          `mapstructure:"enable_compression"`
}

// AssetsConfig configures the asset origin that serves original photographs
// and their width variants.
type AssetsConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Root         string `mapstructure:"root"`
	URLPrefix    string `mapstructure:"url_prefix"`
	PublicURL    string `mapstructure:"public_url"`
	VariantCache int    `mapstructure:"variant_cache"`
	Watch        bool   `mapstructure:"watch"`
	EnableH2C    bool   `mapstructure:"enable_h2c"`
}

// ImagesConfig holds the delivery and compression policy
type ImagesConfig struct {
	Quality           float64       `mapstructure:"quality"`
	MaxWidth          int           `mapstructure:"max_width"`
	MaxHeight         int           `mapstructure:"max_height"`
	LazyMaxDimension  int           `mapstructure:"lazy_max_dimension"`
	PriorityMaxBytes  int64         `mapstructure:"priority_max_bytes"`
	LazyMaxBytes      int64         `mapstructure:"lazy_max_bytes"`
	RootMargin        int           `mapstructure:"root_margin"`
	Widths            []int         `mapstructure:"widths"`
	PlaceholderColor  string        `mapstructure:"placeholder_color"`
	PlaceholderWidth  int           `mapstructure:"placeholder_width"`
	PlaceholderHeight int           `mapstructure:"placeholder_height"`
	FetchTimeout      time.Duration `mapstructure:"fetch_timeout"`
	CompressTimeout   time.Duration `mapstructure:"compress_timeout"`
	MaxSourceBytes    int64         `mapstructure:"max_source_bytes"`
	MaxMegapixels     float64       `mapstructure:"max_megapixels"`
	AllowedHosts      []string      `mapstructure:"allowed_hosts"`
	BlobCacheSize     int           `mapstructure:"blob_cache_size"`
	BlobTTL           time.Duration `mapstructure:"blob_ttl"`
}

// GalleryConfig holds slideshow tuning
type GalleryConfig struct {
	PreloadDebounce  time.Duration `mapstructure:"preload_debounce"`
	AutoplayInterval time.Duration `mapstructure:"autoplay_interval"`
	SwipeDistance    float64       `mapstructure:"swipe_distance"`
	SwipeVelocity    float64       `mapstructure:"swipe_velocity"`
	ScrollSuppress   float64       `mapstructure:"scroll_suppress"`
}

// DatabaseConfig contains catalog database configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Seed            bool          `mapstructure:"seed"`
}

// RedisConfig contains Redis configuration for the shared blob tier
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	Database     int           `mapstructure:"database"`
	MaxRetries   int           `mapstructure:"max_retries"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// StorageConfig configures object storage origins (s3:// sources)
type StorageConfig struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
}

// MonitoringConfig contains monitoring configuration
type MonitoringConfig struct {
	EnableMetrics   bool    `mapstructure:"enable_metrics"`
	MetricsPath     string  `mapstructure:"metrics_path"`
	EnableTracing   bool    `mapstructure:"enable_tracing"`
	TraceExporter   string  `mapstructure:"trace_exporter"`
	TraceEndpoint   string  `mapstructure:"trace_endpoint"`
	SamplingRate    float64 `mapstructure:"sampling_rate"`
	HealthCheckPath string  `mapstructure:"health_check_path"`
	ReadinessPath   string  `mapstructure:"readiness_path"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enable         bool `mapstructure:"enable"`
	RequestsPerMin int  `mapstructure:"requests_per_min"`
	BurstSize      int  `mapstructure:"burst_size"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}
	return decode(v)
}

// Watch loads the configuration and re-reads it whenever the backing file
// changes. onChange receives each successfully validated reload.
func Watch(configPath string, onChange func(*Config, fsnotify.Event)) (*Config, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	if v.ConfigFileUsed() == "" {
		return cfg, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		reloaded, err := decode(v)
		if err != nil {
			return
		}
		if onChange != nil {
			onChange(reloaded, e)
		}
	})
	v.WatchConfig()

	return cfg, nil
}

func newViper(configPath string) (*viper.Viper, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/manyatta")
	}

	v.SetEnvPrefix("MANYATTA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Defaults cover a missing file
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "New Manyatta Kenya")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.request_timeout", "20s")
	v.SetDefault("server.max_header_bytes", 1<<20)
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.enable_cors", true)
	v.SetDefault("server.enable_compression", true)

	v.SetDefault("assets.enabled", true)
	v.SetDefault("assets.host", "0.0.0.0")
	v.SetDefault("assets.port", 8081)
	v.SetDefault("assets.root", "./public/assets")
	v.SetDefault("assets.url_prefix", "/assets")
	v.SetDefault("assets.public_url", "http://localhost:8081")
	v.SetDefault("assets.variant_cache", 256)
	v.SetDefault("assets.watch", true)
	v.SetDefault("assets.enable_h2c", false)

	v.SetDefault("images.quality", 0.8)
	v.SetDefault("images.max_width", 1920)
	v.SetDefault("images.max_height", 1080)
	v.SetDefault("images.lazy_max_dimension", 1024)
	v.SetDefault("images.priority_max_bytes", 512*1024)
	v.SetDefault("images.lazy_max_bytes", 314572) // 0.3 MiB
	v.SetDefault("images.root_margin", 50)
	v.SetDefault("images.widths", []int{480, 768, 1024, 1440, 1920})
	v.SetDefault("images.placeholder_color", "#e5e7eb")
	v.SetDefault("images.placeholder_width", 400)
	v.SetDefault("images.placeholder_height", 300)
	v.SetDefault("images.fetch_timeout", "10s")
	v.SetDefault("images.compress_timeout", "30s")
	v.SetDefault("images.max_source_bytes", 25<<20)
	v.SetDefault("images.max_megapixels", 40)
	v.SetDefault("images.allowed_hosts", []string{})
	v.SetDefault("images.blob_cache_size", 512)
	v.SetDefault("images.blob_ttl", "1h")

	v.SetDefault("gallery.preload_debounce", "100ms")
	v.SetDefault("gallery.autoplay_interval", "4s")
	v.SetDefault("gallery.swipe_distance", 50)
	v.SetDefault("gallery.swipe_velocity", 0.3)
	v.SetDefault("gallery.scroll_suppress", 10)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.database", "manyatta.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.seed", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("redis.key_prefix", "manyatta:blob:")

	v.SetDefault("storage.region", "af-south-1")

	v.SetDefault("monitoring.enable_metrics", true)
	v.SetDefault("monitoring.metrics_path", "/metrics")
	v.SetDefault("monitoring.enable_tracing", false)
	v.SetDefault("monitoring.trace_exporter", "otlp")
	v.SetDefault("monitoring.trace_endpoint", "localhost:4318")
	v.SetDefault("monitoring.sampling_rate", 0.1)
	v.SetDefault("monitoring.health_check_path", "/health")
	v.SetDefault("monitoring.readiness_path", "/health/ready")

	v.SetDefault("rate_limit.enable", true)
	v.SetDefault("rate_limit.requests_per_min", 600)
	v.SetDefault("rate_limit.burst_size", 60)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if c.Assets.Enabled && (c.Assets.Port < 1 || c.Assets.Port > 65535) {
		return fmt.Errorf("assets.port must be between 1 and 65535")
	}

	if c.Images.Quality <= 0 || c.Images.Quality > 1 {
		return fmt.Errorf("images.quality must be in (0, 1]")
	}

	if c.Images.MaxWidth <= 0 || c.Images.LazyMaxDimension <= 0 {
		return fmt.Errorf("images.max_width and images.lazy_max_dimension must be positive")
	}

	if c.Images.PriorityMaxBytes <= 0 || c.Images.LazyMaxBytes <= 0 {
		return fmt.Errorf("images byte budgets must be positive")
	}

	if c.Images.RootMargin < 0 {
		return fmt.Errorf("images.root_margin must not be negative")
	}

	if c.Images.MaxMegapixels <= 0 {
		return fmt.Errorf("images.max_megapixels must be positive")
	}

	for _, w := range c.Images.Widths {
		if w <= 0 {
			return fmt.Errorf("images.widths must be positive, got %d", w)
		}
	}

	if c.Gallery.AutoplayInterval <= 0 {
		return fmt.Errorf("gallery.autoplay_interval must be positive")
	}

	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}

	switch c.Monitoring.TraceExporter {
	case "otlp", "jaeger":
	default:
		return fmt.Errorf("monitoring.trace_exporter must be otlp or jaeger, got %q", c.Monitoring.TraceExporter)
	}

	return nil
}

// MaxPixels is the decode budget in pixels
func (c ImagesConfig) MaxPixels() int64 {
	return int64(c.MaxMegapixels * 1_000_000)
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// GetDSN returns the postgres connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.Username,
		c.Database.Password,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// RedisAddr returns host:port for the Redis client
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
