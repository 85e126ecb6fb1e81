package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/termdict"
	"github.com/hupe1980/termdict/blocktree"
	"github.com/hupe1980/termdict/codec"
)

// Config is the optional YAML configuration file. Flags override it.
type Config struct {
	Store StoreConfig `yaml:"store"`
	Build BuildConfig `yaml:"build"`
	Read  ReadConfig  `yaml:"read"`
	Log   LogConfig   `yaml:"log"`
}

// StoreConfig selects where segments live.
type StoreConfig struct {
	// URL is a directory, file:///dir, mem://, s3://bucket/prefix,
	// s3express://bucket/prefix or minio://bucket/prefix.
	URL string `yaml:"url"`
	// Endpoint is the MinIO server address (host:port).
	Endpoint  string `yaml:"endpoint,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
	UseSSL    bool   `yaml:"use_ssl,omitempty"`
	// Region overrides the AWS region from the environment.
	Region string `yaml:"region,omitempty"`
	// PageCacheSize enables a page cache in front of remote stores.
	PageCacheSize int64 `yaml:"page_cache_size,omitempty"`
	PageSize      int64 `yaml:"page_size,omitempty"`
}

// BuildConfig configures segment construction.
type BuildConfig struct {
	MinItemsInBlock     int    `yaml:"min_items_in_block"`
	MaxItemsInBlock     int    `yaml:"max_items_in_block"`
	Compression         string `yaml:"compression"`
	Codec               string `yaml:"codec"`
	MaxConcurrentBuilds int    `yaml:"max_concurrent_builds"`
	MemoryLimit         int64  `yaml:"memory_limit,omitempty"`
	WriteRateLimit      int64  `yaml:"write_rate_limit,omitempty"`
}

// ReadConfig configures segment readers.
type ReadConfig struct {
	BlockCacheSize int64 `yaml:"block_cache_size"`
	ReadAhead      int   `yaml:"read_ahead,omitempty"`
	// DiskCacheDir keeps term blocks of remote segments on local disk
	// across runs.
	DiskCacheDir  string `yaml:"disk_cache_dir,omitempty"`
	DiskCacheSize int64  `yaml:"disk_cache_size,omitempty"`
}

const defaultDiskCacheSize = 1 << 30

// LogConfig configures diagnostics on stderr.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the configuration used without a config file.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{URL: "."},
		Build: BuildConfig{
			MinItemsInBlock:     blocktree.DefaultMinItemsInBlock,
			MaxItemsInBlock:     blocktree.DefaultMaxItemsInBlock,
			Compression:         "none",
			Codec:               codec.Default.Name(),
			MaxConcurrentBuilds: 4,
		},
		Read: ReadConfig{BlockCacheSize: 32 << 20},
		Log:  LogConfig{Level: "warn", Format: "text"},
	}
}

// LoadConfig reads a YAML file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Options maps the configuration to termdict options.
func (c Config) Options() ([]termdict.Option, error) {
	comp, err := termdict.ParseCompression(c.Build.Compression)
	if err != nil {
		return nil, err
	}
	cd, err := codec.Lookup(c.Build.Codec)
	if err != nil {
		return nil, err
	}
	logger, err := c.Log.logger()
	if err != nil {
		return nil, err
	}
	return []termdict.Option{
		termdict.WithLogger(logger),
		termdict.WithCodec(cd),
		termdict.WithCompression(comp),
		termdict.WithBlockSize(c.Build.MinItemsInBlock, c.Build.MaxItemsInBlock),
		termdict.WithMaxConcurrentBuilds(c.Build.MaxConcurrentBuilds),
		termdict.WithMemoryLimit(c.Build.MemoryLimit),
		termdict.WithWriteRateLimit(c.Build.WriteRateLimit),
		termdict.WithBlockCacheSize(c.Read.BlockCacheSize),
		termdict.WithReadAhead(c.Read.ReadAhead),
	}, nil
}

func (c LogConfig) logger() (*termdict.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}
	switch strings.ToLower(c.Format) {
	case "", "text":
		return termdict.NewTextLogger(level), nil
	case "json":
		return termdict.NewJSONLogger(level), nil
	default:
		return nil, fmt.Errorf("invalid log format %q: must be text or json", c.Format)
	}
}
