package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StorageLocal = "local"
	StorageS3    = "s3"

	SourceHTTP  = "http"
	SourceStore = "store"
	SourceEPUB  = "epub"
)

var (
	engineTypes = []string{"auto", "mock", "espeak", "say", "google"}
	sources     = []string{SourceHTTP, SourceStore, SourceEPUB}
	adapters    = []string{StorageLocal, StorageS3}
	logFormats  = []string{"text", "json"}
)

// Config is the typed view of the readaloud configuration
type Config struct {
	TTS     TTSConfig     `mapstructure:"tts"`
	Content ContentConfig `mapstructure:"content"`
	Storage StorageConfig `mapstructure:"storage"`
	Book    BookConfig    `mapstructure:"book"`
	Log     LogConfig     `mapstructure:"log"`
}

type TTSConfig struct {
	Type        string  `mapstructure:"type"`
	Voice       string  `mapstructure:"voice"`
	Language    string  `mapstructure:"language"`
	Speed       float64 `mapstructure:"speed"`
	Volume      float64 `mapstructure:"volume"`
	CachePrefix string  `mapstructure:"cache_prefix"`
}

type ContentConfig struct {
	Source   string        `mapstructure:"source"`
	BaseURL  string        `mapstructure:"base_url"`
	DeviceID string        `mapstructure:"device_id"`
	Timeout  time.Duration `mapstructure:"timeout"`
	EPUBPath string        `mapstructure:"epub_path"`
	Cache    CacheConfig   `mapstructure:"cache"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	MaxAge  time.Duration `mapstructure:"max_age"`
}

// StorageConfig selects and configures the blob store
type StorageConfig struct {
	Adapter string      `mapstructure:"adapter"`
	Local   LocalConfig `mapstructure:"local"`
	S3      S3Config    `mapstructure:"s3"`
}

type LocalConfig struct {
	BasePath string `mapstructure:"base_path"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// BookConfig describes the book to open when no manifest is available
type BookConfig struct {
	ID       string `mapstructure:"id"`
	Title    string `mapstructure:"title"`
	Author   string `mapstructure:"author"`
	Chapters int    `mapstructure:"chapters"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Init points v at the config file search path and the environment.
// An explicit path wins over the search path. A missing config file is not an error.
func Init(v *viper.Viper, path string) error {
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("readaloud")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.readaloud")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("READALOUD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("tts.type", "auto") // Auto-select best engine
	v.SetDefault("tts.voice", "default")
	v.SetDefault("tts.language", "en")
	v.SetDefault("tts.speed", 1.0)
	v.SetDefault("tts.volume", 0.8)
	v.SetDefault("tts.cache_prefix", "audio")

	v.SetDefault("content.source", SourceStore)
	v.SetDefault("content.base_url", "")
	v.SetDefault("content.device_id", "1")
	v.SetDefault("content.timeout", 30*time.Second)
	v.SetDefault("content.epub_path", "")
	v.SetDefault("content.cache.enabled", false)
	v.SetDefault("content.cache.max_age", 24*time.Hour)

	v.SetDefault("storage.adapter", StorageLocal)
	v.SetDefault("storage.local.base_path", CacheDirectory())
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.prefix", "")
	v.SetDefault("storage.s3.access_key_id", "")
	v.SetDefault("storage.s3.secret_access_key", "")

	v.SetDefault("book.id", "")
	v.SetDefault("book.title", "")
	v.SetDefault("book.author", "")
	v.SetDefault("book.chapters", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", filepath.Join(CacheDirectory(), "readaloud.log"))
}

// Load unmarshals v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if !oneOf(c.TTS.Type, engineTypes) {
		return fmt.Errorf("unknown tts.type %q (expected one of %s)", c.TTS.Type, strings.Join(engineTypes, ", "))
	}
	if c.TTS.Speed < 0.5 || c.TTS.Speed > 2.0 {
		return fmt.Errorf("tts.speed must be between 0.5 and 2.0, got %v", c.TTS.Speed)
	}
	if c.TTS.Volume < 0 || c.TTS.Volume > 1.0 {
		return fmt.Errorf("tts.volume must be between 0 and 1.0, got %v", c.TTS.Volume)
	}

	switch c.Content.Source {
	case SourceHTTP:
		if c.Content.BaseURL == "" {
			return errors.New("content.base_url is required for the http source")
		}
		if c.Book.Chapters <= 0 {
			return errors.New("book.chapters is required for the http source")
		}
	case SourceEPUB:
		if c.Content.EPUBPath == "" {
			return errors.New("content.epub_path is required for the epub source")
		}
	case SourceStore:
	default:
		return fmt.Errorf("unknown content.source %q (expected one of %s)", c.Content.Source, strings.Join(sources, ", "))
	}
	if c.Content.Timeout < 0 {
		return errors.New("content.timeout cannot be negative")
	}
	if c.Content.Cache.Enabled && c.Content.Cache.MaxAge <= 0 {
		return errors.New("content.cache.max_age must be positive when the cache is enabled")
	}

	switch c.Storage.Adapter {
	case StorageLocal:
		if c.Storage.Local.BasePath == "" {
			return errors.New("storage.local.base_path is required for the local adapter")
		}
	case StorageS3:
		if c.Storage.S3.Bucket == "" {
			return errors.New("storage.s3.bucket is required for the s3 adapter")
		}
		if c.Storage.S3.Region == "" {
			return errors.New("storage.s3.region is required for the s3 adapter")
		}
	default:
		return fmt.Errorf("unknown storage.adapter %q (expected one of %s)", c.Storage.Adapter, strings.Join(adapters, ", "))
	}

	if c.Book.Chapters < 0 {
		return errors.New("book.chapters cannot be negative")
	}
	if !oneOf(c.Log.Format, logFormats) {
		return fmt.Errorf("unknown log.format %q", c.Log.Format)
	}
	return nil
}

func oneOf(s string, set []string) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

// CacheDirectory returns the directory used for local storage and logs
func CacheDirectory() string {
	// Try to use user's cache directory
	if cacheDir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(cacheDir, "readaloud")
	}

	// Try user's home directory
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".readaloud", "cache")
	}

	if cwd, err := os.Getwd(); err == nil {
		return filepath.Join(cwd, "cache")
	}

	return "cache"
}
