package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Scanner  ScannerConfig  `mapstructure:"scanner"`
	Camera   CameraConfig   `mapstructure:"camera"`
	Decoders DecodersConfig `mapstructure:"decoders"`
	Server   ServerConfig   `mapstructure:"server"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type ScannerConfig struct {
	Width          int           `mapstructure:"width"`           // output buffer width in pixels
	Height         int           `mapstructure:"height"`          // output buffer height in pixels
	RenderInterval time.Duration `mapstructure:"render_interval"` // tick period
	ScanInterval   time.Duration `mapstructure:"scan_interval"`   // minimum gap between scan attempts

	ShowStaticImage       bool   `mapstructure:"show_static_image"`
	ErrorLocale           string `mapstructure:"error_locale"`
	AllowOverlappingScans bool   `mapstructure:"allow_overlapping_scans"`

	// Continuous resets the session after every detection instead of exiting.
	Continuous bool `mapstructure:"continuous"`
}

type CameraConfig struct {
	Device      string `mapstructure:"device"`      // index ("0") or device path
	Width       int    `mapstructure:"width"`       // requested capture width, 0 for driver default
	Height      int    `mapstructure:"height"`      // requested capture height, 0 for driver default
	Orientation string `mapstructure:"orientation"` // auto, landscape or portrait
	ImagePath   string `mapstructure:"image_path"`  // scan a still image instead of a device
}

type DecodersConfig struct {
	Mode           string   `mapstructure:"mode"`            // mixed or multi
	Point          string   `mapstructure:"point"`           // zxing or gocv
	LinearFormats  []string `mapstructure:"linear_formats"`  // code_128, ean_13, ean_8
	LinearAsync    bool     `mapstructure:"linear_async"`    // run the linear decoder off the tick loop
	ReencodeFormat string   `mapstructure:"reencode_format"` // png, jpeg or none
	TryHarder      bool     `mapstructure:"try_harder"`
}

type ServerConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	ListenAddr      string        `mapstructure:"listen_addr"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	PreviewRate    float64 `mapstructure:"preview_rate"` // preview requests per second
	PreviewBurst   int     `mapstructure:"preview_burst"`
	PreviewQuality int     `mapstructure:"preview_quality"` // JPEG quality 1-100
}

type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	Stream       string        `mapstructure:"stream"`
	MaxLen       int64         `mapstructure:"max_len"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`     // json or text
	Output     string `mapstructure:"output"`     // stdout, stderr, or file path
	MaxSize    int    `mapstructure:"max_size"`   // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Port    int    `mapstructure:"port"`
}

// Load reads configPath (YAML) with CODESCAN_* environment overrides. An empty
// path loads defaults and environment only.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetEnvPrefix("CODESCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration Load produces with no file and no
// environment overrides.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	// Defaults are static; a failure here is a programming error.
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config defaults do not unmarshal: %v", err))
	}
	return &cfg
}

func setDefaults(v *viper.Viper) {
	// Scanner defaults
	v.SetDefault("scanner.width", 400)
	v.SetDefault("scanner.height", 400)
	v.SetDefault("scanner.render_interval", "100ms")
	v.SetDefault("scanner.scan_interval", "600ms")
	v.SetDefault("scanner.show_static_image", false)
	v.SetDefault("scanner.error_locale", "Failed to access to camera(HTTPS and permissions required)")
	v.SetDefault("scanner.allow_overlapping_scans", false)
	v.SetDefault("scanner.continuous", false)

	// Camera defaults
	v.SetDefault("camera.device", "0")
	v.SetDefault("camera.width", 0)
	v.SetDefault("camera.height", 0)
	v.SetDefault("camera.orientation", "auto")
	v.SetDefault("camera.image_path", "")

	// Decoder defaults: QR first, then the common retail linear formats
	v.SetDefault("decoders.mode", "mixed")
	v.SetDefault("decoders.point", "zxing")
	v.SetDefault("decoders.linear_formats", []string{"code_128", "ean_13", "ean_8"})
	v.SetDefault("decoders.linear_async", true)
	v.SetDefault("decoders.reencode_format", "png")
	v.SetDefault("decoders.try_harder", true)

	// Server defaults
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.listen_addr", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("server.preview_rate", 10.0)
	v.SetDefault("server.preview_burst", 5)
	v.SetDefault("server.preview_quality", 80)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "codescan:results")
	v.SetDefault("redis.max_len", 10000)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.write_timeout", "3s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age", 30)

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.port", 9090)
}
