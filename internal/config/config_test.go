package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 400, cfg.Scanner.Width)
	assert.Equal(t, 400, cfg.Scanner.Height)
	assert.Equal(t, 100*time.Millisecond, cfg.Scanner.RenderInterval)
	assert.Equal(t, 600*time.Millisecond, cfg.Scanner.ScanInterval)
	assert.Equal(t, "Failed to access to camera(HTTPS and permissions required)", cfg.Scanner.ErrorLocale)
	assert.False(t, cfg.Scanner.AllowOverlappingScans)
	assert.Equal(t, "mixed", cfg.Decoders.Mode)
	assert.Equal(t, []string{"code_128", "ean_13", "ean_8"}, cfg.Decoders.LinearFormats)
	assert.Equal(t, "auto", cfg.Camera.Orientation)

	require.NoError(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codescan.yaml")
	content := `
scanner:
  width: 640
  height: 480
  render_interval: 50ms
  scan_interval: 1s
  error_locale: "camera unavailable"

camera:
  device: "/dev/video2"
  orientation: portrait

decoders:
  mode: multi
  linear_async: false

logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 640, cfg.Scanner.Width)
	assert.Equal(t, 480, cfg.Scanner.Height)
	assert.Equal(t, 50*time.Millisecond, cfg.Scanner.RenderInterval)
	assert.Equal(t, time.Second, cfg.Scanner.ScanInterval)
	assert.Equal(t, "camera unavailable", cfg.Scanner.ErrorLocale)
	assert.Equal(t, "/dev/video2", cfg.Camera.Device)
	assert.Equal(t, "portrait", cfg.Camera.Orientation)
	assert.Equal(t, "multi", cfg.Decoders.Mode)
	assert.False(t, cfg.Decoders.LinearAsync)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// untouched sections keep their defaults
	assert.Equal(t, "png", cfg.Decoders.ReencodeFormat)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("CODESCAN_SCANNER_SCAN_INTERVAL", "250ms")
	t.Setenv("CODESCAN_REDIS_ENABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.Scanner.ScanInterval)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{
			name:   "zero output width",
			mutate: func(c *Config) { c.Scanner.Width = 0 },
			errMsg: "output size must be positive",
		},
		{
			name:   "render interval too small",
			mutate: func(c *Config) { c.Scanner.RenderInterval = 0 },
			errMsg: "render_interval",
		},
		{
			name:   "unknown orientation",
			mutate: func(c *Config) { c.Camera.Orientation = "sideways" },
			errMsg: "orientation must be",
		},
		{
			name:   "missing image file",
			mutate: func(c *Config) { c.Camera.ImagePath = "/nonexistent/code.png" },
			errMsg: "image_path",
		},
		{
			name:   "no device",
			mutate: func(c *Config) { c.Camera.Device = "" },
			errMsg: "device is required",
		},
		{
			name:   "unknown decoder mode",
			mutate: func(c *Config) { c.Decoders.Mode = "all" },
			errMsg: "mode must be",
		},
		{
			name:   "unknown point decoder",
			mutate: func(c *Config) { c.Decoders.Point = "jsqr" },
			errMsg: "point decoder",
		},
		{
			name:   "unknown linear format",
			mutate: func(c *Config) { c.Decoders.LinearFormats = []string{"code_39"} },
			errMsg: "unknown linear format",
		},
		{
			name:   "mixed mode without linear formats",
			mutate: func(c *Config) { c.Decoders.LinearFormats = nil },
			errMsg: "at least one linear format",
		},
		{
			name:   "bad reencode format",
			mutate: func(c *Config) { c.Decoders.ReencodeFormat = "webp" },
			errMsg: "reencode_format",
		},
		{
			name:   "invalid server port",
			mutate: func(c *Config) { c.Server.Port = 70000 },
			errMsg: "invalid server port",
		},
		{
			name:   "preview quality out of range",
			mutate: func(c *Config) { c.Server.PreviewQuality = 0 },
			errMsg: "preview_quality",
		},
		{
			name: "redis without stream",
			mutate: func(c *Config) {
				c.Redis.Enabled = true
				c.Redis.Stream = ""
			},
			errMsg: "stream cannot be empty",
		},
		{
			name:   "invalid log level",
			mutate: func(c *Config) { c.Logging.Level = "verbose" },
			errMsg: "invalid log level",
		},
		{
			name: "file logging without max size",
			mutate: func(c *Config) {
				c.Logging.Output = "/var/log/codescan.log"
				c.Logging.MaxSize = 0
			},
			errMsg: "max_size must be positive",
		},
		{
			name: "metrics on server port",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Port = c.Server.Port
			},
			errMsg: "must be different",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestDisabledSectionsSkipValidation(t *testing.T) {
	cfg := Default()
	cfg.Server.Enabled = false
	cfg.Server.Port = 0
	cfg.Redis.Enabled = false
	cfg.Redis.Address = ""
	cfg.Metrics.Enabled = false
	cfg.Metrics.Port = 0

	assert.NoError(t, cfg.Validate())
}

func TestImagePathSkipsDeviceCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "code.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o644))

	cfg := Default()
	cfg.Camera.Device = ""
	cfg.Camera.ImagePath = path

	assert.NoError(t, cfg.Validate())
}
