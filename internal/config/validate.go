package config

import (
	"fmt"
	"os"
	"time"
)

func (c *Config) Validate() error {
	if err := c.Scanner.Validate(); err != nil {
		return fmt.Errorf("scanner config: %w", err)
	}

	if err := c.Camera.Validate(); err != nil {
		return fmt.Errorf("camera config: %w", err)
	}

	if err := c.Decoders.Validate(); err != nil {
		return fmt.Errorf("decoders config: %w", err)
	}

	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Redis.Validate(); err != nil {
		return fmt.Errorf("redis config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}

	if c.Server.Enabled && c.Metrics.Enabled && c.Server.Port == c.Metrics.Port {
		return fmt.Errorf("server and metrics ports must be different")
	}

	return nil
}

func (s *ScannerConfig) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("output size must be positive, got %dx%d", s.Width, s.Height)
	}

	if s.RenderInterval < time.Millisecond {
		return fmt.Errorf("render_interval must be at least 1ms, got %v", s.RenderInterval)
	}

	if s.ScanInterval < 0 {
		return fmt.Errorf("scan_interval cannot be negative")
	}

	return nil
}

func (c *CameraConfig) Validate() error {
	switch c.Orientation {
	case "auto", "landscape", "portrait":
	default:
		return fmt.Errorf("orientation must be auto, landscape or portrait, got %q", c.Orientation)
	}

	if c.Width < 0 || c.Height < 0 {
		return fmt.Errorf("capture size cannot be negative")
	}

	if c.ImagePath != "" {
		if _, err := os.Stat(c.ImagePath); err != nil {
			return fmt.Errorf("image_path: %w", err)
		}
		return nil
	}

	if c.Device == "" {
		return fmt.Errorf("device is required when image_path is not set")
	}

	return nil
}

var validLinearFormats = map[string]bool{
	"code_128": true,
	"ean_13":   true,
	"ean_8":    true,
	"upc_a":    true,
}

func (d *DecodersConfig) Validate() error {
	switch d.Mode {
	case "mixed", "multi":
	default:
		return fmt.Errorf("mode must be mixed or multi, got %q", d.Mode)
	}

	switch d.Point {
	case "zxing", "gocv":
	default:
		return fmt.Errorf("point decoder must be zxing or gocv, got %q", d.Point)
	}

	if d.Mode == "mixed" && len(d.LinearFormats) == 0 {
		return fmt.Errorf("at least one linear format is required in mixed mode")
	}

	for _, f := range d.LinearFormats {
		if !validLinearFormats[f] {
			return fmt.Errorf("unknown linear format: %s", f)
		}
	}

	switch d.ReencodeFormat {
	case "png", "jpeg", "none":
	default:
		return fmt.Errorf("reencode_format must be png, jpeg or none, got %q", d.ReencodeFormat)
	}

	return nil
}

func (s *ServerConfig) Validate() error {
	if !s.Enabled {
		return nil
	}

	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", s.Port)
	}

	if s.PreviewRate <= 0 {
		return fmt.Errorf("preview_rate must be positive")
	}

	if s.PreviewBurst <= 0 {
		return fmt.Errorf("preview_burst must be positive")
	}

	if s.PreviewQuality < 1 || s.PreviewQuality > 100 {
		return fmt.Errorf("preview_quality must be between 1 and 100")
	}

	return nil
}

func (r *RedisConfig) Validate() error {
	if !r.Enabled {
		return nil
	}

	if r.Address == "" {
		return fmt.Errorf("redis address is required")
	}

	if r.DB < 0 {
		return fmt.Errorf("invalid Redis database number: %d", r.DB)
	}

	if r.Stream == "" {
		return fmt.Errorf("stream cannot be empty")
	}

	if r.MaxLen < 0 {
		return fmt.Errorf("max_len cannot be negative")
	}

	return nil
}

func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"panic": true,
		"fatal": true,
		"error": true,
		"warn":  true,
		"info":  true,
		"debug": true,
		"trace": true,
	}

	if !validLevels[l.Level] {
		return fmt.Errorf("invalid log level: %s", l.Level)
	}

	if l.Format != "json" && l.Format != "text" {
		return fmt.Errorf("log format must be 'json' or 'text'")
	}

	if l.Output != "stdout" && l.Output != "stderr" {
		if l.MaxSize <= 0 {
			return fmt.Errorf("max_size must be positive for file output")
		}
		if l.MaxBackups < 0 {
			return fmt.Errorf("max_backups cannot be negative")
		}
		if l.MaxAge < 0 {
			return fmt.Errorf("max_age cannot be negative")
		}
	}

	return nil
}

func (m *MetricsConfig) Validate() error {
	if m.Enabled {
		if m.Port < 1 || m.Port > 65535 {
			return fmt.Errorf("invalid metrics port: %d", m.Port)
		}

		if m.Path == "" {
			return fmt.Errorf("metrics path cannot be empty")
		}
	}

	return nil
}
