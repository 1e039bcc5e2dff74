package scanner

import (
	"fmt"
	"time"

	"github.com/zsiec/codescan/internal/clock"
	"github.com/zsiec/codescan/internal/config"
	"github.com/zsiec/codescan/internal/decoder"
)

const (
	DefaultWidth          = 400
	DefaultHeight         = 400
	DefaultRenderInterval = 100 * time.Millisecond
	DefaultScanInterval   = 600 * time.Millisecond
	DefaultErrorLocale    = "Failed to access to camera(HTTPS and permissions required)"
)

// ScanInfo describes a resolved scan attempt.
type ScanInfo struct {
	AttemptID uint64
	ScanCost  time.Duration // scan start to decoder resolution
	Hit       bool
}

// Detection is a reported code with the context it was found in.
type Detection struct {
	decoder.Hit
	SessionID  string        `json:"session_id"`
	AttemptID  uint64        `json:"attempt_id"`
	DetectedAt time.Time     `json:"detected_at"`
	ScanCost   time.Duration `json:"scan_cost"`
}

// Options configures a Scheduler. Zero sizes and intervals take the defaults.
type Options struct {
	Width, Height  int
	RenderInterval time.Duration
	// ScanInterval is the minimum time between scans; a scan needs strictly
	// more than this. Zero means the 600ms default, so to scan on every
	// tick use any positive value below RenderInterval.
	ScanInterval time.Duration

	// ShowStaticImage starts the scheduler frozen.
	ShowStaticImage bool
	// ErrorLocale is the text shown in place of the preview after a camera
	// failure.
	ErrorLocale string

	// OnCodeDetected is required. It runs on the scan loop at most once per
	// session; Reset starts a new session.
	OnCodeDetected func(payload string, kind decoder.Kind)
	// OnDetection, if set, receives the same detection with its context.
	OnDetection func(Detection)
	// OnError receives a camera acquisition failure. Without it the failure
	// is returned from Run.
	OnError func(err error)
	// OnScanFinish receives the cost of every resolved attempt.
	OnScanFinish func(ScanInfo)

	// AllowOverlappingScans issues due scans even while an asynchronous
	// linear decode is still running. Off by default: the scan waits for
	// the first tick after the decode resolves.
	AllowOverlappingScans bool

	Clock clock.Clock
}

// OptionsFromConfig maps the scanner config section onto Options. Callbacks
// are left for the caller.
func OptionsFromConfig(cfg config.ScannerConfig) Options {
	return Options{
		Width:                 cfg.Width,
		Height:                cfg.Height,
		RenderInterval:        cfg.RenderInterval,
		ScanInterval:          cfg.ScanInterval,
		ShowStaticImage:       cfg.ShowStaticImage,
		ErrorLocale:           cfg.ErrorLocale,
		AllowOverlappingScans: cfg.AllowOverlappingScans,
	}
}

func (o *Options) setDefaults() {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.RenderInterval <= 0 {
		o.RenderInterval = DefaultRenderInterval
	}
	if o.ScanInterval <= 0 {
		o.ScanInterval = DefaultScanInterval
	}
	if o.ErrorLocale == "" {
		o.ErrorLocale = DefaultErrorLocale
	}
	if o.Clock == nil {
		o.Clock = clock.Real{}
	}
}

func (o *Options) validate() error {
	if o.OnCodeDetected == nil {
		return fmt.Errorf("scanner: OnCodeDetected is required")
	}
	return nil
}
