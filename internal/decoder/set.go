package decoder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/zsiec/codescan/internal/config"
	apperrors "github.com/zsiec/codescan/internal/errors"
	"github.com/zsiec/codescan/internal/logger"
	"github.com/zsiec/codescan/internal/metrics"
)

// Set is the pair of decoders a scan attempt races. Point runs first and
// synchronously; Linear runs only when Point missed, and may be run off the
// scan loop when LinearAsync is set.
//
// Decoder faults never leave the Set: errors and panics are logged, counted
// and reported as a miss.
type Set struct {
	Point       Decoder
	Linear      Decoder // optional
	LinearAsync bool

	log       *logger.SampledLogger
	faultLogs rate.Sometimes
}

func NewSet(point, linear Decoder, linearAsync bool, log logger.Logger) *Set {
	return &Set{
		Point:       point,
		Linear:      linear,
		LinearAsync: linearAsync && linear != nil,
		log:         logger.NewScanLogger(logger.OrNull(log).WithField("component", "decoder")),
		faultLogs:   rate.Sometimes{First: 3, Interval: 10 * time.Second},
	}
}

// FromConfig builds the Set described by the decoders config section.
func FromConfig(cfg config.DecodersConfig, log logger.Logger) (*Set, error) {
	if cfg.Mode == "multi" {
		return NewSet(NewMultiFormatDecoder(), nil, false, log), nil
	}

	point, err := newPoint(cfg)
	if err != nil {
		return nil, err
	}

	linear, err := NewLinearDecoder(cfg.TryHarder, cfg.LinearFormats...)
	if err != nil {
		return nil, err
	}
	linear, err = Reencode(linear, cfg.ReencodeFormat)
	if err != nil {
		return nil, err
	}

	return NewSet(point, linear, cfg.LinearAsync, log), nil
}

func newPoint(cfg config.DecodersConfig) (Decoder, error) {
	switch cfg.Point {
	case "", "zxing":
		return NewQRDecoder(cfg.TryHarder), nil
	case "gocv":
		return NewGoCVQRDecoder()
	}
	return nil, fmt.Errorf("decoder: unknown point decoder %q", cfg.Point)
}

// Race tries Point then Linear synchronously. The Linear decoder is not
// invoked when Point hits.
func (s *Set) Race(ctx context.Context, img image.Image) (Hit, bool) {
	if hit, ok := s.TryPoint(ctx, img); ok {
		return hit, true
	}
	return s.TryLinear(ctx, img)
}

func (s *Set) TryPoint(ctx context.Context, img image.Image) (Hit, bool) {
	return s.try(ctx, s.Point, PointSymbol, img)
}

// TryLinear reports a miss when the Set has no linear decoder.
func (s *Set) TryLinear(ctx context.Context, img image.Image) (Hit, bool) {
	if s.Linear == nil {
		return Hit{}, false
	}
	return s.try(ctx, s.Linear, LinearSymbol, img)
}

func (s *Set) try(ctx context.Context, d Decoder, slot Kind, img image.Image) (hit Hit, ok bool) {
	if d == nil {
		return Hit{}, false
	}

	defer func() {
		if r := recover(); r != nil {
			s.fault(d, fmt.Errorf("panic: %v", r))
			hit, ok = Hit{}, false
		}
	}()

	res, err := d.Decode(ctx, img)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			s.log.DebugWithCategory(logger.CategoryDecoderMiss, "no symbol", map[string]interface{}{"decoder": d.Name()})
			return Hit{}, false
		}
		s.fault(d, err)
		return Hit{}, false
	}

	payload := strings.TrimSpace(res.Text)
	if payload == "" {
		return Hit{}, false
	}

	metrics.IncrementDecoderHit(d.Name())
	return Hit{
		Payload: payload,
		Kind:    kindOf(res.Format, slot),
		Format:  res.Format,
		Decoder: d.Name(),
	}, true
}

func (s *Set) fault(d Decoder, err error) {
	metrics.IncrementDecoderError(d.Name())
	appErr := apperrors.WrapDecodeError(err, d.Name())
	s.faultLogs.Do(func() {
		s.log.WarnWithCategory(logger.CategoryDecoderFault, appErr.Error(), map[string]interface{}{"decoder": d.Name()})
	})
}
