// Package camera provides the frame sources the scanner composites from: live
// capture devices and still images.
package camera

import (
	"context"
	"errors"
	"image"
	"io/fs"
	"net/http"
	"sync"

	apperrors "github.com/zsiec/codescan/internal/errors"
	"github.com/zsiec/codescan/internal/frame"
)

// Source is a camera stream. Start resolves once with the stream geometry or
// a terminal failure; it is not retried. Frame returns the current frame and
// is only valid after a successful Start.
type Source interface {
	Start(ctx context.Context) (frame.Size, error)
	Frame() (image.Image, error)
	Close() error
}

// Acquisition failures. Match them with errors.Is; returned errors wrap the
// underlying cause.
var (
	ErrUnsupported      = apperrors.NewUnsupportedError("no media capture capability available")
	ErrPermissionDenied = apperrors.NewPermissionError("camera permission denied").WithCode("NotAllowedError")
	ErrDeviceNotFound   = apperrors.New(apperrors.ErrorTypeDevice, "camera not found", http.StatusServiceUnavailable).WithCode("NotFoundError")
	ErrDeviceBusy       = apperrors.New(apperrors.ErrorTypeDevice, "camera busy or unreadable", http.StatusServiceUnavailable).WithCode("NotReadableError")

	// ErrNotStarted is returned by Frame before Start succeeded.
	ErrNotStarted = errors.New("camera: source not started")

	// ErrSourceClosed is returned by a Start that completes after Close.
	ErrSourceClosed = errors.New("camera: source closed")
)

// classifyOpenError maps an error from opening a device node or file onto the
// acquisition failure taxonomy.
func classifyOpenError(err error, what string) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return apperrors.WrapDeviceError(err, what+" not found").WithCode(ErrDeviceNotFound.Code)
	case errors.Is(err, fs.ErrPermission):
		return apperrors.Wrap(err, apperrors.ErrorTypePermission, "access to "+what+" denied", http.StatusForbidden).
			WithCode(ErrPermissionDenied.Code)
	default:
		return apperrors.WrapDeviceError(err, what+" unreadable").WithCode(ErrDeviceBusy.Code)
	}
}

// Oriented corrects src for the screen orientation: when the reported
// geometry is swapped by frame.Orient, every frame is rotated to match.
func Oriented(src Source, screen frame.Orientation) Source {
	if screen == frame.OrientationAuto {
		return src
	}
	return &orientedSource{Source: src, screen: screen}
}

type orientedSource struct {
	Source
	screen frame.Orientation

	mu      sync.RWMutex
	swapped bool
}

func (o *orientedSource) Start(ctx context.Context) (frame.Size, error) {
	native, err := o.Source.Start(ctx)
	if err != nil {
		return frame.Size{}, err
	}

	size, swapped := frame.Orient(native, o.screen)

	o.mu.Lock()
	o.swapped = swapped
	o.mu.Unlock()

	return size, nil
}

func (o *orientedSource) Frame() (image.Image, error) {
	img, err := o.Source.Frame()
	if err != nil {
		return nil, err
	}

	o.mu.RLock()
	swapped := o.swapped
	o.mu.RUnlock()

	if swapped {
		return frame.Rotate90(img), nil
	}
	return img, nil
}
