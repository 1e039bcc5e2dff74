//go:build !gocv

package camera

import (
	"context"
	"image"

	"github.com/zsiec/codescan/internal/config"
	"github.com/zsiec/codescan/internal/frame"
)

// DeviceSupported reports whether live capture is compiled in. Build with
// -tags gocv for OpenCV capture.
const DeviceSupported = false

// NewDeviceSource returns a source whose Start fails with ErrUnsupported.
func NewDeviceSource(cfg config.CameraConfig) Source {
	return unsupportedSource{}
}

type unsupportedSource struct{}

func (unsupportedSource) Start(context.Context) (frame.Size, error) { return frame.Size{}, ErrUnsupported }
func (unsupportedSource) Frame() (image.Image, error)             { return nil, ErrNotStarted }
func (unsupportedSource) Close() error                            { return nil }
