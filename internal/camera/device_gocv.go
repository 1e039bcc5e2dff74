//go:build gocv

package camera

import (
	"context"
	"fmt"
	"image"
	"os"
	"strconv"
	"sync"

	"gocv.io/x/gocv"

	"github.com/zsiec/codescan/internal/config"
	"github.com/zsiec/codescan/internal/frame"
)

const DeviceSupported = true

// DeviceSource captures from a V4L2/AVFoundation/DirectShow device through
// OpenCV.
type DeviceSource struct {
	cfg config.CameraConfig

	mu     sync.Mutex
	vc     *gocv.VideoCapture
	mat    gocv.Mat
	closed bool
}

func NewDeviceSource(cfg config.CameraConfig) Source {
	return &DeviceSource{cfg: cfg}
}

func (d *DeviceSource) Start(ctx context.Context) (frame.Size, error) {
	if err := ctx.Err(); err != nil {
		return frame.Size{}, err
	}

	// A device path that cannot be stat'ed tells us more than OpenCV's
	// boolean does.
	var device interface{} = d.cfg.Device
	if idx, err := strconv.Atoi(d.cfg.Device); err == nil {
		device = idx
	} else if _, err := os.Stat(d.cfg.Device); err != nil {
		return frame.Size{}, classifyOpenError(err, "camera "+d.cfg.Device)
	}

	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return frame.Size{}, classifyOpenError(err, "camera "+d.cfg.Device)
	}
	if !vc.IsOpened() {
		vc.Close()
		return frame.Size{}, fmt.Errorf("camera %s: %w", d.cfg.Device, ErrDeviceBusy)
	}

	if d.cfg.Width > 0 && d.cfg.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(d.cfg.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(d.cfg.Height))
	}

	size := frame.Size{
		W: int(vc.Get(gocv.VideoCaptureFrameWidth)),
		H: int(vc.Get(gocv.VideoCaptureFrameHeight)),
	}
	if size.Empty() {
		vc.Close()
		return frame.Size{}, fmt.Errorf("camera %s reported %s: %w", d.cfg.Device, size, ErrDeviceBusy)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		vc.Close()
		return frame.Size{}, ErrSourceClosed
	}
	d.vc = vc
	d.mat = gocv.NewMat()

	return size, nil
}

func (d *DeviceSource) Frame() (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.vc == nil {
		return nil, ErrNotStarted
	}
	if ok := d.vc.Read(&d.mat); !ok || d.mat.Empty() {
		return nil, fmt.Errorf("camera %s: empty frame", d.cfg.Device)
	}
	return d.mat.ToImage()
}

func (d *DeviceSource) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	if d.vc == nil {
		return nil
	}
	d.mat.Close()
	err := d.vc.Close()
	d.vc = nil
	return err
}
