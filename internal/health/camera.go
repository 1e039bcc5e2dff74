package health

import (
	"context"
	"errors"
	"fmt"

	"github.com/zsiec/codescan/internal/scanner"
)

// StatusSource is the part of the scheduler the camera check reads.
type StatusSource interface {
	Status() scanner.Status
}

// CameraChecker reports the camera side of the scan loop: down once the
// camera failed, degraded while it is still being acquired.
type CameraChecker struct {
	src StatusSource
}

func NewCameraChecker(src StatusSource) *CameraChecker {
	return &CameraChecker{src: src}
}

func (c *CameraChecker) Name() string {
	return "camera"
}

func (c *CameraChecker) Check(ctx context.Context) error {
	st := c.src.Status()
	switch st.Phase {
	case scanner.Streaming.String():
		return nil
	case scanner.Failed.String():
		return fmt.Errorf("camera failed: %s", st.Error)
	default:
		return Degraded(errors.New("waiting for camera stream"))
	}
}

func (c *CameraChecker) Details() map[string]interface{} {
	st := c.src.Status()
	return map[string]interface{}{
		"phase":    st.Phase,
		"device":   st.Device.String(),
		"frozen":   st.Frozen,
		"attempts": st.Attempts,
	}
}
