//go:build !gocv

package version

// Capture names the camera backend compiled into this binary. Without the
// gocv tag only still images can be scanned.
const Capture = "none"
