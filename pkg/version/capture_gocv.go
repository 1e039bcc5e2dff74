//go:build gocv

package version

// Capture names the camera backend compiled into this binary.
const Capture = "gocv"
