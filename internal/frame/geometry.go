// Package frame places camera frames into the fixed output raster the
// scanner decodes from.
package frame

import (
	"fmt"
	"image"
	"math"
	"strings"
)

// Size is a width/height pair in pixels.
type Size struct {
	W int `json:"width"`
	H int `json:"height"`
}

// Empty reports whether either dimension is non-positive.
func (s Size) Empty() bool {
	return s.W <= 0 || s.H <= 0
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.W, s.H)
}

// SizeOf returns the size of r.
func SizeOf(r image.Rectangle) Size {
	return Size{W: r.Dx(), H: r.Dy()}
}

// Placement is where a device frame lands in the output buffer. Offsets may
// be negative, in which case the frame is cropped.
type Placement struct {
	DX, DY float64
	W, H   float64
}

// Rect rounds the placement to the pixel grid.
func (p Placement) Rect() image.Rectangle {
	x0 := int(math.Round(p.DX))
	y0 := int(math.Round(p.DY))
	return image.Rect(x0, y0, x0+int(math.Round(p.W)), y0+int(math.Round(p.H)))
}

// Scale is the factor applied to the device frame.
func (p Placement) Scale(device Size) float64 {
	return p.W / float64(device.W)
}

// Place computes the centered, aspect preserving placement of a device frame
// into the output box.
//
// A device frame at least as large as the output on both axes is drawn at
// native scale and center cropped. Otherwise it is scaled to the full output
// height when it is relatively wider than the output, to the full output
// width when it is relatively taller, and centered on the other axis.
//
// Place panics on an empty device size; callers must wait for the source to
// report its geometry.
func Place(device, output Size) Placement {
	if device.Empty() {
		panic(fmt.Sprintf("frame: placement with empty device size %s", device))
	}

	dw, dh := float64(device.W), float64(device.H)
	ow, oh := float64(output.W), float64(output.H)

	switch {
	case ow <= dw && oh <= dh:
		return Placement{DX: (ow - dw) / 2, DY: (oh - dh) / 2, W: dw, H: dh}
	case ow/oh < dw/dh:
		w := dw * (oh / dh)
		return Placement{DX: (ow - w) / 2, DY: 0, W: w, H: oh}
	default:
		h := dh * (ow / dw)
		return Placement{DX: 0, DY: (oh - h) / 2, W: ow, H: h}
	}
}

// Orientation is the physical orientation of the screen the scanner serves.
type Orientation int

const (
	OrientationAuto Orientation = iota
	OrientationLandscape
	OrientationPortrait
)

func (o Orientation) String() string {
	switch o {
	case OrientationLandscape:
		return "landscape"
	case OrientationPortrait:
		return "portrait"
	default:
		return "auto"
	}
}

// ParseOrientation parses "auto", "landscape" or "portrait".
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return OrientationAuto, nil
	case "landscape":
		return OrientationLandscape, nil
	case "portrait":
		return OrientationPortrait, nil
	}
	return OrientationAuto, fmt.Errorf("unknown orientation %q", s)
}

// Orient corrects a device's reported geometry for the screen orientation.
// Sensors report landscape (W > H) natively; on a portrait screen the axes
// are swapped. The second result reports whether a swap happened, in which
// case frames must be rotated to match.
func Orient(native Size, screen Orientation) (Size, bool) {
	if screen == OrientationPortrait && native.W > native.H {
		return Size{W: native.H, H: native.W}, true
	}
	return native, false
}
