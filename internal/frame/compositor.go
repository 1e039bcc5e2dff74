package frame

import (
	"image"

	"golang.org/x/image/draw"
)

// Compositor draws device frames into a Buffer at their centered placement.
type Compositor struct {
	buf    *Buffer
	scaler draw.Scaler

	device    Size
	placement Placement
}

func NewCompositor(buf *Buffer) *Compositor {
	return &Compositor{buf: buf, scaler: draw.ApproxBiLinear}
}

// Buffer returns the raster the compositor draws into.
func (c *Compositor) Buffer() *Buffer {
	return c.buf
}

// Composite draws src into the buffer. device is the geometry the source
// reported; src is expected to match it but is always scaled from its own
// bounds. The placement is cached until the device geometry changes.
func (c *Compositor) Composite(src image.Image, device Size) Placement {
	if device != c.device {
		c.device = device
		c.placement = Place(device, c.buf.Size())
	}

	r := c.placement.Rect()
	sr := src.Bounds()

	c.buf.update(func(dst *image.RGBA) {
		if r.Dx() == sr.Dx() && r.Dy() == sr.Dy() {
			draw.Draw(dst, r, src, sr.Min, draw.Src)
			return
		}
		c.scaler.Scale(dst, r, src, sr, draw.Src, nil)
	})

	return c.placement
}

// Rotate90 rotates img a quarter turn clockwise. Frames that are not RGBA are
// converted first so the rotation itself is a plain pixel copy.
func Rotate90(img image.Image) *image.RGBA {
	src, ok := img.(*image.RGBA)
	if !ok {
		b := img.Bounds()
		src = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(src, src.Rect, img, b.Min, draw.Src)
	}

	w, h := src.Rect.Dx(), src.Rect.Dy()
	out := image.NewRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		row := src.Pix[src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y+y):]
		col := (h - 1 - y) * 4
		for x := 0; x < w; x++ {
			d := x*out.Stride + col
			copy(out.Pix[d:d+4], row[x*4:x*4+4])
		}
	}
	return out
}
