package frame

import (
	"image"
	"image/color"
	"image/draw"
	"sync"
)

// Buffer is the fixed size raster the compositor writes and decoders read.
// Writes come from the scan loop only; readers take snapshots.
type Buffer struct {
	mu   sync.RWMutex
	img  *image.RGBA
	size Size
}

// NewBuffer returns a black buffer of the given size.
func NewBuffer(size Size) *Buffer {
	b := &Buffer{
		img:  image.NewRGBA(image.Rect(0, 0, size.W, size.H)),
		size: size,
	}
	b.clear()
	return b
}

func (b *Buffer) Size() Size {
	return b.size
}

// Snapshot returns an independent copy of the current contents.
func (b *Buffer) Snapshot() *image.RGBA {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := image.NewRGBA(b.img.Rect)
	copy(out.Pix, b.img.Pix)
	return out
}

// update runs fn with exclusive access to the raster.
func (b *Buffer) update(fn func(dst *image.RGBA)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b.img)
}

func (b *Buffer) clear() {
	draw.Draw(b.img, b.img.Rect, image.NewUniform(color.Black), image.Point{}, draw.Src)
}
