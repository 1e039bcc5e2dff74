package camera

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/zsiec/codescan/internal/frame"
)

// ImageSource serves a single still image as a stream that never changes.
type ImageSource struct {
	path string

	mu  sync.RWMutex
	img image.Image
}

// NewImageSource returns a source that decodes path (JPEG, PNG, GIF, BMP,
// TIFF or WebP) on Start.
func NewImageSource(path string) *ImageSource {
	return &ImageSource{path: path}
}

// NewStaticSource serves an already decoded image.
func NewStaticSource(img image.Image) *ImageSource {
	return &ImageSource{img: img}
}

func (s *ImageSource) Start(ctx context.Context) (frame.Size, error) {
	if err := ctx.Err(); err != nil {
		return frame.Size{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.img == nil {
		img, err := decodeFile(s.path)
		if err != nil {
			return frame.Size{}, err
		}
		s.img = img
	}

	size := frame.SizeOf(s.img.Bounds())
	if size.Empty() {
		return frame.Size{}, fmt.Errorf("image %s: %w", s.path, ErrDeviceBusy)
	}
	return size, nil
}

func (s *ImageSource) Frame() (image.Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.img == nil {
		return nil, ErrNotStarted
	}
	return s.img, nil
}

func (s *ImageSource) Close() error {
	return nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, classifyOpenError(err, "image "+path)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, classifyOpenError(fmt.Errorf("decode %s: %w", path, err), "image "+path)
	}
	return img, nil
}
