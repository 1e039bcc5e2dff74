//go:build gocv

package decoder

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// gocvQR uses OpenCV's QR detector. The detector is not safe for concurrent
// use.
type gocvQR struct {
	mu       sync.Mutex
	detector gocv.QRCodeDetector
}

// NewGoCVQRDecoder returns an OpenCV backed QR decoder.
func NewGoCVQRDecoder() (Decoder, error) {
	return &gocvQR{detector: gocv.NewQRCodeDetector()}, nil
}

func (g *gocvQR) Name() string { return "gocv-qr" }

func (g *gocvQR) Decode(ctx context.Context, img image.Image) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return Result{}, fmt.Errorf("gocv-qr: %w", err)
	}
	defer mat.Close()

	points := gocv.NewMat()
	defer points.Close()
	straight := gocv.NewMat()
	defer straight.Close()

	g.mu.Lock()
	text := g.detector.DetectAndDecode(mat, &points, &straight)
	g.mu.Unlock()

	if text == "" {
		return Result{}, ErrNotFound
	}
	return Result{Text: text, Format: "QR_CODE"}, nil
}
