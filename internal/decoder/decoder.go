// Package decoder adapts barcode libraries to the scanner and runs the point
// then linear decode race on a frame.
package decoder

import (
	"context"
	"errors"
	"image"
)

// Kind is the symbology family of a decoded code.
type Kind string

const (
	PointSymbol  Kind = "qrcode"
	LinearSymbol Kind = "barcode"
)

// ErrNotFound is returned by a decoder that found no symbol in the frame.
var ErrNotFound = errors.New("decoder: no symbol found")

// Result is what a decoder read from a frame.
type Result struct {
	Text   string
	Format string // library format name, e.g. QR_CODE or CODE_128
}

// Decoder reads one symbol from an image. Implementations return ErrNotFound
// (possibly wrapped) for a frame without a readable symbol.
type Decoder interface {
	Name() string
	Decode(ctx context.Context, img image.Image) (Result, error)
}

// Hit is a successful scan attempt.
type Hit struct {
	Payload string `json:"payload"`
	Kind    Kind   `json:"kind"`
	Format  string `json:"format,omitempty"`
	Decoder string `json:"decoder"`
}

// Func adapts a function to Decoder.
type Func struct {
	DecoderName string
	Fn          func(ctx context.Context, img image.Image) (Result, error)
}

func (f Func) Name() string { return f.DecoderName }

func (f Func) Decode(ctx context.Context, img image.Image) (Result, error) {
	return f.Fn(ctx, img)
}

var linearFormats = map[string]bool{
	"CODE_128":          true,
	"CODE_39":           true,
	"CODE_93":           true,
	"EAN_13":            true,
	"EAN_8":             true,
	"UPC_A":             true,
	"UPC_E":             true,
	"UPC_EAN_EXTENSION": true,
	"ITF":               true,
	"CODABAR":           true,
}

// kindOf classifies a result by format, falling back to the kind of the slot
// the decoder runs in.
func kindOf(format string, slot Kind) Kind {
	if format == "" {
		return slot
	}
	if linearFormats[format] {
		return LinearSymbol
	}
	return PointSymbol
}
