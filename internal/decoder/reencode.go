package decoder

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
)

// Reencode hands d an image that went through an encode/decode round trip in
// the given format ("png" or "jpeg") instead of the raw raster. Linear
// decoders are tuned on encoded camera stills; "none" or "" returns d as is.
func Reencode(d Decoder, format string) (Decoder, error) {
	switch format {
	case "", "none":
		return d, nil
	case "png", "jpeg":
		return &reencoder{inner: d, format: format}, nil
	}
	return nil, fmt.Errorf("decoder: unsupported reencode format %q", format)
}

type reencoder struct {
	inner  Decoder
	format string
}

func (r *reencoder) Name() string { return r.inner.Name() }

func (r *reencoder) Decode(ctx context.Context, img image.Image) (Result, error) {
	var buf bytes.Buffer

	var err error
	if r.format == "jpeg" {
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 92})
	} else {
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return Result{}, fmt.Errorf("reencode %s: %w", r.format, err)
	}

	decoded, _, err := image.Decode(&buf)
	if err != nil {
		return Result{}, fmt.Errorf("reencode %s: %w", r.format, err)
	}
	return r.inner.Decode(ctx, decoded)
}
