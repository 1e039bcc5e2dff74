package decoder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// zxingDecoder runs a list of gozxing readers in order. gozxing readers keep
// per-decode state, so a fresh reader is built for every call.
type zxingDecoder struct {
	name    string
	readers []func() gozxing.Reader
	hints   map[gozxing.DecodeHintType]interface{}
}

// NewQRDecoder decodes QR codes.
func NewQRDecoder(tryHarder bool) Decoder {
	return &zxingDecoder{
		name:    "zxing-qr",
		readers: []func() gozxing.Reader{qrcode.NewQRCodeReader},
		hints:   hints(tryHarder, gozxing.BarcodeFormat_QR_CODE),
	}
}

// NewLinearDecoder decodes the given 1D formats (code_128, ean_13, ean_8,
// upc_a). With no formats it reads code_128 and EAN.
func NewLinearDecoder(tryHarder bool, formats ...string) (Decoder, error) {
	if len(formats) == 0 {
		formats = []string{"code_128", "ean_13", "ean_8"}
	}

	d := &zxingDecoder{name: "zxing-linear"}
	var bf []gozxing.BarcodeFormat
	for _, f := range formats {
		newReader, format, err := linearReader(f)
		if err != nil {
			return nil, err
		}
		d.readers = append(d.readers, newReader)
		bf = append(bf, format)
	}
	d.hints = hints(tryHarder, bf...)
	return d, nil
}

// NewMultiFormatDecoder reads QR, Code 128 and UPC/EAN in one pass, trying
// harder on every frame.
func NewMultiFormatDecoder() Decoder {
	return &zxingDecoder{
		name: "zxing-multi",
		readers: []func() gozxing.Reader{
			qrcode.NewQRCodeReader,
			oned.NewCode128Reader,
			oned.NewEAN13Reader,
			oned.NewUPCAReader,
			oned.NewEAN8Reader,
		},
		hints: hints(true,
			gozxing.BarcodeFormat_QR_CODE,
			gozxing.BarcodeFormat_CODE_128,
			gozxing.BarcodeFormat_EAN_13,
			gozxing.BarcodeFormat_UPC_A,
			gozxing.BarcodeFormat_EAN_8,
		),
	}
}

func linearReader(name string) (func() gozxing.Reader, gozxing.BarcodeFormat, error) {
	switch strings.ToLower(name) {
	case "code_128":
		return oned.NewCode128Reader, gozxing.BarcodeFormat_CODE_128, nil
	case "ean_13":
		return oned.NewEAN13Reader, gozxing.BarcodeFormat_EAN_13, nil
	case "ean_8":
		return oned.NewEAN8Reader, gozxing.BarcodeFormat_EAN_8, nil
	case "upc_a":
		return oned.NewUPCAReader, gozxing.BarcodeFormat_UPC_A, nil
	}
	return nil, 0, fmt.Errorf("decoder: unsupported linear format %q", name)
}

func hints(tryHarder bool, formats ...gozxing.BarcodeFormat) map[gozxing.DecodeHintType]interface{} {
	h := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_POSSIBLE_FORMATS: formats,
	}
	if tryHarder {
		h[gozxing.DecodeHintType_TRY_HARDER] = true
	}
	return h
}

func (z *zxingDecoder) Name() string { return z.name }

func (z *zxingDecoder) Decode(ctx context.Context, img image.Image) (Result, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return Result{}, fmt.Errorf("%s: binarize: %w", z.name, err)
	}

	var lastErr error
	for _, newReader := range z.readers {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		res, err := newReader().Decode(bmp, z.hints)
		if err == nil {
			return Result{Text: res.GetText(), Format: res.GetBarcodeFormat().String()}, nil
		}
		if !isMiss(err) {
			lastErr = err
		}
	}

	if lastErr != nil {
		return Result{}, fmt.Errorf("%s: %w", z.name, lastErr)
	}
	return Result{}, ErrNotFound
}

// isMiss reports whether err means "nothing readable here": no symbol, or a
// symbol that failed its checksum or format checks.
func isMiss(err error) bool {
	var notFound gozxing.NotFoundException
	var checksum gozxing.ChecksumException
	var format gozxing.FormatException
	return errors.As(err, &notFound) || errors.As(err, &checksum) || errors.As(err, &format)
}
