//go:build !gocv

package decoder

import apperrors "github.com/zsiec/codescan/internal/errors"

// NewGoCVQRDecoder fails unless built with -tags gocv.
func NewGoCVQRDecoder() (Decoder, error) {
	return nil, apperrors.NewUnsupportedError("gocv QR decoder requires a build with -tags gocv")
}
