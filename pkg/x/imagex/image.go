// Package imagex normalizes user supplied images before they are stored.
package imagex

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrNotImage is returned for data no registered decoder accepts.
var ErrNotImage = errors.New("imagex: unsupported or corrupt image")

// NormalizePNG decodes a png, jpeg, gif or webp image, scales it down so that
// neither side exceeds maxDim (keeping the aspect ratio) and re-encodes it as
// PNG. Images already within bounds are only re-encoded.
func NormalizePNG(data []byte, maxDim int) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrNotImage
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}

	dst := src
	b := src.Bounds()
	if w, h, ok := fit(b.Dx(), b.Dy(), maxDim); ok {
		rgba := image.NewRGBA(image.Rect(0, 0, w, h))
		xdraw.CatmullRom.Scale(rgba, rgba.Bounds(), src, b, xdraw.Over, nil)
		dst = rgba
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeSize reports the dimensions of data without decoding the pixels.
func DecodeSize(data []byte) (w, h int, format string, err error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, "", fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	return cfg.Width, cfg.Height, format, nil
}

// fit returns the scaled size when w x h exceeds maxDim on either side.
func fit(w, h, maxDim int) (int, int, bool) {
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return w, h, false
	}
	if w >= h {
		nh := h * maxDim / w
		return maxDim, max(nh, 1), true
	}
	nw := w * maxDim / h
	return max(nw, 1), maxDim, true
}
