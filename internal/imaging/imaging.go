// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package imaging prepares uploaded blog thumbnails. Images are decoded,
// downsized to a maximum width while keeping their aspect ratio, and
// re-encoded as JPEG. Smaller images are never upscaled.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif" // register GIF decoder
	"image/jpeg"
	_ "image/png" // register PNG decoder
	"io"
	"net/http"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

const (
	// MaxWidth is the widest thumbnail stored.
	MaxWidth = 1200

	// Quality is the JPEG quality of generated thumbnails.
	Quality = 85

	// ContentType is the type of every generated thumbnail.
	ContentType = "image/jpeg"

	// maxImagePixels caps the number of pixels to prevent memory bombs.
	// 10000x10000 = 100 million pixels, ~400 MB decoded in RGBA.
	maxImagePixels = 100_000_000
)

// ErrUnsupported is returned for data that is not a JPEG, PNG, GIF or
// WebP image.
var ErrUnsupported = errors.New("imaging: unsupported image format")

// allowedTypes are the sniffed MIME types accepted for thumbnails.
var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Image is a processed thumbnail ready for upload.
type Image struct {
	Data   []byte
	Width  int
	Height int
}

// Thumbnail decodes src and returns it as a JPEG no wider than maxWidth
// (MaxWidth when maxWidth <= 0). Only the first frame of a GIF is kept.
func Thumbnail(src []byte, maxWidth int) (*Image, error) {
	if maxWidth <= 0 {
		maxWidth = MaxWidth
	}
	if !allowedTypes[http.DetectContentType(src)] {
		return nil, ErrUnsupported
	}

	// Decode config first to check dimensions without full decode.
	cfg, _, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("imaging: decode config: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxImagePixels {
		return nil, fmt.Errorf("imaging: image too large: %dx%d exceeds %d pixels", cfg.Width, cfg.Height, maxImagePixels)
	}

	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("imaging: decode: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width > maxWidth {
		height = max(1, int(float64(height)*float64(maxWidth)/float64(width)))
		width = maxWidth
	}

	// JPEG has no alpha; transparent pixels become white.
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: Quality}); err != nil {
		return nil, fmt.Errorf("imaging: encode: %w", err)
	}
	return &Image{Data: buf.Bytes(), Width: width, Height: height}, nil
}

// ReadLimited reads at most limit bytes from r. It fails when r holds more.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("imaging: read: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("imaging: file exceeds %d bytes", limit)
	}
	return data, nil
}
