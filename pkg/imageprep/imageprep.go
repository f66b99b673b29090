// Package imageprep turns an encoded image from the host editor into the JPEG
// the SDK transport uploads.
package imageprep

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultQuality is the JPEG quality used when Options.Quality is unset.
const DefaultQuality = 95

// ErrMalformed is returned for empty or undecodable image data.
var ErrMalformed = errors.New("malformed image")

// Options controls image preparation.
type Options struct {
	// MaxDimension caps the longest side in pixels, keeping the aspect ratio.
	// Zero keeps the original size.
	MaxDimension int

	// Quality is the JPEG quality (1-100).
	Quality int
}

// Image is a prepared, JPEG-encoded image.
type Image struct {
	Data         []byte
	Name         string
	SourceFormat string // "png", "jpeg", "webp", ...
	Width        int
	Height       int
	Resized      bool
}

// Prepare decodes data, downscales it if needed and re-encodes it as JPEG.
func Prepare(data []byte, opts Options) (*Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no data", ErrMalformed)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	out := &Image{Name: "image.jpg", SourceFormat: format}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("%w: empty bounds", ErrMalformed)
	}

	if nw, nh := fit(w, h, opts.MaxDimension); nw != w || nh != h {
		img = transform.Resize(img, nw, nh, transform.Linear)
		w, h = nw, nh
		out.Resized = true
	}
	out.Width, out.Height = w, h

	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	var buf bytes.Buffer
	if err := imgio.JPEGEncoder(quality)(&buf, img); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	out.Data = buf.Bytes()

	return out, nil
}

// fit scales w x h down so the longest side is at most limit.
func fit(w, h, limit int) (int, int) {
	if limit <= 0 || (w <= limit && h <= limit) {
		return w, h
	}
	if w >= h {
		return limit, max(1, h*limit/w)
	}
	return max(1, w*limit/h), limit
}
