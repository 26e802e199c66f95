// Package media turns user uploads into bounded JPEG bytes and encodes them
// for embedding in a submission payload.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/failure"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// DefaultMaxWidth is the widest output image in pixels.
	DefaultMaxWidth = 1600

	// DefaultQuality is the JPEG quality in (0, 1].
	DefaultQuality = 0.85

	// MaxInputBytes is the largest upload accepted before decoding.
	MaxInputBytes = 10 << 20

	// MaxOutputBytes is the largest normalized image accepted into a payload.
	MaxOutputBytes = 5 << 20

	// MaxPixels bounds the canvas an upload may declare. Decoding allocates
	// width*height*4 bytes or more regardless of the compressed size.
	MaxPixels = 40_000_000

	MIMEJPEG = "image/jpeg"
)

var (
	ErrEmptyImage      = errors.New("image has no data")
	ErrInvalidMaxWidth = errors.New("max width must be positive")
	ErrInvalidQuality  = errors.New("quality must be in (0, 1]")
	ErrTooManyPixels   = errors.New("image dimensions exceed the pixel limit")
)

// RawImage is an upload as received from the user.
type RawImage struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Size returns the byte length of the upload.
func (r RawImage) Size() int {
	return len(r.Data)
}

// ContentType returns the declared MIME type, or one sniffed from the data.
func (r RawImage) ContentType() string {
	if r.MIMEType != "" {
		return r.MIMEType
	}
	return http.DetectContentType(r.Data)
}

// NormalizedImage is a JPEG ready for encoding.
type NormalizedImage struct {
	Name   string
	Data   []byte
	Width  int
	Height int

	// Reencoded is false when the upload was passed through unchanged.
	Reencoded bool
}

// MIMEType is always image/jpeg.
func (n *NormalizedImage) MIMEType() string { return MIMEJPEG }

// Size returns the byte length of the encoded JPEG.
func (n *NormalizedImage) Size() int { return len(n.Data) }

// Options controls normalization.
type Options struct {
	MaxWidth int
	Quality  float64

	// Interpolator resamples downscaled images. Nil means draw.ApproxBiLinear.
	Interpolator draw.Interpolator
}

// DefaultOptions returns the options used by the intake forms.
func DefaultOptions() Options {
	return Options{MaxWidth: DefaultMaxWidth, Quality: DefaultQuality}
}

// Validate checks the options.
func (o Options) Validate() error {
	if o.MaxWidth <= 0 {
		return ErrInvalidMaxWidth
	}
	if o.Quality <= 0 || o.Quality > 1 || math.IsNaN(o.Quality) {
		return ErrInvalidQuality
	}
	return nil
}

func (o Options) interpolator() draw.Interpolator {
	if o.Interpolator == nil {
		return draw.ApproxBiLinear
	}
	return o.Interpolator
}

func (o Options) jpegQuality() int {
	return jpegQuality(o.Quality)
}

func jpegQuality(q float64) int {
	v := int(math.Round(q * 100))
	if v < 1 {
		return 1
	}
	if v > 100 {
		return 100
	}
	return v
}

// CheckInputSize rejects uploads over MaxInputBytes.
func CheckInputSize(raw RawImage) error {
	if raw.Size() > MaxInputBytes {
		return failure.ImageTooLarge(raw.Name, raw.Size(), MaxInputBytes)
	}
	return nil
}

// CheckOutputSize rejects normalized images over MaxOutputBytes.
func CheckOutputSize(img *NormalizedImage) error {
	if img.Size() > MaxOutputBytes {
		return failure.ImageTooLarge(img.Name, img.Size(), MaxOutputBytes)
	}
	return nil
}

// CheckPixels reads only the image header and rejects canvases larger than
// MaxPixels, or headers that cannot be read.
func CheckPixels(raw RawImage) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw.Data))
	if err != nil {
		return failure.ImageDecode(raw.Name, fmt.Errorf("failed to read %s header: %w", raw.ContentType(), err))
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return failure.ImageDecode(raw.Name, fmt.Errorf("%w: %dx%d", ErrTooManyPixels, cfg.Width, cfg.Height))
	}
	return nil
}

// Normalize converts raw into a JPEG at most opts.MaxWidth pixels wide.
//
// A JPEG that already fits is returned byte for byte. Anything else is decoded,
// downscaled preserving aspect ratio, flattened onto white and re-encoded.
// The output size ceiling is not applied here; see CheckOutputSize.
func Normalize(ctx context.Context, raw RawImage, opts Options) (*NormalizedImage, error) {
	if err := opts.Validate(); err != nil {
		return nil, failure.Internal("invalid image options", err)
	}
	if err := CheckInputSize(raw); err != nil {
		return nil, err
	}
	if raw.Size() == 0 {
		return nil, failure.ImageDecode(raw.Name, ErrEmptyImage)
	}
	if err := ctx.Err(); err != nil {
		return nil, failure.Canceled(err)
	}

	name := JPEGName(raw.Name)

	if cfg, err := jpeg.DecodeConfig(bytes.NewReader(raw.Data)); err == nil && cfg.Width <= opts.MaxWidth {
		return &NormalizedImage{
			Name:   name,
			Data:   raw.Data,
			Width:  cfg.Width,
			Height: cfg.Height,
		}, nil
	}

	if err := CheckPixels(raw); err != nil {
		return nil, err
	}

	src, _, err := image.Decode(bytes.NewReader(raw.Data))
	if err != nil {
		return nil, failure.ImageDecode(raw.Name, fmt.Errorf("failed to decode %s: %w", raw.ContentType(), err))
	}
	if err := ctx.Err(); err != nil {
		return nil, failure.Canceled(err)
	}

	w, h := TargetSize(src.Bounds().Dx(), src.Bounds().Dy(), opts.MaxWidth)
	dst := flatten(src, w, h, opts.interpolator())

	data, err := encodeJPEG(dst, opts.jpegQuality())
	if err != nil {
		return nil, failure.ImageDecode(raw.Name, err)
	}

	return &NormalizedImage{
		Name:      name,
		Data:      data,
		Width:     w,
		Height:    h,
		Reencoded: true,
	}, nil
}

// TargetSize returns the output dimensions for a w×h image.
// Wider images scale by maxWidth/w with both sides rounded; others keep their size.
func TargetSize(w, h, maxWidth int) (int, int) {
	if w <= maxWidth {
		return w, h
	}
	scale := float64(maxWidth) / float64(w)
	nh := int(math.Round(float64(h) * scale))
	if nh < 1 {
		nh = 1
	}
	return maxWidth, nh
}

// JPEGName replaces the extension of the base name with ".jpg".
func JPEGName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return "image.jpg"
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" {
		base = "image"
	}
	return base + ".jpg"
}

func flatten(src image.Image, w, h int, interp draw.Interpolator) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	if w == src.Bounds().Dx() && h == src.Bounds().Dy() {
		draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Over)
		return dst
	}
	interp.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
