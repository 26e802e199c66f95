package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/failure"
	"golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

const (
	SignatureWidth    = 450
	SignatureHeight   = 200
	SignaturePenWidth = 2.5
	SignatureQuality  = 0.85

	// MaxSignatureSide caps either canvas dimension.
	MaxSignatureSide = 4096

	// segments used to approximate a round pen tip
	capSegments = 12
)

var (
	ErrEmptySignature = errors.New("signature has no strokes")
	ErrInvalidCanvas  = errors.New("signature canvas must have positive size")
	ErrCanvasTooLarge = errors.New("signature canvas exceeds the size limit")
)

// Point is a pen position in canvas pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is one continuous pen movement.
type Stroke []Point

// Signature is a hand-drawn signature captured as strokes.
type Signature struct {
	Width    int      `json:"width,omitempty"`
	Height   int      `json:"height,omitempty"`
	PenWidth float64  `json:"penWidth,omitempty"`
	Strokes  []Stroke `json:"strokes"`
}

// IsEmpty reports whether the signature has no points.
func (s *Signature) IsEmpty() bool {
	if s == nil {
		return true
	}
	for _, st := range s.Strokes {
		if len(st) > 0 {
			return false
		}
	}
	return true
}

func (s *Signature) size() (int, int) {
	w, h := s.Width, s.Height
	if w == 0 {
		w = SignatureWidth
	}
	if h == 0 {
		h = SignatureHeight
	}
	return w, h
}

func (s *Signature) pen() float64 {
	if s.PenWidth <= 0 {
		return SignaturePenWidth
	}
	return s.PenWidth
}

// RasterizeSignature draws the strokes in black on a white canvas.
func RasterizeSignature(sig *Signature) (*image.RGBA, error) {
	if sig.IsEmpty() {
		return nil, ErrEmptySignature
	}
	w, h := sig.size()
	if w <= 0 || h <= 0 {
		return nil, ErrInvalidCanvas
	}
	if w > MaxSignatureSide || h > MaxSignatureSide {
		return nil, fmt.Errorf("%w: %dx%d", ErrCanvasTooLarge, w, h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	z := vector.NewRasterizer(w, h)
	r := sig.pen() / 2
	for _, st := range sig.Strokes {
		for i, p := range st {
			addPolygon(z, circle(p, r))
			if i > 0 {
				addPolygon(z, segment(st[i-1], p, r))
			}
		}
	}
	z.Draw(dst, dst.Bounds(), &image.Uniform{C: color.Black}, image.Point{})
	return dst, nil
}

// EncodeSignature rasterizes sig and encodes it as a JPEG at SignatureQuality.
func EncodeSignature(ctx context.Context, sig *Signature) (*NormalizedImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, failure.Canceled(err)
	}
	img, err := RasterizeSignature(sig)
	if err != nil {
		return nil, failure.ImageDecode("signature", err)
	}
	data, err := encodeJPEG(img, jpegQuality(SignatureQuality))
	if err != nil {
		return nil, failure.ImageDecode("signature", err)
	}
	return &NormalizedImage{
		Name:      "signature.jpg",
		Data:      data,
		Width:     img.Bounds().Dx(),
		Height:    img.Bounds().Dy(),
		Reencoded: true,
	}, nil
}

func circle(c Point, r float64) []Point {
	pts := make([]Point, capSegments)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / capSegments
		pts[i] = Point{X: c.X + r*math.Cos(a), Y: c.Y + r*math.Sin(a)}
	}
	return pts
}

func segment(a, b Point, r float64) []Point {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return nil
	}
	nx, ny := -dy/l*r, dx/l*r
	return []Point{
		{a.X + nx, a.Y + ny},
		{b.X + nx, b.Y + ny},
		{b.X - nx, b.Y - ny},
		{a.X - nx, a.Y - ny},
	}
}

// addPolygon adds pts with positive orientation. The rasterizer sums signed
// coverage, so overlapping shapes must share a winding or they cancel out.
func addPolygon(z *vector.Rasterizer, pts []Point) {
	if len(pts) < 3 {
		return
	}
	var area float64
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		area += p.X*q.Y - q.X*p.Y
	}
	if area < 0 {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}

	size := z.Size()
	clamp := func(p Point) (float32, float32) {
		x := math.Min(math.Max(p.X, 0), float64(size.X))
		y := math.Min(math.Max(p.Y, 0), float64(size.Y))
		return float32(x), float32(y)
	}

	z.MoveTo(clamp(pts[0]))
	for _, p := range pts[1:] {
		z.LineTo(clamp(p))
	}
	z.ClosePath()
}
