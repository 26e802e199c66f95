package media

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/failure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y += 7 {
		for x := 0; x < w; x += 5 {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(w, h), &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNormalizeJPEGPassthrough(t *testing.T) {
	data := jpegBytes(t, 800, 600)

	out, err := Normalize(context.Background(), RawImage{Name: "selfie.jpeg", Data: data}, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, data, out.Data)
	assert.False(t, out.Reencoded)
	assert.Equal(t, 800, out.Width)
	assert.Equal(t, 600, out.Height)
	assert.Equal(t, "selfie.jpg", out.Name)
	assert.Equal(t, MIMEJPEG, out.MIMEType())
}

func TestNormalizeIdempotent(t *testing.T) {
	raw := RawImage{Name: "a.png", Data: pngBytes(t, testImage(2000, 1000))}

	first, err := Normalize(context.Background(), raw, DefaultOptions())
	require.NoError(t, err)
	second, err := Normalize(context.Background(), RawImage{Name: first.Name, Data: first.Data}, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, first.Data, second.Data)
	assert.Equal(t, first.Width, second.Width)
}

func TestNormalizePNGDownscale(t *testing.T) {
	raw := RawImage{Name: "photo.png", MIMEType: "image/png", Data: pngBytes(t, testImage(3200, 2400))}

	out, err := Normalize(context.Background(), raw, DefaultOptions())
	require.NoError(t, err)

	assert.True(t, out.Reencoded)
	assert.Equal(t, 1600, out.Width)
	assert.Equal(t, 1200, out.Height)
	assert.Equal(t, "photo.jpg", out.Name)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, 1600, cfg.Width)
	assert.Equal(t, 1200, cfg.Height)
}

func TestNormalizeWideJPEG(t *testing.T) {
	raw := RawImage{Name: "wide.jpg", Data: jpegBytes(t, 4000, 3000)}

	out, err := Normalize(context.Background(), raw, DefaultOptions())
	require.NoError(t, err)

	assert.True(t, out.Reencoded)
	assert.Equal(t, 1600, out.Width)
	assert.Equal(t, 1200, out.Height)
	assert.NoError(t, CheckOutputSize(out))
}

func TestNormalizeSmallPNGKeepsSize(t *testing.T) {
	raw := RawImage{Name: "icon.png", Data: pngBytes(t, testImage(300, 200))}

	out, err := Normalize(context.Background(), raw, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 300, out.Width)
	assert.Equal(t, 200, out.Height)
}

func TestNormalizeFlattensTransparency(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 40, 40))
	raw := RawImage{Name: "clear.png", Data: pngBytes(t, img)}

	out, err := Normalize(context.Background(), raw, DefaultOptions())
	require.NoError(t, err)

	decoded, err := jpeg.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	r, g, b, _ := decoded.At(20, 20).RGBA()
	assert.Greater(t, r>>8, uint32(240))
	assert.Greater(t, g>>8, uint32(240))
	assert.Greater(t, b>>8, uint32(240))
}

func TestNormalizeCorrupt(t *testing.T) {
	raw := RawImage{Name: "broken.png", Data: []byte("definitely not an image")}

	_, err := Normalize(context.Background(), raw, DefaultOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, failure.ErrImageDecode)

	_, err = Normalize(context.Background(), RawImage{Name: "empty.png"}, DefaultOptions())
	assert.ErrorIs(t, err, failure.ErrImageDecode)
}

// pngHeader returns a PNG that declares a w x h RGBA canvas but carries no
// pixel data.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8], ihdr[9] = 8, 6

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestNormalizePixelLimit(t *testing.T) {
	t.Run("oversized canvas rejected from header", func(t *testing.T) {
		raw := RawImage{Name: "bomb.png", Data: pngHeader(50000, 50000)}

		err := CheckPixels(raw)
		require.ErrorIs(t, err, failure.ErrImageDecode)
		assert.True(t, errors.Is(err, ErrTooManyPixels))

		_, err = Normalize(context.Background(), raw, DefaultOptions())
		require.ErrorIs(t, err, failure.ErrImageDecode)
		assert.ErrorIs(t, err, ErrTooManyPixels)
	})

	t.Run("just over the budget", func(t *testing.T) {
		raw := RawImage{Name: "wide.png", Data: pngHeader(MaxPixels/1000+1, 1000)}
		assert.ErrorIs(t, CheckPixels(raw), ErrTooManyPixels)
	})

	t.Run("ordinary image accepted", func(t *testing.T) {
		raw := RawImage{Name: "ok.png", Data: pngBytes(t, testImage(640, 480))}
		assert.NoError(t, CheckPixels(raw))
	})

	t.Run("unreadable header", func(t *testing.T) {
		raw := RawImage{Name: "junk.png", Data: []byte("\x89PNG")}
		err := CheckPixels(raw)
		assert.ErrorIs(t, err, failure.ErrImageDecode)
		assert.False(t, errors.Is(err, ErrTooManyPixels))
	})
}

func TestNormalizeSizeCeilings(t *testing.T) {
	small := jpegBytes(t, 64, 64)

	t.Run("over input ceiling rejected before decode", func(t *testing.T) {
		data := make([]byte, 11<<20)
		raw := RawImage{Name: "huge.png", Data: data}

		require.ErrorIs(t, CheckInputSize(raw), failure.ErrImageTooLarge)
		_, err := Normalize(context.Background(), raw, DefaultOptions())
		assert.Equal(t, failure.KindImageTooLarge, failure.KindOf(err))
	})

	t.Run("under input ceiling but over output ceiling", func(t *testing.T) {
		data := append(append([]byte(nil), small...), make([]byte, 9<<20)...)
		raw := RawImage{Name: "padded.jpg", Data: data}

		require.NoError(t, CheckInputSize(raw))
		out, err := Normalize(context.Background(), raw, DefaultOptions())
		require.NoError(t, err)
		assert.ErrorIs(t, CheckOutputSize(out), failure.ErrImageTooLarge)
	})
}

func TestNormalizeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Normalize(ctx, RawImage{Name: "a.jpg", Data: jpegBytes(t, 10, 10)}, DefaultOptions())
	assert.ErrorIs(t, err, failure.ErrCanceled)
}

func TestNormalizeInvalidOptions(t *testing.T) {
	raw := RawImage{Name: "a.jpg", Data: jpegBytes(t, 10, 10)}

	_, err := Normalize(context.Background(), raw, Options{MaxWidth: 0, Quality: 0.5})
	assert.ErrorIs(t, err, ErrInvalidMaxWidth)
	_, err = Normalize(context.Background(), raw, Options{MaxWidth: 100, Quality: 1.5})
	assert.ErrorIs(t, err, ErrInvalidQuality)
}

func TestTargetSize(t *testing.T) {
	tests := []struct {
		w, h, maxW   int
		wantW, wantH int
	}{
		{3200, 2400, 1600, 1600, 1200},
		{4000, 3000, 1600, 1600, 1200},
		{1601, 1000, 1600, 1600, 999},
		{1600, 900, 1600, 1600, 900},
		{100, 50, 1600, 100, 50},
		{10000, 1, 1600, 1600, 1},
	}
	for _, tt := range tests {
		w, h := TargetSize(tt.w, tt.h, tt.maxW)
		assert.Equal(t, tt.wantW, w, "%dx%d", tt.w, tt.h)
		assert.Equal(t, tt.wantH, h, "%dx%d", tt.w, tt.h)
	}
}

func TestJPEGName(t *testing.T) {
	assert.Equal(t, "photo.jpg", JPEGName("photo.png"))
	assert.Equal(t, "photo.final.jpg", JPEGName("photo.final.heic"))
	assert.Equal(t, "scan.jpg", JPEGName("C:\\Users\\me\\scan.bmp"))
	assert.Equal(t, "noext.jpg", JPEGName("noext"))
	assert.Equal(t, "image.jpg", JPEGName(""))
}

func TestToBase64(t *testing.T) {
	img := &NormalizedImage{Name: "a.jpg", Data: jpegBytes(t, 20, 20)}

	uri, err := ToBase64(context.Background(), img, EncodingDataURI)
	require.NoError(t, err)
	assert.Contains(t, string(uri), "data:image/jpeg;base64,")
	decoded, err := uri.Bytes()
	require.NoError(t, err)
	assert.Equal(t, img.Data, decoded)

	raw, err := ToBase64(context.Background(), img, EncodingRaw)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "data:")
	assert.Equal(t, uri.Body(), string(raw))

	_, err = ToBase64(context.Background(), &NormalizedImage{}, EncodingRaw)
	assert.ErrorIs(t, err, failure.ErrInternal)
}

func TestParseEncoding(t *testing.T) {
	enc, err := ParseEncoding("")
	require.NoError(t, err)
	assert.Equal(t, EncodingDataURI, enc)

	enc, err = ParseEncoding("RAW")
	require.NoError(t, err)
	assert.Equal(t, EncodingRaw, enc)

	_, err = ParseEncoding("hex")
	assert.Error(t, err)
}

func TestRasterizeSignature(t *testing.T) {
	sig := &Signature{Strokes: []Stroke{
		{{X: 20, Y: 100}, {X: 120, Y: 60}, {X: 220, Y: 140}, {X: 420, Y: 90}},
		{{X: 300, Y: 30}},
	}}

	img, err := RasterizeSignature(sig)
	require.NoError(t, err)
	assert.Equal(t, SignatureWidth, img.Bounds().Dx())
	assert.Equal(t, SignatureHeight, img.Bounds().Dy())

	dark := 0
	for y := 0; y < img.Bounds().Dy(); y++ {
		for x := 0; x < img.Bounds().Dx(); x++ {
			if img.RGBAAt(x, y).R < 128 {
				dark++
			}
		}
	}
	assert.Greater(t, dark, 100)

	assert.Equal(t, uint8(255), img.RGBAAt(5, 5).R, "background should stay white")
	assert.Less(t, img.RGBAAt(120, 60).R, uint8(128), "stroke vertex should be inked")
}

func TestRasterizeSignatureCanvasLimit(t *testing.T) {
	stroke := []Stroke{{{X: 1, Y: 1}, {X: 10, Y: 10}}}

	for _, sig := range []*Signature{
		{Width: 100000, Strokes: stroke},
		{Height: MaxSignatureSide + 1, Strokes: stroke},
		{Width: 50000, Height: 50000, Strokes: stroke},
	} {
		_, err := RasterizeSignature(sig)
		assert.ErrorIs(t, err, ErrCanvasTooLarge)

		_, err = EncodeSignature(context.Background(), sig)
		assert.ErrorIs(t, err, ErrCanvasTooLarge)
	}

	img, err := RasterizeSignature(&Signature{Width: MaxSignatureSide, Height: 10, Strokes: stroke})
	require.NoError(t, err)
	assert.Equal(t, MaxSignatureSide, img.Bounds().Dx())
}

func TestEncodeSignature(t *testing.T) {
	sig := &Signature{Width: 200, Height: 80, Strokes: []Stroke{{{X: 10, Y: 10}, {X: 190, Y: 70}}}}

	out, err := EncodeSignature(context.Background(), sig)
	require.NoError(t, err)
	assert.Equal(t, 200, out.Width)
	assert.Equal(t, 80, out.Height)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Width)

	_, err = EncodeSignature(context.Background(), &Signature{Strokes: []Stroke{{}}})
	assert.ErrorIs(t, err, failure.ErrImageDecode)
	assert.ErrorIs(t, err, ErrEmptySignature)
}
