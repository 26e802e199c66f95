package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/failure"
)

// EncodedMedia is a normalized image as base64 text, optionally a data URI.
type EncodedMedia string

// Encoding selects how EncodedMedia is written.
type Encoding string

const (
	// EncodingDataURI prefixes the base64 text with "data:image/jpeg;base64,".
	EncodingDataURI Encoding = "data-uri"

	// EncodingRaw is bare standard base64.
	EncodingRaw Encoding = "raw"
)

const dataURIPrefix = "data:" + MIMEJPEG + ";base64,"

// ParseEncoding validates an encoding name. Empty means EncodingDataURI.
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(strings.ToLower(strings.TrimSpace(s))) {
	case "", EncodingDataURI:
		return EncodingDataURI, nil
	case EncodingRaw:
		return EncodingRaw, nil
	}
	return "", fmt.Errorf("unknown media encoding %q", s)
}

// ToBase64 encodes img for a payload.
func ToBase64(ctx context.Context, img *NormalizedImage, enc Encoding) (EncodedMedia, error) {
	if err := ctx.Err(); err != nil {
		return "", failure.Canceled(err)
	}
	if img == nil || len(img.Data) == 0 {
		return "", failure.Internal("no image to encode", ErrEmptyImage)
	}

	body := base64.StdEncoding.EncodeToString(img.Data)
	switch enc {
	case EncodingRaw:
		return EncodedMedia(body), nil
	case EncodingDataURI, "":
		return EncodedMedia(dataURIPrefix + body), nil
	}
	return "", failure.Internal(fmt.Sprintf("unknown media encoding %q", enc), nil)
}

// Body returns the base64 text without any data URI prefix.
func (m EncodedMedia) Body() string {
	return strings.TrimPrefix(string(m), dataURIPrefix)
}

// Bytes decodes the base64 body.
func (m EncodedMedia) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(m.Body())
}
