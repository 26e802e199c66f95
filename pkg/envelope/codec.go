package envelope

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/crypto"
	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/failure"
)

// Codec seals and opens envelopes with one set of shared keys.
// A Codec is immutable and safe for concurrent use.
type Codec struct {
	key         []byte
	iv          []byte
	fingerprint string
}

// NewCodec creates a codec for the given key material.
func NewCodec(keys Keys) (*Codec, error) {
	if err := keys.Validate(); err != nil {
		return nil, err
	}

	key := []byte(keys.Key)
	iv := []byte(keys.IV)

	fp, err := crypto.Fingerprint(key, iv)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint key: %w", err)
	}

	return &Codec{key: key, iv: iv, fingerprint: fp}, nil
}

// Fingerprint returns a non-secret identifier of the codec's key material.
func (c *Codec) Fingerprint() string {
	return c.fingerprint
}

// Seal serializes v to JSON and returns its envelope.
// Struct fields and payload keys keep their declared order; HTML characters are
// not escaped, matching JSON.stringify on the counterpart.
func (c *Codec) Seal(v any) (string, error) {
	plaintext, err := marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to serialize payload: %w", err)
	}
	return c.seal(plaintext)
}

// SealJSON seals already-serialized JSON text as is.
func (c *Codec) SealJSON(raw []byte) (string, error) {
	if !json.Valid(raw) {
		return "", fmt.Errorf("failed to seal: input is not valid JSON")
	}
	return c.seal(raw)
}

func (c *Codec) seal(plaintext []byte) (string, error) {
	ciphertext, err := crypto.EncryptAESCBC(c.key, c.iv, plaintext)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt payload: %w", err)
	}
	return VersionTag + base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Open decrypts an envelope and decodes its JSON into generic Go values
// (map[string]any, []any, string, float64, bool, nil).
//
// Errors are *failure.Error of kind Format (tag missing), Decrypt (bad base64,
// block size or padding) or Parse (plaintext not UTF-8 JSON).
func (c *Codec) Open(envelope string) (any, error) {
	var v any
	if err := c.OpenInto(envelope, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// OpenInto decrypts an envelope and unmarshals its JSON into dst.
func (c *Codec) OpenInto(envelope string, dst any) error {
	plaintext, err := c.OpenRaw(envelope)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(plaintext, dst); err != nil {
		return failure.Parse(err)
	}
	return nil
}

// OpenRaw decrypts an envelope and returns the validated JSON text.
func (c *Codec) OpenRaw(envelope string) ([]byte, error) {
	if !strings.HasPrefix(envelope, VersionTag) {
		return nil, failure.Format(ErrMissingVersionTag)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(envelope[len(VersionTag):])
	if err != nil {
		return nil, failure.Decrypt(err)
	}

	plaintext, err := crypto.DecryptAESCBC(c.key, c.iv, ciphertext)
	if err != nil {
		return nil, failure.Decrypt(err)
	}

	if !utf8.Valid(plaintext) {
		return nil, failure.Parse(ErrInvalidUTF8)
	}
	if !json.Valid(plaintext) {
		return nil, failure.Parse(fmt.Errorf("invalid JSON text (%d bytes)", len(plaintext)))
	}
	return plaintext, nil
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
