// Package envelope seals JSON values into the versioned encrypted string the
// collection endpoint accepts, and opens its replies.
//
// Wire format: the ASCII tag "v:1," followed by the standard base64 encoding of
// AES-256-CBC(PKCS#7) over the UTF-8 JSON text. Key and IV are the UTF-8 bytes
// of secrets shared with the counterpart out of band. The IV is fixed, so equal
// payloads produce equal envelopes; the counterpart depends on this scheme.
package envelope

import (
	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/crypto"
)

const (
	// VersionTag prefixes every envelope.
	VersionTag = "v:1,"

	// DefaultKey is the 32-byte key shared with the deployed counterpart.
	DefaultKey = "aBfGhIjKlMnOpQrStUvWxYz012345678"

	// DefaultIV is the 16-byte IV shared with the deployed counterpart.
	DefaultIV = "1234567890123456"
)

// Keys holds the shared secret material as text, encoded to bytes as UTF-8.
type Keys struct {
	// Key must encode to exactly 32 bytes.
	Key string

	// IV must encode to exactly 16 bytes.
	IV string
}

// DefaultKeys returns the key material shared with the deployed counterpart.
func DefaultKeys() Keys {
	return Keys{Key: DefaultKey, IV: DefaultIV}
}

// Validate checks the key material sizes.
func (k Keys) Validate() error {
	if k.Key == "" {
		return ErrMissingKey
	}
	if k.IV == "" {
		return ErrMissingIV
	}
	if len(k.Key) != crypto.AESKeySize {
		return ErrInvalidKeySize
	}
	if len(k.IV) != crypto.IVSize {
		return ErrInvalidIVSize
	}
	return nil
}
