package envelope

import "errors"

var (
	// Configuration errors
	ErrMissingKey     = errors.New("envelope key is required")
	ErrMissingIV      = errors.New("envelope IV is required")
	ErrInvalidKeySize = errors.New("envelope key must be 32 bytes")
	ErrInvalidIVSize  = errors.New("envelope IV must be 16 bytes")

	// Wire errors
	ErrMissingVersionTag = errors.New("invalid envelope format: missing version header")
	ErrMissingEnvelope   = errors.New("response has no envelope field")
	ErrInvalidUTF8       = errors.New("decrypted bytes are not valid UTF-8")
)
