package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/hkdf"
)

// FingerprintInfo is the HKDF context string for key fingerprints.
var FingerprintInfo = []byte("campus-intake envelope key fingerprint v1")

// FingerprintSize is the number of derived bytes in a fingerprint.
const FingerprintSize = 6

// DeriveKey derives keySize bytes from secret using HKDF-SHA256.
func DeriveKey(secret, salt, info []byte, keySize int) ([]byte, error) {
	reader := hkdf.New(sha256.New, secret, salt, info)

	key := make([]byte, keySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Fingerprint returns a short hex identifier for key material.
// It is one-way and safe to log; the IV is mixed in as salt so a changed IV
// also changes the fingerprint.
func Fingerprint(key, iv []byte) (string, error) {
	derived, err := DeriveKey(key, iv, FingerprintInfo, FingerprintSize)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(derived), nil
}
