// Package crypto provides the symmetric primitives behind the submission envelope.
// This package is internal to the envelope codec.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
)

const (
	// AESKeySize is the key size for AES-256 in bytes.
	AESKeySize = 32

	// IVSize is the CBC initialization vector size (one AES block).
	IVSize = aes.BlockSize
)

var (
	ErrInvalidKeySize    = errors.New("invalid key size: must be 32 bytes for AES-256")
	ErrInvalidIVSize     = errors.New("invalid IV size: must be 16 bytes")
	ErrInvalidCiphertext = errors.New("invalid ciphertext: not a whole number of blocks")
	ErrInvalidPadding    = errors.New("invalid PKCS#7 padding")
)

// NewAESCBC validates the key and IV and returns the AES block cipher.
func NewAESCBC(key, iv []byte) (cipher.Block, error) {
	if len(key) != AESKeySize {
		return nil, ErrInvalidKeySize
	}
	if len(iv) != IVSize {
		return nil, ErrInvalidIVSize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	return block, nil
}

// EncryptAESCBC encrypts plaintext with AES-256-CBC and PKCS#7 padding.
// The IV is caller supplied and, for the envelope, fixed: equal plaintexts
// produce equal ciphertexts.
func EncryptAESCBC(key, iv, plaintext []byte) ([]byte, error) {
	block, err := NewAESCBC(key, iv)
	if err != nil {
		return nil, err
	}

	padded := PKCS7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

// DecryptAESCBC decrypts AES-256-CBC ciphertext and strips PKCS#7 padding.
func DecryptAESCBC(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := NewAESCBC(key, iv)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrInvalidCiphertext
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)
	return PKCS7Unpad(plaintext, aes.BlockSize)
}

// PKCS7Pad appends between 1 and blockSize bytes of padding.
func PKCS7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	out := make([]byte, len(data), len(data)+n)
	copy(out, data)
	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

// PKCS7Unpad removes and verifies PKCS#7 padding.
func PKCS7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrInvalidPadding
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, ErrInvalidPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrInvalidPadding
		}
	}
	return data[:len(data)-n], nil
}
