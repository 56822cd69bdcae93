// internal/utils/crypto.go
package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
)

// secretPrefix marks config values that were sealed by EncryptSecret
const secretPrefix = "enc:"

func newGCM(passphrase string) (cipher.AEAD, error) {
	key := sha256.Sum256([]byte(passphrase))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// EncryptSecret seals a secret (e.g. an LLM API key) with AES-GCM
func EncryptSecret(plaintext, passphrase string) (string, error) {
	gcm, err := newGCM(passphrase)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return secretPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptSecret opens a value produced by EncryptSecret.
// Values without the prefix are returned unchanged.
func DecryptSecret(value, passphrase string) (string, error) {
	if !IsSealedSecret(value) {
		return value, nil
	}

	raw, err := base64.StdEncoding.DecodeString(value[len(secretPrefix):])
	if err != nil {
		return "", err
	}

	gcm, err := newGCM(passphrase)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(raw) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	plaintext, err := gcm.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt secret: %w", err)
	}
	return string(plaintext), nil
}

// IsSealedSecret reports whether value was produced by EncryptSecret
func IsSealedSecret(value string) bool {
	return len(value) > len(secretPrefix) && value[:len(secretPrefix)] == secretPrefix
}
