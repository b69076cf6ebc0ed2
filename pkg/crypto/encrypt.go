package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Sealer turns a value into an opaque string for storage and back.
type Sealer interface {
	Seal(v any) (string, error)
	Open(sealed string, v any) error
}

const (
	aesPrefix   = "aes:"
	plainPrefix = "json:"
)

// Encryptor seals values as AES-GCM encrypted JSON.
type Encryptor struct {
	gcm cipher.AEAD
}

// NewEncryptor creates a new AES-GCM encryptor with the given 32-byte key.
func NewEncryptor(key string) (*Encryptor, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be exactly 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Encryptor{gcm: gcm}, nil
}

// Seal marshals v to JSON, encrypts it with a random nonce and returns
// "aes:" followed by base64(nonce|ciphertext).
func (e *Encryptor) Seal(v any) (string, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal: %w", err)
	}
	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	ciphertext := e.gcm.Seal(nonce, nonce, plaintext, nil)
	return aesPrefix + base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Open reverses Seal. Values stored in plain form are accepted too, so rows
// written before a key was configured stay readable.
func (e *Encryptor) Open(sealed string, v any) error {
	if strings.HasPrefix(sealed, plainPrefix) {
		return Plain{}.Open(sealed, v)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(sealed, aesPrefix))
	if err != nil {
		return fmt.Errorf("failed to decode base64: %w", err)
	}

	nonceSize := e.gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := e.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return fmt.Errorf("failed to decrypt: %w", err)
	}
	if err := json.Unmarshal(plaintext, v); err != nil {
		return fmt.Errorf("failed to unmarshal: %w", err)
	}
	return nil
}

// Plain stores values as unencrypted JSON. Used when no key is configured.
type Plain struct{}

func (Plain) Seal(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal: %w", err)
	}
	return plainPrefix + string(b), nil
}

func (Plain) Open(sealed string, v any) error {
	if strings.HasPrefix(sealed, aesPrefix) {
		return fmt.Errorf("value is encrypted and no key is configured")
	}
	if err := json.Unmarshal([]byte(strings.TrimPrefix(sealed, plainPrefix)), v); err != nil {
		return fmt.Errorf("failed to unmarshal: %w", err)
	}
	return nil
}

// NewSealer returns an Encryptor for a non-empty key and Plain otherwise.
func NewSealer(key string) (Sealer, error) {
	if key == "" {
		return Plain{}, nil
	}
	return NewEncryptor(key)
}
