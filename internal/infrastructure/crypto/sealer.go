// Package crypto seals customer authentication data before it is stored.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Sealer turns an auth payload into the map persisted in auth_data.
type Sealer interface {
	Seal(data map[string]interface{}) (map[string]interface{}, error)
	Open(sealed map[string]interface{}) (map[string]interface{}, error)
}

// AESGCMSealer encrypts the JSON form of the payload with AES-256-GCM.
// The stored map is {"sealed": true, "ciphertext": b64, "iv": b64}.
type AESGCMSealer struct {
	aead cipher.AEAD
}

func NewAESGCMSealer(hexKey string) (*AESGCMSealer, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, errors.New("invalid encryption key format")
	}
	if len(key) != 32 {
		return nil, errors.New("encryption key must be 32 bytes (64 hex chars)")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AESGCMSealer{aead: aead}, nil
}

func (s *AESGCMSealer) Seal(data map[string]interface{}) (map[string]interface{}, error) {
	plaintext, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode auth data: %w", err)
	}

	iv := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"sealed":     true,
		"ciphertext": base64.StdEncoding.EncodeToString(s.aead.Seal(nil, iv, plaintext, nil)),
		"iv":         base64.StdEncoding.EncodeToString(iv),
	}, nil
}

func (s *AESGCMSealer) Open(sealed map[string]interface{}) (map[string]interface{}, error) {
	if isSealed, _ := sealed["sealed"].(bool); !isSealed {
		return sealed, nil
	}
	ctB64, _ := sealed["ciphertext"].(string)
	ivB64, _ := sealed["iv"].(string)

	ciphertext, err := base64.StdEncoding.DecodeString(ctB64)
	if err != nil {
		return nil, err
	}
	iv, err := base64.StdEncoding.DecodeString(ivB64)
	if err != nil {
		return nil, err
	}
	if len(iv) != s.aead.NonceSize() {
		return nil, errors.New("invalid nonce length")
	}

	plaintext, err := s.aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, err
	}

	var out map[string]interface{}
	if err := json.Unmarshal(plaintext, &out); err != nil {
		return nil, fmt.Errorf("failed to decode auth data: %w", err)
	}
	return out, nil
}

// PlainSealer stores auth data unchanged. Used when no key is configured.
type PlainSealer struct{}

func (PlainSealer) Seal(data map[string]interface{}) (map[string]interface{}, error) {
	return data, nil
}

func (PlainSealer) Open(sealed map[string]interface{}) (map[string]interface{}, error) {
	return sealed, nil
}

// NewSealer returns an AES-GCM sealer for a non-empty key and a PlainSealer otherwise.
func NewSealer(hexKey string) (Sealer, error) {
	if hexKey == "" {
		return PlainSealer{}, nil
	}
	return NewAESGCMSealer(hexKey)
}
