// Package cryptox implements field-level encryption for the record store.
// Values are sealed with AES-GCM under a key derived from an installation
// passphrase and salt. Whether encryption is active is a configuration
// decision; callers receive a FieldCipher and never branch on it themselves.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// prefix marks ciphertext produced by AESGCMCipher so mixed databases
// (encryption toggled between sessions) stay readable.
const prefix = "aesgcm.v1:"

// FieldCipher turns a field value into ciphertext and back. Implementations
// must be deterministic only in the sense that Decrypt(Encrypt(v)) == v;
// repeated Encrypt calls may produce different ciphertexts.
type FieldCipher interface {
	Encrypt(value string) (string, error)
	Decrypt(value string) (string, error)
}

// NoopCipher passes values through unchanged. Used when field encryption
// is disabled in configuration.
type NoopCipher struct{}

func (NoopCipher) Encrypt(value string) (string, error) { return value, nil }
func (NoopCipher) Decrypt(value string) (string, error) { return value, nil }

// DeriveKey stretches a passphrase into a 32-byte AES key with Argon2id.
// The salt is stable per installation (persisted in the settings table).
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, 32)
}

// DecodeSalt parses the hex-encoded salt stored in settings.
func DecodeSalt(s string) ([]byte, error) {
	salt, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("malformed encryption salt: %w", err)
	}
	return salt, nil
}

// EncryptPtr seals an optional field, passing nil through.
func EncryptPtr(c FieldCipher, p *string) (*string, error) {
	if p == nil {
		return nil, nil
	}
	ct, err := c.Encrypt(*p)
	if err != nil {
		return nil, fmt.Errorf("encrypt field: %w", err)
	}
	return &ct, nil
}

// DecryptPtr reverses EncryptPtr.
func DecryptPtr(c FieldCipher, p *string) (*string, error) {
	if p == nil {
		return nil, nil
	}
	pt, err := c.Decrypt(*p)
	if err != nil {
		return nil, fmt.Errorf("decrypt field: %w", err)
	}
	return &pt, nil
}

// AESGCMCipher seals field values with AES-GCM. A fresh random 12-byte
// nonce is generated per value and stored alongside the ciphertext.
type AESGCMCipher struct {
	aead cipher.AEAD
}

// NewAESGCMCipher builds a cipher from a derived key. The key must be
// 16, 24, or 32 bytes.
func NewAESGCMCipher(key []byte) (*AESGCMCipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("field cipher init: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("field cipher init: %w", err)
	}
	return &AESGCMCipher{aead: aead}, nil
}

// Encrypt seals value and returns prefix + base64(nonce || ciphertext).
// Empty values are returned as-is so NULL-normalized fields stay NULL.
func (c *AESGCMCipher) Encrypt(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce generation: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(value), nil)
	return prefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Values without the ciphertext prefix are
// returned unchanged, so rows written while encryption was disabled
// remain readable after it is enabled.
func (c *AESGCMCipher) Decrypt(value string) (string, error) {
	if !strings.HasPrefix(value, prefix) {
		return value, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, prefix))
	if err != nil {
		return "", fmt.Errorf("malformed ciphertext: %w", err)
	}
	ns := c.aead.NonceSize()
	if len(raw) < ns {
		return "", fmt.Errorf("malformed ciphertext: short payload")
	}
	plain, err := c.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("field decryption: %w", err)
	}
	return string(plain), nil
}
