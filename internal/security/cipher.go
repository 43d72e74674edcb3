package security

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrDecode is returned when an envelope cannot be opened: wrong key, bad encoding, truncation or tampering.
var ErrDecode = errors.New("envelope decode failed")

// Cipher seals small parameter bundles into opaque URL-safe strings (invitation links, challenge ids)
// using XChaCha20-Poly1305 with a random nonce per envelope.
type Cipher struct {
	key []byte
}

// NewCipher builds a Cipher from base64 key material (URL-safe or standard alphabet). Missing '='
// padding is restored before decoding. The decoded key must be 32 bytes.
func NewCipher(key string) (*Cipher, error) {
	raw, err := decodeBase64(key)
	if err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}
	if len(raw) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("encryption key: want %d bytes, got %d", chacha20poly1305.KeySize, len(raw))
	}
	return &Cipher{key: raw}, nil
}

// GenerateKey returns fresh base64url key material for NewCipher.
func GenerateKey() (string, error) {
	b := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Encrypt seals a JSON-compatible mapping.
func (c *Cipher) Encrypt(params map[string]any) (string, error) {
	return c.Seal(params)
}

// Decrypt opens an envelope produced by Encrypt. Numbers come back as json.Number carrying
// their encoded digits, so integers of any size survive; lists come back as []any.
func (c *Cipher) Decrypt(token string) (map[string]any, error) {
	plaintext, err := c.openRaw(token)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(plaintext))
	dec.UseNumber()
	out := map[string]any{}
	if err := dec.Decode(&out); err != nil {
		return nil, ErrDecode
	}
	return out, nil
}

// Seal JSON-encodes v and encrypts it.
func (c *Cipher) Seal(v any) (string, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Open decrypts token and JSON-decodes the plaintext into v. Any failure is reported as ErrDecode.
func (c *Cipher) Open(token string, v any) error {
	plaintext, err := c.openRaw(token)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(plaintext, v); err != nil {
		return ErrDecode
	}
	return nil
}

func (c *Cipher) openRaw(token string) ([]byte, error) {
	raw, err := decodeBase64(token)
	if err != nil {
		return nil, ErrDecode
	}
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return nil, ErrDecode
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrDecode
	}
	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecode
	}
	return plaintext, nil
}

// decodeBase64 re-pads s to a multiple of 4 and decodes it with the URL-safe alphabet,
// falling back to the standard one.
func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty input")
	}
	s = strings.TrimRight(s, "=")
	if m := len(s) % 4; m != 0 {
		s += strings.Repeat("=", 4-m)
	}
	if b, err := base64.URLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.StdEncoding.DecodeString(s)
}
