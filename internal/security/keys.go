package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidKey is returned when PEM, secret or key type is invalid.
var ErrInvalidKey = errors.New("invalid key")

// minHMACSecretLength is the shortest SECRET_KEY accepted for HS256.
const minHMACSecretLength = 32

// SigningKey is the key material tokens are signed and verified with: a shared HS256 secret or
// an RS256/ES256 key pair.
type SigningKey struct {
	method jwt.SigningMethod
	sign   any
	verify any
}

// NewHMACKey returns an HS256 signing key for the shared secret.
func NewHMACKey(secret string) (SigningKey, error) {
	if len(secret) < minHMACSecretLength {
		return SigningKey{}, ErrInvalidKey
	}
	b := []byte(secret)
	return SigningKey{method: jwt.SigningMethodHS256, sign: b, verify: b}, nil
}

// NewAsymmetricKey returns an RS256 or ES256 signing key from PEM material (inline or file paths).
// The algorithm follows the public key type.
func NewAsymmetricKey(privatePEM, publicPEM string) (SigningKey, error) {
	signer, err := ParsePrivateKey(privatePEM)
	if err != nil {
		return SigningKey{}, err
	}
	pub, err := ParsePublicKey(publicPEM)
	if err != nil {
		return SigningKey{}, err
	}
	var method jwt.SigningMethod
	switch KeyAlg(pub) {
	case "RS256":
		method = jwt.SigningMethodRS256
	case "ES256":
		method = jwt.SigningMethodES256
	default:
		return SigningKey{}, ErrInvalidKey
	}
	if KeyAlg(signer.Public()) != KeyAlg(pub) {
		return SigningKey{}, ErrInvalidKey
	}
	return SigningKey{method: method, sign: signer, verify: pub}, nil
}

// Alg returns the JWT algorithm name, empty for the zero key.
func (k SigningKey) Alg() string {
	if k.method == nil {
		return ""
	}
	return k.method.Alg()
}

// LoadPEM returns s as bytes when it is inline PEM (literal "\n" sequences become newlines,
// as they do when PEM is passed through an env var); otherwise s is read as a file path.
func LoadPEM(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidKey
	}
	if strings.HasPrefix(s, "-----BEGIN") {
		return []byte(strings.ReplaceAll(s, `\n`, "\n")), nil
	}
	return os.ReadFile(s)
}

// ParsePrivateKey parses a PEM-encoded private key (RSA or ECDSA). s may be inline PEM or a file path.
func ParsePrivateKey(s string) (crypto.Signer, error) {
	pemBytes, err := LoadPEM(s)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, ErrInvalidKey
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, ErrInvalidKey
		}
		return signer, nil
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	default:
		return nil, ErrInvalidKey
	}
}

// ParsePublicKey parses a PEM-encoded public key (RSA or ECDSA). s may be inline PEM or a file path.
func ParsePublicKey(s string) (crypto.PublicKey, error) {
	pemBytes, err := LoadPEM(s)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, ErrInvalidKey
	}
	switch block.Type {
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	case "PUBLIC KEY":
		return x509.ParsePKIXPublicKey(block.Bytes)
	default:
		return nil, ErrInvalidKey
	}
}

// KeyAlg returns "RS256" for RSA and "ES256" for ECDSA; empty otherwise.
func KeyAlg(pub crypto.PublicKey) string {
	switch pub.(type) {
	case *rsa.PublicKey:
		return "RS256"
	case *ecdsa.PublicKey:
		return "ES256"
	default:
		return ""
	}
}
