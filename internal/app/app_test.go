package app

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"adinsights/backend/internal/config"
)

func TestSigningKey_HMAC(t *testing.T) {
	key, err := SigningKey(&config.Config{SecretKey: "0123456789abcdef0123456789abcdef"})
	if err != nil {
		t.Fatalf("SigningKey: %v", err)
	}
	if key.Alg() != "HS256" {
		t.Errorf("Alg = %q, want HS256", key.Alg())
	}

	if _, err := SigningKey(&config.Config{SecretKey: "short"}); err == nil {
		t.Error("short secret should be rejected")
	}
}

func TestSigningKey_PEMWins(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		t.Fatal(err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{
		SecretKey:     "0123456789abcdef0123456789abcdef",
		JWTPrivateKey: string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})),
		JWTPublicKey:  string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})),
	}
	key, err := SigningKey(cfg)
	if err != nil {
		t.Fatalf("SigningKey: %v", err)
	}
	if key.Alg() != "ES256" {
		t.Errorf("Alg = %q, want ES256", key.Alg())
	}
}
