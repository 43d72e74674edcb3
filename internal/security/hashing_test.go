package security

import (
	"testing"
)

func TestHasher_HashAndVerify(t *testing.T) {
	h := NewHasher(4)
	hash, err := h.Hash("Secret123!")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "" || hash == "Secret123!" {
		t.Fatalf("Hash returned %q", hash)
	}
	if err := h.Compare(hash, "Secret123!"); err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if !h.Verify(hash, "Secret123!") {
		t.Fatal("Verify: want true for matching password")
	}
}

func TestHasher_VerifyWrongPassword(t *testing.T) {
	h := NewHasher(4)
	hash, _ := h.Hash("Secret123!")
	if h.Verify(hash, "wrong") {
		t.Fatal("Verify with wrong password should fail")
	}
	if err := h.Compare(hash, "wrong"); err == nil {
		t.Fatal("Compare with wrong password should fail")
	}
}

func TestHasher_VerifyMalformedDigest(t *testing.T) {
	h := NewHasher(4)
	for _, digest := range []string{"", "not-a-bcrypt-hash", "$2a$04$short"} {
		if h.Verify(digest, "Secret123!") {
			t.Errorf("Verify(%q): want false", digest)
		}
	}
}

func TestHasher_SaltedDigests(t *testing.T) {
	h := NewHasher(4)
	a, _ := h.Hash("Secret123!")
	b, _ := h.Hash("Secret123!")
	if a == b {
		t.Fatal("two hashes of the same password should differ")
	}
}

func TestHasher_Cost(t *testing.T) {
	h := NewHasher(12)
	if h.Cost != 12 {
		t.Errorf("Cost want 12, got %d", h.Cost)
	}
	h0 := NewHasher(0)
	if h0.Cost < 4 {
		t.Errorf("zero cost should be clamped to at least MinCost, got %d", h0.Cost)
	}
	if NewHasher(2).Cost != 4 {
		t.Errorf("low cost should clamp to MinCost")
	}
	if NewHasher(99).Cost != 31 {
		t.Errorf("high cost should clamp to MaxCost")
	}
}
