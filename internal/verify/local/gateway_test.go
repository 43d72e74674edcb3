package local

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"adinsights/backend/internal/devotp"
	"adinsights/backend/internal/verify"
)

func newTestGateway(t *testing.T) (*Gateway, *miniredis.Miniredis, *devotp.MemoryStore) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	dev := devotp.NewMemoryStore()
	return NewGateway(client, time.Minute, dev, nil), mr, dev
}

func request(t *testing.T, g *Gateway, dev *devotp.MemoryStore) string {
	t.Helper()
	err := g.RequestCode(context.Background(), verify.CodeRequest{
		Identifier: "jane@example.com", Email: "jane@example.com", Purpose: verify.PurposeSignIn,
	})
	if err != nil {
		t.Fatalf("RequestCode: %v", err)
	}
	e, ok := dev.Get(context.Background(), "jane@example.com")
	if !ok {
		t.Fatal("dev store not populated")
	}
	return e.Code
}

func TestGateway_RequestAndCheck(t *testing.T) {
	g, mr, dev := newTestGateway(t)
	code := request(t, g, dev)

	raw, err := mr.Get("verify:jane@example.com")
	if err != nil {
		t.Fatalf("key missing: %v", err)
	}
	var rec record
	_ = json.Unmarshal([]byte(raw), &rec)
	if rec.Hash != HashOTP(code) || rec.Purpose != "sign_in" {
		t.Errorf("stored record = %+v", rec)
	}
	if ttl := mr.TTL("verify:jane@example.com"); ttl <= 0 || ttl > time.Minute {
		t.Errorf("ttl = %v", ttl)
	}

	check, err := g.CheckCode(context.Background(), "jane@example.com", code)
	if err != nil {
		t.Fatalf("CheckCode: %v", err)
	}
	if !check.Valid || !check.Approved {
		t.Errorf("check = %+v", check)
	}

	check, err = g.CheckCode(context.Background(), "jane@example.com", code)
	if err != nil || check.Approved {
		t.Errorf("second use: check = %+v, err = %v", check, err)
	}
}

func TestGateway_PurposeMismatchNotApproved(t *testing.T) {
	g, mr, dev := newTestGateway(t)
	code := request(t, g, dev)

	check, err := g.CheckCode(context.Background(), "jane@example.com", code, verify.PurposeReset)
	if err != nil {
		t.Fatalf("CheckCode: %v", err)
	}
	if check.Approved {
		t.Error("sign-in code approved for reset")
	}
	raw, err := mr.Get("verify:jane@example.com")
	if err != nil {
		t.Fatalf("code discarded on purpose mismatch: %v", err)
	}
	var rec record
	_ = json.Unmarshal([]byte(raw), &rec)
	if rec.Attempts != 0 {
		t.Errorf("Attempts = %d, want 0", rec.Attempts)
	}

	check, err = g.CheckCode(context.Background(), "jane@example.com", code, verify.PurposeSignIn, verify.PurposeConfirm)
	if err != nil || !check.Approved {
		t.Errorf("matching purpose: check = %+v, err = %v", check, err)
	}
}

func TestAccepts(t *testing.T) {
	if !verify.Accepts(verify.PurposeReset, nil) {
		t.Error("no purposes should accept any")
	}
	if verify.Accepts(verify.PurposeReset, []verify.Purpose{verify.PurposeSignIn, verify.PurposeConfirm}) {
		t.Error("reset accepted for sign-in")
	}
	if !verify.Accepts(verify.PurposeConfirm, []verify.Purpose{verify.PurposeSignIn, verify.PurposeConfirm}) {
		t.Error("confirm rejected for sign-in")
	}
}

func TestGateway_WrongCodeCountsAttempts(t *testing.T) {
	g, mr, dev := newTestGateway(t)
	code := request(t, g, dev)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	for i := 0; i < defaultMaxAttempts-1; i++ {
		check, err := g.CheckCode(context.Background(), "jane@example.com", wrong)
		if err != nil || check.Approved || check.Valid {
			t.Fatalf("attempt %d: check = %+v, err = %v", i, check, err)
		}
	}
	if !mr.Exists("verify:jane@example.com") {
		t.Fatal("code discarded before the cap")
	}
	if ttl := mr.TTL("verify:jane@example.com"); ttl <= 0 {
		t.Errorf("ttl lost after failed attempt: %v", ttl)
	}
	_, _ = g.CheckCode(context.Background(), "jane@example.com", wrong)
	if mr.Exists("verify:jane@example.com") {
		t.Fatal("code should be discarded at the cap")
	}
	check, _ := g.CheckCode(context.Background(), "jane@example.com", code)
	if check.Approved {
		t.Error("correct code after cap must not be approved")
	}
}

func TestGateway_Expired(t *testing.T) {
	g, mr, dev := newTestGateway(t)
	code := request(t, g, dev)
	mr.FastForward(2 * time.Minute)

	check, err := g.CheckCode(context.Background(), "jane@example.com", code)
	if err != nil || check.Approved {
		t.Errorf("expired: check = %+v, err = %v", check, err)
	}
}

func TestGateway_NewRequestReplacesOld(t *testing.T) {
	g, _, dev := newTestGateway(t)
	first := request(t, g, dev)
	second := request(t, g, dev)
	if first == second {
		t.Skip("codes collided")
	}
	if check, _ := g.CheckCode(context.Background(), "jane@example.com", first); check.Approved {
		t.Error("superseded code approved")
	}
	if check, _ := g.CheckCode(context.Background(), "jane@example.com", second); !check.Approved {
		t.Error("latest code not approved")
	}
}

func TestGateway_RedisDown(t *testing.T) {
	g, mr, _ := newTestGateway(t)
	mr.Close()
	if err := g.RequestCode(context.Background(), verify.CodeRequest{Identifier: "x", Email: "x"}); err == nil {
		t.Error("RequestCode: want error with redis down")
	}
	if _, err := g.CheckCode(context.Background(), "x", "123456"); err == nil {
		t.Error("CheckCode: want error with redis down")
	}
}
