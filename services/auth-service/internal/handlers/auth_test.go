package handlers

import (
	"testing"

	"github.com/amiko-app/amiko/services/auth-service/internal/storage"
)

func TestPasswordHashing(t *testing.T) {
	password := "correct-horse-battery"
	hash, err := hashPassword(password)
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	if hash == "" {
		t.Fatal("expected non-empty hash")
	}
	if err := verifyPassword(hash, password); err != nil {
		t.Fatalf("verifyPassword should succeed: %v", err)
	}
	if err := verifyPassword(hash, "wrong-pass"); err == nil {
		t.Fatal("verifyPassword should fail for wrong password")
	}
}

func TestHS256SignerRoundTrip(t *testing.T) {
	signer := NewHS256Signer("test-secret")
	user := storage.User{ID: "u1", Role: "partner", NativeLang: "ko"}
	token, err := issueJWT(user, signer)
	if err != nil {
		t.Fatalf("issueJWT: %v", err)
	}
	claims, err := signer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Sub != "u1" || claims.Role != "partner" || claims.Lang != "ko" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	other := NewHS256Signer("other-secret")
	if _, err := other.Verify(token); err == nil {
		t.Fatal("token must not verify under a different secret")
	}
}

func TestValidTimezone(t *testing.T) {
	if !validTimezone("America/Lima") {
		t.Fatal("expected valid zone")
	}
	if validTimezone("Lima") || validTimezone("Not/AZone") {
		t.Fatal("expected invalid zones to be rejected")
	}
}
