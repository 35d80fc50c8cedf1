package security

import (
	"errors"
	"testing"
	"time"

	"ticketpos/internal/model"
)

func TestSignerRoundTrip(t *testing.T) {
	signer := NewSigner("unit-test-secret", 8*time.Hour)
	op := &model.Operator{ID: 3, Username: "pos_admin2", Restaurant: model.RestaurantSecondary}

	token, expiresAt, err := signer.Issue(op)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if time.Until(expiresAt) < 7*time.Hour {
		t.Fatalf("expected ~8h expiry, got %s", expiresAt)
	}

	claims, err := signer.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.PosID != 3 || claims.Username != "pos_admin2" || claims.Restaurant != model.RestaurantSecondary {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestSignerRejectsForeignSecret(t *testing.T) {
	token, _, err := NewSigner("secret-a", time.Hour).Issue(&model.Operator{ID: 1, Username: "a"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := NewSigner("secret-b", time.Hour).Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestSignerRejectsExpiredToken(t *testing.T) {
	signer := NewSigner("unit-test-secret", 8*time.Hour)
	issuedAt := time.Now().Add(-9 * time.Hour)
	signer.now = func() time.Time { return issuedAt }

	token, _, err := signer.Issue(&model.Operator{ID: 1, Username: "a"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	signer.now = time.Now
	if _, err := signer.Parse(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestSignerRejectsGarbage(t *testing.T) {
	if _, err := NewSigner("s", time.Hour).Parse("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestPasswordHashAndCheck(t *testing.T) {
	hash, err := HashPassword("pos21234")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(hash, "pos21234") {
		t.Fatalf("expected password to match")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatalf("expected mismatch for wrong password")
	}
}
