package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/uploadbroker/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndParse_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")
	ownerID := "owner-123"

	tok, err := GenerateToken(ownerID, secret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	got, err := GetOwnerIDFromToken(tok, secret)
	if err != nil {
		t.Fatalf("GetOwnerIDFromToken error: %v", err)
	}
	if got != ownerID {
		t.Fatalf("ownerID mismatch: got %q want %q", got, ownerID)
	}
}

func TestGetOwnerIDFromToken_Expired(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")

	tok, err := GenerateToken("o1", secret, -1*time.Second)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	_, err = GetOwnerIDFromToken(tok, secret)
	if !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("expected common.ErrUnauthorized, got %v", err)
	}
	if !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected the expiry cause to be kept, got %v", err)
	}
}

func TestGetOwnerIDFromToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken("o2", []byte("right-secret"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	_, err = GetOwnerIDFromToken(tok, []byte("wrong-secret"))
	if !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("expected common.ErrUnauthorized, got %v", err)
	}
}

func TestGetOwnerIDFromToken_MalformedString(t *testing.T) {
	t.Parallel()

	_, err := GetOwnerIDFromToken("not.a.jwt", []byte("k"))
	if !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("expected common.ErrUnauthorized, got %v", err)
	}
}

func TestGetOwnerIDFromToken_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	secret := []byte("k")
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{OwnerID: "o3"}).SignedString(secret)
	if err != nil {
		t.Fatalf("SignedString error: %v", err)
	}

	if _, err := GetOwnerIDFromToken(tok, secret); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("expected HS512 token to be rejected, got %v", err)
	}
}

func TestGetOwnerIDFromToken_MissingOwner(t *testing.T) {
	t.Parallel()

	secret := []byte("k")
	tok, err := GenerateToken("", secret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	if _, err := GetOwnerIDFromToken(tok, secret); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("expected token without owner to be rejected, got %v", err)
	}
}
