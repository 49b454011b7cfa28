package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestHasPermission(t *testing.T) {
	t.Run("admin can do anything", func(t *testing.T) {
		c := Claims{UserID: uuid.New(), Role: RoleAdmin}
		if !c.HasPermission(PermUsersManage) || !c.HasPermission(PermBillingCollect) {
			t.Fatal("admin should hold every permission")
		}
	})

	t.Run("receptionist collects payments but cannot touch the odontogram", func(t *testing.T) {
		c := Claims{UserID: uuid.New(), Role: RoleReceptionist}
		if !c.HasPermission(PermBillingCollect) {
			t.Error("receptionist should collect payments")
		}
		if c.HasPermission(PermOdontogramWrite) {
			t.Error("receptionist must not write the odontogram")
		}
	})

	t.Run("dentist writes the odontogram but does not manage users", func(t *testing.T) {
		c := Claims{UserID: uuid.New(), Role: RoleDentist}
		if !c.HasPermission(PermOdontogramWrite) {
			t.Error("dentist should write the odontogram")
		}
		if c.HasPermission(PermUsersManage) {
			t.Error("dentist must not manage users")
		}
	})
}

func TestTokenRoundTrip(t *testing.T) {
	const secret = "test-secret"

	original := Claims{UserID: uuid.New(), Role: RoleDentist}

	signed, err := SignToken(secret, original, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	parsed, err := ParseToken(secret, signed)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.UserID != original.UserID || parsed.Role != original.Role {
		t.Fatalf("round trip mismatch: %+v != %+v", parsed, original)
	}

	t.Run("wrong secret", func(t *testing.T) {
		_, err := ParseToken("other-secret", signed)
		if !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		expired, err := SignToken(secret, original, -time.Minute)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		_, err = ParseToken(secret, expired)
		if !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseToken(secret, "not-a-token")
		if !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})
}
