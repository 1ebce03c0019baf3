package security

import (
	"strings"
	"testing"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(1024)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if claims.UserID != 1024 {
		t.Fatalf("expected user_id=1024, got %d", claims.UserID)
	}
}

func TestValidateTokenRejectsTampered(t *testing.T) {
	token, err := GenerateToken(1)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if _, err = ValidateToken(tampered); err == nil {
		t.Fatalf("expected tampered token to be rejected")
	}

	if _, err = ValidateToken("not-a-token"); err == nil {
		t.Fatalf("expected malformed token to be rejected")
	}
}

func TestExtractSignature(t *testing.T) {
	token, err := GenerateToken(1)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	sig, err := ExtractSignature(token)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if !strings.HasSuffix(token, "."+sig) {
		t.Fatalf("signature should be the last token segment")
	}

	if _, err = ExtractSignature("a.b"); err == nil {
		t.Fatalf("expected error for malformed token")
	}
}
