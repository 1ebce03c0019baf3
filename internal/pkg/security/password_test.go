package security

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatalf("hash should not equal plaintext")
	}

	if err = CheckPasswordHash("s3cret-pass", hash); err != nil {
		t.Fatalf("expected matching password to pass: %v", err)
	}
	if err = CheckPasswordHash("wrong-pass", hash); err == nil {
		t.Fatalf("expected mismatched password to fail")
	}
}

func TestHashPasswordEmpty(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Fatalf("expected error for empty password")
	}
}
