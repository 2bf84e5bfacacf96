package crypto

import "testing"

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("hunter2-hunter2")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if hash == "hunter2-hunter2" {
		t.Fatal("expected hash to differ from plaintext")
	}

	if !VerifyPassword(hash, "hunter2-hunter2") {
		t.Fatal("expected password to verify")
	}
	if VerifyPassword(hash, "wrong-password") {
		t.Fatal("expected wrong password to fail verification")
	}
}

func TestGenerateToken(t *testing.T) {
	first, err := GenerateToken(32)
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}
	second, err := GenerateToken(32)
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}

	if first == second {
		t.Fatal("expected distinct tokens")
	}
	if len(first) == 0 {
		t.Fatal("expected non-empty token")
	}
}
