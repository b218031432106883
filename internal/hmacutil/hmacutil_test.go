package hmacutil

import (
	"strings"
	"testing"
)

func TestSignDeterministic(t *testing.T) {
	a := Sign("secret", "payload")
	b := Sign("secret", "payload")
	if a != b {
		t.Fatalf("Expected identical signatures, got %q and %q", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("Expected 64 hex chars, got %d", len(a))
	}
	if a != strings.ToLower(a) {
		t.Fatalf("Expected lowercase hex, got %q", a)
	}
}

func TestSignDiffersByInput(t *testing.T) {
	base := Sign("secret", "payload")
	if Sign("secret2", "payload") == base {
		t.Fatal("Expected different secret to change signature")
	}
	if Sign("secret", "payload2") == base {
		t.Fatal("Expected different payload to change signature")
	}
}

func TestVerify(t *testing.T) {
	sig := Sign("secret", "hello")
	if !Verify("secret", "hello", sig) {
		t.Fatal("Expected valid signature to verify")
	}
	tampered := sig[:63] + "0"
	if tampered == sig {
		tampered = sig[:63] + "1"
	}
	if Verify("secret", "hello", tampered) {
		t.Fatal("Expected tampered signature to fail")
	}
	if Verify("other", "hello", sig) {
		t.Fatal("Expected wrong secret to fail")
	}
	if Verify("secret", "hello", "") {
		t.Fatal("Expected empty signature to fail")
	}
	if Verify("secret", "hello", "not-hex-at-all") {
		t.Fatal("Expected malformed signature to fail")
	}
}

func TestEqualLengthMismatch(t *testing.T) {
	if Equal("abc", "abcd") {
		t.Fatal("Expected length mismatch to be unequal")
	}
	if !Equal("", "") {
		t.Fatal("Expected empty strings to be equal")
	}
}

func TestRandomHex(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		s := RandomHex(16)
		if len(s) != 16 {
			t.Fatalf("Expected 16 chars, got %d", len(s))
		}
		for _, c := range s {
			if !strings.ContainsRune("0123456789abcdef", c) {
				t.Fatalf("Expected hex characters only, got %q", s)
			}
		}
		if seen[s] {
			t.Fatalf("Expected unique values, got repeat %q", s)
		}
		seen[s] = true
	}
	if got := RandomHex(7); len(got) != 7 {
		t.Fatalf("Expected odd length to be honored, got %d chars", len(got))
	}
}

func TestIsSentinel(t *testing.T) {
	if !IsSentinel("default-secret-change-me") {
		t.Fatal("Expected sentinel to be detected")
	}
	if IsSentinel("default-secret-change-me ") {
		t.Fatal("Expected near-miss to not be sentinel")
	}
}
