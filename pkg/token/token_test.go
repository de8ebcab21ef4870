package token

import (
	"regexp"
	"testing"
)

func TestNew64(t *testing.T) {
	hexPattern := regexp.MustCompile(`^[0-9a-f]{64}$`)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := New64()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !hexPattern.MatchString(tok) {
			t.Fatalf("token %q is not 64 lowercase hex chars", tok)
		}
		if seen[tok] {
			t.Fatalf("token %q generated twice", tok)
		}
		seen[tok] = true
	}
}

func TestNumericCode(t *testing.T) {
	pattern := regexp.MustCompile(`^[1-9][0-9]{5}$`)
	for i := 0; i < 100; i++ {
		code, err := NumericCode(6)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !pattern.MatchString(code) {
			t.Fatalf("code %q is not 6 digits", code)
		}
	}
}

func TestNumericCode_InvalidLength(t *testing.T) {
	if _, err := NumericCode(0); err == nil {
		t.Error("expected error for zero length")
	}
}
