// Package token generates the opaque credentials used across the system:
// download tokens, citizen session tokens and OTP codes. Everything here
// draws from crypto/rand; a predictable generator would make the public
// status and download endpoints guessable.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// New64 returns a 64-character lowercase hex token (256 bits of entropy).
func New64() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// NumericCode returns a code of exactly n decimal digits, first digit
// never zero so the length is stable in transit.
func NumericCode(n int) (string, error) {
	if n < 1 {
		return "", fmt.Errorf("code length must be positive, got %d", n)
	}
	low := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n-1)), nil)
	span := new(big.Int).Mul(low, big.NewInt(9))
	r, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return new(big.Int).Add(low, r).String(), nil
}
