package ports

import "context"

// OTPResult is the outcome of validating a one-time code. The three
// failure reasons are distinct so callers can message the citizen
// correctly.
type OTPResult int

const (
	// OTPValid means the code matched; code and counter are deleted.
	OTPValid OTPResult = iota
	// OTPWrongCode means the code did not match but attempts remain.
	OTPWrongCode
	// OTPExpired means no code exists (TTL elapsed or never issued).
	OTPExpired
	// OTPExhausted means the attempt cap was hit; the code is invalidated.
	OTPExhausted
)

// TokenStore abstracts the TTL key-value store holding the ephemeral
// credentials of the system: email-verification OTP codes and citizen
// session tokens. Values must come from a cryptographically strong
// random source; the public status and download endpoints make token
// guessing a direct attack vector.
type TokenStore interface {
	// IssueOTP generates a 6-digit code for the request, stores it with
	// its attempt counter under the OTP TTL, and returns it for delivery.
	IssueOTP(ctx context.Context, requestID int64) (string, error)

	// ValidateOTP checks the submitted code, counting the attempt. On
	// success or on exhausting attempts the code and counter are removed.
	ValidateOTP(ctx context.Context, requestID int64, code string) (OTPResult, error)

	// DeleteOTP removes the code and counter, if present.
	DeleteOTP(ctx context.Context, requestID int64) error

	// IssueCitizenToken creates an opaque 64-hex session token bound to
	// the trámite number under the session TTL.
	IssueCitizenToken(ctx context.Context, nroTramite string) (string, error)

	// ResolveCitizenToken returns the trámite number bound to the token,
	// or domain.ErrTokenInvalid when absent or expired.
	ResolveCitizenToken(ctx context.Context, token string) (string, error)

	// RevokeCitizenToken removes the session token.
	RevokeCitizenToken(ctx context.Context, token string) error
}
