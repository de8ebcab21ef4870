package domain

import (
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// Status represents the lifecycle state of a certificate request.
type Status string

const (
	// StatusPending is the initial state: the citizen submitted the form
	// and the fee has not been paid yet.
	StatusPending Status = "PENDING"

	// StatusPaid means the payment gateway confirmed the fee. An operator
	// must now upload the certificate PDF.
	StatusPaid Status = "PAID"

	// StatusPublished means the certificate was uploaded and the citizen
	// can download it with the download token.
	StatusPublished Status = "PUBLISHED"

	// StatusPublishedExpired is terminal: the certificate validity window
	// elapsed and the backing file was removed. The download token stays
	// persisted for audit.
	StatusPublishedExpired Status = "PUBLISHED_EXPIRED"

	// StatusExpired is terminal: the citizen never paid within the window,
	// or the gateway rejected the payment.
	StatusExpired Status = "EXPIRED"
)

// Valid reports whether s is one of the five defined states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusPublished, StatusPublishedExpired, StatusExpired:
		return true
	}
	return false
}

// CanTransition is the single source of truth for the lifecycle state
// machine:
//
//	PENDING   -> PAID, EXPIRED
//	PAID      -> PUBLISHED, EXPIRED
//	PUBLISHED -> PUBLISHED_EXPIRED
//	PUBLISHED_EXPIRED, EXPIRED -> (terminal)
//
// It is a pure function over state values; callers must check it before
// mutating a request and apply the mutation under the version precondition.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusPaid || to == StatusExpired
	case StatusPaid:
		return to == StatusPublished || to == StatusExpired
	case StatusPublished:
		return to == StatusPublishedExpired
	}
	// Terminal states have no outgoing transitions.
	return false
}

// Request is a certificate request record. All mutations go through the
// lifecycle usecase; the Version field is the optimistic concurrency
// precondition and increases by one on every successful write.
type Request struct {
	ID              int64            `json:"id"`
	NroTramite      string           `json:"nro_tramite"`
	SubjectID       string           `json:"subject_id"`
	Email           string           `json:"email"`
	JurisdictionID  int              `json:"jurisdiction_id"`
	Status          Status           `json:"status"`
	PaymentOrderRef *string          `json:"payment_order_ref,omitempty"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	PaidAt          *time.Time       `json:"paid_at,omitempty"`
	CertificateRef  *string          `json:"-"`
	DownloadToken   *string          `json:"-"`
	IssuedAt        *time.Time       `json:"issued_at,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	Version         int64            `json:"-"`
}

// NewRequest builds a pending request. The trámite number is assigned by
// the caller (it needs the day-scoped sequence) and never changes after.
func NewRequest(nroTramite, subjectID, email string, jurisdictionID int, now time.Time) *Request {
	return &Request{
		NroTramite:     nroTramite,
		SubjectID:      subjectID,
		Email:          email,
		JurisdictionID: jurisdictionID,
		Status:         StatusPending,
		CreatedAt:      now,
		Version:        0,
	}
}

// RequestFilter narrows List queries. A nil field means "no filter".
type RequestFilter struct {
	JurisdictionID *int    `json:"jurisdiction_id,omitempty"`
	Status         *Status `json:"status,omitempty"`
	SubjectID      *string `json:"subject_id,omitempty"`
	Limit          int     `json:"limit"`
	Offset         int     `json:"offset"`
}

var (
	subjectIDPattern = regexp.MustCompile(`^[0-9]{7,11}$`)
	emailPattern     = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// ValidateSubjectID checks the DNI/CUIL shape: 7 to 11 digits.
func ValidateSubjectID(id string) error {
	if !subjectIDPattern.MatchString(id) {
		return ErrInvalidSubjectID
	}
	return nil
}

// ValidateEmail checks the contact email shape.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

// Custom errors
var (
	ErrRequestNotFound        = NewDomainError("request not found")
	ErrJurisdictionNotFound   = NewDomainError("jurisdiction not found")
	ErrOperatorNotFound       = NewDomainError("operator not found")
	ErrInvalidTransition      = NewDomainError("invalid status transition")
	ErrInvalidState           = NewDomainError("request is not in the required state")
	ErrConcurrentModification = NewDomainError("request was modified concurrently, retry")
	ErrJurisdictionMismatch   = NewDomainError("operator is not allowed to act on this jurisdiction")
	ErrInvalidSubjectID       = NewDomainError("subject id must be 7 to 11 digits")
	ErrInvalidEmail           = NewDomainError("invalid email format")
	ErrOTPIncorrect           = NewDomainError("verification code is incorrect")
	ErrOTPExpired             = NewDomainError("verification code expired")
	ErrOTPExhausted           = NewDomainError("verification attempts exhausted")
	ErrTokenInvalid           = NewDomainError("token is invalid or expired")
	ErrInvalidCredentials     = NewDomainError("invalid username or password")
	ErrOperatorInactive       = NewDomainError("operator account is inactive")
	ErrUsernameTaken          = NewDomainError("username already exists")
)

// DomainError represents a domain-specific error
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func NewDomainError(message string) *DomainError {
	return &DomainError{Message: message}
}
