package ports

import "context"

// Mailer defines the citizen notification contract. Every send is
// dispatched fire-and-forget after the owning transaction commits;
// failures are logged and never surface to the state-changing operation.
type Mailer interface {
	// SendOTP delivers the email-verification code.
	SendOTP(ctx context.Context, email, nroTramite, code string) error

	// SendPaymentConfirmed notifies that the fee was received.
	SendPaymentConfirmed(ctx context.Context, email, nroTramite string) error

	// SendCertificateReady delivers the download link and its validity.
	SendCertificateReady(ctx context.Context, email, nroTramite, downloadURL string, validityDays int) error

	// SendRequestExpired notifies that the request lapsed without payment
	// or that the payment was rejected.
	SendRequestExpired(ctx context.Context, email, nroTramite string) error
}
