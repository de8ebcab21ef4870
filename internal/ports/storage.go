package ports

import (
	"context"
	"io"
)

// FileStorage abstracts the private object store holding certificate
// PDFs. Citizens never reach the store directly; the HTTP layer proxies
// downloads using the download token as the only authentication factor.
type FileStorage interface {
	// Upload stores the certificate content and returns the internal
	// storage reference persisted on the request.
	Upload(ctx context.Context, requestID int64, content io.Reader, size int64, contentType string) (string, error)

	// Fetch returns the object stream for a stored reference. The caller
	// closes the stream.
	Fetch(ctx context.Context, ref string) (io.ReadCloser, error)

	// Delete removes the object. Used by the expiry sweep; failures are
	// logged by the caller and never block the state transition.
	Delete(ctx context.Context, ref string) error
}
