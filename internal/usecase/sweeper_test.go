package usecase

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/certigo/certigo/internal/domain"
)

func newSweeperFixture(pendingDays, publishedDays int) (*lifecycleFixture, *Sweeper) {
	f := newLifecycleFixture()
	log := logrus.New()
	log.SetOutput(io.Discard)
	s := NewSweeper(f.lc, f.requests, f.storage, nil, log, pendingDays, publishedDays)
	s.now = func() time.Time { return testNow }
	return f, s
}

func TestSweeper_ExpiresPendingPastWindow(t *testing.T) {
	f, s := newSweeperFixture(60, 30)

	stale := pendingRequest()
	f.requests.On("ListExpirable", mock.Anything, domain.StatusPending, testNow.Add(-60*24*time.Hour)).
		Return([]*domain.Request{stale}, nil)
	f.requests.On("ListExpirable", mock.Anything, domain.StatusPublished, testNow.Add(-30*24*time.Hour)).
		Return([]*domain.Request{}, nil)
	f.requests.On("Update", mock.Anything, stale, mock.AnythingOfType("*domain.StatusChange")).Return(nil)

	result, err := s.Run(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 1, result.PendingExpired)
	assert.Equal(t, 0, result.PublishedExpired)
	assert.Equal(t, domain.StatusExpired, stale.Status)
}

func TestSweeper_CutoffUsesConfiguredWindows(t *testing.T) {
	f, s := newSweeperFixture(60, 30)

	f.requests.On("ListExpirable", mock.Anything, domain.StatusPending, mock.Anything).
		Return([]*domain.Request{}, nil)
	f.requests.On("ListExpirable", mock.Anything, domain.StatusPublished, mock.Anything).
		Return([]*domain.Request{}, nil)

	_, err := s.Run(context.Background())
	assert.NoError(t, err)

	// A record created 59 days ago is after the cutoff and must not be in
	// the expirable window the sweeper asks for.
	pendingCutoff := f.requests.Calls[0].Arguments.Get(2).(time.Time)
	assert.Equal(t, testNow.Add(-60*24*time.Hour), pendingCutoff)
	assert.True(t, testNow.Add(-59*24*time.Hour).After(pendingCutoff))
	assert.True(t, testNow.Add(-61*24*time.Hour).Before(pendingCutoff))
}

func TestSweeper_OneFailureDoesNotAbortBatch(t *testing.T) {
	f, s := newSweeperFixture(60, 30)

	lost := pendingRequest()
	ok := pendingRequest()
	ok.ID = 8
	ok.NroTramite = "CERT-20251216-0002"

	f.requests.On("ListExpirable", mock.Anything, domain.StatusPending, mock.Anything).
		Return([]*domain.Request{lost, ok}, nil)
	f.requests.On("ListExpirable", mock.Anything, domain.StatusPublished, mock.Anything).
		Return([]*domain.Request{}, nil)
	// First record was paid concurrently; its version check fails.
	f.requests.On("Update", mock.Anything, lost, mock.Anything).Return(domain.ErrConcurrentModification)
	f.requests.On("Update", mock.Anything, ok, mock.Anything).Return(nil)

	result, err := s.Run(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 1, result.PendingExpired)
	assert.Equal(t, domain.StatusExpired, ok.Status)
}

func TestSweeper_ExpiresPublishedAndDeletesFile(t *testing.T) {
	f, s := newSweeperFixture(60, 30)

	req := pendingRequest()
	req.Status = domain.StatusPublished
	ref := "certificados/7/abc.pdf"
	tok := "deadbeef"
	req.CertificateRef = &ref
	req.DownloadToken = &tok

	f.requests.On("ListExpirable", mock.Anything, domain.StatusPending, mock.Anything).
		Return([]*domain.Request{}, nil)
	f.requests.On("ListExpirable", mock.Anything, domain.StatusPublished, mock.Anything).
		Return([]*domain.Request{req}, nil)
	f.storage.On("Delete", mock.Anything, ref).Return(nil)
	f.requests.On("Update", mock.Anything, req, mock.Anything).Return(nil)

	result, err := s.Run(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 1, result.PublishedExpired)
	assert.Equal(t, domain.StatusPublishedExpired, req.Status)
	// The token column is kept for audit even though it no longer resolves.
	assert.Equal(t, "deadbeef", *req.DownloadToken)
	f.storage.AssertExpectations(t)
}

func TestSweeper_StorageFailureDoesNotBlockExpiry(t *testing.T) {
	f, s := newSweeperFixture(60, 30)

	req := pendingRequest()
	req.Status = domain.StatusPublished
	ref := "certificados/7/abc.pdf"
	req.CertificateRef = &ref

	f.requests.On("ListExpirable", mock.Anything, domain.StatusPending, mock.Anything).
		Return([]*domain.Request{}, nil)
	f.requests.On("ListExpirable", mock.Anything, domain.StatusPublished, mock.Anything).
		Return([]*domain.Request{req}, nil)
	f.storage.On("Delete", mock.Anything, ref).Return(assert.AnError)
	f.requests.On("Update", mock.Anything, req, mock.Anything).Return(nil)

	result, err := s.Run(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 1, result.PublishedExpired)
	assert.Equal(t, domain.StatusPublishedExpired, req.Status)
}

func TestSweeper_CancelledContextStopsBetweenRecords(t *testing.T) {
	f, s := newSweeperFixture(60, 30)

	f.requests.On("ListExpirable", mock.Anything, domain.StatusPending, mock.Anything).
		Return([]*domain.Request{pendingRequest()}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	f.requests.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}
