package redisstore

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certigo/certigo/internal/domain"
	"github.com/certigo/certigo/internal/ports"
)

func newTestStore(t *testing.T) (*tokenStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	return &tokenStore{client: client, log: log}, mr
}

func wrongCode(code string) string {
	if code == "999999" {
		return "111111"
	}
	return "999999"
}

func TestValidateOTP_CorrectCodeIsConsumed(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	code, err := store.IssueOTP(ctx, 7)
	require.NoError(t, err)
	require.Len(t, code, 6)

	result, err := store.ValidateOTP(ctx, 7, code)
	require.NoError(t, err)
	assert.Equal(t, ports.OTPValid, result)

	assert.False(t, mr.Exists(otpKey(7)))
	assert.False(t, mr.Exists(otpAttemptsKey(7)))

	// A consumed code cannot be replayed.
	result, err = store.ValidateOTP(ctx, 7, code)
	require.NoError(t, err)
	assert.Equal(t, ports.OTPExpired, result)
}

func TestValidateOTP_ThirdWrongAttemptExhausts(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	code, err := store.IssueOTP(ctx, 7)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		result, err := store.ValidateOTP(ctx, 7, wrongCode(code))
		require.NoError(t, err)
		assert.Equal(t, ports.OTPWrongCode, result)
	}

	result, err := store.ValidateOTP(ctx, 7, wrongCode(code))
	require.NoError(t, err)
	assert.Equal(t, ports.OTPExhausted, result)

	// Exhaustion burns the code and the counter.
	assert.False(t, mr.Exists(otpKey(7)))
	assert.False(t, mr.Exists(otpAttemptsKey(7)))

	// Even the correct code is rejected afterwards.
	result, err = store.ValidateOTP(ctx, 7, code)
	require.NoError(t, err)
	assert.Equal(t, ports.OTPExpired, result)
}

func TestValidateOTP_CorrectCodePastCapIsExhausted(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	code, err := store.IssueOTP(ctx, 7)
	require.NoError(t, err)

	// Pin the counter at the cap without burning the code, as if the
	// exhaustion delete had been lost.
	require.NoError(t, store.client.Set(ctx, otpAttemptsKey(7), "3", otpTTL).Err())

	result, err := store.ValidateOTP(ctx, 7, code)
	require.NoError(t, err)
	assert.Equal(t, ports.OTPExhausted, result)
}

func TestValidateOTP_AbsentCodeIsExpired(t *testing.T) {
	store, _ := newTestStore(t)

	result, err := store.ValidateOTP(context.Background(), 42, "123456")
	require.NoError(t, err)
	assert.Equal(t, ports.OTPExpired, result)
}

func TestValidateOTP_AttemptCounterCarriesTTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	code, err := store.IssueOTP(ctx, 7)
	require.NoError(t, err)

	result, err := store.ValidateOTP(ctx, 7, wrongCode(code))
	require.NoError(t, err)
	assert.Equal(t, ports.OTPWrongCode, result)

	assert.Equal(t, otpTTL, mr.TTL(otpAttemptsKey(7)))

	// Once the code expires the stale counter goes with it, so the next
	// issued code starts from a clean slate.
	mr.FastForward(otpTTL + time.Second)
	assert.False(t, mr.Exists(otpKey(7)))
	assert.False(t, mr.Exists(otpAttemptsKey(7)))
}

func TestIssueOTP_ReissueResetsAttempts(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	code, err := store.IssueOTP(ctx, 7)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		result, err := store.ValidateOTP(ctx, 7, wrongCode(code))
		require.NoError(t, err)
		assert.Equal(t, ports.OTPWrongCode, result)
	}

	// A fresh code grants a fresh attempt budget.
	code, err = store.IssueOTP(ctx, 7)
	require.NoError(t, err)

	result, err := store.ValidateOTP(ctx, 7, wrongCode(code))
	require.NoError(t, err)
	assert.Equal(t, ports.OTPWrongCode, result)

	result, err = store.ValidateOTP(ctx, 7, code)
	require.NoError(t, err)
	assert.Equal(t, ports.OTPValid, result)
}

func TestCitizenToken_RoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	token, err := store.IssueCitizenToken(ctx, "CERT-20260215-0001")
	require.NoError(t, err)
	require.Len(t, token, 64)

	nroTramite, err := store.ResolveCitizenToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "CERT-20260215-0001", nroTramite)

	require.NoError(t, store.RevokeCitizenToken(ctx, token))

	_, err = store.ResolveCitizenToken(ctx, token)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestResolveCitizenToken_UnknownToken(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.ResolveCitizenToken(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}
