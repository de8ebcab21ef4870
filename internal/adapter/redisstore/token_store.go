package redisstore

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/certigo/certigo/internal/domain"
	"github.com/certigo/certigo/internal/ports"
	"github.com/certigo/certigo/pkg/token"
)

const (
	otpTTL          = 15 * time.Minute
	citizenTokenTTL = 24 * time.Hour
	maxOTPAttempts  = 3
)

type tokenStore struct {
	client *redis.Client
	log    *logrus.Logger
}

// NewTokenStore connects to Redis and verifies the connection before
// returning the store.
func NewTokenStore(redisURL string, log *logrus.Logger) (ports.TokenStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if log == nil {
		log = logrus.New()
	}
	return &tokenStore{client: client, log: log}, nil
}

func otpKey(requestID int64) string {
	return fmt.Sprintf("otp:%d", requestID)
}

func otpAttemptsKey(requestID int64) string {
	return fmt.Sprintf("otp:attempts:%d", requestID)
}

func citizenKey(t string) string {
	return fmt.Sprintf("citizen:token:%s", t)
}

// IssueOTP generates a fresh verification code for the request. Issuing
// replaces any outstanding code and resets the attempt counter.
func (s *tokenStore) IssueOTP(ctx context.Context, requestID int64) (string, error) {
	code, err := token.NumericCode(6)
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}

	pipeline := s.client.Pipeline()
	pipeline.Set(ctx, otpKey(requestID), code, otpTTL)
	pipeline.Del(ctx, otpAttemptsKey(requestID))
	if _, err := pipeline.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to store verification code: %w", err)
	}

	s.log.WithField("request_id", requestID).Debug("verification code issued")
	return code, nil
}

// ValidateOTP checks the submitted code. Expiry is detected by key
// absence; attempts are counted per submission and the code is burned
// after the limit. A matching code is consumed immediately so it cannot
// be replayed.
func (s *tokenStore) ValidateOTP(ctx context.Context, requestID int64, code string) (ports.OTPResult, error) {
	stored, err := s.client.Get(ctx, otpKey(requestID)).Result()
	if errors.Is(err, redis.Nil) {
		return ports.OTPExpired, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read verification code: %w", err)
	}

	attempts, err := s.client.Incr(ctx, otpAttemptsKey(requestID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count verification attempt: %w", err)
	}
	// The counter must not outlive the code it guards.
	if err := s.client.Expire(ctx, otpAttemptsKey(requestID), otpTTL).Err(); err != nil {
		s.log.WithError(err).WithField("request_id", requestID).Warn("failed to re-arm attempt counter expiry")
	}

	if attempts > maxOTPAttempts {
		if err := s.DeleteOTP(ctx, requestID); err != nil {
			return 0, err
		}
		return ports.OTPExhausted, nil
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		if attempts == maxOTPAttempts {
			if err := s.DeleteOTP(ctx, requestID); err != nil {
				return 0, err
			}
			return ports.OTPExhausted, nil
		}
		return ports.OTPWrongCode, nil
	}

	if err := s.DeleteOTP(ctx, requestID); err != nil {
		return 0, err
	}
	return ports.OTPValid, nil
}

func (s *tokenStore) DeleteOTP(ctx context.Context, requestID int64) error {
	if err := s.client.Del(ctx, otpKey(requestID), otpAttemptsKey(requestID)).Err(); err != nil {
		return fmt.Errorf("failed to delete verification code: %w", err)
	}
	return nil
}

// IssueCitizenToken creates the opaque session token that ties a citizen
// to their trámite after email verification.
func (s *tokenStore) IssueCitizenToken(ctx context.Context, nroTramite string) (string, error) {
	t, err := token.New64()
	if err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	if err := s.client.Set(ctx, citizenKey(t), nroTramite, citizenTokenTTL).Err(); err != nil {
		return "", fmt.Errorf("failed to store session token: %w", err)
	}
	return t, nil
}

// ResolveCitizenToken returns the trámite number a session token is bound
// to, or domain.ErrTokenInvalid when it is unknown or expired.
func (s *tokenStore) ResolveCitizenToken(ctx context.Context, t string) (string, error) {
	nroTramite, err := s.client.Get(ctx, citizenKey(t)).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrTokenInvalid
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve session token: %w", err)
	}
	return nroTramite, nil
}

func (s *tokenStore) RevokeCitizenToken(ctx context.Context, t string) error {
	if err := s.client.Del(ctx, citizenKey(t)).Err(); err != nil {
		return fmt.Errorf("failed to revoke session token: %w", err)
	}
	return nil
}
