package jwtauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/certigo/certigo/internal/domain"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims carries the operator identity inside a session token.
type Claims struct {
	OperatorID     int64
	Username       string
	Role           domain.Role
	JurisdictionID *int
}

// Scope derives the authorization scope from the token claims so
// handlers never reload the operator row per request.
func (c *Claims) Scope() domain.Scope {
	op := domain.Operator{Role: c.Role, JurisdictionID: c.JurisdictionID}
	return op.Scope()
}

// Service signs and validates HS256 session tokens for internal users.
type Service struct {
	secret []byte
	ttl    time.Duration

	now func() time.Time
}

func New(secret string, ttl time.Duration) *Service {
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// GenerateToken issues a signed session token for the operator.
func (s *Service) GenerateToken(op *domain.Operator) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"operator_id": op.ID,
		"username":    op.Username,
		"role":        string(op.Role),
		"exp":         now.Add(s.ttl).Unix(),
		"iat":         now.Unix(),
	}
	if op.JurisdictionID != nil {
		claims["jurisdiction_id"] = *op.JurisdictionID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a session token and returns its
// claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	operatorID, ok := mapClaims["operator_id"].(float64)
	if !ok {
		return nil, ErrInvalidToken
	}
	username, ok := mapClaims["username"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}
	role, ok := mapClaims["role"].(string)
	if !ok || !domain.Role(role).Valid() {
		return nil, ErrInvalidToken
	}

	claims := &Claims{
		OperatorID: int64(operatorID),
		Username:   username,
		Role:       domain.Role(role),
	}
	if j, ok := mapClaims["jurisdiction_id"].(float64); ok {
		id := int(j)
		claims.JurisdictionID = &id
	}
	return claims, nil
}
