package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/certigo/certigo/internal/domain"
	"github.com/certigo/certigo/internal/ports"
)

// PasswordService abstracts hashing so the usecase stays free of the
// bcrypt dependency.
type PasswordService interface {
	HashPassword(password string) (string, error)
	VerifyPassword(password, hash string) (bool, error)
}

// TokenIssuer issues the signed session tokens for internal users.
type TokenIssuer interface {
	GenerateToken(op *domain.Operator) (string, error)
}

// Auth handles internal user login and administration.
type Auth struct {
	operators     ports.OperatorRepository
	jurisdictions ports.JurisdictionRepository
	passwords     PasswordService
	issuer        TokenIssuer
	log           *logrus.Logger

	now func() time.Time
}

// NewAuth wires the internal user usecase.
func NewAuth(
	operators ports.OperatorRepository,
	jurisdictions ports.JurisdictionRepository,
	passwords PasswordService,
	issuer TokenIssuer,
	log *logrus.Logger,
) *Auth {
	if log == nil {
		log = logrus.New()
	}
	return &Auth{
		operators:     operators,
		jurisdictions: jurisdictions,
		passwords:     passwords,
		issuer:        issuer,
		log:           log,
		now:           time.Now,
	}
}

// LoginResult carries the signed token and the authenticated operator.
type LoginResult struct {
	Token    string           `json:"token"`
	Operator *domain.Operator `json:"operator"`
}

// Login authenticates an internal user and issues a session token.
// Inactive accounts cannot log in.
func (a *Auth) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	op, err := a.operators.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrOperatorNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := a.passwords.VerifyPassword(password, op.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}
	if !op.Active {
		return nil, domain.ErrOperatorInactive
	}

	token, err := a.issuer.GenerateToken(op)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	a.log.WithFields(logrus.Fields{
		"operator": op.Username,
		"role":     op.Role,
	}).Info("operator logged in")

	return &LoginResult{Token: token, Operator: op}, nil
}

// CreateOperator registers a new internal user. Only an unrestricted
// actor (admin) may manage users. Operators require a jurisdiction;
// admins must not carry one.
func (a *Auth) CreateOperator(ctx context.Context, actor *domain.Operator, username, password string, role domain.Role, jurisdictionID *int) (*domain.Operator, error) {
	if !actor.Scope().Unrestricted() {
		return nil, domain.ErrJurisdictionMismatch
	}
	if !role.Valid() {
		return nil, domain.NewDomainError("unknown role")
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.NewDomainError("username is required")
	}
	if len(password) < 8 {
		return nil, domain.NewDomainError("password must be at least 8 characters")
	}

	switch role {
	case domain.RoleOperator:
		if jurisdictionID == nil {
			return nil, domain.NewDomainError("operators must be bound to a jurisdiction")
		}
		if _, err := a.jurisdictions.FindByID(ctx, *jurisdictionID); err != nil {
			return nil, err
		}
	case domain.RoleAdmin:
		jurisdictionID = nil
	}

	hash, err := a.passwords.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	op := &domain.Operator{
		Username:       username,
		PasswordHash:   hash,
		Role:           role,
		JurisdictionID: jurisdictionID,
		Active:         true,
		CreatedAt:      a.now(),
	}
	if err := a.operators.Create(ctx, op); err != nil {
		return nil, err
	}

	a.log.WithFields(logrus.Fields{
		"operator": op.Username,
		"role":     op.Role,
		"actor":    actor.Username,
	}).Info("internal user created")

	return op, nil
}

// SetOperatorActive activates or deactivates an internal user.
func (a *Auth) SetOperatorActive(ctx context.Context, actor *domain.Operator, id int64, active bool) error {
	if !actor.Scope().Unrestricted() {
		return domain.ErrJurisdictionMismatch
	}
	if err := a.operators.SetActive(ctx, id, active); err != nil {
		return err
	}
	a.log.WithFields(logrus.Fields{
		"operator_id": id,
		"active":      active,
		"actor":       actor.Username,
	}).Info("internal user state changed")
	return nil
}

// ListOperators returns all internal users. Admin only.
func (a *Auth) ListOperators(ctx context.Context, actor *domain.Operator) ([]*domain.Operator, error) {
	if !actor.Scope().Unrestricted() {
		return nil, domain.ErrJurisdictionMismatch
	}
	return a.operators.List(ctx)
}
