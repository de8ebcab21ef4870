package usecase

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/certigo/certigo/internal/domain"
)

type authFixture struct {
	operators     *MockOperatorRepository
	jurisdictions *MockJurisdictionRepository
	passwords     *MockPasswordService
	issuer        *MockTokenIssuer
	auth          *Auth
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		operators:     new(MockOperatorRepository),
		jurisdictions: new(MockJurisdictionRepository),
		passwords:     new(MockPasswordService),
		issuer:        new(MockTokenIssuer),
	}
	log := logrus.New()
	log.SetOutput(io.Discard)
	f.auth = NewAuth(f.operators, f.jurisdictions, f.passwords, f.issuer, log)
	return f
}

func adminActor() *domain.Operator {
	return &domain.Operator{ID: 1, Username: "admin", Role: domain.RoleAdmin, Active: true}
}

func TestLogin(t *testing.T) {
	f := newAuthFixture()
	op := &domain.Operator{ID: 3, Username: "mperez", PasswordHash: "$2a$hash", Role: domain.RoleOperator, Active: true}
	f.operators.On("FindByUsername", mock.Anything, "mperez").Return(op, nil)
	f.passwords.On("VerifyPassword", "secreta123", "$2a$hash").Return(true, nil)
	f.issuer.On("GenerateToken", op).Return("signed.jwt", nil)

	result, err := f.auth.Login(context.Background(), "mperez", "secreta123")

	assert.NoError(t, err)
	assert.Equal(t, "signed.jwt", result.Token)
	assert.Equal(t, op, result.Operator)
}

func TestLogin_UnknownUserMapsToInvalidCredentials(t *testing.T) {
	f := newAuthFixture()
	f.operators.On("FindByUsername", mock.Anything, "nadie").Return(nil, domain.ErrOperatorNotFound)

	_, err := f.auth.Login(context.Background(), "nadie", "whatever1")

	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newAuthFixture()
	op := &domain.Operator{ID: 3, Username: "mperez", PasswordHash: "$2a$hash", Role: domain.RoleOperator, Active: true}
	f.operators.On("FindByUsername", mock.Anything, "mperez").Return(op, nil)
	f.passwords.On("VerifyPassword", "wrong", "$2a$hash").Return(false, nil)

	_, err := f.auth.Login(context.Background(), "mperez", "wrong")

	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	f.issuer.AssertNotCalled(t, "GenerateToken", mock.Anything)
}

func TestLogin_InactiveAccount(t *testing.T) {
	f := newAuthFixture()
	op := &domain.Operator{ID: 3, Username: "mperez", PasswordHash: "$2a$hash", Role: domain.RoleOperator, Active: false}
	f.operators.On("FindByUsername", mock.Anything, "mperez").Return(op, nil)
	f.passwords.On("VerifyPassword", "secreta123", "$2a$hash").Return(true, nil)

	_, err := f.auth.Login(context.Background(), "mperez", "secreta123")

	assert.ErrorIs(t, err, domain.ErrOperatorInactive)
}

func TestCreateOperator(t *testing.T) {
	f := newAuthFixture()
	jid := 2
	f.jurisdictions.On("FindByID", mock.Anything, 2).Return(&domain.Jurisdiction{ID: 2}, nil)
	f.passwords.On("HashPassword", "secreta123").Return("$2a$new", nil)
	f.operators.On("Create", mock.Anything, mock.AnythingOfType("*domain.Operator")).Return(nil)

	op, err := f.auth.CreateOperator(context.Background(), adminActor(), "mperez", "secreta123", domain.RoleOperator, &jid)

	assert.NoError(t, err)
	assert.Equal(t, "$2a$new", op.PasswordHash)
	assert.Equal(t, 2, *op.JurisdictionID)
	assert.True(t, op.Active)
}

func TestCreateOperator_RequiresUnrestrictedActor(t *testing.T) {
	f := newAuthFixture()
	jid := 2
	actor := &domain.Operator{ID: 3, Username: "mperez", Role: domain.RoleOperator, JurisdictionID: &jid, Active: true}

	_, err := f.auth.CreateOperator(context.Background(), actor, "otro", "secreta123", domain.RoleOperator, &jid)

	assert.ErrorIs(t, err, domain.ErrJurisdictionMismatch)
	f.operators.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateOperator_OperatorNeedsJurisdiction(t *testing.T) {
	f := newAuthFixture()

	_, err := f.auth.CreateOperator(context.Background(), adminActor(), "mperez", "secreta123", domain.RoleOperator, nil)

	assert.Error(t, err)
	f.operators.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateOperator_AdminCarriesNoJurisdiction(t *testing.T) {
	f := newAuthFixture()
	jid := 2
	f.passwords.On("HashPassword", "secreta123").Return("$2a$new", nil)
	f.operators.On("Create", mock.Anything, mock.AnythingOfType("*domain.Operator")).Return(nil)

	op, err := f.auth.CreateOperator(context.Background(), adminActor(), "admin2", "secreta123", domain.RoleAdmin, &jid)

	assert.NoError(t, err)
	assert.Nil(t, op.JurisdictionID)
}

func TestCreateOperator_ShortPassword(t *testing.T) {
	f := newAuthFixture()
	jid := 2

	_, err := f.auth.CreateOperator(context.Background(), adminActor(), "mperez", "corta", domain.RoleOperator, &jid)

	assert.Error(t, err)
	f.passwords.AssertNotCalled(t, "HashPassword", mock.Anything)
}
