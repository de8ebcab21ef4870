package usecase

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/certigo/certigo/internal/domain"
	"github.com/certigo/certigo/internal/ports"
)

// Mock implementations of the ports used by the lifecycle and sweeper.

type MockRequestRepository struct {
	mock.Mock
}

func (m *MockRequestRepository) Create(ctx context.Context, req *domain.Request, first *domain.StatusChange) error {
	args := m.Called(ctx, req, first)
	return args.Error(0)
}

func (m *MockRequestRepository) FindByID(ctx context.Context, id int64) (*domain.Request, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Request), args.Error(1)
}

func (m *MockRequestRepository) FindByTramite(ctx context.Context, nroTramite string) (*domain.Request, error) {
	args := m.Called(ctx, nroTramite)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Request), args.Error(1)
}

func (m *MockRequestRepository) FindByPaymentOrder(ctx context.Context, ref string) (*domain.Request, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Request), args.Error(1)
}

func (m *MockRequestRepository) FindByDownloadToken(ctx context.Context, token string) (*domain.Request, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Request), args.Error(1)
}

func (m *MockRequestRepository) Update(ctx context.Context, req *domain.Request, change *domain.StatusChange) error {
	args := m.Called(ctx, req, change)
	if args.Error(0) == nil {
		req.Version++
	}
	return args.Error(0)
}

func (m *MockRequestRepository) List(ctx context.Context, filter domain.RequestFilter) ([]*domain.Request, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Request), args.Error(1)
}

func (m *MockRequestRepository) Count(ctx context.Context, filter domain.RequestFilter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

func (m *MockRequestRepository) ListExpirable(ctx context.Context, status domain.Status, before time.Time) ([]*domain.Request, error) {
	args := m.Called(ctx, status, before)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Request), args.Error(1)
}

type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) ListByRequest(ctx context.Context, requestID int64) ([]*domain.StatusChange, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.StatusChange), args.Error(1)
}

type MockJurisdictionRepository struct {
	mock.Mock
}

func (m *MockJurisdictionRepository) FindByID(ctx context.Context, id int) (*domain.Jurisdiction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Jurisdiction), args.Error(1)
}

func (m *MockJurisdictionRepository) List(ctx context.Context) ([]*domain.Jurisdiction, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Jurisdiction), args.Error(1)
}

type MockTramiteSequence struct {
	mock.Mock
}

func (m *MockTramiteSequence) Next(ctx context.Context, day string) (int, error) {
	args := m.Called(ctx, day)
	return args.Int(0), args.Error(1)
}

type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) IssueOTP(ctx context.Context, requestID int64) (string, error) {
	args := m.Called(ctx, requestID)
	return args.String(0), args.Error(1)
}

func (m *MockTokenStore) ValidateOTP(ctx context.Context, requestID int64, code string) (ports.OTPResult, error) {
	args := m.Called(ctx, requestID, code)
	return args.Get(0).(ports.OTPResult), args.Error(1)
}

func (m *MockTokenStore) DeleteOTP(ctx context.Context, requestID int64) error {
	args := m.Called(ctx, requestID)
	return args.Error(0)
}

func (m *MockTokenStore) IssueCitizenToken(ctx context.Context, nroTramite string) (string, error) {
	args := m.Called(ctx, nroTramite)
	return args.String(0), args.Error(1)
}

func (m *MockTokenStore) ResolveCitizenToken(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

func (m *MockTokenStore) RevokeCitizenToken(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

type MockFileStorage struct {
	mock.Mock
}

func (m *MockFileStorage) Upload(ctx context.Context, requestID int64, content io.Reader, size int64, contentType string) (string, error) {
	args := m.Called(ctx, requestID, content, size, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockFileStorage) Fetch(ctx context.Context, ref string) (io.ReadCloser, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockFileStorage) Delete(ctx context.Context, ref string) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) CreateOrder(ctx context.Context, requestID int64, nroTramite string, amount decimal.Decimal) (ports.PaymentOrder, error) {
	args := m.Called(ctx, requestID, nroTramite, amount)
	return args.Get(0).(ports.PaymentOrder), args.Error(1)
}

func (m *MockPaymentGateway) VerifySignature(payload []byte, signature string) bool {
	args := m.Called(payload, signature)
	return args.Bool(0)
}

func (m *MockPaymentGateway) ClassifyStatus(code int) ports.PaymentOutcome {
	args := m.Called(code)
	return args.Get(0).(ports.PaymentOutcome)
}

type MockOperatorRepository struct {
	mock.Mock
}

func (m *MockOperatorRepository) Create(ctx context.Context, op *domain.Operator) error {
	args := m.Called(ctx, op)
	return args.Error(0)
}

func (m *MockOperatorRepository) FindByID(ctx context.Context, id int64) (*domain.Operator, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Operator), args.Error(1)
}

func (m *MockOperatorRepository) FindByUsername(ctx context.Context, username string) (*domain.Operator, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Operator), args.Error(1)
}

func (m *MockOperatorRepository) List(ctx context.Context) ([]*domain.Operator, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Operator), args.Error(1)
}

func (m *MockOperatorRepository) SetActive(ctx context.Context, id int64, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

type MockPasswordService struct {
	mock.Mock
}

func (m *MockPasswordService) HashPassword(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockPasswordService) VerifyPassword(password, hash string) (bool, error) {
	args := m.Called(password, hash)
	return args.Bool(0), args.Error(1)
}

type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) GenerateToken(op *domain.Operator) (string, error) {
	args := m.Called(op)
	return args.String(0), args.Error(1)
}
