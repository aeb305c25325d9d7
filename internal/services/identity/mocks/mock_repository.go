package mocks

import (
	"context"

	"github.com/ponyxpress/ponyxpress/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateAccount(ctx context.Context, in models.AccountCreateInput) (*models.Account, error) {
	args := m.Called(ctx, in)
	a, _ := args.Get(0).(*models.Account)
	return a, args.Error(1)
}

func (m *MockRepository) EnsureAccount(ctx context.Context, in models.AccountCreateInput) (bool, error) {
	args := m.Called(ctx, in)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*models.Account)
	return a, args.Error(1)
}

func (m *MockRepository) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	args := m.Called(ctx, username)
	a, _ := args.Get(0).(*models.Account)
	return a, args.Error(1)
}

func (m *MockRepository) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]*models.Account)
	return out, args.Error(1)
}

func (m *MockRepository) SetAccountActive(ctx context.Context, id int64, active bool) (*models.Account, error) {
	args := m.Called(ctx, id, active)
	a, _ := args.Get(0).(*models.Account)
	return a, args.Error(1)
}

func (m *MockRepository) SetAccountPassword(ctx context.Context, id int64, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}
