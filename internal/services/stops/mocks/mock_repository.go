package mocks

import (
	"context"

	"github.com/ponyxpress/ponyxpress/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) UpsertStop(ctx context.Context, carrierID int64, lat, lng float64, photoRef *string) (int64, bool, error) {
	args := m.Called(ctx, carrierID, lat, lng, photoRef)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

func (m *MockRepository) ListStops(ctx context.Context, carrierID *int64) ([]*models.MailboxStop, error) {
	args := m.Called(ctx, carrierID)
	out, _ := args.Get(0).([]*models.MailboxStop)
	return out, args.Error(1)
}
