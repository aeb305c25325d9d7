package mocks

import (
	"context"
	"time"

	"github.com/ponyxpress/ponyxpress/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CountScans(ctx context.Context, carrierID int64, from, to time.Time) (int, error) {
	args := m.Called(ctx, carrierID, from, to)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) GetActiveRoute(ctx context.Context, carrierID int64, date time.Time) (*models.RouteTrace, error) {
	args := m.Called(ctx, carrierID, date)
	out, _ := args.Get(0).(*models.RouteTrace)
	return out, args.Error(1)
}

func (m *MockRepository) UpsertDeliveryLog(ctx context.Context, in models.DeliveryLogUpsert) error {
	args := m.Called(ctx, in)
	return args.Error(0)
}
