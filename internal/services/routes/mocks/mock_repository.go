package mocks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ponyxpress/ponyxpress/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) SaveRouteTrace(ctx context.Context, carrierID int64, date time.Time, pathData json.RawMessage) (int64, error) {
	args := m.Called(ctx, carrierID, date, pathData)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) GetActiveRoute(ctx context.Context, carrierID int64, date time.Time) (*models.RouteTrace, error) {
	args := m.Called(ctx, carrierID, date)
	r, _ := args.Get(0).(*models.RouteTrace)
	return r, args.Error(1)
}

func (m *MockRepository) ListActiveRoutes(ctx context.Context, date time.Time, carrierID *int64) ([]*models.RouteTrace, error) {
	args := m.Called(ctx, date, carrierID)
	out, _ := args.Get(0).([]*models.RouteTrace)
	return out, args.Error(1)
}

func (m *MockRepository) RouteHistory(ctx context.Context, carrierID int64, date time.Time) ([]*models.RouteTrace, error) {
	args := m.Called(ctx, carrierID, date)
	out, _ := args.Get(0).([]*models.RouteTrace)
	return out, args.Error(1)
}
