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

func (m *MockRepository) ListScansForExport(ctx context.Context, from, to time.Time) ([]*models.ScanExportRow, error) {
	args := m.Called(ctx, from, to)
	out, _ := args.Get(0).([]*models.ScanExportRow)
	return out, args.Error(1)
}

func (m *MockRepository) ListRoutesForExport(ctx context.Context, from, to time.Time) ([]*models.RouteExportRow, error) {
	args := m.Called(ctx, from, to)
	out, _ := args.Get(0).([]*models.RouteExportRow)
	return out, args.Error(1)
}

func (m *MockRepository) ListStopsForExport(ctx context.Context) ([]*models.StopExportRow, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]*models.StopExportRow)
	return out, args.Error(1)
}

func (m *MockRepository) ListDeliveryLogs(ctx context.Context) ([]*models.DeliveryLog, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]*models.DeliveryLog)
	return out, args.Error(1)
}

func (m *MockRepository) Summary(ctx context.Context, date, dayStart time.Time) (*models.Summary, error) {
	args := m.Called(ctx, date, dayStart)
	out, _ := args.Get(0).(*models.Summary)
	return out, args.Error(1)
}
