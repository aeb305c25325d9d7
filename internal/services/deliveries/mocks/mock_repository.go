package mocks

import (
	"context"

	"github.com/ponyxpress/ponyxpress/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) InsertScan(ctx context.Context, in models.ScanCreateInput) (*models.ScanEvent, error) {
	args := m.Called(ctx, in)
	if fn, ok := args.Get(0).(func(context.Context, models.ScanCreateInput) *models.ScanEvent); ok {
		return fn(ctx, in), args.Error(1)
	}
	e, _ := args.Get(0).(*models.ScanEvent)
	return e, args.Error(1)
}

type MockStopRegistry struct {
	mock.Mock
}

func (m *MockStopRegistry) Upsert(ctx context.Context, actor *models.Account, carrierID int64, lat, lng float64, photoRef *string) (int64, bool, error) {
	args := m.Called(ctx, actor, carrierID, lat, lng, photoRef)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

type MockPhotoStore struct {
	mock.Mock
}

func (m *MockPhotoStore) Validate(data []byte) (string, error) {
	args := m.Called(data)
	return args.String(0), args.Error(1)
}

func (m *MockPhotoStore) Put(data []byte) (string, error) {
	args := m.Called(data)
	return args.String(0), args.Error(1)
}
