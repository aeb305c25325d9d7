package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishJSON(ctx context.Context, topic string, key []byte, v any) error {
	args := m.Called(ctx, topic, key, v)
	return args.Error(0)
}
