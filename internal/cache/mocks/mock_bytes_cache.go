package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockBytesCache struct {
	mock.Mock
}

func (m *MockBytesCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	var b []byte
	if v := args.Get(0); v != nil {
		b = v.([]byte)
	}
	return b, args.Bool(1), args.Error(2)
}

func (m *MockBytesCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockBytesCache) Del(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

type MockVersionedCache struct {
	MockBytesCache
}

func (m *MockVersionedCache) Version(ctx context.Context, verKey string) (int64, error) {
	args := m.Called(ctx, verKey)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockVersionedCache) Bump(ctx context.Context, verKey string, ttl time.Duration) error {
	args := m.Called(ctx, verKey, ttl)
	return args.Error(0)
}

func (m *MockVersionedCache) SetIfVersion(ctx context.Context, verKey string, ver int64, key string, value []byte, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, verKey, ver, key, value, ttl)
	return args.Bool(0), args.Error(1)
}
