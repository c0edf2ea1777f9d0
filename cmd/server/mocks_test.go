package main

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/damacus/iron-transfer/internal/storage"
)

// MockStore implements storage.Store for testing
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Bucket() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockStore) List(ctx context.Context, prefix string) ([]storage.ObjectRecord, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.ObjectRecord), args.Error(1)
}

func (m *MockStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	args := m.Called(ctx, key, data, contentType)
	return args.Error(0)
}

func (m *MockStore) Get(ctx context.Context, key string) (io.ReadCloser, storage.ObjectRecord, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Get(1).(storage.ObjectRecord), args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(storage.ObjectRecord), args.Error(2)
}

func (m *MockStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
