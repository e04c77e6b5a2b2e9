package storage

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
)

// MockProvider is a mock implementation of the Provider interface for testing.
type MockProvider struct {
	mock.Mock
}

// Get is the mock implementation of the Get method.
func (m *MockProvider) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, bucket, key)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1) //nolint:wrapcheck
}

// Put is the mock implementation of the Put method.
func (m *MockProvider) Put(ctx context.Context, bucket, key string, data []byte) error {
	args := m.Called(ctx, bucket, key, data)
	return args.Error(0) //nolint:wrapcheck
}
