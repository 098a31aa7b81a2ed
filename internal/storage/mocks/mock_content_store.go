package mocks

import (
	"context"

	"fincms/internal/model"
	"fincms/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockContentStore struct {
	mock.Mock
}

func (m *MockContentStore) Put(ctx context.Context, content model.Content) (storage.StoredContent, error) {
	args := m.Called(ctx, content)
	return args.Get(0).(storage.StoredContent), args.Error(1)
}

func (m *MockContentStore) Get(ctx context.Context, handle string) ([]byte, error) {
	args := m.Called(ctx, handle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockContentStore) Delete(ctx context.Context, handle string) error {
	args := m.Called(ctx, handle)
	return args.Error(0)
}
