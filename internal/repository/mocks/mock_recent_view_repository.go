package mocks

import (
	"context"
	"time"

	"fincms/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockRecentViewRepository struct {
	mock.Mock
}

func (m *MockRecentViewRepository) Touch(ctx context.Context, userID, documentID string, at time.Time) (bool, error) {
	args := m.Called(ctx, userID, documentID, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockRecentViewRepository) Insert(ctx context.Context, view model.RecentView) error {
	args := m.Called(ctx, view)
	return args.Error(0)
}

func (m *MockRecentViewRepository) Trim(ctx context.Context, userID string, keep int) (int64, error) {
	args := m.Called(ctx, userID, keep)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRecentViewRepository) ListRecent(ctx context.Context, userID string, limit int) ([]model.RecentView, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RecentView), args.Error(1)
}
