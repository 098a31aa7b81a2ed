package mocks

import (
	"context"

	"fincms/internal/model"
	"fincms/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Create(ctx context.Context, subject model.Subject, attrs model.DocumentAttrs, content model.Content) (*model.Document, error) {
	args := m.Called(ctx, subject, attrs, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) View(ctx context.Context, subject model.Subject, id string) (*model.Document, error) {
	args := m.Called(ctx, subject, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) Update(ctx context.Context, subject model.Subject, id string, patch model.DocumentPatch) (*model.Document, error) {
	args := m.Called(ctx, subject, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) Delete(ctx context.Context, subject model.Subject, id string) error {
	args := m.Called(ctx, subject, id)
	return args.Error(0)
}

func (m *MockDocumentService) Download(ctx context.Context, subject model.Subject, id string) (*service.Download, error) {
	args := m.Called(ctx, subject, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Download), args.Error(1)
}

func (m *MockDocumentService) CreateVersion(ctx context.Context, subject model.Subject, id string, content model.Content) (*model.Document, error) {
	args := m.Called(ctx, subject, id, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) ListVersions(ctx context.Context, subject model.Subject, id string) ([]model.Document, error) {
	args := m.Called(ctx, subject, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}

func (m *MockDocumentService) Search(ctx context.Context, subject model.Subject, filter model.SearchFilter, page, perPage int) (*model.DocumentPage, error) {
	args := m.Called(ctx, subject, filter, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentPage), args.Error(1)
}

func (m *MockDocumentService) RecentViews(ctx context.Context, subject model.Subject, limit int) ([]model.Document, error) {
	args := m.Called(ctx, subject, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}
