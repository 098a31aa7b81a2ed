package repository

import (
	"context"
	"errors"
	"time"

	"fincms/internal/model"
)

// Package repository contains data access layer abstractions.
// Implementations live in subpackages (e.g., postgres) inside this directory.

// Errors returned by repository implementations.
var (
	// ErrNotFound is returned when no row matches the given key.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// DocumentRepository defines data access for documents using SQL queries only.
// Persistence only, no business logic. Every read states
// its own tombstone behavior: FindByID returns inactive rows (audit), Search and
// ListVersions return active rows only.
type DocumentRepository interface {
	// Create inserts a root document record and returns the stored row.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// CreateVersion inserts doc as a child of parentID. Version and ParentID are
	// assigned from the parent row inside the same transaction as the insert;
	// whatever the caller put in those fields is overwritten.
	CreateVersion(ctx context.Context, parentID string, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by its ID, active or not.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// Update applies the fields present in patch to an active document and
	// sets updated_at to at. Fields absent from the patch are not written.
	Update(ctx context.Context, id string, patch model.DocumentPatch, at time.Time) (*model.Document, error)

	// Deactivate marks an active document as deleted.
	Deactivate(ctx context.Context, id string, at time.Time) error

	// Search returns a page of active documents matching the filter, newest first.
	Search(ctx context.Context, filter model.SearchFilter, pq PageQuery) (*PageResult[model.Document], error)

	// ListVersions returns the active direct children of parentID, lowest version first.
	ListVersions(ctx context.Context, parentID string) ([]model.Document, error)
}

// RecentViewRepository persists per-user recently viewed rows.
type RecentViewRepository interface {
	// Touch sets viewed_at on an existing (user, document) row and reports
	// whether such a row existed.
	Touch(ctx context.Context, userID, documentID string, at time.Time) (bool, error)

	// Insert adds a new row. It returns ErrDuplicate if the pair already exists.
	Insert(ctx context.Context, view model.RecentView) error

	// Trim deletes a user's rows beyond the newest keep and returns how many
	// were removed. Rows already deleted by a concurrent trim are skipped.
	Trim(ctx context.Context, userID string, keep int) (int64, error)

	// ListRecent returns a user's rows newest first.
	ListRecent(ctx context.Context, userID string, limit int) ([]model.RecentView, error)
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
