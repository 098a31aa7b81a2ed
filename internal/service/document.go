package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"fincms/internal/access"
	"fincms/internal/apperror"
	"fincms/internal/model"
	"fincms/internal/repository"
	"fincms/internal/storage"
)

var tracer = otel.Tracer("fincms/internal/service")

// ErrIDRequired is returned when an operation is called with an empty document id.
var ErrIDRequired = apperror.Validation("document", "id is required")

// ContentStore is the byte storage the service depends on.
type ContentStore interface {
	Put(ctx context.Context, content model.Content) (storage.StoredContent, error)
	Get(ctx context.Context, handle string) ([]byte, error)
	Delete(ctx context.Context, handle string) error
}

// Download is the content of a document ready to be served.
type Download struct {
	Filename string
	MimeType string
	Data     []byte
}

// DocumentService defines the use cases for handling documents. Every
// operation on an existing document loads it, evaluates the access policy
// for the subject and only then acts.
type DocumentService interface {
	// Create stores content and records a new root document owned by the subject.
	// If the record cannot be saved the stored content is released again.
	Create(ctx context.Context, subject model.Subject, attrs model.DocumentAttrs, content model.Content) (*model.Document, error)

	// View returns an active document and records it in the subject's recent views.
	View(ctx context.Context, subject model.Subject, id string) (*model.Document, error)

	// Update applies a patch of mutable fields.
	Update(ctx context.Context, subject model.Subject, id string, patch model.DocumentPatch) (*model.Document, error)

	// Delete soft-deletes a document and releases its content.
	Delete(ctx context.Context, subject model.Subject, id string) error

	// Download returns the bytes of a document.
	Download(ctx context.Context, subject model.Subject, id string) (*Download, error)

	// CreateVersion records new content as the next version of a document.
	CreateVersion(ctx context.Context, subject model.Subject, id string, content model.Content) (*model.Document, error)

	// ListVersions returns the active direct child versions of a document.
	ListVersions(ctx context.Context, subject model.Subject, id string) ([]model.Document, error)

	// Search returns a page of active documents. Non-admin subjects only see
	// their own documents.
	Search(ctx context.Context, subject model.Subject, filter model.SearchFilter, page, perPage int) (*model.DocumentPage, error)

	// RecentViews returns the subject's recently viewed active documents, most recent first.
	RecentViews(ctx context.Context, subject model.Subject, limit int) ([]model.Document, error)
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	content ContentStore
	repo    repository.DocumentRepository
	tracker *RecentViewTracker
	policy  access.Policy
	opts    Options
	log     *zap.Logger
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(content ContentStore, repo repository.DocumentRepository, tracker *RecentViewTracker, opts Options, log *zap.Logger) DocumentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &documentService{
		content: content,
		repo:    repo,
		tracker: tracker,
		policy:  access.NewPolicy(),
		opts:    opts.withDefaults(),
		log:     log,
	}
}

func (s *documentService) Create(ctx context.Context, subject model.Subject, attrs model.DocumentAttrs, content model.Content) (doc *model.Document, err error) {
	const op = "create document"
	ctx, span := tracer.Start(ctx, "DocumentService.Create")
	defer func() { endSpan(span, err) }()

	if err := attrs.Validate(); err != nil {
		return nil, err
	}
	if err := s.validateContent(op, content); err != nil {
		return nil, err
	}

	stored, err := s.content.Put(ctx, content)
	if err != nil {
		return nil, err
	}

	at := now(s.opts.Clock)
	doc = &model.Document{
		ID:             uuid.NewString(),
		Title:          strings.TrimSpace(attrs.Title),
		Description:    attrs.Description,
		ContentHandle:  stored.Handle,
		FileType:       stored.FileType,
		FileSize:       stored.Size,
		MimeType:       stored.MimeType,
		DocumentType:   attrs.DocumentType,
		DocumentDate:   attrs.DocumentDate,
		Metadata:       attrs.Metadata,
		OwnerID:        subject.ID,
		IsConfidential: attrs.IsConfidential,
		AccessLevel:    attrs.AccessLevel,
		Version:        1,
		IsActive:       true,
		CreatedAt:      at,
		UpdatedAt:      at,
	}

	// The content is stored; from here on the insert result decides the outcome.
	saveCtx := context.WithoutCancel(ctx)
	created, err := s.repo.Create(saveCtx, doc)
	if err != nil {
		s.releaseContent(saveCtx, stored.Handle, "create rollback")
		return nil, saveError(op, err)
	}
	span.SetAttributes(attribute.String("document.id", created.ID))
	return created, nil
}

func (s *documentService) View(ctx context.Context, subject model.Subject, id string) (doc *model.Document, err error) {
	ctx, span := startSpan(ctx, "DocumentService.View", id)
	defer func() { endSpan(span, err) }()

	doc, err = s.authorize(ctx, "view document", subject, access.ActionRead, id)
	if err != nil {
		return nil, err
	}
	if err := s.tracker.RecordView(ctx, subject.ID, doc.ID); err != nil {
		s.log.Warn("record recent view failed",
			zap.String("user_id", subject.ID),
			zap.String("document_id", doc.ID),
			zap.Error(err),
		)
	}
	return doc, nil
}

func (s *documentService) Update(ctx context.Context, subject model.Subject, id string, patch model.DocumentPatch) (doc *model.Document, err error) {
	const op = "update document"
	ctx, span := startSpan(ctx, "DocumentService.Update", id)
	defer func() { endSpan(span, err) }()

	doc, err = s.authorize(ctx, op, subject, access.ActionWrite, id)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return doc, nil
	}

	updated, err := s.repo.Update(ctx, doc.ID, patch, now(s.opts.Clock))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound(op, "document not found")
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

func (s *documentService) Delete(ctx context.Context, subject model.Subject, id string) (err error) {
	const op = "delete document"
	ctx, span := startSpan(ctx, "DocumentService.Delete", id)
	defer func() { endSpan(span, err) }()

	doc, err := s.authorize(ctx, op, subject, access.ActionDelete, id)
	if err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, doc.ID, now(s.opts.Clock)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound(op, "document not found")
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	s.releaseContent(context.WithoutCancel(ctx), doc.ContentHandle, "delete")
	return nil
}

func (s *documentService) Download(ctx context.Context, subject model.Subject, id string) (dl *Download, err error) {
	const op = "download document"
	ctx, span := startSpan(ctx, "DocumentService.Download", id)
	defer func() { endSpan(span, err) }()

	doc, err := s.authorize(ctx, op, subject, access.ActionDownload, id)
	if err != nil {
		return nil, err
	}
	data, err := s.content.Get(ctx, doc.ContentHandle)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			integrityErrorsTotal.Inc()
			s.log.Error("document content missing",
				zap.String("document_id", doc.ID),
				zap.String("content_handle", doc.ContentHandle),
				zap.Error(apperror.Integrity(op, "content handle does not resolve", err)),
			)
			return nil, apperror.NotFound(op, "document content not found")
		}
		return nil, err
	}
	return &Download{
		Filename: downloadFilename(doc),
		MimeType: doc.MimeType,
		Data:     data,
	}, nil
}

func (s *documentService) CreateVersion(ctx context.Context, subject model.Subject, id string, content model.Content) (doc *model.Document, err error) {
	const op = "create version"
	ctx, span := startSpan(ctx, "DocumentService.CreateVersion", id)
	defer func() { endSpan(span, err) }()

	source, err := s.authorize(ctx, op, subject, access.ActionWrite, id)
	if err != nil {
		return nil, err
	}
	if err := s.validateContent(op, content); err != nil {
		return nil, err
	}

	stored, err := s.content.Put(ctx, content)
	if err != nil {
		return nil, err
	}

	at := now(s.opts.Clock)
	child := &model.Document{
		ID:             uuid.NewString(),
		Title:          source.Title,
		Description:    source.Description,
		ContentHandle:  stored.Handle,
		FileType:       stored.FileType,
		FileSize:       stored.Size,
		MimeType:       stored.MimeType,
		DocumentType:   source.DocumentType,
		OwnerID:        source.OwnerID,
		IsConfidential: source.IsConfidential,
		AccessLevel:    source.AccessLevel,
		IsActive:       true,
		CreatedAt:      at,
		UpdatedAt:      at,
	}

	saveCtx := context.WithoutCancel(ctx)
	created, err := s.repo.CreateVersion(saveCtx, source.ID, child)
	if err != nil {
		s.releaseContent(saveCtx, stored.Handle, "version rollback")
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound(op, "document not found")
		}
		return nil, saveError(op, err)
	}
	return created, nil
}

func (s *documentService) ListVersions(ctx context.Context, subject model.Subject, id string) (docs []model.Document, err error) {
	const op = "list versions"
	ctx, span := startSpan(ctx, "DocumentService.ListVersions", id)
	defer func() { endSpan(span, err) }()

	parent, err := s.authorize(ctx, op, subject, access.ActionRead, id)
	if err != nil {
		return nil, err
	}
	children, err := s.repo.ListVersions(ctx, parent.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	docs = make([]model.Document, 0, len(children))
	for i := range children {
		if s.policy.Evaluate(subject, access.ActionRead, &children[i]).Allowed {
			docs = append(docs, children[i])
		}
	}
	return docs, nil
}

func (s *documentService) Search(ctx context.Context, subject model.Subject, filter model.SearchFilter, page, perPage int) (res *model.DocumentPage, err error) {
	const op = "search documents"
	ctx, span := tracer.Start(ctx, "DocumentService.Search")
	defer func() { endSpan(span, err) }()

	if page < 1 {
		return nil, apperror.Validation(op, "page must be at least 1")
	}
	if filter.DocumentType != "" && !filter.DocumentType.Valid() {
		return nil, apperror.Validation(op, "invalid document type: "+string(filter.DocumentType))
	}
	perPage = s.clampPerPage(perPage)
	if !subject.IsAdmin() {
		filter.OwnerID = subject.ID
	}
	filter.Query = strings.TrimSpace(filter.Query)

	result, err := s.repo.Search(ctx, filter, repository.PageQuery{
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	items := result.Items
	if items == nil {
		items = []model.Document{}
	}
	return &model.DocumentPage{
		Items:      items,
		Pagination: model.NewPagination(page, perPage, result.Total),
	}, nil
}

func (s *documentService) RecentViews(ctx context.Context, subject model.Subject, limit int) (docs []model.Document, err error) {
	const op = "recent views"
	ctx, span := tracer.Start(ctx, "DocumentService.RecentViews")
	defer func() { endSpan(span, err) }()

	if limit <= 0 {
		limit = s.opts.RecentViewsLimit
	}
	views, err := s.tracker.Recent(ctx, subject.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	docs = make([]model.Document, 0, len(views))
	for _, v := range views {
		doc, err := s.repo.FindByID(ctx, v.DocumentID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !doc.IsActive || !s.policy.Evaluate(subject, access.ActionRead, doc).Allowed {
			continue
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

// authorize loads the active document id and evaluates action for subject on it.
func (s *documentService) authorize(ctx context.Context, op string, subject model.Subject, action access.Action, id string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound(op, "document not found")
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !doc.IsActive {
		return nil, apperror.NotFound(op, "document not found")
	}
	if err := s.policy.Evaluate(subject, action, doc).Err(); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *documentService) validateContent(op string, content model.Content) error {
	if len(content.Data) == 0 {
		return apperror.Validation(op, "file is empty")
	}
	if s.opts.MaxContentLength > 0 && int64(len(content.Data)) > s.opts.MaxContentLength {
		return apperror.Validation(op, fmt.Sprintf("file exceeds %d bytes", s.opts.MaxContentLength))
	}
	if len(s.opts.AllowedExtensions) > 0 {
		ext := storage.FileType(content.Filename)
		if ext == "" || !slices.Contains(s.opts.AllowedExtensions, ext) {
			return apperror.Validation(op, "file type not allowed: "+content.Filename)
		}
	}
	return nil
}

func (s *documentService) clampPerPage(perPage int) int {
	switch {
	case perPage == 0:
		return s.opts.DefaultPageSize
	case perPage < 1:
		return 1
	case perPage > s.opts.MaxPageSize:
		return s.opts.MaxPageSize
	}
	return perPage
}

// releaseContent deletes handle. Failures leave an orphan that is only logged.
func (s *documentService) releaseContent(ctx context.Context, handle, reason string) {
	if err := s.content.Delete(ctx, handle); err != nil {
		contentReleaseFailuresTotal.Inc()
		s.log.Warn("content release failed",
			zap.String("content_handle", handle),
			zap.String("reason", reason),
			zap.Error(err),
		)
	}
}

func saveError(op string, err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return apperror.Conflict(op, "document already exists", err)
	}
	return fmt.Errorf("%s: db save failed: %w", op, err)
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// downloadFilename builds an attachment name from the title and file type.
func downloadFilename(doc *model.Document) string {
	name := strings.Trim(unsafeFilenameChars.ReplaceAllString(doc.Title, "_"), "._")
	if name == "" {
		name = "document"
	}
	if doc.FileType != "" {
		name += "." + doc.FileType
	}
	return name
}

func startSpan(ctx context.Context, name, id string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attribute.String("document.id", id)))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
