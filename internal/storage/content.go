package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"fincms/internal/apperror"
	"fincms/internal/model"
)

// keyPrefix namespaces document content inside the bucket.
const keyPrefix = "documents"

// StoredContent describes bytes that have been durably written. Its fields are
// derived from what was stored, not from client-supplied hints.
type StoredContent struct {
	Handle   string
	Size     int64
	MimeType string
	FileType string
}

// ContentStore addresses document bytes by an opaque handle. Every call runs
// under the configured timeout; a timeout surfaces as a storage error.
type ContentStore struct {
	store   Storage
	timeout time.Duration
	newKey  func(ext string) string
}

// NewContentStore wraps store. A non-positive timeout disables the deadline.
func NewContentStore(store Storage, timeout time.Duration) *ContentStore {
	return &ContentStore{
		store:   store,
		timeout: timeout,
		newKey: func(ext string) string {
			return keyPrefix + "/" + uuid.NewString() + ext
		},
	}
}

func (c *ContentStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Put stores content and returns its handle.
func (c *ContentStore) Put(ctx context.Context, content model.Content) (StoredContent, error) {
	const op = "content put"
	if err := ctx.Err(); err != nil {
		return StoredContent{}, apperror.Storage(op, err)
	}

	mt := mimetype.Detect(content.Data)
	fileType := FileType(content.Filename)
	if fileType == "" {
		fileType = strings.TrimPrefix(mt.Extension(), ".")
	}
	ext := ""
	if fileType != "" {
		ext = "." + fileType
	}
	key := c.newKey(ext)

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	info, err := c.store.Put(ctx, key, bytes.NewReader(content.Data), PutObjectOptions{
		Size:        int64(len(content.Data)),
		ContentType: mt.String(),
		Metadata: map[string]string{
			"original-filename": content.Filename,
		},
	})
	if err != nil {
		return StoredContent{}, apperror.Storage(op, err)
	}

	size := info.Size
	if size <= 0 {
		size = int64(len(content.Data))
	}
	handle := info.Key
	if handle == "" {
		handle = key
	}
	return StoredContent{
		Handle:   handle,
		Size:     size,
		MimeType: mt.String(),
		FileType: fileType,
	}, nil
}

// Get returns the bytes behind handle. A released or missing handle yields an
// error matching ErrObjectNotFound.
func (c *ContentStore) Get(ctx context.Context, handle string) ([]byte, error) {
	const op = "content get"
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	rc, _, err := c.store.Get(ctx, handle)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, fmt.Errorf("%s %s: %w", op, handle, ErrObjectNotFound)
		}
		return nil, apperror.Storage(op, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, apperror.Storage(op, err)
	}
	return data, nil
}

// Delete releases handle. Releasing a missing handle succeeds.
func (c *ContentStore) Delete(ctx context.Context, handle string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.store.Delete(ctx, handle); err != nil && !errors.Is(err, ErrObjectNotFound) {
		return apperror.Storage("content delete", err)
	}
	return nil
}

// FileType returns the lowercased extension of filename without the dot.
func FileType(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}
