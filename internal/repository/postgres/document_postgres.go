package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"fincms/internal/model"
	"fincms/internal/repository"
)

// documentColumns is the column list shared by every document SELECT/RETURNING.
const documentColumns = `id, title, description, content_handle, file_type, file_size, mime_type,
	document_type, document_date, metadata, owner_id, is_confidential, access_level,
	version, parent_id, is_active, created_at, updated_at`

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(s rowScanner) (*model.Document, error) {
	var (
		d        model.Document
		date     sql.NullTime
		parentID sql.NullString
		metadata []byte
	)
	if err := s.Scan(
		&d.ID,
		&d.Title,
		&d.Description,
		&d.ContentHandle,
		&d.FileType,
		&d.FileSize,
		&d.MimeType,
		&d.DocumentType,
		&date,
		&metadata,
		&d.OwnerID,
		&d.IsConfidential,
		&d.AccessLevel,
		&d.Version,
		&parentID,
		&d.IsActive,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if date.Valid {
		t := date.Time
		d.DocumentDate = &t
	}
	if parentID.Valid {
		p := parentID.String
		d.ParentID = &p
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &d.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &d, nil
}

func encodeMetadata(m map[string]any) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return b, nil
}

func nullableDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func insertDocument(ctx context.Context, q dbtx, doc *model.Document) (*model.Document, error) {
	metadata, err := encodeMetadata(doc.Metadata)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		INSERT INTO documents (id, title, description, content_handle, file_type, file_size, mime_type,
			document_type, document_date, metadata, owner_id, is_confidential, access_level,
			version, parent_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING %s`, documentColumns)

	row := q.QueryRowContext(ctx, query,
		doc.ID,
		doc.Title,
		doc.Description,
		doc.ContentHandle,
		doc.FileType,
		doc.FileSize,
		doc.MimeType,
		doc.DocumentType,
		nullableDate(doc.DocumentDate),
		metadata,
		doc.OwnerID,
		doc.IsConfidential,
		doc.AccessLevel,
		doc.Version,
		nullableString(doc.ParentID),
		doc.IsActive,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	out, err := scanDocument(row)
	if err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

// Create inserts a new root document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	return insertDocument(ctx, r.db, doc)
}

// CreateVersion locks the parent row, derives the child's version from it and
// inserts the child in one transaction.
func (r *DocumentPostgres) CreateVersion(ctx context.Context, parentID string, doc *model.Document) (out *model.Document, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const qParent = `SELECT version FROM documents WHERE id = $1 FOR UPDATE`
	var parentVersion int
	if err = tx.QueryRowContext(ctx, qParent, parentID).Scan(&parentVersion); err != nil {
		return nil, mapError(err)
	}

	child := *doc
	child.Version = parentVersion + 1
	child.ParentID = &parentID

	out, err = insertDocument(ctx, tx, &child)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return out, nil
}

// FindByID fetches a single document by its ID regardless of is_active.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE id = $1`, documentColumns)
	d, err := scanDocument(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return d, nil
}

// Update writes only the columns present in patch, plus updated_at, in a
// single statement. Columns the patch does not name keep whatever value the
// row holds at write time.
func (r *DocumentPostgres) Update(ctx context.Context, id string, patch model.DocumentPatch, at time.Time) (*model.Document, error) {
	sets, args, err := buildPatchSet(patch)
	if err != nil {
		return nil, err
	}
	args = append([]any{id}, args...)
	args = append(args, at)
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	query := fmt.Sprintf(`UPDATE documents SET %s WHERE id = $1 AND is_active = true RETURNING %s`,
		strings.Join(sets, ", "), documentColumns)
	out, err := scanDocument(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

// buildPatchSet renders the SET assignments of patch. Placeholders start at $2;
// $1 is the document id.
func buildPatchSet(p model.DocumentPatch) ([]string, []any, error) {
	var (
		sets []string
		args []any
	)
	add := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)+1))
	}

	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.DocumentType != nil {
		add("document_type", *p.DocumentType)
	}
	if p.DocumentDate != nil {
		add("document_date", *p.DocumentDate)
	} else if p.ClearDocumentDate {
		sets = append(sets, "document_date = NULL")
	}
	if p.Metadata != nil {
		metadata, err := encodeMetadata(p.Metadata)
		if err != nil {
			return nil, nil, err
		}
		add("metadata", metadata)
	}
	if p.IsConfidential != nil {
		add("is_confidential", *p.IsConfidential)
	}
	if p.AccessLevel != nil {
		add("access_level", *p.AccessLevel)
	}
	return sets, args, nil
}

// Deactivate sets is_active = false. A row that is missing or already inactive
// yields repository.ErrNotFound.
func (r *DocumentPostgres) Deactivate(ctx context.Context, id string, at time.Time) error {
	const q = `UPDATE documents SET is_active = false, updated_at = $2 WHERE id = $1 AND is_active = true`
	res, err := r.db.ExecContext(ctx, q, id, at)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Search returns active documents using LIMIT/OFFSET pagination and a total count.
func (r *DocumentPostgres) Search(ctx context.Context, filter model.SearchFilter, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	where, args := buildSearchWhere(filter)

	qCount := `SELECT COUNT(*) FROM documents ` + where
	var total int
	if err := r.db.QueryRowContext(ctx, qCount, args...).Scan(&total); err != nil {
		return nil, err
	}

	n := len(args)
	qList := fmt.Sprintf(`SELECT %s FROM documents %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		documentColumns, where, n+1, n+2)
	rows, err := r.db.QueryContext(ctx, qList, append(args, pq.Limit, pq.Offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Document]{
		Items: items,
		Total: total,
	}, nil
}

// ListVersions returns the active direct children of parentID.
func (r *DocumentPostgres) ListVersions(ctx context.Context, parentID string) ([]model.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE parent_id = $1 AND is_active = true
		ORDER BY version ASC, created_at ASC, id ASC`, documentColumns)
	rows, err := r.db.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	return items, rows.Err()
}

// buildSearchWhere builds the WHERE clause for Search. is_active is always
// required; query text matches title OR description case-insensitively.
func buildSearchWhere(f model.SearchFilter) (string, []any) {
	conditions := []string{"is_active = true"}
	var args []any

	if f.OwnerID != "" {
		args = append(args, f.OwnerID)
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", len(args)))
	}
	if f.DocumentType != "" {
		args = append(args, f.DocumentType)
		conditions = append(conditions, fmt.Sprintf("document_type = $%d", len(args)))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", n, n))
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// escapeLike escapes LIKE wildcards so user text matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
