package handler

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"fincms/internal/http/middleware"
	"fincms/internal/model"
	"fincms/internal/service"
)

type documentListResponse struct {
	Documents []model.Document `json:"documents"`
}

type versionListResponse struct {
	Versions []model.Document `json:"versions"`
}

// documentID returns the :id path parameter if it is a UUID.
func documentID(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// readUpload reads the multipart "file" field into memory.
func readUpload(fh *multipart.FileHeader) (model.Content, error) {
	f, err := fh.Open()
	if err != nil {
		return model.Content{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return model.Content{}, err
	}
	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	return model.Content{Filename: fh.Filename, ContentType: ct, Data: data}, nil
}

// intQuery parses an optional integer query parameter.
func intQuery(c *fiber.Ctx, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

// ListDocuments searches the caller's visible documents.
//
// @Summary  Search documents
// @Tags     documents
// @Produce  json
// @Param    query         query string false "Substring of title or description"
// @Param    document_type query string false "Document type"
// @Param    page          query int    false "Page number, from 1"
// @Param    per_page      query int    false "Page size"
// @Success  200 {object} model.DocumentPage
// @Failure  400 {object} errorPayload
// @Failure  422 {object} errorPayload
// @Security BearerAuth
// @Router   /api/v1/documents [get]
func ListDocuments(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sub, ok := middleware.SubjectFrom(c)
		if !ok {
			return fiber.ErrUnauthorized
		}
		page, err := intQuery(c, "page", 1)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_PAGE", "invalid page")
		}
		perPage, err := intQuery(c, "per_page", 0)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_PER_PAGE", "invalid per_page")
		}

		filter := model.SearchFilter{
			Query:        c.Query("query"),
			DocumentType: model.DocumentType(c.Query("document_type")),
		}
		res, err := docSvc.Search(c.UserContext(), sub, filter, page, perPage)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// RecentDocuments lists the caller's recently viewed documents.
//
// @Summary  Recently viewed documents
// @Tags     documents
// @Produce  json
// @Param    limit query int false "Maximum number of documents"
// @Success  200 {object} documentListResponse
// @Security BearerAuth
// @Router   /api/v1/documents/recent [get]
func RecentDocuments(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sub, ok := middleware.SubjectFrom(c)
		if !ok {
			return fiber.ErrUnauthorized
		}
		limit, err := intQuery(c, "limit", 0)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		docs, err := docSvc.RecentViews(c.UserContext(), sub, limit)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(documentListResponse{Documents: docs})
	}
}

// UploadDocument stores a new document from a multipart form.
//
// @Summary  Upload a document
// @Tags     documents
// @Accept   multipart/form-data
// @Produce  json
// @Param    file            formData file   true  "Document content"
// @Param    title           formData string true  "Title"
// @Param    document_type   formData string true  "Document type"
// @Param    description     formData string false "Description"
// @Param    document_date   formData string false "Date, YYYY-MM-DD"
// @Param    access_level    formData string false "private, shared or public"
// @Param    is_confidential formData bool   false "Confidential flag"
// @Param    metadata        formData string false "JSON object"
// @Success  201 {object} model.Document
// @Failure  400 {object} errorPayload
// @Failure  422 {object} errorPayload
// @Failure  502 {object} errorPayload
// @Security BearerAuth
// @Router   /api/v1/documents [post]
func UploadDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sub, ok := middleware.SubjectFrom(c)
		if !ok {
			return fiber.ErrUnauthorized
		}
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		content, err := readUpload(fh)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}

		attrs := model.DocumentAttrs{
			Title:        c.FormValue("title"),
			Description:  c.FormValue("description"),
			DocumentType: model.DocumentType(c.FormValue("document_type")),
			AccessLevel:  model.AccessLevel(c.FormValue("access_level")),
		}
		if raw := c.FormValue("document_date"); raw != "" {
			d, err := time.Parse(model.DateLayout, raw)
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_DATE", "document_date must be YYYY-MM-DD")
			}
			attrs.DocumentDate = &d
		}
		if raw := c.FormValue("is_confidential"); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_FLAG", "is_confidential must be a boolean")
			}
			attrs.IsConfidential = v
		}
		if raw := c.FormValue("metadata"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &attrs.Metadata); err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_METADATA", "metadata must be a JSON object")
			}
		}

		doc, err := docSvc.Create(c.UserContext(), sub, attrs, content)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// GetDocument returns a document and records the view.
//
// @Summary  Get a document
// @Tags     documents
// @Produce  json
// @Param    id path string true "Document ID"
// @Success  200 {object} model.Document
// @Failure  400 {object} errorPayload
// @Failure  403 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Security BearerAuth
// @Router   /api/v1/documents/{id} [get]
func GetDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sub, ok := middleware.SubjectFrom(c)
		if !ok {
			return fiber.ErrUnauthorized
		}
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := docSvc.View(c.UserContext(), sub, id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// UpdateDocument patches the mutable fields of a document.
//
// @Summary  Update a document
// @Tags     documents
// @Accept   json
// @Produce  json
// @Param    id   path string true "Document ID"
// @Param    body body object true "Fields to change"
// @Success  200 {object} model.Document
// @Failure  400 {object} errorPayload
// @Failure  403 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Failure  422 {object} errorPayload
// @Security BearerAuth
// @Router   /api/v1/documents/{id} [put]
func UpdateDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sub, ok := middleware.SubjectFrom(c)
		if !ok {
			return fiber.ErrUnauthorized
		}
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(c.Body(), &raw); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "body must be a JSON object")
		}
		patch, err := model.ParsePatch(raw)
		if err != nil {
			return writeServiceError(c, err)
		}
		doc, err := docSvc.Update(c.UserContext(), sub, id, patch)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// DeleteDocument soft-deletes a document.
//
// @Summary  Delete a document
// @Tags     documents
// @Param    id path string true "Document ID"
// @Success  204
// @Failure  403 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Security BearerAuth
// @Router   /api/v1/documents/{id} [delete]
func DeleteDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sub, ok := middleware.SubjectFrom(c)
		if !ok {
			return fiber.ErrUnauthorized
		}
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := docSvc.Delete(c.UserContext(), sub, id); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// DownloadDocument streams the stored content as an attachment.
//
// @Summary  Download a document
// @Tags     documents
// @Produce  octet-stream
// @Param    id path string true "Document ID"
// @Success  200 {file} binary
// @Failure  403 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Failure  502 {object} errorPayload
// @Security BearerAuth
// @Router   /api/v1/documents/{id}/download [get]
func DownloadDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sub, ok := middleware.SubjectFrom(c)
		if !ok {
			return fiber.ErrUnauthorized
		}
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		dl, err := docSvc.Download(c.UserContext(), sub, id)
		if err != nil {
			return writeServiceError(c, err)
		}
		c.Attachment(dl.Filename)
		if dl.MimeType != "" {
			c.Set(fiber.HeaderContentType, dl.MimeType)
		}
		return c.Send(dl.Data)
	}
}

// CreateVersion uploads new content as the next version of a document.
//
// @Summary  Create a new version
// @Tags     versions
// @Accept   multipart/form-data
// @Produce  json
// @Param    id   path     string true "Source document ID"
// @Param    file formData file   true "New content"
// @Success  201 {object} model.Document
// @Failure  400 {object} errorPayload
// @Failure  403 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Security BearerAuth
// @Router   /api/v1/documents/{id}/versions [post]
func CreateVersion(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sub, ok := middleware.SubjectFrom(c)
		if !ok {
			return fiber.ErrUnauthorized
		}
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		content, err := readUpload(fh)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		doc, err := docSvc.CreateVersion(c.UserContext(), sub, id, content)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// ListVersions lists the direct child versions of a document.
//
// @Summary  List versions
// @Tags     versions
// @Produce  json
// @Param    id path string true "Document ID"
// @Success  200 {object} versionListResponse
// @Failure  403 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Security BearerAuth
// @Router   /api/v1/documents/{id}/versions [get]
func ListVersions(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sub, ok := middleware.SubjectFrom(c)
		if !ok {
			return fiber.ErrUnauthorized
		}
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		docs, err := docSvc.ListVersions(c.UserContext(), sub, id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(versionListResponse{Versions: docs})
	}
}
