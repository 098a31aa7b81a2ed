package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fincms/internal/apperror"
	"fincms/internal/http/middleware"
	"fincms/internal/identity"
	"fincms/internal/model"
	"fincms/internal/service"
	serviceMocks "fincms/internal/service/mocks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var alice = model.Subject{ID: "alice", Role: model.RoleUser}

// newTestApp returns an app whose requests are already authenticated as alice.
func newTestApp() *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(middleware.SubjectLocalKey, alice)
		return c.Next()
	})
	return app
}

func multipartBody(t *testing.T, filename string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func decodeError(t *testing.T, resp *http.Response) errorPayload {
	t.Helper()
	var res errorPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	return res
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, resp).Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListDocuments(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := newTestApp()
	app.Get("/documents", ListDocuments(mockSvc))

	t.Run("success", func(t *testing.T) {
		expected := &model.DocumentPage{
			Items:      []model.Document{{ID: uuid.New().String(), Title: "Invoice 7"}},
			Pagination: model.NewPagination(2, 5, 6),
		}
		filter := model.SearchFilter{Query: "invoice", DocumentType: model.DocumentTypeInvoice}
		mockSvc.On("Search", mock.Anything, alice, filter, 2, 5).Return(expected, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents?query=invoice&document_type=invoice&page=2&per_page=5", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result model.DocumentPage
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Len(t, result.Items, 1)
		assert.Equal(t, 6, result.Pagination.Total)
		assert.True(t, result.Pagination.HasPrev)
		mockSvc.AssertExpectations(t)
	})

	t.Run("defaults", func(t *testing.T) {
		mockSvc.On("Search", mock.Anything, alice, model.SearchFilter{}, 1, 0).
			Return(&model.DocumentPage{Items: []model.Document{}}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid page", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/documents?page=abc", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_PAGE", decodeError(t, resp).Error.Code)
	})

	t.Run("validation error", func(t *testing.T) {
		mockSvc.On("Search", mock.Anything, alice, model.SearchFilter{}, 0, 0).
			Return(nil, apperror.Validation("search documents", "page must be at least 1")).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents?page=0", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		res := decodeError(t, resp)
		assert.Equal(t, "VALIDATION_ERROR", res.Error.Code)
		assert.Equal(t, "page must be at least 1", res.Error.Message)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("Search", mock.Anything, alice, model.SearchFilter{}, 1, 0).Return(nil, errors.New("service error")).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestRecentDocuments(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := newTestApp()
	app.Get("/documents/recent", RecentDocuments(mockSvc))

	docs := []model.Document{{ID: "d2"}, {ID: "d1"}}
	mockSvc.On("RecentViews", mock.Anything, alice, 0).Return(docs, nil).Once()

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents/recent", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result documentListResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, docs, result.Documents)

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/documents/recent?limit=x", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	mockSvc.AssertExpectations(t)
}

func TestUploadDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := newTestApp()
	app.Post("/documents", UploadDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		body, ct := multipartBody(t, "q1.pdf", []byte("%PDF"), map[string]string{
			"title":           "Q1 Statement",
			"document_type":   "bank_statement",
			"document_date":   "2024-03-31",
			"is_confidential": "true",
			"access_level":    "shared",
			"metadata":        `{"bank":"ACME"}`,
		})

		expectedDoc := &model.Document{ID: uuid.New().String(), Title: "Q1 Statement"}
		mockSvc.On("Create", mock.Anything, alice, mock.MatchedBy(func(a model.DocumentAttrs) bool {
			return a.Title == "Q1 Statement" && a.DocumentType == model.DocumentTypeBankStatement &&
				a.IsConfidential && a.AccessLevel == model.AccessShared &&
				a.DocumentDate != nil && a.DocumentDate.Day() == 31 && a.Metadata["bank"] == "ACME"
		}), mock.MatchedBy(func(c model.Content) bool {
			return c.Filename == "q1.pdf" && string(c.Data) == "%PDF"
		})).Return(expectedDoc, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var result model.Document
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, expectedDoc.ID, result.ID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("no file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/documents", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "FILE_REQUIRED", decodeError(t, resp).Error.Code)
	})

	t.Run("bad date", func(t *testing.T) {
		body, ct := multipartBody(t, "q1.pdf", []byte("%PDF"), map[string]string{"document_date": "31/03/2024"})
		req := httptest.NewRequest(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_DATE", decodeError(t, resp).Error.Code)
	})

	t.Run("bad metadata", func(t *testing.T) {
		body, ct := multipartBody(t, "q1.pdf", []byte("%PDF"), map[string]string{"metadata": "[1,2]"})
		req := httptest.NewRequest(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_METADATA", decodeError(t, resp).Error.Code)
	})

	t.Run("storage error", func(t *testing.T) {
		body, ct := multipartBody(t, "q1.pdf", []byte("%PDF"), map[string]string{"title": "x", "document_type": "other"})
		mockSvc.On("Create", mock.Anything, alice, mock.Anything, mock.Anything).
			Return(nil, apperror.Storage("content put", errors.New("minio down"))).Once()

		req := httptest.NewRequest(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		res := decodeError(t, resp)
		assert.Equal(t, "STORAGE_UNAVAILABLE", res.Error.Code)
		assert.NotContains(t, res.Error.Message, "minio")
		mockSvc.AssertExpectations(t)
	})
}

func TestGetDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := newTestApp()
	app.Get("/documents/:id", GetDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		expectedDoc := &model.Document{ID: id, Title: "Q1"}
		mockSvc.On("View", mock.Anything, alice, id).Return(expectedDoc, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result model.Document
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, id, result.ID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("View", mock.Anything, alice, id).Return(nil, apperror.NotFound("view document", "document not found")).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("forbidden", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("View", mock.Anything, alice, id).Return(nil, apperror.Forbidden("access", "forbidden")).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "FORBIDDEN", decodeError(t, resp).Error.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/documents/invalid-uuid", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_ID", decodeError(t, resp).Error.Code)
	})

	t.Run("service error", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("View", mock.Anything, alice, id).Return(nil, errors.New("db error")).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestUpdateDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := newTestApp()
	app.Put("/documents/:id", UpdateDocument(mockSvc))
	id := uuid.New().String()

	put := func(body string) *http.Response {
		req := httptest.NewRequest(http.MethodPut, "/documents/"+id, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)
		return resp
	}

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Update", mock.Anything, alice, id, mock.MatchedBy(func(p model.DocumentPatch) bool {
			return p.Title != nil && *p.Title == "Renamed"
		})).Return(&model.Document{ID: id, Title: "Renamed"}, nil).Once()

		resp := put(`{"title":"Renamed"}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("immutable field", func(t *testing.T) {
		resp := put(`{"owner_id":"mallory"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		res := decodeError(t, resp)
		assert.Equal(t, "VALIDATION_ERROR", res.Error.Code)
		assert.Contains(t, res.Error.Message, "owner_id")
	})

	t.Run("malformed body", func(t *testing.T) {
		resp := put(`{"title":`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_BODY", decodeError(t, resp).Error.Code)
	})
}

func TestDeleteDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := newTestApp()
	app.Delete("/documents/:id", DeleteDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Delete", mock.Anything, alice, id).Return(nil).Once()

		req := httptest.NewRequest(http.MethodDelete, "/documents/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Delete", mock.Anything, alice, id).Return(apperror.NotFound("delete document", "document not found")).Once()

		req := httptest.NewRequest(http.MethodDelete, "/documents/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("service error", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Delete", mock.Anything, alice, id).Return(errors.New("delete error")).Once()

		req := httptest.NewRequest(http.MethodDelete, "/documents/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestDownloadDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := newTestApp()
	app.Get("/documents/:id/download", DownloadDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Download", mock.Anything, alice, id).Return(&service.Download{
			Filename: "Q1_Statement.pdf",
			MimeType: "application/pdf",
			Data:     []byte("%PDF"),
		}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id+"/download", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
		assert.Contains(t, resp.Header.Get("Content-Disposition"), `filename="Q1_Statement.pdf"`)

		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "%PDF", string(data))
	})

	t.Run("integrity error is not found", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Download", mock.Anything, alice, id).
			Return(nil, apperror.Integrity("download document", "content handle does not resolve", nil)).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id+"/download", nil))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestCreateVersion(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := newTestApp()
	app.Post("/documents/:id/versions", CreateVersion(mockSvc))
	id := uuid.New().String()

	t.Run("success", func(t *testing.T) {
		body, ct := multipartBody(t, "q1-v2.pdf", []byte("%PDF-2"), nil)
		mockSvc.On("CreateVersion", mock.Anything, alice, id, mock.MatchedBy(func(c model.Content) bool {
			return c.Filename == "q1-v2.pdf"
		})).Return(&model.Document{ID: "d2", Version: 2, ParentID: &id}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/documents/"+id+"/versions", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		var result model.Document
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.Equal(t, 2, result.Version)
		assert.Equal(t, id, *result.ParentID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("no file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/documents/"+id+"/versions", nil)
		resp, _ := app.Test(req)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestListVersions(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := newTestApp()
	app.Get("/documents/:id/versions", ListVersions(mockSvc))
	id := uuid.New().String()

	mockSvc.On("ListVersions", mock.Anything, alice, id).Return([]model.Document{{ID: "d2", Version: 2}}, nil).Once()

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id+"/versions", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result versionListResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.Len(t, result.Versions, 1)
	assert.Equal(t, 2, result.Versions[0].Version)
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", apperror.Validation("op", "bad"), http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"not found", apperror.NotFound("op", "missing"), http.StatusNotFound, "NOT_FOUND"},
		{"forbidden", apperror.Forbidden("op", "forbidden"), http.StatusForbidden, "FORBIDDEN"},
		{"conflict", apperror.Conflict("op", "exists", nil), http.StatusConflict, "CONFLICT"},
		{"storage", apperror.Storage("op", errors.New("x")), http.StatusBadGateway, "STORAGE_UNAVAILABLE"},
		{"integrity", apperror.Integrity("op", "gone", nil), http.StatusNotFound, "NOT_FOUND"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(middleware.RequestID())
			app.Get("/", func(c *fiber.Ctx) error { return writeServiceError(c, tt.err) })

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(middleware.RequestIDHeader, "rid-1")
			resp, _ := app.Test(req)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			res := decodeError(t, resp)
			assert.Equal(t, tt.wantCode, res.Error.Code)
			assert.Equal(t, "rid-1", res.RequestID)
		})
	}
}

type stubVerifier map[string]model.Subject

func (s stubVerifier) Verify(token string) (model.Subject, error) {
	if sub, ok := s[token]; ok {
		return sub, nil
	}
	return model.Subject{}, identity.ErrInvalidToken
}

func TestRouting(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})

	mockSvc := new(serviceMocks.MockDocumentService)
	RegisterRoutes(app, nil, mockSvc, stubVerifier{"alice-token": alice})

	t.Run("not found route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/non-existent", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
	})

	t.Run("liveness is public", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("api requires a token", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil))

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "UNAUTHORIZED", decodeError(t, resp).Error.Code)
	})

	t.Run("recent is not routed as an id", func(t *testing.T) {
		mockSvc.On("RecentViews", mock.Anything, alice, 0).Return([]model.Document{}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/recent", nil)
		req.Header.Set("Authorization", "Bearer alice-token")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}
