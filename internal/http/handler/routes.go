package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"fincms/internal/http/middleware"
	"fincms/internal/identity"
	"fincms/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app. Probes are
// public; everything under /api/v1 requires a bearer token.
func RegisterRoutes(app *fiber.App, db *sql.DB, docSvc service.DocumentService, verifier identity.Verifier) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	api := app.Group("/api/v1", middleware.Auth(verifier))

	api.Get("/documents", ListDocuments(docSvc))
	api.Post("/documents", UploadDocument(docSvc))
	// Registered before /documents/:id so "recent" is not taken as an id.
	api.Get("/documents/recent", RecentDocuments(docSvc))
	api.Get("/documents/:id", GetDocument(docSvc))
	api.Put("/documents/:id", UpdateDocument(docSvc))
	api.Delete("/documents/:id", DeleteDocument(docSvc))
	api.Get("/documents/:id/download", DownloadDocument(docSvc))
	api.Post("/documents/:id/versions", CreateVersion(docSvc))
	api.Get("/documents/:id/versions", ListVersions(docSvc))
}
