package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"fincms/internal/identity"
	"fincms/internal/model"
)

// SubjectLocalKey is the key used to store the authenticated subject in Fiber's context locals.
const SubjectLocalKey = "subject"

// Auth requires a valid "Authorization: Bearer <token>" header. The verified
// subject is stored under SubjectLocalKey; any failure ends the request with 401.
func Auth(v identity.Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		subject, err := v.Verify(strings.TrimSpace(token))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}
		c.Locals(SubjectLocalKey, subject)
		return c.Next()
	}
}

// SubjectFrom returns the subject stored by Auth.
func SubjectFrom(c *fiber.Ctx) (model.Subject, bool) {
	s, ok := c.Locals(SubjectLocalKey).(model.Subject)
	return s, ok
}
