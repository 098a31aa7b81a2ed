package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"fincms/internal/apperror"
)

// DateLayout is the wire format of DocumentDate.
const DateLayout = "2006-01-02"

// DocumentPatch is a partial update. Nil fields are left unchanged.
// ClearDocumentDate removes the date when DocumentDate is nil.
type DocumentPatch struct {
	Title             *string
	Description       *string
	DocumentType      *DocumentType
	DocumentDate      *time.Time
	ClearDocumentDate bool
	Metadata          map[string]any
	IsConfidential    *bool
	AccessLevel       *AccessLevel
}

// Empty reports whether the patch changes nothing.
func (p DocumentPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.DocumentType == nil &&
		p.DocumentDate == nil && !p.ClearDocumentDate && p.Metadata == nil &&
		p.IsConfidential == nil && p.AccessLevel == nil
}

// immutableFields are document fields that only the system may set.
var immutableFields = map[string]struct{}{
	"id":             {},
	"owner_id":       {},
	"version":        {},
	"parent_id":      {},
	"file_path":      {},
	"content_handle": {},
	"file_type":      {},
	"file_size":      {},
	"mime_type":      {},
	"is_active":      {},
	"created_at":     {},
	"updated_at":     {},
}

// ParsePatch decodes a JSON object into a DocumentPatch. Immutable and unknown
// fields are rejected with a validation error rather than silently dropped.
func ParsePatch(raw map[string]json.RawMessage) (DocumentPatch, error) {
	const op = "parse patch"
	var p DocumentPatch

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var immutable []string
	for _, k := range keys {
		if _, ok := immutableFields[k]; ok {
			immutable = append(immutable, k)
		}
	}
	if len(immutable) > 0 {
		return p, apperror.Validation(op, "immutable fields cannot be updated: "+strings.Join(immutable, ", "))
	}

	for _, k := range keys {
		v := raw[k]
		var err error
		switch k {
		case "title":
			err = decodeInto(v, &p.Title)
			if err == nil && p.Title != nil && strings.TrimSpace(*p.Title) == "" {
				return p, apperror.Validation(op, "title must not be empty")
			}
		case "description":
			err = decodeInto(v, &p.Description)
		case "document_type":
			err = decodeInto(v, &p.DocumentType)
			if err == nil && p.DocumentType != nil && !p.DocumentType.Valid() {
				return p, apperror.Validation(op, "invalid document type: "+string(*p.DocumentType))
			}
		case "access_level":
			err = decodeInto(v, &p.AccessLevel)
			if err == nil && p.AccessLevel != nil && !p.AccessLevel.Valid() {
				return p, apperror.Validation(op, "invalid access level: "+string(*p.AccessLevel))
			}
		case "is_confidential":
			err = decodeInto(v, &p.IsConfidential)
		case "metadata":
			err = decodeInto(v, &p.Metadata)
			if err == nil && p.Metadata == nil {
				p.Metadata = map[string]any{}
			}
		case "document_date":
			var s *string
			if err = decodeInto(v, &s); err == nil {
				if s == nil {
					p.ClearDocumentDate = true
					break
				}
				d, perr := time.Parse(DateLayout, *s)
				if perr != nil {
					return p, apperror.Validation(op, "document_date must be formatted as YYYY-MM-DD")
				}
				p.DocumentDate = &d
			}
		default:
			return p, apperror.Validation(op, "unknown field: "+k)
		}
		if err != nil {
			return p, apperror.Validation(op, fmt.Sprintf("invalid value for %s", k))
		}
	}
	return p, nil
}

func decodeInto(v json.RawMessage, dst any) error {
	return json.Unmarshal(v, dst)
}

// Apply copies the patch onto d.
func (p DocumentPatch) Apply(d *Document) {
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.DocumentType != nil {
		d.DocumentType = *p.DocumentType
	}
	if p.DocumentDate != nil {
		d.DocumentDate = p.DocumentDate
	} else if p.ClearDocumentDate {
		d.DocumentDate = nil
	}
	if p.Metadata != nil {
		d.Metadata = p.Metadata
	}
	if p.IsConfidential != nil {
		d.IsConfidential = *p.IsConfidential
	}
	if p.AccessLevel != nil {
		d.AccessLevel = *p.AccessLevel
	}
}

// Validate checks the attributes of a new document and fills defaults.
func (a *DocumentAttrs) Validate() error {
	const op = "validate attributes"
	if strings.TrimSpace(a.Title) == "" {
		return apperror.Validation(op, "title is required")
	}
	if !a.DocumentType.Valid() {
		return apperror.Validation(op, "invalid document type: "+string(a.DocumentType))
	}
	if a.AccessLevel == "" {
		a.AccessLevel = AccessPrivate
	}
	if !a.AccessLevel.Valid() {
		return apperror.Validation(op, "invalid access level: "+string(a.AccessLevel))
	}
	return nil
}
