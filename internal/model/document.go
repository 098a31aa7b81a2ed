package model

import (
	"time"
)

// DocumentType classifies a financial document.
type DocumentType string

const (
	DocumentTypeBankStatement DocumentType = "bank_statement"
	DocumentTypeInvoice       DocumentType = "invoice"
	DocumentTypeTaxForm       DocumentType = "tax_form"
	DocumentTypeReceipt       DocumentType = "receipt"
	DocumentTypeContract      DocumentType = "contract"
	DocumentTypeOther         DocumentType = "other"
)

// Valid reports whether t is one of the known document types.
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentTypeBankStatement, DocumentTypeInvoice, DocumentTypeTaxForm,
		DocumentTypeReceipt, DocumentTypeContract, DocumentTypeOther:
		return true
	}
	return false
}

// AccessLevel is the visibility tier of a document for non-owners.
type AccessLevel string

const (
	AccessPrivate AccessLevel = "private"
	AccessShared  AccessLevel = "shared"
	AccessPublic  AccessLevel = "public"
)

func (l AccessLevel) Valid() bool {
	switch l {
	case AccessPrivate, AccessShared, AccessPublic:
		return true
	}
	return false
}

// Document is a stored financial document and one node of its version chain.
// Relationships are held as ids only (OwnerID, ParentID); nothing here points
// at another live object.
type Document struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	ContentHandle  string         `json:"-"`
	FileType       string         `json:"file_type"`
	FileSize       int64          `json:"file_size"`
	MimeType       string         `json:"mime_type"`
	DocumentType   DocumentType   `json:"document_type"`
	DocumentDate   *time.Time     `json:"document_date,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	OwnerID        string         `json:"owner_id"`
	IsConfidential bool           `json:"is_confidential"`
	AccessLevel    AccessLevel    `json:"access_level"`
	Version        int            `json:"version"`
	ParentID       *string        `json:"parent_id,omitempty"`
	IsActive       bool           `json:"is_active"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// IsRoot reports whether d starts a version chain.
func (d *Document) IsRoot() bool {
	return d.ParentID == nil
}

// DocumentAttrs are the caller-supplied attributes of a new root document.
type DocumentAttrs struct {
	Title          string
	Description    string
	DocumentType   DocumentType
	DocumentDate   *time.Time
	Metadata       map[string]any
	IsConfidential bool
	AccessLevel    AccessLevel
}

// Content is an uploaded file: its bytes plus the client-supplied name and
// content type. FileType, FileSize and MimeType of a document are derived
// from the stored bytes, not from these hints.
type Content struct {
	Filename    string
	ContentType string
	Data        []byte
}
