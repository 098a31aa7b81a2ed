package model

import "time"

// RecentView records the last time a user viewed a document. DocumentID is an
// opaque key here; it is resolved to a Document by the service layer.
type RecentView struct {
	UserID     string    `json:"user_id"`
	DocumentID string    `json:"document_id"`
	ViewedAt   time.Time `json:"viewed_at"`
}
