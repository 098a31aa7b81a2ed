// Package access decides whether a subject may act on a document.
package access

import (
	"fincms/internal/apperror"
	"fincms/internal/model"
)

// Action is an operation a subject attempts on a document.
type Action string

const (
	ActionRead     Action = "read"
	ActionWrite    Action = "write"
	ActionDelete   Action = "delete"
	ActionDownload Action = "download"
)

// Decision is the outcome of a policy evaluation.
type Decision struct {
	Allowed bool
	Reason  string
}

// Err returns nil for an allow and a forbidden error for a deny.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return apperror.Forbidden("access", d.Reason)
}

var allow = Decision{Allowed: true}

// Policy evaluates access rules. It holds no state and its decisions must
// not be cached: ownership and visibility can change between requests.
type Policy struct{}

func NewPolicy() Policy { return Policy{} }

// Evaluate applies the rules in order; the first match wins.
func (Policy) Evaluate(subject model.Subject, action Action, doc *model.Document) Decision {
	switch {
	case subject.IsAdmin():
		return allow
	case doc.OwnerID == subject.ID:
		return allow
	case action == ActionRead && !doc.IsConfidential &&
		(doc.AccessLevel == model.AccessShared || doc.AccessLevel == model.AccessPublic):
		return allow
	}
	return Decision{Reason: "forbidden"}
}
