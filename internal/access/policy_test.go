package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fincms/internal/apperror"
	"fincms/internal/model"
)

func TestPolicy_Evaluate(t *testing.T) {
	owner := model.Subject{ID: "owner", Role: model.RoleUser}
	admin := model.Subject{ID: "root", Role: model.RoleAdmin}
	other := model.Subject{ID: "other", Role: model.RoleUser}
	all := []Action{ActionRead, ActionWrite, ActionDelete, ActionDownload}

	doc := func(level model.AccessLevel, confidential bool) *model.Document {
		return &model.Document{OwnerID: "owner", AccessLevel: level, IsConfidential: confidential}
	}

	tests := []struct {
		name    string
		subject model.Subject
		doc     *model.Document
		allowed map[Action]bool
	}{
		{
			name:    "owner may do anything on private confidential",
			subject: owner,
			doc:     doc(model.AccessPrivate, true),
			allowed: map[Action]bool{ActionRead: true, ActionWrite: true, ActionDelete: true, ActionDownload: true},
		},
		{
			name:    "admin may do anything on someone else's private document",
			subject: admin,
			doc:     doc(model.AccessPrivate, true),
			allowed: map[Action]bool{ActionRead: true, ActionWrite: true, ActionDelete: true, ActionDownload: true},
		},
		{
			name:    "non-owner denied on private",
			subject: other,
			doc:     doc(model.AccessPrivate, false),
			allowed: map[Action]bool{},
		},
		{
			name:    "non-owner may only read public non-confidential",
			subject: other,
			doc:     doc(model.AccessPublic, false),
			allowed: map[Action]bool{ActionRead: true},
		},
		{
			name:    "non-owner may only read shared non-confidential",
			subject: other,
			doc:     doc(model.AccessShared, false),
			allowed: map[Action]bool{ActionRead: true},
		},
		{
			name:    "confidential overrides public",
			subject: other,
			doc:     doc(model.AccessPublic, true),
			allowed: map[Action]bool{},
		},
	}

	p := NewPolicy()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, a := range all {
				d := p.Evaluate(tt.subject, a, tt.doc)
				assert.Equal(t, tt.allowed[a], d.Allowed, "action %s", a)
				if !d.Allowed {
					assert.Equal(t, "forbidden", d.Reason)
					assert.ErrorIs(t, d.Err(), apperror.ErrForbidden)
				} else {
					assert.NoError(t, d.Err())
				}
			}
		})
	}
}

func TestPolicy_ReflectsCurrentDocumentState(t *testing.T) {
	p := NewPolicy()
	reader := model.Subject{ID: "reader", Role: model.RoleUser}
	d := &model.Document{OwnerID: "owner", AccessLevel: model.AccessPrivate}

	assert.False(t, p.Evaluate(reader, ActionRead, d).Allowed)

	d.AccessLevel = model.AccessPublic
	assert.True(t, p.Evaluate(reader, ActionRead, d).Allowed)

	d.IsConfidential = true
	assert.False(t, p.Evaluate(reader, ActionRead, d).Allowed)
}
