package model

// Role is the coarse permission tier of an authenticated user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Subject is the authenticated caller as resolved by the identity provider.
type Subject struct {
	ID   string
	Role Role
}

func (s Subject) IsAdmin() bool {
	return s.Role == RoleAdmin
}
