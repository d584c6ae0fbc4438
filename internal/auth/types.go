package auth

import "errors"

// Role represents an authorisation tier for API tokens.
type Role string

const (
	// RoleViewer can read space state and evaluate conditions.
	RoleViewer Role = "viewer"

	// RoleOperator can also run actions (connect, disconnect).
	RoleOperator Role = "operator"

	// RoleAdmin can also change settings and pair a new API key.
	RoleAdmin Role = "admin"
)

// ValidRoles is the set of roles a token may carry.
var ValidRoles = []Role{RoleViewer, RoleOperator, RoleAdmin}

// IsValidRole returns true if r is one of ValidRoles.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Sentinel errors for auth operations.
var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrInvalidRole  = errors.New("invalid role")
	ErrForbidden    = errors.New("insufficient permissions")
)
