package models

// Role distinguishes administrators from read-only users.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleUser    Role = "USER"
	RoleUnknown Role = "UNKNOWN"
)

// RoleFromStored maps the role string kept on a user record. Only "admin"
// grants administrative rights; anything else is a regular user.
func RoleFromStored(stored string) Role {
	if stored == "admin" {
		return RoleAdmin
	}
	return RoleUser
}

// Stored returns the persisted representation of the role.
func (r Role) Stored() string {
	if r == RoleAdmin {
		return "admin"
	}
	return "user"
}

// ParseRole accepts either the stored or the API form of a role.
func ParseRole(raw string) (Role, bool) {
	switch raw {
	case "admin", string(RoleAdmin):
		return RoleAdmin, true
	case "user", string(RoleUser):
		return RoleUser, true
	}
	return RoleUnknown, false
}

// IsAdmin reports whether the role may edit and delete concerts.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// User is an account as exposed by the API.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID int64
	Email  string
	Role   Role
}
