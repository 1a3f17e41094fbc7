package models

// Role is the access-control classification of a Telegram user, as
// recorded in the task-management backend.
type Role string

const (
	RoleSuperadmin   Role = "superadmin"
	RoleManager      Role = "manager"
	RoleCreator      Role = "creator"
	RoleExecutor     Role = "executor"
	RoleRegistration Role = "registration"
	RoleUnknown      Role = "unknown"
)

// ParseRole maps a backend type string to a Role, defaulting to
// RoleUnknown for anything unrecognized.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleSuperadmin, RoleManager, RoleCreator, RoleExecutor, RoleRegistration:
		return Role(s)
	default:
		return RoleUnknown
	}
}

// User is the classified identity attached to an inbound update.
type User struct {
	ID       int64
	Name     string
	Username string
	Role     Role
	Banned   bool
}

// Known reports whether the user is registered in the backend at all.
func (u User) Known() bool {
	return u.Role != RoleUnknown
}
