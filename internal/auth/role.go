package auth

// Role is the caller's role as carried in the token.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Identity is the authenticated caller as seen by the services.
type Identity struct {
	UserID int64
	Role   Role
}

// Allowed is the single capability check: it reports whether the identity's
// role is one of the permitted roles. All role branching goes through here
// instead of ad-hoc string comparisons.
func (id Identity) Allowed(roles ...Role) bool {
	for _, r := range roles {
		if id.Role == r {
			return true
		}
	}
	return false
}

// IsAdmin is a convenience for the common admin override.
func (id Identity) IsAdmin() bool { return id.Role == RoleAdmin }
