package user

type Role string

const (
	RoleOwner    Role = "owner"    // Organisation owner - full access
	RoleManager  Role = "manager"  // Reviews attendance and runs reconciliation
	RoleEmployee Role = "employee" // Regular employee
	RolePending  Role = "pending"  // Still in onboarding
)

// Actor is the authenticated caller as carried by the bearer token.
// EmployeeID is empty for accounts that are not linked to an employee.
type Actor struct {
	UserID     string
	EmployeeID string
	Role       Role
}

// IsManager checks if actor is manager or owner
func (a Actor) IsManager() bool {
	return a.Role == RoleManager || a.Role == RoleOwner
}

// IsPending checks if actor is still in onboarding
func (a Actor) IsPending() bool {
	return a.Role == RolePending
}

// Can reports whether the actor's role grants p.
func (a Actor) Can(p Permission) bool {
	return HasPermission(a.Role, p)
}

func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleOwner, RoleManager, RoleEmployee, RolePending:
		return r, true
	}
	return "", false
}
