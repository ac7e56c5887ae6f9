package entity

// Role is the authenticated actor's role as supplied by the identity service.
// Unknown role strings are rejected at the boundary, never defaulted.
type Role string

const (
	RoleAdmin              Role = "ADMIN"
	RoleAccountant         Role = "ACCOUNTANT"
	RoleFieldSupervisor    Role = "FIELD_SUPERVISOR"
	RoleGeneralSupervisor  Role = "GENERAL_SUPERVISOR"
	RoleDeptManager        Role = "DEPT_MANAGER"
	RoleGeneralManager     Role = "GENERAL_MANAGER"
	RoleGeneralResponsible Role = "GENERAL_RESPONSIBLE"
	RoleStorekeeper        Role = "STOREKEEPER"
	RoleHR                 Role = "HR"
	RoleDispatcher         Role = "DISPATCHER"
)

var validRoles = map[Role]bool{
	RoleAdmin:              true,
	RoleAccountant:         true,
	RoleFieldSupervisor:    true,
	RoleGeneralSupervisor:  true,
	RoleDeptManager:        true,
	RoleGeneralManager:     true,
	RoleGeneralResponsible: true,
	RoleStorekeeper:        true,
	RoleHR:                 true,
	RoleDispatcher:         true,
}

// IsValid returns true if the role is a known role
func (r Role) IsValid() bool {
	return validRoles[r]
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// Actor is the already-authenticated caller identity every operation receives.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// IsPrivileged reports whether the actor may perform accounting actions
// (issue/close advances, approve/reject expenses, resolve appeals).
func (a Actor) IsPrivileged() bool {
	return a.Role == RoleAdmin || a.Role == RoleAccountant
}

// CanDirectIssue reports whether the actor may post a direct (non-request)
// inventory issue.
func (a Actor) CanDirectIssue() bool {
	return a.Role == RoleAdmin || a.Role == RoleStorekeeper
}
