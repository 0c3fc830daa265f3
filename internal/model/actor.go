package model

import "github.com/google/uuid"

type Role string

const (
	RoleSysAdmin    Role = "sys_admin"
	RoleSchoolAdmin Role = "school_admin"
	RoleTeacher     Role = "teacher"
	RoleStudent     Role = "student"
	RoleParent      Role = "parent"
	RoleStaff       Role = "staff"
)

var Roles = []Role{RoleSysAdmin, RoleSchoolAdmin, RoleTeacher, RoleStudent, RoleParent, RoleStaff}

func (r Role) Valid() bool {
	for _, role := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the role bypasses ownership checks.
func (r Role) IsAdmin() bool {
	return r == RoleSysAdmin || r == RoleSchoolAdmin
}

// CanAuthor reports whether the role may create questions, exams and assignments.
func (r Role) CanAuthor() bool {
	return r == RoleTeacher || r.IsAdmin()
}

// Actor is the authenticated caller of a core operation. It is trusted verbatim.
type Actor struct {
	ID       uuid.UUID `json:"id"`
	Role     Role      `json:"role"`
	TenantID uuid.UUID `json:"tenant_id"`
}

func (a Actor) IsSysAdmin() bool { return a.Role == RoleSysAdmin }
