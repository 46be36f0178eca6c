package enums

import "fmt"

// ActorRole identifies what an authenticated actor is allowed to do.
type ActorRole string

const (
	ActorRoleAdmin           ActorRole = "admin"
	ActorRoleCentralLabAdmin ActorRole = "central_lab_admin"
	ActorRoleLabAssistant    ActorRole = "lab_assistant"
	ActorRoleFaculty         ActorRole = "faculty"
)

var validActorRoles = []ActorRole{
	ActorRoleAdmin,
	ActorRoleCentralLabAdmin,
	ActorRoleLabAssistant,
	ActorRoleFaculty,
}

func (r ActorRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ActorRole.
func (r ActorRole) IsValid() bool {
	for _, v := range validActorRoles {
		if r == v {
			return true
		}
	}
	return false
}

// CanDecide reports whether the role may approve or reject requests.
func (r ActorRole) CanDecide() bool {
	return r == ActorRoleAdmin || r == ActorRoleCentralLabAdmin
}

// CanReceiveStock reports whether the role may post invoice receipts
// and manual stock adjustments.
func (r ActorRole) CanReceiveStock() bool {
	return r == ActorRoleAdmin || r == ActorRoleCentralLabAdmin
}

// ParseActorRole converts raw input into an ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	role := ActorRole(value)
	if !role.IsValid() {
		return "", fmt.Errorf("invalid actor role %q", value)
	}
	return role, nil
}
