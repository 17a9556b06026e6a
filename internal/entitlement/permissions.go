package entitlement

import "github.com/tariffsnap/tariffsnap-golang/internal/models"

// Capability is one admin permission. Routes are gated on individual
// capabilities rather than a role string, so future roles can carry a
// subset without touching the handlers.
type Capability string

const (
	CapManageUsers   Capability = "manage-users"
	CapManagePlans   Capability = "manage-plans"
	CapManageContent Capability = "manage-content"
)

// roleCapabilities maps each role to its permission set.
var roleCapabilities = map[string][]Capability{
	models.RoleAdmin: {CapManageUsers, CapManagePlans, CapManageContent},
	models.RoleUser:  {},
}

// Capabilities returns the permission set for a role. Unknown roles get none.
func Capabilities(role string) []Capability {
	caps := roleCapabilities[role]
	out := make([]Capability, len(caps))
	copy(out, caps)
	return out
}

// Can reports whether the role holds the capability.
func Can(role string, cap Capability) bool {
	for _, c := range roleCapabilities[role] {
		if c == cap {
			return true
		}
	}
	return false
}
