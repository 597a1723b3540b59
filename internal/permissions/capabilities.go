// Package permissions maps (role, level) pairs to capability sets and guards
// read access to the audit trail.
package permissions

import "github.com/cozinhalabs/auditoria/internal/models"

// Capability is one independently grantable permission on a screen.
type Capability string

const (
	CapView   Capability = "visualizar"
	CapCreate Capability = "criar"
	CapEdit   Capability = "editar"
	CapDelete Capability = "excluir"
)

// Capabilities is the set of capabilities a user holds on one screen.
type Capabilities struct {
	View   bool
	Create bool
	Edit   bool
	Delete bool
}

// Has reports whether the set includes the given capability.
func (c Capabilities) Has(cap Capability) bool {
	switch cap {
	case CapView:
		return c.View
	case CapCreate:
		return c.Create
	case CapEdit:
		return c.Edit
	case CapDelete:
		return c.Delete
	}
	return false
}

// ForRoleLevel is the pure function from (role, level) to the capability set.
// Administrators hold everything regardless of level; every other role is
// level-indexed.
func ForRoleLevel(role, level string) Capabilities {
	if role == models.RoleAdministrador {
		return Capabilities{View: true, Create: true, Edit: true, Delete: true}
	}

	switch level {
	case models.LevelI:
		return Capabilities{View: true}
	case models.LevelII:
		return Capabilities{View: true, Create: true, Edit: true}
	case models.LevelIII:
		return Capabilities{View: true, Create: true, Edit: true, Delete: true}
	}
	return Capabilities{}
}

// CanReadAudit is the elevated predicate for the organization-wide audit
// trail. It is deliberately separate from the generic capability table:
// viewing business data and viewing the audit trail are different trust
// boundaries. Only administrators, or coordinators at level III, qualify.
func CanReadAudit(role, level string) bool {
	if role == models.RoleAdministrador {
		return true
	}
	return role == models.RoleCoordenador && level == models.LevelIII
}

// CanViewStats gates the aggregate statistics view.
func CanViewStats(role string) bool {
	return role == models.RoleAdministrador
}
